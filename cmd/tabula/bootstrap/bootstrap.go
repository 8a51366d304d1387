// Package bootstrap turns a loaded configuration into the running pieces
// every tabula command shares.
package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/pkg/agent"
	"github.com/papercomputeco/tabula/pkg/answer"
	"github.com/papercomputeco/tabula/pkg/catalog"
	"github.com/papercomputeco/tabula/pkg/config"
	"github.com/papercomputeco/tabula/pkg/llm"
	"github.com/papercomputeco/tabula/pkg/logger"
	"github.com/papercomputeco/tabula/pkg/merkle"
	"github.com/papercomputeco/tabula/pkg/selector"
	"github.com/papercomputeco/tabula/pkg/source"
	"github.com/papercomputeco/tabula/pkg/source/cache"
	"github.com/papercomputeco/tabula/pkg/source/remote"
	"github.com/papercomputeco/tabula/pkg/source/xlsx"
	"github.com/papercomputeco/tabula/pkg/tools"
	"github.com/papercomputeco/tabula/pkg/transcript"
)

// Persistent flag names, registered on the root command.
const (
	FlagConfig = "config"
	FlagDebug  = "debug"
)

// AddFlags registers the flags every subcommand inherits.
func AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP(FlagConfig, "c", "", "Path to config file (default: $TABULA_CONFIG or ~/.tabula/config.toml)")
	cmd.PersistentFlags().Bool(FlagDebug, false, "Enable debug logging")
}

// LoadConfig loads the configuration named by cmd's flags and applies
// --debug on top of it.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(FlagConfig)
	cfg, err := config.Load(ResolvePath(path))
	if err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup(FlagDebug); f != nil && f.Changed {
		cfg.Debug, _ = cmd.Flags().GetBool(FlagDebug)
	}
	return cfg, nil
}

// NewLogger builds the logger cfg asks for.
func NewLogger(cfg *config.Config) *zap.Logger {
	return logger.New(cfg.LogFormat, cfg.Debug)
}

// NewStderrLogger is NewLogger for commands that write their output to stdout.
func NewStderrLogger(cfg *config.Config) *zap.Logger {
	return logger.NewStderr(cfg.LogFormat, cfg.Debug)
}

// ResolvePath expands a leading "~/" to the home directory.
func ResolvePath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// DefaultTranscriptPath is where transcript commands look when neither a
// flag nor the config names a database.
func DefaultTranscriptPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find home directory: %w", err)
	}
	return filepath.Join(home, ".tabula", "transcripts.db"), nil
}

// App holds the wired components. Agent and Recorder are only set after
// BuildAgent.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Catalog   *catalog.Catalog
	Source    source.Source
	Cache     *cache.Store
	Fetcher   *source.Fetcher
	Refresher *source.Refresher
	Recorder  *transcript.Recorder
	Agent     *agent.Agent
}

// New wires the data side: catalog, source, cache, fetcher and refresher.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cat, err := cfg.Catalog()
	if err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	app := &App{Config: cfg, Logger: logger, Catalog: cat}

	switch cfg.Source.Kind {
	case config.SourceXLSX:
		app.Source, err = xlsx.New(ResolvePath(cfg.Source.Workbook), logger)
	default:
		app.Source, err = remote.New(remote.Config{URL: cfg.Source.URL, Timeout: cfg.Source.Timeout}, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("could not create %s source: %w", cfg.Source.Kind, err)
	}

	var cacheReader source.Cache
	if cfg.Cache.Dir != "" {
		app.Cache, err = cache.NewStore(ResolvePath(cfg.Cache.Dir), logger)
		if err != nil {
			return nil, fmt.Errorf("could not open cache: %w", err)
		}
		cacheReader = app.Cache
		app.Refresher = source.NewRefresher(cat.Names(), app.Source, app.Cache, logger)
	}

	app.Fetcher = source.NewFetcher(cacheReader, app.Source, logger)
	return app, nil
}

// BuildAgent wires the oracle, the transcript store and the agent.
func (a *App) BuildAgent() error {
	cfg := a.Config
	if err := cfg.ValidateOracle(); err != nil {
		return err
	}

	oracle := llm.NewClient(llm.ClientConfig{
		BaseURL:    cfg.Oracle.BaseURL,
		APIKey:     cfg.Oracle.APIKey,
		Timeout:    cfg.Oracle.Timeout,
		MaxRetries: cfg.Oracle.MaxRetries,
		Backoff:    cfg.Oracle.Backoff,
	}, a.Logger)

	opts := []agent.Option{}
	if cfg.TranscriptEnabled() {
		storer, err := a.openTranscript()
		if err != nil {
			return err
		}
		a.Recorder = transcript.NewRecorder(storer, a.Logger)
		opts = append(opts, agent.WithTranscript(a.Recorder))
	}

	var options *llm.Options
	if cfg.Oracle.Temperature != nil {
		options = &llm.Options{Temperature: cfg.Oracle.Temperature}
	}

	reg := tools.Default()
	gen := answer.New(answer.Config{
		Model:   cfg.Oracle.Model,
		Persona: answer.Persona{Name: cfg.Persona.Name, Organization: cfg.Persona.Organization},
		Options: options,
	}, oracle, a.Catalog, reg, a.Logger)

	a.Agent = agent.New(agent.Config{
		Model:         cfg.Oracle.Model,
		MaxToolRounds: cfg.Agent.MaxToolRounds,
		MaxSessions:   cfg.Agent.MaxSessions,
	},
		selector.New(oracle, a.Catalog, cfg.SelectorModel(), a.Logger),
		a.Fetcher,
		gen,
		reg,
		a.Logger,
		opts...,
	)
	return nil
}

func (a *App) openTranscript() (merkle.Storer, error) {
	path := a.Config.Transcript.DBPath
	if path == "" {
		a.Logger.Info("using in-memory transcript storage")
		return merkle.NewMemoryStorer(), nil
	}

	path = ResolvePath(path)
	storer, err := merkle.NewSQLiteStorer(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
	}
	a.Logger.Info("using SQLite transcript storage", zap.String("path", path))
	return storer, nil
}

// Close releases everything the app opened.
func (a *App) Close() error {
	var err error
	if a.Recorder != nil {
		err = multierr.Append(err, a.Recorder.Close())
	}
	return err
}
