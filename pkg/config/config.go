// Package config assembles tabula's configuration: built-in defaults, then
// an optional TOML file, then environment variables. Command line flags are
// applied last by the commands themselves.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"

	"github.com/papercomputeco/tabula/pkg/catalog"
)

// Source kinds.
const (
	SourceRemote = "remote"
	SourceXLSX   = "xlsx"
)

// Config is the whole of tabula's configuration.
type Config struct {
	Debug     bool   `toml:"debug"`
	LogFormat string `toml:"log_format"` // "console" or "json"

	Server     ServerConfig              `toml:"server"`
	Oracle     OracleConfig              `toml:"oracle"`
	Source     SourceConfig              `toml:"source"`
	Cache      CacheConfig               `toml:"cache"`
	Agent      AgentConfig               `toml:"agent"`
	Transcript TranscriptConfig          `toml:"transcript"`
	Persona    PersonaConfig             `toml:"persona"`
	Sheets     []catalog.SheetDescriptor `toml:"sheets"`
}

type ServerConfig struct {
	// Address to listen on (e.g., ":8000")
	Listen string `toml:"listen"`
}

type OracleConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`

	// SelectorModel overrides Model for sheet selection.
	SelectorModel string `toml:"selector_model"`

	Timeout    time.Duration `toml:"timeout"`
	MaxRetries int           `toml:"max_retries"`
	Backoff    time.Duration `toml:"backoff"`

	Temperature *float64 `toml:"temperature"`
}

type SourceConfig struct {
	Kind string `toml:"kind"`

	// URL of the remote sheet endpoint.
	URL string `toml:"url"`

	// Workbook is the .xlsx file read when Kind is "xlsx".
	Workbook string `toml:"workbook"`

	Timeout time.Duration `toml:"timeout"`
}

type CacheConfig struct {
	// Dir holds one JSON file per sheet. Empty disables the cache.
	Dir string `toml:"dir"`

	// Watch reloads cache files edited by other processes.
	Watch bool `toml:"watch"`
}

type AgentConfig struct {
	MaxToolRounds int `toml:"max_tool_rounds"`

	// MaxSessions caps live sessions; the least recently used idle one is
	// evicted to make room. Zero means no cap.
	MaxSessions int `toml:"max_sessions"`

	// SessionTTL drops sessions idle for longer. Zero keeps them forever.
	SessionTTL time.Duration `toml:"session_ttl"`
}

type TranscriptConfig struct {
	// DBPath is the SQLite file transcripts are kept in. Empty keeps them in
	// memory; "off" disables recording.
	DBPath string `toml:"db_path"`
}

type PersonaConfig struct {
	Name         string `toml:"name"`
	Organization string `toml:"organization"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LogFormat: "console",
		Server: ServerConfig{
			Listen: ":8000",
		},
		Oracle: OracleConfig{
			BaseURL:    "https://api.openai.com",
			Model:      "gpt-4.1",
			Timeout:    2 * time.Minute,
			MaxRetries: 3,
			Backoff:    500 * time.Millisecond,
		},
		Source: SourceConfig{
			Kind:    SourceRemote,
			Timeout: time.Minute,
		},
		Cache: CacheConfig{
			Dir:   "sheet_cache",
			Watch: true,
		},
		Agent: AgentConfig{
			MaxToolRounds: 5,
			MaxSessions:   1000,
			SessionTTL:    24 * time.Hour,
		},
		Persona: PersonaConfig{
			Name:         "Diya",
			Organization: "Botivate LLP",
		},
	}
}

// Environment variables read by Load.
const (
	EnvConfig   = "TABULA_CONFIG"
	EnvAPIKey   = "OPENAI_API_KEY"
	EnvBaseURL  = "OPENAI_BASE_URL"
	EnvModel    = "TABULA_MODEL"
	EnvURL      = "APPS_SCRIPT_URL"
	EnvCacheDir = "TABULA_CACHE_DIR"
	EnvListen   = "TABULA_LISTEN"
	EnvWorkbook = "TABULA_WORKBOOK"
	EnvDebug    = "TABULA_DEBUG"
)

// Load reads the file at path (when it exists) over the defaults and then
// applies the environment. A missing file is only an error when path was
// given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			if !explicit && errors.Is(err, os.ErrNotExist) {
				err = nil
			}
			if err != nil {
				return nil, err
			}
		}
	}

	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

// DefaultPath is $TABULA_CONFIG, else ~/.tabula/config.toml.
func DefaultPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tabula", "config.toml")
}

func (c *Config) loadFile(path string) error {
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set(EnvAPIKey, &c.Oracle.APIKey)
	set(EnvBaseURL, &c.Oracle.BaseURL)
	set(EnvModel, &c.Oracle.Model)
	set(EnvURL, &c.Source.URL)
	set(EnvCacheDir, &c.Cache.Dir)
	set(EnvListen, &c.Server.Listen)

	if v, ok := lookup(EnvWorkbook); ok && v != "" {
		c.Source.Workbook = v
		c.Source.Kind = SourceXLSX
	}
	if v, ok := lookup(EnvDebug); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var err error

	switch c.Source.Kind {
	case SourceRemote:
		if c.Source.URL == "" {
			err = multierr.Append(err, fmt.Errorf("source.url (or $%s) is required for the remote source", EnvURL))
		}
	case SourceXLSX:
		if c.Source.Workbook == "" {
			err = multierr.Append(err, fmt.Errorf("source.workbook (or $%s) is required for the xlsx source", EnvWorkbook))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("source.kind %q is not one of %q, %q", c.Source.Kind, SourceRemote, SourceXLSX))
	}

	if c.Oracle.Model == "" {
		err = multierr.Append(err, errors.New("oracle.model is required"))
	}
	if c.Agent.MaxToolRounds < 0 {
		err = multierr.Append(err, errors.New("agent.max_tool_rounds must not be negative"))
	}
	if c.Agent.MaxSessions < 0 {
		err = multierr.Append(err, errors.New("agent.max_sessions must not be negative"))
	}
	if c.Agent.SessionTTL < 0 {
		err = multierr.Append(err, errors.New("agent.session_ttl must not be negative"))
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		err = multierr.Append(err, fmt.Errorf("log_format %q is not console or json", c.LogFormat))
	}

	return err
}

// ValidateOracle checks the settings needed to call the oracle.
func (c *Config) ValidateOracle() error {
	if c.Oracle.APIKey == "" {
		return fmt.Errorf("oracle.api_key (or $%s) is required", EnvAPIKey)
	}
	return nil
}

// SelectorModel is the model used for sheet selection.
func (c *Config) SelectorModel() string {
	if c.Oracle.SelectorModel != "" {
		return c.Oracle.SelectorModel
	}
	return c.Oracle.Model
}

// Catalog returns the configured sheet catalog, or the built-in one.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	if len(c.Sheets) == 0 {
		return catalog.Default(), nil
	}
	return catalog.New(c.Sheets)
}

// TranscriptEnabled reports whether turns are recorded.
func (c *Config) TranscriptEnabled() bool {
	return c.Transcript.DBPath != "off"
}
