package servecmder

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/cmd/tabula/bootstrap"
	"github.com/papercomputeco/tabula/server"
)

const serveLongDesc string = `Serve the chat API.

Endpoints:
  GET  /                          liveness probe
  POST /chat                      {"message": "..."} -> {"reply": "..."}
  POST /update                    refresh the sheet cache from the source
  GET  /catalog                   the sheets and fields the agent knows
  GET  /sessions[/:id[/transcript]]  inspect conversations

Examples:
  tabula serve
  tabula serve --listen :9000 --debug`

const serveShortDesc string = "Serve the chat API"

type serveCommander struct {
	listen string
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on (default from config, :8000)")

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	cfg, err := bootstrap.LoadConfig(cmd)
	if err != nil {
		return err
	}
	if c.listen != "" {
		cfg.Server.Listen = c.listen
	}

	logger := bootstrap.NewLogger(cfg)
	defer logger.Sync()

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := app.BuildAgent(); err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if app.Cache != nil && cfg.Cache.Watch {
		go func() {
			if err := app.Cache.Watch(ctx); err != nil {
				logger.Warn("cache watcher stopped", zap.Error(err))
			}
		}()
	}

	if ttl := cfg.Agent.SessionTTL; ttl > 0 {
		go app.Agent.Sessions().Sweep(ctx, ttl, min(ttl, time.Minute), logger)
	}

	srv := server.New(server.Config{
		ListenAddr: cfg.Server.Listen,
		Debug:      cfg.Debug,
	}, app.Agent, refresherOrNil(app), app.Catalog, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// refresherOrNil avoids handing the server a typed nil.
func refresherOrNil(app *bootstrap.App) server.Refresher {
	if app.Refresher == nil {
		return nil
	}
	return app.Refresher
}
