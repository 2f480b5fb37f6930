package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lazypower/warmth/internal/engine"
	"github.com/lazypower/warmth/internal/logging"
	"github.com/lazypower/warmth/internal/server"
	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.Default()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	eng := engine.New(db, cfg.Warmth, engine.WithLogger(logger))
	eng.StartRefreshTimer()
	defer eng.Stop()

	srv := server.New(db, eng, VersionString())
	addr := cfg.ListenAddr()
	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("warmth serving",
			slog.String("addr", addr),
			slog.String("db_driver", db.Driver),
			slog.String("db", db.Path),
			slog.Any("config", cfg),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- goerr.Wrap(err, "listen", goerr.V("addr", addr))
		}
	}()

	select {
	case <-done:
		logger.Info("shutting down")
	case err := <-errCh:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return goerr.Wrap(err, "shutdown")
	}
	return nil
}
