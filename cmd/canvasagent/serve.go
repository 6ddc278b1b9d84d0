package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"canvas-agent/internal/api"
	"canvas-agent/internal/config"
	"canvas-agent/internal/service"
	"canvas-agent/internal/storage"
	"canvas-agent/internal/ws"
)

func buildServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		Long: `Start the canvas agent server.

Documents, history and planner memory are kept in DATA_PATH. Imported
images go to ASSET_DIR. The server shuts down gracefully on SIGINT or
SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides LISTEN_ADDR)")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	store, err := storage.NewStore(cfg.DataPath, cfg.HistoryLimit)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	phrasebook, err := service.LoadPhrasebook(cfg.PhrasebookPath)
	if err != nil {
		return fmt.Errorf("load phrasebook: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	proposer := service.NewProposer(cfg, phrasebook)
	commandSvc := service.NewCommandService(store, phrasebook, proposer, hub, logger)
	assetSvc, err := service.NewAssetService(cfg.AssetDir, commandSvc, logger)
	if err != nil {
		return fmt.Errorf("init assets: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(cfg, hub, commandSvc, assetSvc, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"addr", cfg.ListenAddr,
			"phrases", phrasebook.Len(),
			"proposer", cfg.ProposerAPIKey != "",
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
