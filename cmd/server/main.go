package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vperiodt/mulehunter/internal/config"
	"github.com/vperiodt/mulehunter/internal/graph"
	"github.com/vperiodt/mulehunter/internal/logging"
	"github.com/vperiodt/mulehunter/internal/pipeline"
	"github.com/vperiodt/mulehunter/internal/server"
	"github.com/vperiodt/mulehunter/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	graphClient, err := buildGraphClient(ctx, logger, cfg)
	if err != nil && !errors.Is(err, graph.ErrMissingURI) {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if graphClient != nil {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}
	}()

	var resultStore pipeline.Store
	var health server.HealthService
	if graphClient != nil {
		resultStore = store.New(graphClient)
		health = server.GraphHealthService{Client: graphClient}
	}

	p := pipeline.New(cfg.Analysis, logger, resultStore)
	apiHandlers := server.NewAPIHandlers(logger, p)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           health,
		API:              apiHandlers,
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// buildGraphClient returns nil, ErrMissingURI when no store is configured;
// the pipeline then runs standalone with no persistence.
func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.Config) (graph.Client, error) {
	if cfg.Store.URI == "" {
		return nil, graph.ErrMissingURI
	}

	opts := graph.Options{
		URI:            cfg.Store.URI,
		Database:       cfg.Store.Database,
		Username:       cfg.Store.Username,
		Password:       cfg.Store.Password,
		MaxConnections: cfg.Store.MaxConnections,
	}
	return graph.NewNeo4jClient(ctx, opts)
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
