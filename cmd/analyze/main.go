// Command analyze runs one CSV transaction batch through the detection
// pipeline and prints the resulting JSON to stdout, without standing up an
// HTTP server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vperiodt/mulehunter/internal/config"
	"github.com/vperiodt/mulehunter/internal/graph"
	"github.com/vperiodt/mulehunter/internal/logging"
	"github.com/vperiodt/mulehunter/internal/pipeline"
	"github.com/vperiodt/mulehunter/internal/store"
	"github.com/vperiodt/mulehunter/internal/wire"
)

func main() {
	var (
		csvPath = flag.String("csv", "", "Path to the transaction CSV file (required)")
		persist = flag.Bool("persist", false, "Mirror the result into the configured graph store")
	)
	flag.Parse()

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze -csv <path> [-persist]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "analyze")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	csvBytes, err := os.ReadFile(*csvPath)
	if err != nil {
		logger.Error("failed to read csv file", "error", err, "path", *csvPath)
		os.Exit(1)
	}

	var resultStore pipeline.Store
	if *persist {
		graphClient, err := buildGraphClient(ctx, cfg)
		if err != nil {
			logger.Error("failed to create graph client", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}()
		resultStore = store.New(graphClient)
	}

	p := pipeline.New(cfg.Analysis, logger, resultStore)

	result, err := p.Run(ctx, csvBytes)
	if err != nil {
		logger.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(wire.FromModel(result)); err != nil {
		logger.Error("failed to encode result", "error", err)
		os.Exit(1)
	}
}

func buildGraphClient(ctx context.Context, cfg config.Config) (graph.Client, error) {
	if cfg.Store.URI == "" {
		return nil, fmt.Errorf("GRAPH_URI is required when -persist is set")
	}
	opts := graph.Options{
		URI:            cfg.Store.URI,
		Database:       cfg.Store.Database,
		Username:       cfg.Store.Username,
		Password:       cfg.Store.Password,
		MaxConnections: cfg.Store.MaxConnections,
	}
	client, err := graph.NewNeo4jClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}
	return client, nil
}
