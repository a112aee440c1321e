// Command datagen produces a synthetic transaction CSV batch for exercising
// the detection pipeline, with a configurable number of cycle, smurfing,
// and shell-chain rings planted inside a background of ordinary transfers.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vperiodt/mulehunter/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		accounts    = flag.Int("accounts", cfg.NumAccounts, "size of the background account population")
		background  = flag.Int("background-tx", cfg.BackgroundTransactions, "number of ordinary background transactions")
		cycles      = flag.Int("cycles", cfg.NumCycles, "number of cycle rings to plant")
		smurfHubs   = flag.Int("smurf-hubs", cfg.NumSmurfHubs, "number of smurfing hubs to plant")
		shellChains = flag.Int("shell-chains", cfg.NumShellChains, "number of shell chains to plant")
		seed        = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir   = flag.String("output-dir", "data", "directory to write transactions.csv")
	)
	flag.Parse()

	genCfg := generator.Config{
		NumAccounts:            *accounts,
		BackgroundTransactions: *background,
		NumCycles:              *cycles,
		NumSmurfHubs:           *smurfHubs,
		NumShellChains:         *shellChains,
		Seed:                   *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen := generator.New(genCfg)
	batch, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if err := generator.WriteBatch(batch, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write batch: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d transactions (%d planted rings) into %s\n",
		len(batch.Records), len(batch.Planted), *outputDir)
}
