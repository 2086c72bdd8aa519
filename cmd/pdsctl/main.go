package main

import (
	"fmt"
	"os"

	"github.com/grainlyyy/pds-api/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pdsctl",
	Short: "Operator tooling for the ration distribution API",
	Long: `pdsctl inspects and repairs the state behind the ration distribution API.

ABI commands work offline on a facet document. The remaining commands read
the same environment as the API server (a .env file is honoured).`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig is called by commands that touch DynamoDB or the chain.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
