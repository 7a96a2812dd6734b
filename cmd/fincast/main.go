package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"FinCast/internal/di"
	"FinCast/pkg/config"
	"FinCast/pkg/server"
)

var configPath string

// rootCmd is the base command for the FinCast CLI.
var rootCmd = &cobra.Command{
	Use:   "fincast",
	Short: "Weekly walk-forward forecasting engine",
	Long: `FinCast trains three forecasting models on weekly closing prices with a
rolling one-step-ahead evaluation, keeps the resulting prediction tables up to
date as new weeks arrive, and publishes next-Friday forecasts.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
}

// withApp loads config, wires the application and runs fn against it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *server.App) error) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, cleanup, err := di.InitializeApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()

	return fn(ctx, app)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
