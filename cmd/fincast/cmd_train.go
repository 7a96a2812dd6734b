package main

import (
	"context"

	"github.com/spf13/cobra"

	applogger "FinCast/pkg/logger"
	"FinCast/pkg/server"
)

var trainCmd = &cobra.Command{
	Use:   "train [TICKER...]",
	Short: "Run initial walk-forward training",
	Long: `Run the initial walk-forward training for the given tickers and write one
prediction artifact per ticker. With no tickers, every instrument the series
source knows about is trained.

Examples:
  fincast train AAPL MSFT
  fincast train`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *server.App) error {
			paths, err := app.Train(ctx, args)
			for _, p := range paths {
				app.Logger().Info("artifact written", applogger.String("path", p))
			}
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
}
