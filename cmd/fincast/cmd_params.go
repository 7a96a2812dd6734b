package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"FinCast/pkg/server"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Manage cached ARIMA orders",
}

var paramsInvalidateCmd = &cobra.Command{
	Use:   "invalidate TICKER",
	Short: "Drop the cached ARIMA order so the next fit searches again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *server.App) error {
			return app.InvalidateParams(ctx, strings.ToUpper(args[0]))
		})
	},
}

func init() {
	rootCmd.AddCommand(paramsCmd)
	paramsCmd.AddCommand(paramsInvalidateCmd)
}
