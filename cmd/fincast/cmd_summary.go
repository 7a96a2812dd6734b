package main

import (
	"context"

	"github.com/spf13/cobra"

	"FinCast/pkg/server"
)

var summaryDryRun bool

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Build and publish next-Friday forecasts",
	Long: `Collect the forward forecast of every artifact, average the model
predictions and publish the summary. With --dry-run the summary is printed but
not published.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *server.App) error {
			build := app.Summary.Publish
			if summaryDryRun {
				build = app.Summary.Build
			}
			s, err := build(ctx)
			if s != nil {
				if perr := printJSON(s); perr != nil {
					return perr
				}
			}
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().BoolVar(&summaryDryRun, "dry-run", false, "print without publishing")
}
