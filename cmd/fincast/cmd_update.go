package main

import (
	"context"

	"github.com/spf13/cobra"

	"FinCast/internal/domain/models"
	"FinCast/pkg/server"
)

var (
	updateFile   string
	updateTicker string
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Extend prediction artifacts with newly confirmed weeks",
	Long: `Extend existing prediction artifacts with the weeks that arrived since their
last confirmed value. Without flags every artifact is updated.

Examples:
  fincast update
  fincast update --ticker AAPL
  fincast update --file data/predictions/model_predictions_20240201_093015_AAPL_20240105_20240119.csv
  fincast update --file old.csv --ticker AAPL`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *server.App) error {
			switch {
			case updateFile != "":
				out, err := app.Updates.UpdateFile(ctx, updateFile, updateTicker)
				if perr := printJSON(out); perr != nil {
					return perr
				}
				return err
			case updateTicker != "":
				out, err := app.Updates.UpdateInstrument(ctx, updateTicker)
				if perr := printJSON(out); perr != nil {
					return perr
				}
				return err
			default:
				outs, err := app.Updates.UpdateAll(ctx)
				if outs == nil {
					outs = []models.UpdateOutcome{}
				}
				if perr := printJSON(outs); perr != nil {
					return perr
				}
				return err
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().StringVar(&updateFile, "file", "", "artifact file to update")
	updateCmd.Flags().StringVar(&updateTicker, "ticker", "", "ticker to update, or override for --file")
}
