//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"FinCast/pkg/config"
	"FinCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(ctx context.Context, cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideCache,
		ProvideLocker,
		ProvideParamStore,
		ProvideSeriesSource,
		ProvideArtifactStore,
		ProvideRunRecorder,
		ProvideSummaryPublishers,

		// Models and use cases
		ProvideForecasters,
		ProvideTrainer,
		ProvideSplitConfig,
		ProvideInitialTraining,
		ProvideUpdatesHub,
		ProvideUpdateCoordinator,
		ProvideSummaryBuilder,
		ProvideCachedSummary,

		// HTTP
		ProvideForecastsHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
