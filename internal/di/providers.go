package di

import (
	"context"
	"fmt"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/domain/repository"
	"FinCast/internal/domain/service"
	"FinCast/internal/handler/api"
	internalrepo "FinCast/internal/repository"
	servicecache "FinCast/internal/service/cache"
	"FinCast/internal/service/ratelimit"
	"FinCast/internal/services/forecasting"
	"FinCast/internal/usecase"
	"FinCast/pkg/cache"
	pkgch "FinCast/pkg/clickhouse"
	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
	"FinCast/pkg/server"
)

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideCache returns Redis when the param store is redis-backed, else an in-process cache.
// The cache also holds the per-instrument update locks.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	if cfg.ParamStore.Type != "redis" {
		return cache.NewMemoryCache(), func() {}, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
		cache.WithRedisPool(cfg.Redis.PoolSize),
		cache.WithRedisDialTimeout(cfg.Redis.DialTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}, nil
}

// ProvideLocker exposes the cache's lock primitives.
func ProvideLocker(c cache.Service) repository.Locker {
	return c
}

// ProvideParamStore selects the ARIMA parameter backend.
func ProvideParamStore(cfg *config.Config, c cache.Service, l *applogger.Logger) repository.ParamStore {
	switch cfg.ParamStore.Type {
	case "redis", "memory":
		return internalrepo.NewCacheParamStore(c)
	default:
		return internalrepo.NewFileParamStore(cfg.Paths.ParamsDir, l)
	}
}

// ProvideSeriesSource selects the scraped-file tree or ClickHouse.
func ProvideSeriesSource(ctx context.Context, cfg *config.Config, l *applogger.Logger) (repository.SeriesSource, func(), error) {
	if cfg.Source.Type != "clickhouse" {
		return internalrepo.NewFileSeriesSource(cfg.Paths.ScrapedDir, l), func() {}, nil
	}

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithCompression(cfg.ClickHouse.Compress),
		pkgch.WithPool(cfg.ClickHouse.MaxOpen, cfg.ClickHouse.MaxIdle),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.InitSchema(ctx, internalrepo.WeeklyClosesSchema(cfg.Source.Table)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	src := internalrepo.NewCHSeriesSource(client, cfg.Source.Table)
	src.SetLogger(l)
	return src, func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}, nil
}

func ProvideArtifactStore(cfg *config.Config, l *applogger.Logger) repository.ArtifactStore {
	return internalrepo.NewCSVArtifactStore(cfg.Paths.PredictionsDir, l)
}

// ProvideForecasters builds the three models in artifact column order.
func ProvideForecasters(cfg *config.Config, params repository.ParamStore, l *applogger.Logger) []service.Forecaster {
	m := cfg.Models

	search := forecasting.DefaultSearchConfig()
	search.MaxP, search.MaxQ = m.ARIMA.MaxP, m.ARIMA.MaxQ
	search.MaxSP, search.MaxSQ = m.ARIMA.MaxSeasonalP, m.ARIMA.MaxSeasonalQ
	search.MaxD = m.ARIMA.MaxD
	search.Period = m.ARIMA.SeasonalPeriod
	sarima := forecasting.NewSeasonalARIMA(params, forecasting.NewStepwiseSelector(search, l), l)

	ens := forecasting.DefaultEnsembleConfig()
	ens.Generations = m.Ensemble.Generations
	ens.Validations = m.Ensemble.Validations
	ens.SeasonalPeriod = m.ARIMA.SeasonalPeriod
	ens.Seed = uint64(m.Ensemble.Seed)
	ensemble := forecasting.NewEnsembleAuto(ens, l)

	var backend forecasting.InferenceBackend
	switch m.Pretrained.Backend {
	case "http":
		backend = forecasting.NewHTTPInference(xhttp.NewClient(
			xhttp.WithBaseURL(m.Pretrained.ServiceURL),
			xhttp.WithTimeout(m.Pretrained.Timeout),
			xhttp.WithRetry(3, 200*time.Millisecond),
		), m.Pretrained.ModelName)
	default:
		backend = forecasting.NewLinearInference(m.Pretrained.WeightsPath)
	}
	pcfg := forecasting.DefaultPretrainedConfig()
	pcfg.WindowLength = m.Pretrained.WindowLength
	pcfg.Device = m.Pretrained.Device
	pcfg.Timeout = m.Pretrained.Timeout
	pretrained := forecasting.NewPretrainedSequence(backend, pcfg, l)

	return []service.Forecaster{sarima, ensemble, pretrained}
}

func ProvideTrainer(cfg *config.Config, fs []service.Forecaster, m repository.Metrics, l *applogger.Logger) *usecase.RollingWindowTrainer {
	return usecase.NewRollingWindowTrainer(fs,
		usecase.WithTrainerMetrics(m),
		usecase.WithTrainerLogger(l),
		usecase.WithTrailingMeanFallback(models.ModelEnsembleAuto, cfg.Training.FallbackWindow),
	)
}

func ProvideSplitConfig(cfg *config.Config) usecase.SplitConfig {
	s := usecase.SplitConfig{
		SplitIndex:   cfg.Training.SplitIndex,
		TestSize:     cfg.Training.TestSize,
		MinTrainSize: cfg.Training.MinTrainSize,
	}
	if cfg.Training.TestRun {
		s.TestRunRows = cfg.Training.TestRunRows
	}
	return s
}

func ProvideInitialTraining(src repository.SeriesSource, store repository.ArtifactStore, tr *usecase.RollingWindowTrainer, split usecase.SplitConfig, l *applogger.Logger) *usecase.InitialTraining {
	return usecase.NewInitialTraining(src, store, tr, split, l)
}

// ProvideRunRecorder opens SQLite run history, or a no-op recorder without a path.
func ProvideRunRecorder(cfg *config.Config, l *applogger.Logger) (repository.RunRecorder, func(), error) {
	if cfg.RunHistory.Path == "" {
		return internalrepo.NopRunRecorder{}, func() {}, nil
	}
	r, err := internalrepo.NewSQLiteRunRecorder(cfg.RunHistory.Path, l)
	if err != nil {
		return nil, nil, fmt.Errorf("run history: %w", err)
	}
	return r, func() {
		if err := r.Close(); err != nil {
			l.Warn("run history close error", applogger.Error(err))
		}
	}, nil
}

func ProvideUpdatesHub(l *applogger.Logger) *api.UpdatesHub {
	return api.NewUpdatesHub(l)
}

func ProvideUpdateCoordinator(
	cfg *config.Config,
	store repository.ArtifactStore,
	src repository.SeriesSource,
	tr *usecase.RollingWindowTrainer,
	locker repository.Locker,
	runs repository.RunRecorder,
	hub *api.UpdatesHub,
	summary *servicecache.CachedSummary,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.UpdateCoordinator {
	return usecase.NewUpdateCoordinator(store, src, tr,
		usecase.WithUpdateLock(locker, cfg.Update.LockTTL),
		usecase.WithRunRecorder(runs),
		usecase.WithUpdateNotifier(hub),
		usecase.WithUpdateNotifier(summary),
		usecase.WithCoordinatorMetrics(m),
		usecase.WithCoordinatorLogger(l),
	)
}

// ProvideSummaryPublishers always writes the JSON file and adds Kafka when enabled.
func ProvideSummaryPublishers(cfg *config.Config, l *applogger.Logger) ([]repository.SummaryPublisher, func(), error) {
	pubs := []repository.SummaryPublisher{internalrepo.NewFileSummaryPublisher(cfg.Paths.SummaryDir, l)}
	if !cfg.Kafka.Enabled {
		return pubs, func() {}, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithHeaders(map[string]string{"source": "fincast", "env": cfg.Environment}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return append(pubs, internalrepo.NewKafkaSummaryPublisher(producer)), func() {
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}, nil
}

func ProvideSummaryBuilder(store repository.ArtifactStore, pubs []repository.SummaryPublisher, l *applogger.Logger) *usecase.SummaryBuilder {
	return usecase.NewSummaryBuilder(store, l, pubs...)
}

// ProvideCachedSummary memoizes the summary served over HTTP.
func ProvideCachedSummary(cfg *config.Config, b *usecase.SummaryBuilder) *servicecache.CachedSummary {
	return servicecache.NewCachedSummary(b, cfg.Server.SummaryCacheTTL)
}

func ProvideForecastsHandler(
	cfg *config.Config,
	l *applogger.Logger,
	summary *servicecache.CachedSummary,
	store repository.ArtifactStore,
	coord *usecase.UpdateCoordinator,
	runs repository.RunRecorder,
) *api.ForecastsEchoHandler {
	return api.NewForecastsEchoHandler(l, summary, store, coord, runs).
		LimitUpdates(ratelimit.New(cfg.Server.UpdateBurst, cfg.Server.UpdateRefill))
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, forecasts *api.ForecastsEchoHandler, hub *api.UpdatesHub) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	srv := xhttp.NewServer(
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
	srv.Register(forecasts, hub)
	return srv
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	training *usecase.InitialTraining,
	coord *usecase.UpdateCoordinator,
	summary *usecase.SummaryBuilder,
	params repository.ParamStore,
	src repository.SeriesSource,
	srv *xhttp.Server,
) *server.App {
	return server.New(cfg, l, server.Components{
		Training: training,
		Updates:  coord,
		Summary:  summary,
		Params:   params,
		Source:   src,
		HTTP:     srv,
	})
}
