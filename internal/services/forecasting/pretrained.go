package forecasting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/domain/service"
	"FinCast/internal/services/features"
	"FinCast/pkg/logger"
)

const (
	DeviceAuto = "auto"
	DeviceCUDA = "cuda"
	DeviceCPU  = "cpu"
)

// InferenceBackend runs the pretrained network on a normalized window.
type InferenceBackend interface {
	Load(ctx context.Context, device string) error
	Forward(ctx context.Context, window []float64) (float64, error)
}

// PretrainedConfig controls windowing and fallback of PretrainedSequence.
type PretrainedConfig struct {
	WindowLength int
	FallbackMin  int
	Device       string
	Timeout      time.Duration
}

func DefaultPretrainedConfig() PretrainedConfig {
	return PretrainedConfig{WindowLength: 10, FallbackMin: 5, Device: DeviceAuto, Timeout: 30 * time.Second}
}

// PretrainedSequence wraps a large pretrained model. Weights are loaded once per instance on
// the first Train; a failed load or forward pass falls back to the trailing mean. A failed
// load is retried on the first Train after ResetRun.
type PretrainedSequence struct {
	backend InferenceBackend
	cfg     PretrainedConfig
	device  string
	log     *logger.Logger

	loaded  bool
	loadErr error
	history []float64
}

// NewPretrainedSequence resolves the device once; weights are not touched until Train.
func NewPretrainedSequence(backend InferenceBackend, cfg PretrainedConfig, log *logger.Logger) *PretrainedSequence {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.WindowLength < 2 {
		cfg.WindowLength = 10
	}
	if cfg.FallbackMin < 1 {
		cfg.FallbackMin = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	p := &PretrainedSequence{
		backend: backend,
		cfg:     cfg,
		device:  ResolveDevice(cfg.Device, cudaAvailable),
		log:     log,
	}
	log.Info("pretrained model device", logger.String("device", p.device))
	return p
}

// ResolveDevice maps the configured preference to a concrete device.
func ResolveDevice(pref string, gpu func() bool) string {
	switch pref {
	case DeviceCUDA, DeviceCPU:
		return pref
	}
	if gpu != nil && gpu() {
		return DeviceCUDA
	}
	return DeviceCPU
}

func cudaAvailable() bool {
	if v := os.Getenv("CUDA_VISIBLE_DEVICES"); v == "-1" {
		return false
	}
	_, err := os.Stat("/proc/driver/nvidia/version")
	return err == nil
}

func (p *PretrainedSequence) Name() string { return models.ModelPretrainedSeq }

// Device returns the device chosen at construction.
func (p *PretrainedSequence) Device() string { return p.device }

// Loaded reports whether weights are resident.
func (p *PretrainedSequence) Loaded() bool { return p.loaded }

func (p *PretrainedSequence) Train(ctx context.Context, req service.TrainRequest) error {
	if err := service.ValidateSeries(req.Series); err != nil {
		return err
	}
	p.history = req.Series.Values()

	if err := p.ensureLoaded(ctx); err != nil {
		p.log.Warn("pretrained model unavailable", logger.String("ticker", req.Instrument), logger.Error(err))
	}
	return nil
}

// ResetRun forgets a failed weight load so the next Train retries it. Loaded weights are kept.
func (p *PretrainedSequence) ResetRun() {
	if !p.loaded {
		p.loadErr = nil
	}
}

// ensureLoaded loads weights on first use; a failed load is remembered until ResetRun.
func (p *PretrainedSequence) ensureLoaded(ctx context.Context) error {
	if p.loaded {
		return nil
	}
	if p.loadErr != nil {
		return p.loadErr
	}
	if p.backend == nil {
		p.loadErr = errors.New("no inference backend configured")
		return p.loadErr
	}

	start := time.Now()
	if err := p.backend.Load(ctx, p.device); err != nil {
		p.loadErr = fmt.Errorf("load weights: %w", err)
		return p.loadErr
	}
	p.loaded = true
	p.log.Info("pretrained model loaded", logger.String("device", p.device), logger.Duration("load_ms", time.Since(start)))
	return nil
}

var _ service.RunResetter = (*PretrainedSequence)(nil)

func (p *PretrainedSequence) Predict(steps int) ([]float64, error) {
	if err := service.ValidateSteps(steps); err != nil {
		return nil, err
	}
	if p.history == nil {
		return nil, service.ErrNotTrained
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout*time.Duration(steps))
	defer cancel()

	hist := append([]float64(nil), p.history...)
	out := make([]float64, 0, steps)
	for i := 0; i < steps; i++ {
		v, err := p.step(ctx, hist)
		if err != nil {
			return nil, err
		}
		hist = append(hist, v)
		out = append(out, v)
	}
	return out, nil
}

func (p *PretrainedSequence) step(ctx context.Context, hist []float64) (float64, error) {
	v, err := p.forward(ctx, hist)
	if err == nil {
		return v, nil
	}
	if mean, ok := features.TrailingMean(hist, p.cfg.FallbackMin); ok {
		p.log.Warn("pretrained forward failed, using trailing mean",
			logger.Int("window", len(hist)), logger.Float("fallback", mean), logger.Error(err))
		return mean, nil
	}
	return 0, err
}

func (p *PretrainedSequence) forward(ctx context.Context, hist []float64) (float64, error) {
	if !p.loaded {
		if p.loadErr != nil {
			return 0, p.loadErr
		}
		return 0, errors.New("weights not loaded")
	}

	window := features.LastN(hist, p.cfg.WindowLength)
	z, mean, std, err := features.ZScore(window)
	if err != nil {
		return 0, fmt.Errorf("normalize window: %w", err)
	}
	out, err := p.backend.Forward(ctx, z)
	if err != nil {
		return 0, fmt.Errorf("forward pass: %w", err)
	}
	v := out*std + mean
	if !features.AllFinite([]float64{v}) {
		return 0, errors.New("forward pass: non-finite output")
	}
	return v, nil
}

var _ service.Forecaster = (*PretrainedSequence)(nil)
