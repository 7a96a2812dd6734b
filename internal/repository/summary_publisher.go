package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
)

const summaryPattern = "next_friday_predictions_*.json"

// SummaryFileName returns the summary file name for a prediction date.
func SummaryFileName(predictionDate string) string {
	return fmt.Sprintf("next_friday_predictions_%s.json", predictionDate)
}

// FileSummaryPublisher writes the summary as indented JSON, replacing earlier summaries.
type FileSummaryPublisher struct {
	dir string
	l   *applogger.Logger
}

func NewFileSummaryPublisher(dir string, l *applogger.Logger) *FileSummaryPublisher {
	if l == nil {
		l = applogger.Nop()
	}
	return &FileSummaryPublisher{dir: dir, l: l}
}

func (p *FileSummaryPublisher) Publish(_ context.Context, s *models.ForecastSummary) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("create summary dir: %w", err)
	}

	old, _ := filepath.Glob(filepath.Join(p.dir, summaryPattern))
	path := filepath.Join(p.dir, SummaryFileName(s.PredictionDate))
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	for _, f := range old {
		if f == path {
			continue
		}
		if err := os.Remove(f); err != nil {
			p.l.Warn("could not delete old summary", applogger.String("path", f), applogger.Error(err))
		}
	}
	p.l.Info("summary written", applogger.String("path", path))
	return nil
}

// Latest reads the current summary file.
func (p *FileSummaryPublisher) Latest() (*models.ForecastSummary, error) {
	files, err := filepath.Glob(filepath.Join(p.dir, summaryPattern))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, os.ErrNotExist
	}
	b, err := os.ReadFile(files[len(files)-1])
	if err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}
	var s models.ForecastSummary
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &s, nil
}

// KafkaSummaryPublisher emits the summary keyed by prediction date.
type KafkaSummaryPublisher struct {
	p *pkgkafka.Producer
}

func NewKafkaSummaryPublisher(p *pkgkafka.Producer) *KafkaSummaryPublisher {
	return &KafkaSummaryPublisher{p: p}
}

func (k *KafkaSummaryPublisher) Publish(ctx context.Context, s *models.ForecastSummary) error {
	return k.p.Publish(ctx, s.PredictionDate, s)
}

var (
	_ domrepo.SummaryPublisher = (*FileSummaryPublisher)(nil)
	_ domrepo.SummaryPublisher = (*KafkaSummaryPublisher)(nil)
)
