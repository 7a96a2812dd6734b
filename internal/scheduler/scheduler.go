package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"FinCast/internal/domain/models"
	"FinCast/pkg/logger"
)

// BatchUpdater updates every artifact.
type BatchUpdater interface {
	UpdateAll(ctx context.Context) ([]models.UpdateOutcome, error)
}

// SummaryPublisher rebuilds and publishes the forward summary.
type SummaryPublisher interface {
	Publish(ctx context.Context) (*models.ForecastSummary, error)
}

// Scheduler runs the weekly batch update followed by summary publication.
type Scheduler struct {
	cron    *cron.Cron
	updater BatchUpdater
	summary SummaryPublisher
	log     *logger.Logger
	ctx     context.Context

	running sync.Mutex
}

func New(ctx context.Context, updater BatchUpdater, summary SummaryPublisher, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		cron:    cron.New(),
		updater: updater,
		summary: summary,
		log:     log,
		ctx:     ctx,
	}
}

// Register schedules the weekly task with a standard five-field cron spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.weeklyTask); err != nil {
		return fmt.Errorf("register weekly task: %w", err)
	}
	s.log.Info("weekly update scheduled", logger.String("spec", spec))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunNow executes the weekly task immediately.
func (s *Scheduler) RunNow() {
	s.weeklyTask()
}

func (s *Scheduler) weeklyTask() {
	if !s.running.TryLock() {
		s.log.Warn("weekly task still running, skipping")
		return
	}
	defer s.running.Unlock()

	s.log.Info("running weekly task")
	outcomes, err := s.updater.UpdateAll(s.ctx)
	if err != nil {
		s.log.Error("weekly update", logger.Error(err))
		return
	}
	failed := 0
	for _, o := range outcomes {
		if o.Status == models.StatusFailed {
			failed++
		}
	}

	summary, err := s.summary.Publish(s.ctx)
	if err != nil {
		s.log.Error("weekly summary", logger.Error(err))
	}
	if summary != nil {
		s.log.Info("weekly task finished",
			logger.Int("artifacts", len(outcomes)),
			logger.Int("failed", failed),
			logger.String("prediction_date", summary.PredictionDate))
	}
}
