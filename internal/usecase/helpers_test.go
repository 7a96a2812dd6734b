package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
)

var seriesStart = time.Date(2022, 1, 7, 0, 0, 0, 0, time.UTC)

func weekly(ticker string, n int) models.Series {
	pts := make([]models.Observation, n)
	for i := range pts {
		pts[i] = models.Observation{
			Date:  seriesStart.AddDate(0, 0, 7*i),
			Value: 100 + float64(i)*0.5 + float64(i%3),
		}
	}
	return models.NewSeries(ticker, pts)
}

type fakeSource struct {
	mu     sync.Mutex
	series map[string]models.Series
	loads  int
}

func newFakeSource(s ...models.Series) *fakeSource {
	f := &fakeSource{series: make(map[string]models.Series)}
	for _, x := range s {
		f.series[x.Instrument] = x
	}
	return f
}

func (f *fakeSource) set(s models.Series) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.series[s.Instrument] = s
}

func (f *fakeSource) Load(_ context.Context, instrument string) (models.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	s, ok := f.series[instrument]
	if !ok {
		return models.Series{}, fmt.Errorf("no series for %s", instrument)
	}
	return s, nil
}

func (f *fakeSource) Instruments(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.series {
		out = append(out, k)
	}
	return out, nil
}

// lastValueModel predicts the final value of its training window.
type lastValueModel struct {
	name    string
	last    float64
	windows []int
	trained bool
}

func (m *lastValueModel) Name() string { return m.name }

func (m *lastValueModel) Train(_ context.Context, req domsvc.TrainRequest) error {
	if err := domsvc.ValidateSeries(req.Series); err != nil {
		return err
	}
	m.windows = append(m.windows, req.Series.Len())
	last, _ := req.Series.Last()
	m.last, m.trained = last.Value, true
	return nil
}

func (m *lastValueModel) Predict(steps int) ([]float64, error) {
	if !m.trained {
		return nil, domsvc.ErrNotTrained
	}
	out := make([]float64, steps)
	for i := range out {
		out[i] = m.last
	}
	return out, nil
}

type failingModel struct {
	name string
	err  error
}

func (m *failingModel) Name() string { return m.name }

func (m *failingModel) Train(context.Context, domsvc.TrainRequest) error {
	if m.err != nil {
		return m.err
	}
	return errors.New("fit diverged")
}

func (m *failingModel) Predict(int) ([]float64, error) { return nil, domsvc.ErrNotTrained }

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	unlocked []string
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: make(map[string]bool)} }

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *fakeLocker) Unlock(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	l.unlocked = append(l.unlocked, key)
	return nil
}

type memRecorder struct {
	mu   sync.Mutex
	runs []models.UpdateOutcome
}

func (r *memRecorder) Record(_ context.Context, o models.UpdateOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, o)
	return nil
}

func (r *memRecorder) Recent(context.Context, int) ([]models.UpdateOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.UpdateOutcome(nil), r.runs...), nil
}

func (r *memRecorder) Close() error { return nil }

type chanNotifier chan models.UpdateOutcome

func (c chanNotifier) Notify(o models.UpdateOutcome) { c <- o }

type countingMetrics struct {
	nopMetrics
	mu      sync.Mutex
	steps   int
	fits    map[string]int
	updates map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{fits: make(map[string]int), updates: make(map[string]int)}
}

func (m *countingMetrics) RecordModelFit(model, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fits[model+"/"+result]++
}

func (m *countingMetrics) RecordWalkForwardStep(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps++
}

func (m *countingMetrics) RecordUpdate(_ string, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates[status]++
}
