package forecasting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
)

// LinearHeadWeights is the on-disk format of a distilled linear forecasting head.
// Weights apply oldest-to-newest over the normalized window.
type LinearHeadWeights struct {
	Name    string    `json:"name"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// LinearInference evaluates a linear head over the normalized window in process.
type LinearInference struct {
	path    string
	weights *LinearHeadWeights
}

// NewLinearInference reads weights from path on Load. An empty path selects DecayWeights(10).
func NewLinearInference(path string) *LinearInference {
	return &LinearInference{path: path}
}

// DecayWeights is an exponentially decaying head normalized to sum to one.
func DecayWeights(n int) *LinearHeadWeights {
	w := make([]float64, n)
	for i := range w {
		w[i] = math.Pow(0.7, float64(n-1-i))
	}
	floats.Scale(1/floats.Sum(w), w)
	return &LinearHeadWeights{Name: "decay", Weights: w}
}

func (l *LinearInference) Load(_ context.Context, _ string) error {
	if l.path == "" {
		l.weights = DecayWeights(10)
		return nil
	}
	b, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("read weights: %w", err)
	}
	var w LinearHeadWeights
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("parse weights %s: %w", l.path, err)
	}
	if len(w.Weights) == 0 {
		return fmt.Errorf("weights %s: empty head", l.path)
	}
	l.weights = &w
	return nil
}

func (l *LinearInference) Forward(_ context.Context, window []float64) (float64, error) {
	if l.weights == nil {
		return 0, errors.New("weights not loaded")
	}
	w := l.weights.Weights
	n := len(window)
	if len(w) < n {
		window = window[n-len(w):]
		n = len(w)
	}
	return floats.Dot(w[len(w)-n:], window) + l.weights.Bias, nil
}

var _ InferenceBackend = (*LinearInference)(nil)
