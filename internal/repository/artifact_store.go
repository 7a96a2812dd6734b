package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v5"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

// CSVArtifactStore keeps one CSV per artifact version in a directory. Rows read from disk keep
// their original cells and are written back unchanged.
type CSVArtifactStore struct {
	dir string
	l   *applogger.Logger
}

func NewCSVArtifactStore(dir string, l *applogger.Logger) *CSVArtifactStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CSVArtifactStore{dir: dir, l: l}
}

// Dir returns the artifact directory.
func (s *CSVArtifactStore) Dir() string { return s.dir }

// CanonicalHeader is the column layout of freshly written artifacts.
func CanonicalHeader() []string {
	h := []string{models.ColumnDate, models.ColumnTicker}
	for _, m := range models.ModelNames {
		h = append(h, models.PredictionColumn(m))
	}
	return append(h, models.ColumnActual)
}

func (s *CSVArtifactStore) Load(_ context.Context, path string) (*models.Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	dateIdx, ok := cols[models.ColumnDate]
	if !ok {
		return nil, fmt.Errorf("%s: column %q: %w", filepath.Base(path), models.ColumnDate, domsvc.ErrMissingColumn)
	}
	actualIdx, ok := cols[models.ColumnActual]
	if !ok {
		return nil, fmt.Errorf("%s: column %q: %w", filepath.Base(path), models.ColumnActual, domsvc.ErrMissingColumn)
	}
	tickerIdx, hasTicker := cols[models.ColumnTicker]

	predCols := make(map[string]int)
	for name, i := range cols {
		if strings.HasSuffix(name, models.PredictionSuffix) {
			predCols[strings.TrimSuffix(name, models.PredictionSuffix)] = i
		}
	}

	a := &models.Artifact{Path: path, Header: header}
	if n, err := models.ParseArtifactName(path); err == nil {
		a.Instrument = n.Instrument
	}

	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}

		date, ok := util.ParseDate(rec[dateIdx])
		if !ok {
			return nil, fmt.Errorf("%w: %s line %d: bad date %q", domsvc.ErrInvalidInput, filepath.Base(path), line, rec[dateIdx])
		}
		actual, err := parseCell(rec[actualIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: actual: %v", domsvc.ErrInvalidInput, filepath.Base(path), line, err)
		}

		row := models.PredictionRow{
			Date:        date,
			Actual:      actual,
			Predictions: make(map[string]null.Float, len(predCols)),
			Raw:         append([]string(nil), rec...),
		}
		if hasTicker {
			row.Ticker = rec[tickerIdx]
		}
		for model, i := range predCols {
			cell, err := parseCell(rec[i])
			if err != nil {
				return nil, fmt.Errorf("%w: %s line %d: %s: %v", domsvc.ErrInvalidInput, filepath.Base(path), line, model, err)
			}
			row.Predictions[model] = cell
		}
		a.Rows = append(a.Rows, row)
	}

	if a.Instrument == "" && len(a.Rows) > 0 {
		a.Instrument = a.Rows[0].Ticker
	}
	return a, nil
}

// Save writes a new version named from the artifact's instrument, first row date, last
// confirmed date and createdAt. Columns ending in _error are dropped.
func (s *CSVArtifactStore) Save(_ context.Context, a *models.Artifact, createdAt time.Time) (string, error) {
	if a.Instrument == "" {
		return "", fmt.Errorf("%w: artifact without instrument", domsvc.ErrInvalidInput)
	}
	if len(a.Rows) == 0 {
		return "", fmt.Errorf("%w: artifact without rows", domsvc.ErrInvalidInput)
	}

	src := a.Header
	if src == nil {
		src = CanonicalHeader()
	}
	keep := make([]int, 0, len(src))
	header := make([]string, 0, len(src))
	for i, h := range src {
		if strings.HasSuffix(strings.TrimSpace(h), models.ErrorSuffix) {
			continue
		}
		keep = append(keep, i)
		header = append(header, h)
	}

	name := models.ArtifactName{
		CreatedAt:  createdAt,
		Instrument: a.Instrument,
		Start:      a.FirstDate(),
		End:        a.Rows[len(a.Rows)-1].Date,
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	path := filepath.Join(s.dir, name.String())

	tmp, err := os.CreateTemp(s.dir, ".artifact-*.csv")
	if err != nil {
		return "", fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, row := range a.Rows {
		var rec []string
		if row.Raw != nil && len(row.Raw) == len(src) {
			rec = make([]string, len(keep))
			for j, i := range keep {
				rec[j] = row.Raw[i]
			}
		} else {
			rec = formatRow(row, header, a.Instrument)
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return "", fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("flush artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("publish artifact: %w", err)
	}

	s.l.Info("artifact saved", applogger.String("path", path), applogger.Int("rows", len(a.Rows)))
	return path, nil
}

func (s *CSVArtifactStore) Remove(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove artifact: %w", err)
	}
	s.l.Info("artifact removed", applogger.String("path", path))
	return nil
}

func (s *CSVArtifactStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := models.ParseArtifactName(e.Name()); err != nil {
			continue
		}
		out = append(out, filepath.Join(s.dir, e.Name()))
	}
	return out, nil
}

func (s *CSVArtifactStore) Latest(ctx context.Context, instrument string) (string, error) {
	paths, err := s.List(ctx)
	if err != nil {
		return "", err
	}

	var best string
	var bestAt time.Time
	for _, p := range paths {
		n, _ := models.ParseArtifactName(p)
		if n.Instrument != instrument {
			continue
		}
		if best == "" || n.CreatedAt.After(bestAt) {
			best, bestAt = p, n.CreatedAt
		}
	}
	if best == "" {
		return "", fmt.Errorf("artifact for %s: %w", instrument, domsvc.ErrNotFound)
	}
	return best, nil
}

func formatRow(row models.PredictionRow, header []string, instrument string) []string {
	rec := make([]string, len(header))
	for i, h := range header {
		switch name := strings.TrimSpace(h); {
		case name == models.ColumnDate:
			rec[i] = row.Date.Format(models.DateLayout)
		case name == models.ColumnTicker:
			rec[i] = row.Ticker
			if rec[i] == "" {
				rec[i] = instrument
			}
		case name == models.ColumnActual:
			rec[i] = formatCell(row.Actual)
		case strings.HasSuffix(name, models.PredictionSuffix):
			rec[i] = formatCell(row.Prediction(strings.TrimSuffix(name, models.PredictionSuffix)))
		}
	}
	return rec
}

func formatCell(v null.Float) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}

func parseCell(s string) (null.Float, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none":
		return null.Float{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}, err
	}
	if math.IsNaN(v) {
		return null.Float{}, nil
	}
	return null.FloatFrom(v), nil
}

var _ domrepo.ArtifactStore = (*CSVArtifactStore)(nil)
