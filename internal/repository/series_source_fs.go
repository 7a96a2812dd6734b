package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

const (
	columnWeeklyClose = "Weekly_Close"
	dataFileSuffix    = "_data.csv"
)

var scrapedDirRe = regexp.MustCompile(`^([A-Z0-9.\-]+)_(\d{8})_(\d{8})$`)

// ScrapedFolder is one <TICKER>_<start>_<end> directory of scraped weekly data.
type ScrapedFolder struct {
	Path       string
	Instrument string
	Start      time.Time
	End        time.Time
}

// FileSeriesSource reads weekly closes from the scraped data tree.
type FileSeriesSource struct {
	root string
	l    *applogger.Logger
}

func NewFileSeriesSource(root string, l *applogger.Logger) *FileSeriesSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &FileSeriesSource{root: root, l: l}
}

// Folders lists scraped folders sorted by instrument, then by end date.
func (s *FileSeriesSource) Folders() ([]ScrapedFolder, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list scraped dir: %w", err)
	}

	var out []ScrapedFolder
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := scrapedDirRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		start, err1 := time.Parse(models.ArtifactDate, m[2])
		end, err2 := time.Parse(models.ArtifactDate, m[3])
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, ScrapedFolder{
			Path:       filepath.Join(s.root, e.Name()),
			Instrument: m[1],
			Start:      start,
			End:        end,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Instrument != out[j].Instrument {
			return out[i].Instrument < out[j].Instrument
		}
		return out[i].End.Before(out[j].End)
	})
	return out, nil
}

// Folder returns the most recent scraped folder for instrument.
func (s *FileSeriesSource) Folder(instrument string) (ScrapedFolder, error) {
	folders, err := s.Folders()
	if err != nil {
		return ScrapedFolder{}, err
	}
	want := strings.ToUpper(instrument)
	for i := len(folders) - 1; i >= 0; i-- {
		if folders[i].Instrument == want {
			return folders[i], nil
		}
	}
	return ScrapedFolder{}, &domsvc.DataSourceError{
		Instrument: instrument,
		Err:        fmt.Errorf("no scraped folder under %s: %w", s.root, domsvc.ErrNotFound),
	}
}

func (s *FileSeriesSource) Instruments(_ context.Context) ([]string, error) {
	folders, err := s.Folders()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range folders {
		if len(out) == 0 || out[len(out)-1] != f.Instrument {
			out = append(out, f.Instrument)
		}
	}
	return out, nil
}

func (s *FileSeriesSource) Load(_ context.Context, instrument string) (models.Series, error) {
	folder, err := s.Folder(instrument)
	if err != nil {
		return models.Series{}, err
	}
	path := filepath.Join(folder.Path, folder.Instrument+dataFileSuffix)

	f, err := os.Open(path)
	if err != nil {
		return models.Series{}, &domsvc.DataSourceError{Instrument: instrument, Err: err}
	}
	defer f.Close()

	points, skipped, err := readWeeklyCloses(f)
	if err != nil {
		return models.Series{}, &domsvc.DataSourceError{Instrument: instrument, Err: fmt.Errorf("%s: %w", filepath.Base(path), err)}
	}
	if skipped > 0 {
		s.l.Warn("scraped rows skipped",
			applogger.String("ticker", folder.Instrument),
			applogger.Int("skipped", skipped),
		)
	}
	series := models.NewSeries(folder.Instrument, points)
	first, last := series.DateRange()
	s.l.Debug("series loaded",
		applogger.String("ticker", folder.Instrument),
		applogger.String("path", path),
		applogger.Int("points", len(points)),
		applogger.String("first", first.Format(time.DateOnly)),
		applogger.String("last", last.Format(time.DateOnly)),
	)
	return series, nil
}

// readWeeklyCloses parses a Date/Weekly_Close CSV. Rows without a close are skipped; the
// result is sorted by date with duplicates resolved to the later row.
func readWeeklyCloses(r io.Reader) ([]models.Observation, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	dateIdx, closeIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case models.ColumnDate:
			dateIdx = i
		case columnWeeklyClose:
			closeIdx = i
		}
	}
	if dateIdx < 0 {
		return nil, 0, fmt.Errorf("%w: column %q: %w", domsvc.ErrInvalidInput, models.ColumnDate, domsvc.ErrMissingColumn)
	}
	if closeIdx < 0 {
		return nil, 0, fmt.Errorf("%w: column %q: %w", domsvc.ErrInvalidInput, columnWeeklyClose, domsvc.ErrMissingColumn)
	}

	byDate := make(map[time.Time]float64)
	skipped := 0
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, err)
		}
		if dateIdx >= len(rec) || closeIdx >= len(rec) {
			skipped++
			continue
		}
		date, ok := util.ParseDate(rec[dateIdx])
		if !ok {
			return nil, 0, fmt.Errorf("%w: line %d: bad date %q", domsvc.ErrInvalidInput, line, rec[dateIdx])
		}
		raw := strings.TrimSpace(rec[closeIdx])
		if raw == "" {
			skipped++
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) {
			skipped++
			continue
		}
		byDate[date] = v
	}

	points := make([]models.Observation, 0, len(byDate))
	for d, v := range byDate {
		points = append(points, models.Observation{Date: d, Value: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, skipped, nil
}

var _ domrepo.SeriesSource = (*FileSeriesSource)(nil)
