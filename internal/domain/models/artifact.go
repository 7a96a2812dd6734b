package models

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"
)

const (
	ArtifactPrefix    = "model_predictions"
	ArtifactTimestamp = "20060102_150405"
	ArtifactDate      = "20060102"
)

var artifactNameRe = regexp.MustCompile(`^model_predictions_(\d{8}_\d{6})_([A-Z]+)_(\d{8})_(\d{8})\.csv$`)

// ArtifactName is the parsed form of
// model_predictions_<YYYYMMDD_HHMMSS>_<TICKER>_<start>_<end>.csv.
type ArtifactName struct {
	CreatedAt  time.Time
	Instrument string
	Start      time.Time
	End        time.Time
}

// String formats the file name.
func (n ArtifactName) String() string {
	return fmt.Sprintf("%s_%s_%s_%s_%s.csv",
		ArtifactPrefix,
		n.CreatedAt.Format(ArtifactTimestamp),
		n.Instrument,
		n.Start.Format(ArtifactDate),
		n.End.Format(ArtifactDate),
	)
}

// ParseArtifactName parses the base name of path.
func ParseArtifactName(path string) (ArtifactName, error) {
	base := filepath.Base(path)
	m := artifactNameRe.FindStringSubmatch(base)
	if m == nil {
		return ArtifactName{}, fmt.Errorf("unable to infer ticker from file name: %s", base)
	}

	created, err := time.Parse(ArtifactTimestamp, m[1])
	if err != nil {
		return ArtifactName{}, fmt.Errorf("artifact timestamp %q: %w", m[1], err)
	}
	start, err := time.Parse(ArtifactDate, m[3])
	if err != nil {
		return ArtifactName{}, fmt.Errorf("artifact start %q: %w", m[3], err)
	}
	end, err := time.Parse(ArtifactDate, m[4])
	if err != nil {
		return ArtifactName{}, fmt.Errorf("artifact end %q: %w", m[4], err)
	}

	return ArtifactName{CreatedAt: created, Instrument: m[2], Start: start, End: end}, nil
}

// DeriveTicker extracts the instrument from an artifact file name.
func DeriveTicker(path string) (string, error) {
	n, err := ParseArtifactName(path)
	if err != nil {
		return "", err
	}
	return n.Instrument, nil
}

// Artifact is a persisted walk-forward result table for one instrument.
type Artifact struct {
	Path       string
	Instrument string
	// Header is the column list as read from disk; nil for freshly built artifacts.
	Header []string
	Rows   []PredictionRow
}

// CutoffIndex returns the index of the last row with a realized value, or -1.
func (a *Artifact) CutoffIndex() int {
	for i := len(a.Rows) - 1; i >= 0; i-- {
		if a.Rows[i].Actual.Valid {
			return i
		}
	}
	return -1
}

// ForwardRow returns the trailing row without a realized value.
func (a *Artifact) ForwardRow() (PredictionRow, bool) {
	if len(a.Rows) == 0 {
		return PredictionRow{}, false
	}
	last := a.Rows[len(a.Rows)-1]
	return last, last.IsForward()
}

// LastConfirmedDate returns the date of the cutoff row.
func (a *Artifact) LastConfirmedDate() (time.Time, bool) {
	idx := a.CutoffIndex()
	if idx < 0 {
		return time.Time{}, false
	}
	return a.Rows[idx].Date, true
}

// FirstDate returns the date of the first row.
func (a *Artifact) FirstDate() time.Time {
	if len(a.Rows) == 0 {
		return time.Time{}
	}
	return a.Rows[0].Date
}
