package models

import (
	"sort"
	"time"
)

// DateLayout is the day layout used in CSV cells and API payloads.
const DateLayout = "2006-01-02"

// Observation is a single weekly close.
type Observation struct {
	Date  time.Time
	Value float64
}

// Series is the ordered weekly history of one instrument. Components treat it as read-only.
type Series struct {
	Instrument string
	Points     []Observation
}

// NewSeries copies points into a new Series.
func NewSeries(instrument string, points []Observation) Series {
	cp := make([]Observation, len(points))
	copy(cp, points)
	return Series{Instrument: instrument, Points: cp}
}

func (s Series) Len() int { return len(s.Points) }

// Values returns the observation values in date order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// Last returns the final observation; ok is false on an empty series.
func (s Series) Last() (Observation, bool) {
	if len(s.Points) == 0 {
		return Observation{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Head returns a copy holding the first n points.
func (s Series) Head(n int) Series {
	if n > len(s.Points) {
		n = len(s.Points)
	}
	return NewSeries(s.Instrument, s.Points[:n])
}

// Tail returns a copy holding the points from index i on.
func (s Series) Tail(i int) Series {
	if i > len(s.Points) {
		i = len(s.Points)
	}
	return NewSeries(s.Instrument, s.Points[i:])
}

// Append returns a new Series with o added at the end. The receiver is not modified.
func (s Series) Append(o Observation) Series {
	pts := make([]Observation, len(s.Points), len(s.Points)+1)
	copy(pts, s.Points)
	return Series{Instrument: s.Instrument, Points: append(pts, o)}
}

// SplitAt partitions the series into points dated on or before cutoff and points after it.
func (s Series) SplitAt(cutoff time.Time) (upTo, after Series) {
	idx := sort.Search(len(s.Points), func(i int) bool {
		return s.Points[i].Date.After(cutoff)
	})
	return s.Head(idx), s.Tail(idx)
}

// DateRange returns the first and last dates.
func (s Series) DateRange() (start, end time.Time) {
	if len(s.Points) == 0 {
		return time.Time{}, time.Time{}
	}
	return s.Points[0].Date, s.Points[len(s.Points)-1].Date
}
