package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotTrained       = errors.New("model not trained")
	ErrNoConfirmedData  = errors.New("no confirmed data")
	ErrMissingColumn    = errors.New("missing column")
	ErrUpdateInProgress = errors.New("update already in progress")
	ErrNotFound         = errors.New("not found")
)

// ModelTrainingError wraps a fit or inference failure of one model.
type ModelTrainingError struct {
	Model string
	Err   error
}

func (e *ModelTrainingError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Model, e.Err)
}

func (e *ModelTrainingError) Unwrap() error { return e.Err }

// DataSourceError reports that the series of an instrument could not be obtained.
type DataSourceError struct {
	Instrument string
	Err        error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %s: %v", e.Instrument, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }
