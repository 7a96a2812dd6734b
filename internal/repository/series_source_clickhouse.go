package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	pkgch "FinCast/pkg/clickhouse"
	applogger "FinCast/pkg/logger"
)

// WeeklyClosesSchema creates the table read by CHSeriesSource.
func WeeklyClosesSchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            ticker LowCardinality(String),
            date   Date,
            close  Float64
        )
        ENGINE = ReplacingMergeTree
        ORDER BY (ticker, date)
    `, table)}
}

// CHSeriesSource implements SeriesSource backed by a ClickHouse weekly-closes table.
type CHSeriesSource struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHSeriesSource(ch *pkgch.Client, table string) *CHSeriesSource {
	return &CHSeriesSource{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHSeriesSource) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHSeriesSource) Load(ctx context.Context, instrument string) (models.Series, error) {
	start := time.Now()
	ticker := strings.ToUpper(instrument)
	const qtpl = `
        SELECT date, close
        FROM %s FINAL
        WHERE ticker = ?
        ORDER BY date ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), ticker)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse load_series query error",
				applogger.String("table", s.table),
				applogger.String("ticker", ticker),
				applogger.Error(err),
			)
		}
		return models.Series{}, &domsvc.DataSourceError{Instrument: ticker, Err: fmt.Errorf("query: %w", err)}
	}
	defer rows.Close()

	points := make([]models.Observation, 0, 512)
	for rows.Next() {
		var (
			d time.Time
			v float64
		)
		if err := rows.Scan(&d, &v); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse load_series scan error",
					applogger.String("table", s.table),
					applogger.String("ticker", ticker),
					applogger.Error(err),
				)
			}
			return models.Series{}, &domsvc.DataSourceError{Instrument: ticker, Err: fmt.Errorf("scan: %w", err)}
		}
		points = append(points, models.Observation{Date: d.UTC(), Value: v})
	}
	if err := rows.Err(); err != nil {
		return models.Series{}, &domsvc.DataSourceError{Instrument: ticker, Err: fmt.Errorf("rows: %w", err)}
	}
	if len(points) == 0 {
		return models.Series{}, &domsvc.DataSourceError{Instrument: ticker, Err: domsvc.ErrNotFound}
	}
	if s.l != nil {
		s.l.Info("clickhouse load_series ok",
			applogger.String("table", s.table),
			applogger.String("ticker", ticker),
			applogger.Int("rows", len(points)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return models.NewSeries(ticker, points), nil
}

func (s *CHSeriesSource) Instruments(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT DISTINCT ticker FROM %s ORDER BY ticker`, s.table))
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

var _ domrepo.SeriesSource = (*CHSeriesSource)(nil)
