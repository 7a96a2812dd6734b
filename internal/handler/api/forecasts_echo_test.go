package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/guregu/null/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/repository"
	"FinCast/internal/service/ratelimit"
	xlogger "FinCast/pkg/logger"
)

type stubSummary struct{ s *models.ForecastSummary }

func (s stubSummary) Build(context.Context) (*models.ForecastSummary, error) { return s.s, nil }

type stubUpdater struct {
	single models.UpdateOutcome
	err    error
	all    []models.UpdateOutcome
	calls  []string
}

func (u *stubUpdater) UpdateInstrument(_ context.Context, ticker string) (models.UpdateOutcome, error) {
	u.calls = append(u.calls, ticker)
	return u.single, u.err
}

func (u *stubUpdater) UpdateAll(context.Context) ([]models.UpdateOutcome, error) {
	u.calls = append(u.calls, "*")
	return u.all, nil
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func serve(t *testing.T, h *ForecastsEchoHandler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func newHandler(t *testing.T, upd *stubUpdater) (*ForecastsEchoHandler, *repository.CSVArtifactStore) {
	store := repository.NewCSVArtifactStore(t.TempDir(), nil)
	summary := &models.ForecastSummary{PredictionDate: "20240112", Predictions: map[string]float64{"AAPL": 2}}
	return NewForecastsEchoHandler(xlogger.Nop(), stubSummary{summary}, store, upd, repository.NopRunRecorder{}), store
}

func TestForecasts(t *testing.T) {
	h, _ := newHandler(t, &stubUpdater{})
	rec, env := serve(t, h, http.MethodGet, "/api/forecasts", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var s models.ForecastSummary
	require.NoError(t, json.Unmarshal(env.Data, &s))
	assert.Equal(t, "20240112", s.PredictionDate)
	assert.Equal(t, 2.0, s.Predictions["AAPL"])
}

func TestArtifact(t *testing.T) {
	h, store := newHandler(t, &stubUpdater{})
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	_, err := store.Save(context.Background(), &models.Artifact{Instrument: "AAPL", Rows: []models.PredictionRow{
		{Date: day, Actual: null.FloatFrom(10), Predictions: map[string]null.Float{models.ModelSeasonalARIMA: null.FloatFrom(9.5)}},
		{Date: day.AddDate(0, 0, 7), Predictions: map[string]null.Float{models.ModelSeasonalARIMA: null.FloatFrom(10.5)}},
	}}, time.Now())
	require.NoError(t, err)

	rec, env := serve(t, h, http.MethodGet, "/api/artifacts/AAPL", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res ArtifactResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "AAPL", res.Instrument)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "2024-01-12", res.Rows[1].Date)
	assert.False(t, res.Rows[1].Actual.Valid)
	assert.Equal(t, 10.5, res.Rows[1].Predictions[models.ModelSeasonalARIMA].Float64)

	rec, _ = serve(t, h, http.MethodGet, "/api/artifacts/MSFT", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = serve(t, h, http.MethodGet, "/api/artifacts/aapl", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateSingleAndBatch(t *testing.T) {
	upd := &stubUpdater{
		single: models.UpdateOutcome{Instrument: "AAPL", Status: models.StatusUpdated, RowsAdded: 2},
		all:    []models.UpdateOutcome{{Instrument: "AAPL", Status: models.StatusNoop}, {Instrument: "MSFT", Status: models.StatusFailed}},
	}
	h, _ := newHandler(t, upd)

	rec, env := serve(t, h, http.MethodPost, "/api/updates", `{"ticker":"AAPL"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows  []models.UpdateOutcome `json:"rows"`
		Total int64                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, 2, list.Rows[0].RowsAdded)

	rec, env = serve(t, h, http.MethodPost, "/api/updates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(2), list.Total)
	assert.Equal(t, []string{"AAPL", "*"}, upd.calls)
}

func TestUpdateConflict(t *testing.T) {
	upd := &stubUpdater{
		single: models.UpdateOutcome{Instrument: "AAPL", Status: models.StatusSkipped},
		err:    fmt.Errorf("AAPL: %w", domsvc.ErrUpdateInProgress),
	}
	h, _ := newHandler(t, upd)

	rec, _ := serve(t, h, http.MethodPost, "/api/updates", `{"ticker":"AAPL"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateValidation(t *testing.T) {
	upd := &stubUpdater{}
	h, _ := newHandler(t, upd)

	rec, _ := serve(t, h, http.MethodPost, "/api/updates", `{"ticker":"not a ticker"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, upd.calls)
}

func TestUpdateRateLimited(t *testing.T) {
	upd := &stubUpdater{single: models.UpdateOutcome{Instrument: "AAPL", Status: models.StatusNoop}}
	h, _ := newHandler(t, upd)
	h.LimitUpdates(ratelimit.New(1, 0.0001))

	rec, _ := serve(t, h, http.MethodPost, "/api/updates", `{"ticker":"AAPL"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = serve(t, h, http.MethodPost, "/api/updates", `{"ticker":"AAPL"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, []string{"AAPL"}, upd.calls)
}

func TestToAppError(t *testing.T) {
	cases := map[error]int{
		domsvc.ErrNotFound:                           http.StatusNotFound,
		fmt.Errorf("x: %w", domsvc.ErrMissingColumn): http.StatusUnprocessableEntity,
		domsvc.ErrNoConfirmedData:                    http.StatusUnprocessableEntity,
		context.DeadlineExceeded:                     http.StatusGatewayTimeout,
		fmt.Errorf("disk full"):                      http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, toAppError(err).Status, err.Error())
	}
}
