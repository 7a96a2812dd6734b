package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/guregu/null/v5"
	"github.com/labstack/echo/v4"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/service/ratelimit"
	xhttp "FinCast/pkg/http"
	xlogger "FinCast/pkg/logger"
)

// SummaryReader builds the current forward-forecast summary.
type SummaryReader interface {
	Build(ctx context.Context) (*models.ForecastSummary, error)
}

// Updater runs artifact updates.
type Updater interface {
	UpdateInstrument(ctx context.Context, ticker string) (models.UpdateOutcome, error)
	UpdateAll(ctx context.Context) ([]models.UpdateOutcome, error)
}

// ForecastsEchoHandler serves forecasts, artifacts and update triggers.
type ForecastsEchoHandler struct {
	logger    *xlogger.Logger
	summary   SummaryReader
	artifacts domrepo.ArtifactStore
	updater   Updater
	runs      domrepo.RunRecorder
	limiter   *ratelimit.Limiter
}

func NewForecastsEchoHandler(logger *xlogger.Logger, summary SummaryReader, artifacts domrepo.ArtifactStore, updater Updater, runs domrepo.RunRecorder) *ForecastsEchoHandler {
	return &ForecastsEchoHandler{logger: logger, summary: summary, artifacts: artifacts, updater: updater, runs: runs}
}

// LimitUpdates rate limits update triggers per client address.
func (h *ForecastsEchoHandler) LimitUpdates(l *ratelimit.Limiter) *ForecastsEchoHandler {
	h.limiter = l
	return h
}

func (h *ForecastsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/forecasts", h.Forecasts)
	g.GET("/artifacts/:ticker", h.Artifact)
	g.POST("/updates", h.Update)
	g.GET("/runs", h.Runs)
}

func (h *ForecastsEchoHandler) Forecasts(c echo.Context) error {
	s, err := h.summary.Build(c.Request().Context())
	if err != nil {
		h.logger.Error("summary usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, s)
}

// ArtifactRow is the JSON form of one artifact row.
type ArtifactRow struct {
	Date        string                `json:"date"`
	Actual      null.Float            `json:"actual"`
	Predictions map[string]null.Float `json:"predictions"`
}

// ArtifactResponse is the JSON form of an artifact.
type ArtifactResponse struct {
	Path       string        `json:"path"`
	Instrument string        `json:"instrument"`
	Rows       []ArtifactRow `json:"rows"`
}

func (h *ForecastsEchoHandler) Artifact(c echo.Context) error {
	req := &models.ArtifactRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	path, err := h.artifacts.Latest(ctx, req.Ticker)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	a, err := h.artifacts.Load(ctx, path)
	if err != nil {
		h.logger.Error("artifact load error", xlogger.String("path", path), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}

	res := ArtifactResponse{Path: a.Path, Instrument: a.Instrument, Rows: make([]ArtifactRow, len(a.Rows))}
	for i, r := range a.Rows {
		res.Rows[i] = ArtifactRow{
			Date:        r.Date.Format(models.DateLayout),
			Actual:      r.Actual,
			Predictions: r.Predictions,
		}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastsEchoHandler) Update(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsErrorf("too many update requests"))
	}

	req := &models.UpdateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	start := time.Now()
	if req.Ticker == "" {
		outcomes, err := h.updater.UpdateAll(ctx)
		if err != nil {
			h.logger.Error("batch update error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, toAppError(err))
		}
		h.logger.Info("batch update via api",
			xlogger.Int("artifacts", len(outcomes)),
			xlogger.Duration("elapsed_ms", time.Since(start)))
		return xhttp.ListResponse(c, outcomes)
	}

	outcome, err := h.updater.UpdateInstrument(ctx, req.Ticker)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err).WithParam("outcome", outcome))
	}
	return xhttp.ListResponse(c, []models.UpdateOutcome{outcome})
}

func (h *ForecastsEchoHandler) Runs(c echo.Context) error {
	req := &models.RunsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	runs, err := h.runs.Recent(c.Request().Context(), req.Limit)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.ListResponse(c, runs)
}

// toAppError maps domain errors onto HTTP statuses.
func toAppError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, domsvc.ErrNotFound):
		return xhttp.NotFoundErrorf("%v", err).WithError(err)
	case errors.Is(err, domsvc.ErrUpdateInProgress):
		return xhttp.ConflictErrorf("%v", err).WithError(err)
	case errors.Is(err, domsvc.ErrInvalidInput),
		errors.Is(err, domsvc.ErrMissingColumn),
		errors.Is(err, domsvc.ErrNoConfirmedData):
		return xhttp.UnprocessableErrorf("%v", err).WithError(err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return xhttp.NewAppError("ERR_TIMEOUT", "", err.Error(), http.StatusGatewayTimeout).WithError(err)
	default:
		return xhttp.InternalErrorf("%v", err).WithError(err)
	}
}
