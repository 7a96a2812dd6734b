package forecasting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinCast/internal/service/metrics"
	xhttp "FinCast/pkg/http"
)

// HTTPInference calls a model server hosting the pretrained network.
type HTTPInference struct {
	client *xhttp.Client
	model  string
	device string
}

func NewHTTPInference(client *xhttp.Client, model string) *HTTPInference {
	metrics.Register()
	return &HTTPInference{client: client, model: model}
}

type loadReq struct {
	Model  string `json:"model"`
	Device string `json:"device"`
}

type loadResp struct {
	Status string `json:"status"`
	Device string `json:"device"`
}

type forecastReq struct {
	Model   string    `json:"model"`
	Device  string    `json:"device"`
	Context []float64 `json:"context"`
	Horizon int       `json:"horizon"`
}

type forecastResp struct {
	Forecast []float64 `json:"forecast"`
}

func (h *HTTPInference) Load(ctx context.Context, device string) error {
	if h.client == nil || h.client.BaseURL() == "" {
		return errors.New("inference service url not configured")
	}
	var resp loadResp
	start := time.Now()
	err := h.client.PostJSON(ctx, "/models/load", loadReq{Model: h.model, Device: device}, &resp)
	metrics.ObserveInference("/models/load", start, err)
	if err != nil {
		return err
	}
	if resp.Status != "" && resp.Status != "ok" && resp.Status != "loaded" {
		return fmt.Errorf("model server status %q", resp.Status)
	}
	h.device = device
	if resp.Device != "" {
		h.device = resp.Device
	}
	return nil
}

func (h *HTTPInference) Forward(ctx context.Context, window []float64) (float64, error) {
	var resp forecastResp
	req := forecastReq{Model: h.model, Device: h.device, Context: window, Horizon: 1}
	start := time.Now()
	err := h.client.PostJSON(ctx, "/forecast", req, &resp)
	metrics.ObserveInference("/forecast", start, err)
	if err != nil {
		return 0, err
	}
	if len(resp.Forecast) == 0 {
		return 0, errors.New("empty forecast from model server")
	}
	return resp.Forecast[0], nil
}

var _ InferenceBackend = (*HTTPInference)(nil)
