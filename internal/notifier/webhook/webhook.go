// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/dipcast/internal/core"
	"github.com/newthinker/dipcast/internal/notifier"
)

const defaultTimeout = 30 * time.Second

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	name    string
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		name:    "webhook",
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

func (w *Webhook) Name() string {
	if w.name == "" {
		return "webhook"
	}
	return w.name
}

func (w *Webhook) Init(cfg notifier.Config) error {
	if cfg.Name != "" {
		w.name = cfg.Name
	}
	if cfg.URL != "" {
		w.url = cfg.URL
	}
	if cfg.Headers != nil {
		w.headers = cfg.Headers
	}

	if w.url == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("webhook: url is required"))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if w.client == nil {
		w.client = &http.Client{}
	}
	w.client.Timeout = timeout

	return nil
}

func (w *Webhook) Send(ctx context.Context, alert notifier.Alert) error {
	return w.post(ctx, alertToPayload(alert))
}

func (w *Webhook) SendBatch(ctx context.Context, alerts []notifier.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	payloads := make([]map[string]any, len(alerts))
	for i, a := range alerts {
		payloads[i] = alertToPayload(a)
	}

	return w.post(ctx, map[string]any{
		"type":   "batch",
		"count":  len(alerts),
		"alerts": payloads,
	})
}

func alertToPayload(a notifier.Alert) map[string]any {
	r := a.Record
	return map[string]any{
		"type":              "opportunity",
		"run_id":            a.RunID,
		"symbol":            a.Symbol,
		"date":              r.Date.Format(core.DateLayout),
		"level":             r.Level,
		"threshold":         float64(r.Threshold),
		"buy_price":         r.BuyPrice,
		"current_value":     r.CurrentValue,
		"growth":            r.Growth,
		"growth_percentage": r.GrowthPercentage,
	}
}

func (w *Webhook) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: server returned %d", resp.StatusCode)
	}

	return nil
}
