// Package webhook posts run events to an HTTP endpoint as JSON
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/tradelab/internal/notifier"
)

const defaultTimeout = 30 * time.Second

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	name    string
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a webhook notifier. A zero timeout uses 30s.
func New(name, url string, headers map[string]string, timeout time.Duration) (*Webhook, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook: url is required")
	}
	if name == "" {
		name = "webhook"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Webhook{
		name:    name,
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (w *Webhook) Name() string { return w.name }

// Notify posts ev. Any status of 400 or above is an error.
func (w *Webhook) Notify(ctx context.Context, ev notifier.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal event: %w", err)
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
