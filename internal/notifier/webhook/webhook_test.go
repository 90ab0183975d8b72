package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhook_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Webhook)(nil)
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New("hook", "", nil, 0)
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	w, err := New("", "http://example.com/hook", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "webhook", w.Name())
	assert.Equal(t, defaultTimeout, w.client.Timeout)
}

func TestWebhook_Notify(t *testing.T) {
	var received map[string]any
	var method, contentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w, err := New("hook", server.URL, nil, 0)
	require.NoError(t, err)

	ev := notifier.Event{
		Type:     notifier.EventRunCompleted,
		RunID:    "run-1",
		Symbol:   "AAPL",
		Strategy: "ma_crossover",
		Metrics:  backtest.Metrics{TotalTrades: 3},
	}
	require.NoError(t, w.Notify(context.Background(), ev))

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "run.completed", received["type"])
	assert.Equal(t, "AAPL", received["symbol"])
	m, ok := received["metrics"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), m["total_trades"])
}

func TestWebhook_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	w, err := New("hook", server.URL, nil, 0)
	require.NoError(t, err)

	assert.Error(t, w.Notify(context.Background(), notifier.Event{RunID: "x"}))
}

func TestWebhook_CustomHeaders(t *testing.T) {
	var receivedHeaders http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHeaders = r.Header
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	headers := map[string]string{"X-Hook-Token": "secret"}
	w, err := New("hook", server.URL, headers, 0)
	require.NoError(t, err)

	require.NoError(t, w.Notify(context.Background(), notifier.Event{RunID: "x"}))
	assert.Equal(t, "secret", receivedHeaders.Get("X-Hook-Token"))
}

func TestWebhook_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w, err := New("hook", server.URL, nil, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, w.Notify(ctx, notifier.Event{RunID: "x"}))
}
