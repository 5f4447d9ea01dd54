package analytics_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/memkeep/pkg/analytics"
)

// bulkEndpoint records the NDJSON lines posted to /_bulk.
type bulkEndpoint struct {
	mu       sync.Mutex
	lines    []map[string]any
	failItem bool
}

func (b *bulkEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path != "/_bulk" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sc := bufio.NewScanner(r.Body)
	for sc.Scan() {
		var line map[string]any
		if err := json.Unmarshal(sc.Bytes(), &line); err == nil {
			b.lines = append(b.lines, line)
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"errors": b.failItem, "items": []any{}})
}

func (b *bulkEndpoint) recorded() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.lines...)
}

func newBulkClient(t *testing.T, h http.Handler) *opensearch.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:    []string{srv.URL},
		DisableRetry: true,
	})
	require.NoError(t, err)
	return client
}

func TestOpenSearchSink(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	events := []analytics.Event{
		{ID: "e1", Type: analytics.EventUpgrade, UserID: "u1", Timestamp: ts},
		{ID: "e2", Type: analytics.EventMonthlyReset, Data: map[string]any{"count": 3}, Timestamp: ts},
	}

	t.Run("writes action and source lines", func(t *testing.T) {
		t.Parallel()
		endpoint := &bulkEndpoint{}
		sink := analytics.NewOpenSearchSink(newBulkClient(t, endpoint), "memkeep-events")

		require.NoError(t, sink.StoreBatch(context.Background(), events))

		lines := endpoint.recorded()
		require.Len(t, lines, 4)
		assert.Equal(t, map[string]any{"_index": "memkeep-events", "_id": "e1"}, lines[0]["index"])
		assert.Equal(t, "upgrade", lines[1]["event_type"])
		assert.Equal(t, "u1", lines[1]["user_id"])
		assert.Equal(t, map[string]any{"_index": "memkeep-events", "_id": "e2"}, lines[2]["index"])
		assert.Equal(t, "monthly_reset", lines[3]["event_type"])
	})

	t.Run("empty batch makes no request", func(t *testing.T) {
		t.Parallel()
		endpoint := &bulkEndpoint{}
		sink := analytics.NewOpenSearchSink(newBulkClient(t, endpoint), "memkeep-events")

		require.NoError(t, sink.StoreBatch(context.Background(), nil))
		assert.Empty(t, endpoint.recorded())
	})

	t.Run("item failures are reported", func(t *testing.T) {
		t.Parallel()
		endpoint := &bulkEndpoint{failItem: true}
		sink := analytics.NewOpenSearchSink(newBulkClient(t, endpoint), "memkeep-events")

		err := sink.Store(context.Background(), events[0])
		assert.ErrorIs(t, err, analytics.ErrFailedToStore)
		assert.ErrorIs(t, err, analytics.ErrBulkIndexPartial)
	})

	t.Run("error status", func(t *testing.T) {
		t.Parallel()
		client := newBulkClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		sink := analytics.NewOpenSearchSink(client, "memkeep-events")

		assert.ErrorIs(t, sink.Store(context.Background(), events[0]), analytics.ErrFailedToStore)
	})
}

func TestNewOpenSearchSink_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { analytics.NewOpenSearchSink(nil, "events") })
	client, err := opensearch.NewClient(opensearch.Config{Addresses: []string{"http://127.0.0.1:1"}})
	require.NoError(t, err)
	assert.Panics(t, func() { analytics.NewOpenSearchSink(client, "") })
}
