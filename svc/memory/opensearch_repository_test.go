package memory_test

import (
	"context"
	"encoding/json"
	"io"
	"maps"
	"net/http"
	"net/http/httptest"
	"path"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/memkeep/svc/memory"
)

// fakeCluster answers the index and search endpoints used by the repository.
type fakeCluster struct {
	mu      sync.Mutex
	docs    map[string]json.RawMessage
	queries []map[string]any
}

func (c *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	body, _ := io.ReadAll(r.Body)

	switch {
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/memories/_doc/"):
		if r.URL.Query().Get("refresh") != "wait_for" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		c.docs[path.Base(r.URL.Path)] = body
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	case r.URL.Path == "/memories/_search":
		var q map[string]any
		_ = json.Unmarshal(body, &q)
		c.queries = append(c.queries, q)

		// Return every stored doc; the owner filter is asserted on the query.
		hits := make([]map[string]any, 0, len(c.docs))
		for id, doc := range c.docs {
			hits = append(hits, map[string]any{"_id": id, "_source": doc})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"hits": map[string]any{"hits": hits}})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (c *fakeCluster) snapshot() (map[string]json.RawMessage, []map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.docs), slices.Clone(c.queries)
}

func newCluster(t *testing.T) (*fakeCluster, *opensearch.Client) {
	t.Helper()
	cluster := &fakeCluster{docs: map[string]json.RawMessage{}}
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:    []string{srv.URL},
		DisableRetry: true,
	})
	require.NoError(t, err)
	return cluster, client
}

func TestOpenSearchRepository(t *testing.T) {
	t.Parallel()

	cluster, client := newCluster(t)
	repo := memory.NewOpenSearchRepository(client, "memories")
	ctx := context.Background()

	m := memory.Memory{ID: "m1", UserID: "alice", Content: "notes", Tags: []string{"go"}, CreatedAt: testNow}
	require.NoError(t, repo.Save(ctx, m))
	docs, _ := cluster.snapshot()
	assert.Contains(t, docs, "m1")

	got, err := repo.GetMany(ctx, "alice", []string{"m1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, m, got[0])

	_, queries := cluster.snapshot()
	require.Len(t, queries, 1)
	filter := queries[0]["query"].(map[string]any)["bool"].(map[string]any)["filter"].([]any)
	assert.Equal(t, map[string]any{"term": map[string]any{"user_id": "alice"}}, filter[0])
	assert.Equal(t, map[string]any{"ids": map[string]any{"values": []any{"m1"}}}, filter[1])

	empty, err := repo.GetMany(ctx, "alice", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	_, queries = cluster.snapshot()
	assert.Len(t, queries, 1)
}

func TestOpenSearchRepository_ErrorStatus(t *testing.T) {
	t.Parallel()

	_, client := newCluster(t)
	repo := memory.NewOpenSearchRepository(client, "other")

	_, err := repo.GetMany(context.Background(), "alice", []string{"m1"})
	assert.Error(t, err)
	assert.Error(t, repo.Save(context.Background(), memory.Memory{ID: "x"}))
}

func TestNewOpenSearchRepository_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { memory.NewOpenSearchRepository(nil, "memories") })
}
