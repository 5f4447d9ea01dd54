package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	osx "github.com/dmitrymomot/memkeep/pkg/opensearch"
)

// MemoriesIndexMapping is the mapping of the memories index.
const MemoriesIndexMapping = `{
  "mappings": {
    "properties": {
      "id":         {"type": "keyword"},
      "user_id":    {"type": "keyword"},
      "title":      {"type": "text"},
      "content":    {"type": "text"},
      "url":        {"type": "keyword", "index": false},
      "tags":       {"type": "keyword"},
      "created_at": {"type": "date"}
    }
  }
}`

// OpenSearchRepository stores memories as documents keyed by memory id.
type OpenSearchRepository struct {
	client *opensearch.Client
	index  string
}

// NewOpenSearchRepository panics if client is nil or index is empty.
func NewOpenSearchRepository(client *opensearch.Client, index string) *OpenSearchRepository {
	if client == nil {
		panic("memory: opensearch client cannot be nil")
	}
	if index == "" {
		panic("memory: opensearch index cannot be empty")
	}
	return &OpenSearchRepository{client: client, index: index}
}

// EnsureIndex creates the memories index if it is missing.
func (r *OpenSearchRepository) EnsureIndex(ctx context.Context) error {
	return osx.EnsureIndex(ctx, r.client, r.index, MemoriesIndexMapping)
}

func (r *OpenSearchRepository) Save(ctx context.Context, m Memory) error {
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}

	res, err := opensearchapi.IndexRequest{
		Index:      r.index,
		DocumentID: m.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "wait_for",
	}.Do(ctx, r.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index memory %s: %s", m.ID, res.Status())
	}
	return nil
}

func (r *OpenSearchRepository) GetMany(ctx context.Context, userID string, ids []string) ([]Memory, error) {
	if len(ids) == 0 {
		return []Memory{}, nil
	}

	query := map[string]any{
		"size": len(ids),
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"user_id": userID}},
					map[string]any{"ids": map[string]any{"values": ids}},
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := opensearchapi.SearchRequest{
		Index: []string{r.index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, r.client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search memories: %s", res.Status())
	}

	var reply struct {
		Hits struct {
			Hits []struct {
				Source Memory `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&reply); err != nil {
		return nil, errors.Join(errors.New("decode search response"), err)
	}

	out := make([]Memory, 0, len(reply.Hits.Hits))
	for _, h := range reply.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
