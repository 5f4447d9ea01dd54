package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// EventsIndexMapping is the mapping used when creating the events index.
const EventsIndexMapping = `{
  "mappings": {
    "properties": {
      "event_type":        {"type": "keyword"},
      "user_id":           {"type": "keyword"},
      "timestamp":         {"type": "date"},
      "subscription_data": {"type": "object", "enabled": false},
      "analytics_data":    {"type": "object", "enabled": false}
    }
  }
}`

// OpenSearchSink indexes events into an OpenSearch index.
type OpenSearchSink struct {
	client *opensearch.Client
	index  string
}

// NewOpenSearchSink panics if client is nil or index is empty.
func NewOpenSearchSink(client *opensearch.Client, index string) *OpenSearchSink {
	if client == nil {
		panic("analytics: opensearch client cannot be nil")
	}
	if index == "" {
		panic("analytics: opensearch index cannot be empty")
	}
	return &OpenSearchSink{client: client, index: index}
}

func (s *OpenSearchSink) Store(ctx context.Context, event Event) error {
	return s.StoreBatch(ctx, []Event{event})
}

func (s *OpenSearchSink) StoreBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, e := range events {
		meta := map[string]any{"index": map[string]any{"_index": s.index, "_id": e.ID}}
		if err := enc.Encode(meta); err != nil {
			return errors.Join(ErrFailedToStore, err)
		}
		if err := enc.Encode(e); err != nil {
			return errors.Join(ErrFailedToStore, err)
		}
	}

	res, err := opensearchapi.BulkRequest{Body: &body}.Do(ctx, s.client)
	if err != nil {
		return errors.Join(ErrFailedToStore, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.Join(ErrFailedToStore, fmt.Errorf("bulk request: %s", res.Status()))
	}

	var reply struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&reply); err != nil {
		return errors.Join(ErrFailedToStore, err)
	}
	if reply.Errors {
		return errors.Join(ErrFailedToStore, ErrBulkIndexPartial)
	}

	return nil
}
