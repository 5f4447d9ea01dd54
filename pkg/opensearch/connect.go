package opensearch

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// New creates a client and verifies the cluster answers.
func New(ctx context.Context, cfg Config) (*opensearch.Client, error) {
	if !cfg.Enabled() {
		return nil, errors.Join(ErrConnectionFailed, ErrNoAddresses)
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		MaxRetries:   cfg.MaxRetries,
		DisableRetry: cfg.DisableRetry,
	})
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	if err := Healthcheck(client)(ctx); err != nil {
		return nil, err
	}

	return client, nil
}

// EnsureIndex creates index with the given JSON mapping unless it exists.
func EnsureIndex(ctx context.Context, client *opensearch.Client, index, mapping string) error {
	exists, err := opensearchapi.IndicesExistsRequest{Index: []string{index}}.Do(ctx, client)
	if err != nil {
		return errors.Join(ErrIndexSetupFailed, err)
	}
	defer exists.Body.Close()

	if exists.StatusCode == http.StatusOK {
		return nil
	}

	res, err := opensearchapi.IndicesCreateRequest{
		Index: index,
		Body:  strings.NewReader(mapping),
	}.Do(ctx, client)
	if err != nil {
		return errors.Join(ErrIndexSetupFailed, err)
	}
	defer res.Body.Close()

	// A concurrent replica may have created it first.
	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return errors.Join(ErrIndexSetupFailed, errors.New(res.String()))
	}

	return nil
}
