// Package opensearch wraps the opensearch-go/v2 client for memkeep.
//
// OpenSearch backs two optional components: the analytics event sink and the
// saved-memory repository. New verifies the cluster on startup, EnsureIndex
// creates an index with its mapping when missing, and Healthcheck is used by
// the daemon's startup checks.
//
//	cfg.Index("events") // "memkeep-events"
package opensearch
