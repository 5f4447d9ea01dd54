// Package analytics carries subscription lifecycle events to storage.
//
// Producers hold an Emitter, which stamps events with an ID and a UTC
// timestamp and hands them to a Sink. Emission is fire-and-forget: a failing
// sink is logged and the caller's operation carries on.
//
// Sinks:
//
//   - LogSink writes events to slog.
//   - MemorySink keeps them in memory for tests.
//   - MongoSink inserts them into a collection.
//   - OpenSearchSink bulk indexes them.
//   - MultiSink fans out to several sinks.
//
// AsyncWriter wraps any BatchSink and flushes in the background by size or
// interval:
//
//	w := analytics.NewAsyncWriter(analytics.NewMongoSink(coll), analytics.AsyncOptions{})
//	defer w.Close(ctx)
//
//	emitter := analytics.NewEmitter(w, analytics.WithEmitterLogger(log))
package analytics
