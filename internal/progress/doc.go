// Package progress carries crawl progress events from the engine to pluggable
// sinks. Events are queued without blocking the crawl, batched on a background
// goroutine and handed to sinks such as the zap log sink or the Prometheus sink.
package progress
