// Package server wires the storeadmin components into one HTTP server.
//
// # Routes
//
//   - /health, /health/ready: liveness and a database ping
//   - /api/: the JSON resource API (internal/api)
//   - /admin/: the form UI (internal/webadmin), when webadmin.enabled
//   - metrics.path: Prometheus exposition, when metrics.enabled
//
// # Write fan-out
//
// Every successful write reaches three observers in order: the store's
// audit log, the change-event publisher (Kafka or a no-op) and the write
// counters.
//
// # Lifecycle
//
// Run listens on server.http_addr and blocks until the context is
// canceled or the listener fails, then shuts down within
// server.shutdown_timeout, flushing queued events before closing the store.
package server
