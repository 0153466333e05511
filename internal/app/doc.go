// Package app assembles the server: configuration, logging, telemetry,
// the WebSocket hub, the ingestion coordinator, the job runner, and the
// HTTP router, plus lifecycle management from startup preset loading
// through graceful shutdown.
package app
