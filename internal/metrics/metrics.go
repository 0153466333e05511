// Package metrics registers the Prometheus instruments shared by the
// ingestion and job pipelines. All collectors live on the default
// registry and are served by promhttp in the HTTP layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "datalens"

var (
	// FilesIngested counts file records reaching a terminal state,
	// labelled by that state.
	FilesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "files_ingested_total",
		Help:      "File ingestions by terminal status.",
	}, []string{"status"})

	// UploadsRejected counts manual uploads refused before registration.
	UploadsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_rejected_total",
		Help:      "Uploads rejected by the extension gate.",
	})

	// PresetFetches counts preset acquisition attempts by outcome.
	PresetFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "preset_fetches_total",
		Help:      "Preset file fetch attempts by outcome.",
	}, []string{"outcome"})

	// JobsSubmitted counts accepted job submissions by kind.
	JobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_submitted_total",
		Help:      "Analysis jobs submitted by kind.",
	}, []string{"kind"})

	// JobsFinished counts jobs reaching a terminal state.
	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_finished_total",
		Help:      "Analysis jobs finished by terminal status.",
	}, []string{"status"})

	// ActiveJobs tracks jobs currently advancing under the scheduler.
	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_jobs",
		Help:      "Jobs currently running.",
	})

	// WebSocketClients tracks connected event-stream clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_clients",
		Help:      "Connected WebSocket clients.",
	})
)
