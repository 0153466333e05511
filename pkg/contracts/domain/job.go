package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of an analysis job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// JobKind identifies which analysis was requested. The runner treats kinds
// opaquely; they select the compute strategy and the result schema.
type JobKind string

const (
	JobKindPCA         JobKind = "pca"
	JobKindICA         JobKind = "ica"
	JobKindAutoencoder JobKind = "autoencoder"
	JobKindSPC         JobKind = "spc"
)

// AnalysisJob is one unit of asynchronous analytic work. SourceFileID is a
// weak reference into the file registry; it may dangle if the file is
// removed while the job exists, and consumers must treat a miss as
// "unknown source" rather than an error.
type AnalysisJob struct {
	ID           string         `json:"id"`
	Kind         JobKind        `json:"kind"`
	Name         string         `json:"name"`
	SourceFileID string         `json:"source_file_id"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Status       JobStatus      `json:"status"`
	Progress     int            `json:"progress"`
	Results      map[string]any `json:"results,omitempty"`
	Charts       []ChartSpec    `json:"charts,omitempty"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// NewJobID returns a unique opaque job identifier.
func NewJobID() string {
	return uuid.NewString()
}

// JobFilter narrows List results in the job registry. Zero values match
// everything.
type JobFilter struct {
	Status       JobStatus `json:"status,omitempty"`
	Kind         JobKind   `json:"kind,omitempty"`
	SourceFileID string    `json:"source_file_id,omitempty"`
	Since        time.Time `json:"since,omitempty"`
	Limit        int       `json:"limit,omitempty"`
}
