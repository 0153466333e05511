package http

import (
	"context"

	"datalens/internal/jobs"
	"datalens/pkg/contracts/domain"
)

// JobServiceInterface is what the jobs handler needs from the runner.
type JobServiceInterface interface {
	Submit(ctx context.Context, req jobs.SubmitRequest) (*domain.AnalysisJob, error)
	Get(id string) (*domain.AnalysisJob, error)
	List(filter domain.JobFilter) []*domain.AnalysisJob
	Cancel(id string) error
	Remove(id string) error
}
