package jobs

import (
	"sync"
	"time"

	apperrors "datalens/internal/errors"
	"datalens/pkg/contracts/domain"
)

// JobStore is the in-memory job registry. Records are held in submission
// order; reads return copies.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]*domain.AnalysisJob
	order []string
}

// NewJobStore creates an empty registry.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*domain.AnalysisJob)}
}

// JobUpdate is a partial record update applied under one lock. A terminal
// transition sets Status, Progress, Results, Charts, and CompletedAt in
// the same update so the record is never observed half-finished.
type JobUpdate struct {
	Status      *domain.JobStatus
	Progress    *int
	Results     map[string]any
	Charts      []domain.ChartSpec
	Error       *string
	CompletedAt *time.Time
}

// Insert registers a new job.
func (s *JobStore) Insert(job *domain.AnalysisJob) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; !exists {
		s.order = append(s.order, job.ID)
	}
	clone := *job
	s.jobs[job.ID] = &clone
}

// Update merges the given fields into the record.
func (s *JobStore) Update(id string, upd JobUpdate) (*domain.AnalysisJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, apperrors.ErrJobNotFound
	}

	if upd.Status != nil {
		job.Status = *upd.Status
	}
	if upd.Progress != nil {
		job.Progress = *upd.Progress
	}
	if upd.Results != nil {
		job.Results = upd.Results
	}
	if upd.Charts != nil {
		job.Charts = upd.Charts
	}
	if upd.Error != nil {
		job.Error = *upd.Error
	}
	if upd.CompletedAt != nil {
		job.CompletedAt = upd.CompletedAt
	}

	clone := *job
	return &clone, nil
}

// Get returns a copy of the job for id.
func (s *JobStore) Get(id string) (*domain.AnalysisJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, apperrors.ErrJobNotFound
	}
	clone := *job
	return &clone, nil
}

// List returns copies of matching jobs in submission order. A positive
// Limit keeps the most recent entries.
func (s *JobStore) List(filter domain.JobFilter) []*domain.AnalysisJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.AnalysisJob, 0, len(s.order))
	for _, id := range s.order {
		job := s.jobs[id]
		if !matchJob(filter, job) {
			continue
		}
		clone := *job
		result = append(result, &clone)
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[len(result)-filter.Limit:]
	}
	return result
}

func matchJob(f domain.JobFilter, job *domain.AnalysisJob) bool {
	if f.Status != "" && job.Status != f.Status {
		return false
	}
	if f.Kind != "" && job.Kind != f.Kind {
		return false
	}
	if f.SourceFileID != "" && job.SourceFileID != f.SourceFileID {
		return false
	}
	if !f.Since.IsZero() && job.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}

// Remove deletes the job record.
func (s *JobStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return apperrors.ErrJobNotFound
	}
	delete(s.jobs, id)
	for i, jid := range s.order {
		if jid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of job records.
func (s *JobStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
