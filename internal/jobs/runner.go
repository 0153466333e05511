package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"datalens/internal/config"
	apperrors "datalens/internal/errors"
	"datalens/internal/metrics"
	"datalens/pkg/contracts/domain"
	"datalens/pkg/contracts/events"
)

// FileSource resolves a job's source file reference. A miss is not an
// error condition for the runner; the reference is weak.
type FileSource interface {
	Get(id string) (*domain.DataFile, error)
}

// Broadcaster pushes job lifecycle events to connected clients.
type Broadcaster interface {
	BroadcastUpdate(eventType, action string, data any)
}

var validate = validator.New()

// SubmitRequest is a job submission. Kind selects the compute strategy;
// SourceFileID must reference a registry file at submission time in form
// only, existence is not checked.
type SubmitRequest struct {
	Kind         domain.JobKind `json:"kind" validate:"required,oneof=pca ica autoencoder spc"`
	Name         string         `json:"name" validate:"max=200"`
	SourceFileID string         `json:"source_file_id"`
	Parameters   map[string]any `json:"parameters"`
}

// Manager owns the job registry and the per-job progress goroutines. Each
// running job ticks on a fixed interval, gaining a fixed progress
// increment per tick; reaching 100 triggers the compute strategy and an
// atomic terminal update.
type Manager struct {
	store       *JobStore
	files       FileSource
	cfg         config.JobsConfig
	logger      *slog.Logger
	broadcaster Broadcaster
	tracer      trace.Tracer

	mu      sync.Mutex
	cancels map[string]*atomic.Bool
	wg      sync.WaitGroup
	stop    chan struct{}
}

// NewManager wires the job runner. broadcaster may be nil.
func NewManager(store *JobStore, files FileSource, cfg config.JobsConfig, logger *slog.Logger, broadcaster Broadcaster) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:       store,
		files:       files,
		cfg:         cfg,
		logger:      logger,
		broadcaster: broadcaster,
		tracer:      otel.Tracer("datalens"),
		cancels:     make(map[string]*atomic.Bool),
		stop:        make(chan struct{}),
	}
}

// Submit validates the request, registers the job running at zero
// progress, and starts its progress goroutine.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (*domain.AnalysisJob, error) {
	if req.SourceFileID == "" {
		return nil, apperrors.ErrMissingSource
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid job submission: %w", err)
	}
	if _, err := computeFor(req.Kind); err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = string(req.Kind) + " analysis"
	}

	job := &domain.AnalysisJob{
		ID:           domain.NewJobID(),
		Kind:         req.Kind,
		Name:         name,
		SourceFileID: req.SourceFileID,
		Parameters:   req.Parameters,
		Status:       domain.JobStatusRunning,
		Progress:     0,
		CreatedAt:    time.Now(),
	}
	m.store.Insert(job)

	flag := &atomic.Bool{}
	m.mu.Lock()
	m.cancels[job.ID] = flag
	m.mu.Unlock()

	metrics.JobsSubmitted.WithLabelValues(string(req.Kind)).Inc()
	metrics.ActiveJobs.Inc()
	m.broadcast(events.ActionCreated, job)
	m.logger.Info("job submitted",
		slog.String("job_id", job.ID),
		slog.String("kind", string(job.Kind)),
		slog.String("source_file_id", job.SourceFileID))

	m.wg.Add(1)
	go m.run(job.ID, flag)

	clone := *job
	return &clone, nil
}

// Get returns the job for id.
func (m *Manager) Get(id string) (*domain.AnalysisJob, error) {
	return m.store.Get(id)
}

// List returns matching jobs.
func (m *Manager) List(filter domain.JobFilter) []*domain.AnalysisJob {
	return m.store.List(filter)
}

// Cancel requests cancellation. The running goroutine honors the request
// at the top of its next tick, so progress never advances after a cancel
// lands. Terminal jobs cannot be cancelled.
func (m *Manager) Cancel(id string) error {
	job, err := m.store.Get(id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return apperrors.ErrJobNotCancellable
	}

	m.mu.Lock()
	flag, ok := m.cancels[id]
	m.mu.Unlock()

	if ok {
		flag.Store(true)
		return nil
	}

	// No goroutine owns the job (runner already stopped); finalize
	// directly.
	m.finalizeCancelled(id)
	return nil
}

// Remove deletes a terminal job record. Running jobs must be cancelled
// first.
func (m *Manager) Remove(id string) error {
	job, err := m.store.Get(id)
	if err != nil {
		return err
	}
	if !job.Status.Terminal() {
		return apperrors.ErrJobNotCancellable
	}
	return m.store.Remove(id)
}

// Stop shuts down every progress goroutine and waits for them to exit.
// Jobs still running stay in the registry as running records.
func (m *Manager) Stop() {
	close(m.stop)
	m.wg.Wait()
}

// run advances one job until a terminal state. The cancellation check
// happens before the progress increment on every tick.
func (m *Manager) run(id string, cancelled *atomic.Bool) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		delete(m.cancels, id)
		m.mu.Unlock()
	}()

	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()

	progress := 0
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if cancelled.Load() {
				m.finalizeCancelled(id)
				return
			}

			progress += m.cfg.ProgressIncrement
			if progress >= 100 {
				m.complete(id)
				return
			}

			updated, err := m.store.Update(id, JobUpdate{Progress: &progress})
			if err != nil {
				m.logger.Error("progress update failed",
					slog.String("job_id", id),
					slog.String("error", err.Error()))
				return
			}
			m.broadcast(events.ActionProgress, updated)
		}
	}
}

// complete runs the compute strategy and lands the terminal update.
// Progress, results, charts, completion time, and status change in a
// single registry update.
func (m *Manager) complete(id string) {
	job, err := m.store.Get(id)
	if err != nil {
		return
	}

	ctx, span := m.tracer.Start(context.Background(), "jobs.compute",
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("job.kind", string(job.Kind)),
		))
	defer span.End()

	source := m.resolveSource(job.SourceFileID)

	fn, err := computeFor(job.Kind)
	if err == nil {
		var results map[string]any
		var charts []domain.ChartSpec
		results, charts, err = fn(job, source)
		if err == nil {
			m.finalizeCompleted(ctx, id, results, charts)
			return
		}
	}

	span.RecordError(err)
	m.finalizeFailed(id, err)
}

// resolveSource tolerates dangling references: a removed file yields nil.
func (m *Manager) resolveSource(fileID string) *domain.DataFile {
	if m.files == nil {
		return nil
	}
	source, err := m.files.Get(fileID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrFileNotFound) {
			m.logger.Warn("source lookup failed",
				slog.String("file_id", fileID),
				slog.String("error", err.Error()))
		}
		return nil
	}
	return source
}

func (m *Manager) finalizeCompleted(ctx context.Context, id string, results map[string]any, charts []domain.ChartSpec) {
	status := domain.JobStatusCompleted
	progress := 100
	now := time.Now()
	updated, err := m.store.Update(id, JobUpdate{
		Status:      &status,
		Progress:    &progress,
		Results:     results,
		Charts:      charts,
		CompletedAt: &now,
	})
	if err != nil {
		return
	}
	metrics.JobsFinished.WithLabelValues(string(status)).Inc()
	metrics.ActiveJobs.Dec()
	m.broadcast(events.ActionCompleted, updated)
	m.logger.InfoContext(ctx, "job completed",
		slog.String("job_id", id),
		slog.Int("charts", len(charts)))
}

func (m *Manager) finalizeFailed(id string, cause error) {
	status := domain.JobStatusFailed
	msg := cause.Error()
	now := time.Now()
	updated, err := m.store.Update(id, JobUpdate{
		Status:      &status,
		Error:       &msg,
		CompletedAt: &now,
	})
	if err != nil {
		return
	}
	metrics.JobsFinished.WithLabelValues(string(status)).Inc()
	metrics.ActiveJobs.Dec()
	m.broadcast(events.ActionFailed, updated)
	m.logger.Error("job failed",
		slog.String("job_id", id),
		slog.String("error", msg))
}

func (m *Manager) finalizeCancelled(id string) {
	job, err := m.store.Get(id)
	if err != nil || job.Status.Terminal() {
		return
	}
	status := domain.JobStatusCancelled
	now := time.Now()
	updated, err := m.store.Update(id, JobUpdate{
		Status:      &status,
		CompletedAt: &now,
	})
	if err != nil {
		return
	}
	metrics.JobsFinished.WithLabelValues(string(status)).Inc()
	metrics.ActiveJobs.Dec()
	m.broadcast(events.ActionCancelled, updated)
	m.logger.Info("job cancelled", slog.String("job_id", id))
}

func (m *Manager) broadcast(action string, data any) {
	if m.broadcaster == nil {
		return
	}
	m.broadcaster.BroadcastUpdate(events.TypeJob, action, data)
}
