package jobs

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalens/internal/config"
	apperrors "datalens/internal/errors"
	"datalens/pkg/contracts/domain"
)

// fileSourceFunc adapts a function to the FileSource interface.
type fileSourceFunc func(id string) (*domain.DataFile, error)

func (f fileSourceFunc) Get(id string) (*domain.DataFile, error) { return f(id) }

// recordingBroadcaster captures every event for later inspection.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

type broadcastEvent struct {
	Type   string
	Action string
	Data   any
}

func (b *recordingBroadcaster) BroadcastUpdate(eventType, action string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastEvent{eventType, action, data})
}

func (b *recordingBroadcaster) actions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.Action
	}
	return out
}

func jobsConfig(tick time.Duration, increment int) config.JobsConfig {
	return config.JobsConfig{TickInterval: tick, ProgressIncrement: increment}
}

func newTestManager(t *testing.T, cfg config.JobsConfig, files FileSource, b Broadcaster) *Manager {
	t.Helper()
	m := NewManager(NewJobStore(), files, cfg, slog.Default(), b)
	t.Cleanup(m.Stop)
	return m
}

func presentSource(id string) (*domain.DataFile, error) {
	return sourceWithColumn(10, 12, 11, 9, 10, 13), nil
}

func TestSubmit(t *testing.T) {
	m := newTestManager(t, jobsConfig(time.Hour, 12), fileSourceFunc(presentSource), nil)

	job, err := m.Submit(context.Background(), SubmitRequest{
		Kind:         domain.JobKindPCA,
		SourceFileID: "file-1",
	})
	require.NoError(t, err)

	// A submitted job is immediately running at zero progress.
	assert.Equal(t, domain.JobStatusRunning, job.Status)
	assert.Zero(t, job.Progress)
	assert.Equal(t, "pca analysis", job.Name)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Nil(t, job.CompletedAt)
}

func TestSubmit_MissingSource(t *testing.T) {
	m := newTestManager(t, jobsConfig(time.Hour, 12), fileSourceFunc(presentSource), nil)

	_, err := m.Submit(context.Background(), SubmitRequest{Kind: domain.JobKindPCA})
	assert.ErrorIs(t, err, apperrors.ErrMissingSource)
}

func TestSubmit_UnknownKind(t *testing.T) {
	m := newTestManager(t, jobsConfig(time.Hour, 12), fileSourceFunc(presentSource), nil)

	_, err := m.Submit(context.Background(), SubmitRequest{
		Kind:         domain.JobKind("kmeans"),
		SourceFileID: "file-1",
	})
	assert.Error(t, err)
	assert.Empty(t, m.List(domain.JobFilter{}))
}

func TestJobRunsToCompletion(t *testing.T) {
	b := &recordingBroadcaster{}
	m := newTestManager(t, jobsConfig(2*time.Millisecond, 25), fileSourceFunc(presentSource), b)

	job, err := m.Submit(context.Background(), SubmitRequest{
		Kind:         domain.JobKindSPC,
		SourceFileID: "file-1",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := m.Get(job.ID)
		return err == nil && got.Status == domain.JobStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	got, err := m.Get(job.ID)
	require.NoError(t, err)

	// Completion is atomic: the completed status never appears without
	// its outputs.
	assert.Equal(t, 100, got.Progress)
	assert.NotNil(t, got.Results)
	assert.NotEmpty(t, got.Charts)
	require.NotNil(t, got.CompletedAt)
	assert.Empty(t, got.Error)

	// Progress events carry strictly increasing progress below 100.
	b.mu.Lock()
	defer b.mu.Unlock()
	last := 0
	for _, e := range b.events {
		if e.Action != "progress" {
			continue
		}
		j, ok := e.Data.(*domain.AnalysisJob)
		require.True(t, ok)
		assert.Greater(t, j.Progress, last)
		assert.Less(t, j.Progress, 100)
		last = j.Progress
	}
}

func TestJobCompletesWithDanglingSource(t *testing.T) {
	missing := fileSourceFunc(func(string) (*domain.DataFile, error) {
		return nil, apperrors.ErrFileNotFound
	})
	m := newTestManager(t, jobsConfig(2*time.Millisecond, 50), missing, nil)

	job, err := m.Submit(context.Background(), SubmitRequest{
		Kind:         domain.JobKindPCA,
		SourceFileID: "gone",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := m.Get(job.ID)
		return err == nil && got.Status == domain.JobStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	got, err := m.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, "synthetic", got.Results["source_column"])
}

func TestCancel(t *testing.T) {
	b := &recordingBroadcaster{}
	m := newTestManager(t, jobsConfig(20*time.Millisecond, 5), fileSourceFunc(presentSource), b)

	job, err := m.Submit(context.Background(), SubmitRequest{
		Kind:         domain.JobKindICA,
		SourceFileID: "file-1",
	})
	require.NoError(t, err)

	require.NoError(t, m.Cancel(job.ID))

	require.Eventually(t, func() bool {
		got, err := m.Get(job.ID)
		return err == nil && got.Status == domain.JobStatusCancelled
	}, 2*time.Second, 5*time.Millisecond)

	got, err := m.Get(job.ID)
	require.NoError(t, err)
	assert.Less(t, got.Progress, 100)
	assert.Nil(t, got.Results)
	require.NotNil(t, got.CompletedAt)

	// A terminal job cannot be cancelled again.
	assert.ErrorIs(t, m.Cancel(job.ID), apperrors.ErrJobNotCancellable)
}

func TestCancelUnknown(t *testing.T) {
	m := newTestManager(t, jobsConfig(time.Hour, 12), fileSourceFunc(presentSource), nil)
	assert.ErrorIs(t, m.Cancel("missing"), apperrors.ErrJobNotFound)
}

func TestRemove_OnlyTerminalJobs(t *testing.T) {
	m := newTestManager(t, jobsConfig(2*time.Millisecond, 50), fileSourceFunc(presentSource), nil)

	job, err := m.Submit(context.Background(), SubmitRequest{
		Kind:         domain.JobKindAutoencoder,
		SourceFileID: "file-1",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := m.Get(job.ID)
		return err == nil && got.Status.Terminal()
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, m.Remove(job.ID))
	_, err = m.Get(job.ID)
	assert.ErrorIs(t, err, apperrors.ErrJobNotFound)
}

func TestRemove_RunningJobRefused(t *testing.T) {
	m := newTestManager(t, jobsConfig(time.Hour, 12), fileSourceFunc(presentSource), nil)

	job, err := m.Submit(context.Background(), SubmitRequest{
		Kind:         domain.JobKindPCA,
		SourceFileID: "file-1",
	})
	require.NoError(t, err)

	assert.ErrorIs(t, m.Remove(job.ID), apperrors.ErrJobNotCancellable)
}

func TestJobFailsWhenComputeErrors(t *testing.T) {
	original := computeFuncs[domain.JobKindICA]
	computeFuncs[domain.JobKindICA] = func(*domain.AnalysisJob, *domain.DataFile) (map[string]any, []domain.ChartSpec, error) {
		return nil, nil, assert.AnError
	}
	t.Cleanup(func() { computeFuncs[domain.JobKindICA] = original })

	b := &recordingBroadcaster{}
	m := newTestManager(t, jobsConfig(2*time.Millisecond, 50), fileSourceFunc(presentSource), b)

	job, err := m.Submit(context.Background(), SubmitRequest{
		Kind:         domain.JobKindICA,
		SourceFileID: "file-1",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := m.Get(job.ID)
		return err == nil && got.Status == domain.JobStatusFailed
	}, 2*time.Second, 5*time.Millisecond)

	got, err := m.Get(job.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, got.Error)
	assert.Nil(t, got.Results)
	require.NotNil(t, got.CompletedAt)
	assert.Contains(t, b.actions(), "failed")
}
