package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"datalens/internal/config"
	"datalens/internal/dataprocessing"
	apperrors "datalens/internal/errors"
	"datalens/internal/metrics"
	"datalens/pkg/contracts/domain"
	"datalens/pkg/contracts/events"
)

// PresetFetcher retrieves a preset file by bare name.
type PresetFetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// Broadcaster pushes registry change events to connected clients.
type Broadcaster interface {
	BroadcastUpdate(eventType, action string, data any)
}

// BatchPolicy controls how a preset batch reacts to a failed name.
type BatchPolicy int

const (
	// FailFast aborts the batch on the first failure; later names are
	// never attempted.
	FailFast BatchPolicy = iota

	// BestEffort records the failure and continues with the next name.
	BestEffort
)

// BatchReport summarizes one preset batch run.
type BatchReport struct {
	Loaded  []string          `json:"loaded"`
	Skipped []string          `json:"skipped"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// allowedExtensions gates manual uploads. Preset names bypass the gate;
// they are trusted configuration, not user input.
var allowedExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
}

// Coordinator drives both acquisition paths through the shared ingest
// pipeline: register an uploading record, parse, compute statistics, then
// settle the record into success or error.
type Coordinator struct {
	store       *FileStore
	fetcher     PresetFetcher
	cfg         config.IngestConfig
	logger      *slog.Logger
	broadcaster Broadcaster
}

// NewCoordinator wires the coordinator. broadcaster may be nil.
func NewCoordinator(store *FileStore, fetcher PresetFetcher, cfg config.IngestConfig, logger *slog.Logger, broadcaster Broadcaster) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:       store,
		fetcher:     fetcher,
		cfg:         cfg,
		logger:      logger,
		broadcaster: broadcaster,
	}
}

// LoadPresets ingests the configured preset names in order. Names already
// present in the registry are skipped; after each successful ingest the
// batch pauses for the configured delay before the next name. Under
// FailFast the first failure ends the batch and the remaining names are
// never attempted.
func (c *Coordinator) LoadPresets(ctx context.Context, policy BatchPolicy) (*BatchReport, error) {
	report := &BatchReport{Failed: make(map[string]string)}

	for i, name := range c.cfg.PresetFiles {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if c.IsAlreadyIngested(name) {
			c.logger.Info("preset already ingested, skipping", slog.String("name", name))
			report.Skipped = append(report.Skipped, name)
			continue
		}

		if err := c.ingestPreset(ctx, name); err != nil {
			metrics.PresetFetches.WithLabelValues("error").Inc()
			report.Failed[name] = err.Error()
			c.logger.Error("preset ingest failed",
				slog.String("name", name),
				slog.String("error", err.Error()))
			if policy == FailFast {
				return report, err
			}
			continue
		}

		metrics.PresetFetches.WithLabelValues("ok").Inc()
		report.Loaded = append(report.Loaded, name)

		// Pause between presets so downstream consumers see each file
		// settle before the next one starts.
		if c.cfg.PresetDelay > 0 && i < len(c.cfg.PresetFiles)-1 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(c.cfg.PresetDelay):
			}
		}
	}

	return report, nil
}

// IsAlreadyIngested reports whether a preset name should be skipped.
// Matching is by filename and only success records count: a failed preset
// is retried on the next batch, and an in-flight uploading record does
// not suppress the fetch.
func (c *Coordinator) IsAlreadyIngested(name string) bool {
	for _, file := range c.store.List(domain.FileFilter{Status: domain.FileStatusSuccess}) {
		if file.Name == name {
			return true
		}
	}
	return false
}

// ingestPreset registers the record before fetching, so a failed download
// still leaves a visible error record.
func (c *Coordinator) ingestPreset(ctx context.Context, name string) error {
	file := c.register(name, 0)

	data, err := c.fetcher.Fetch(ctx, name)
	if err != nil {
		c.settleError(file.ID, err)
		return err
	}

	size := int64(len(data))
	if _, uerr := c.store.Update(file.ID, FileUpdate{Size: &size}); uerr != nil {
		return uerr
	}

	return c.runPipeline(file.ID, data)
}

// Upload ingests one manually uploaded spreadsheet. The extension gate
// runs before any registry record is created, so a rejected upload leaves
// no trace. Duplicate names are allowed here; dedup applies to presets
// only.
func (c *Coordinator) Upload(ctx context.Context, name string, data []byte) (*domain.DataFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		metrics.UploadsRejected.Inc()
		return nil, apperrors.UnsupportedType(ext)
	}

	file := c.register(name, int64(len(data)))
	if err := c.runPipeline(file.ID, data); err != nil {
		// The error record stays in the registry; the caller gets both
		// the record and the failure.
		settled, _ := c.store.Get(file.ID)
		return settled, err
	}
	return c.store.Get(file.ID)
}

// UploadRequest is one entry of a batch upload.
type UploadRequest struct {
	Name string
	Data []byte
}

// UploadOutcome reports how one entry of a batch upload settled. Gate
// rejections carry the reason and no File; pipeline failures carry both
// the error record and the reason.
type UploadOutcome struct {
	Name  string           `json:"name"`
	File  *domain.DataFile `json:"file,omitempty"`
	Error string           `json:"error,omitempty"`
}

// UploadBatch ingests several uploads concurrently. Failures are isolated
// per entry: a rejected or failed upload never aborts its siblings, so the
// group is used for scheduling only.
func (c *Coordinator) UploadBatch(ctx context.Context, uploads []UploadRequest) []UploadOutcome {
	outcomes := make([]UploadOutcome, len(uploads))

	var g errgroup.Group
	for i, up := range uploads {
		g.Go(func() error {
			file, err := c.Upload(ctx, up.Name, up.Data)
			outcomes[i] = UploadOutcome{Name: up.Name, File: file}
			if err != nil {
				outcomes[i].Error = err.Error()
			}
			return nil
		})
	}
	g.Wait()
	return outcomes
}

// Remove deletes a file record and notifies clients. Jobs referencing the
// id keep their now-dangling reference.
func (c *Coordinator) Remove(id string) error {
	if err := c.store.Remove(id); err != nil {
		return err
	}
	c.broadcast(events.ActionRemoved, map[string]string{"id": id})
	return nil
}

// Get returns the registry record for id.
func (c *Coordinator) Get(id string) (*domain.DataFile, error) {
	return c.store.Get(id)
}

// List returns matching registry records in insertion order.
func (c *Coordinator) List(filter domain.FileFilter) []*domain.DataFile {
	return c.store.List(filter)
}

// Select marks a file as the one under inspection.
func (c *Coordinator) Select(id string) error {
	return c.store.Select(id)
}

// Selected returns the file under inspection, or nil.
func (c *Coordinator) Selected() *domain.DataFile {
	return c.store.Selected()
}

// register creates the uploading record that anchors the acquisition.
func (c *Coordinator) register(name string, size int64) *domain.DataFile {
	file := &domain.DataFile{
		ID:         domain.NewFileID(),
		Name:       name,
		Size:       size,
		UploadTime: time.Now(),
		Status:     domain.FileStatusUploading,
	}
	c.store.Insert(file)
	c.broadcast(events.ActionCreated, file)
	c.logger.Info("file registered",
		slog.String("file_id", file.ID),
		slog.String("name", name))
	return file
}

// runPipeline parses the bytes, computes statistics, and settles the
// record. Table, statistics, and the success status land in one update.
func (c *Coordinator) runPipeline(id string, data []byte) error {
	table, err := dataprocessing.Parse(data)
	if err != nil {
		c.settleError(id, err)
		return err
	}

	stats := dataprocessing.ComputeStatistics(table)

	status := domain.FileStatusSuccess
	updated, err := c.store.Update(id, FileUpdate{
		Status:     &status,
		Table:      table,
		Statistics: stats,
	})
	if err != nil {
		return err
	}

	metrics.FilesIngested.WithLabelValues(string(domain.FileStatusSuccess)).Inc()
	c.broadcast(events.ActionUpdated, updated)
	c.logger.Info("file ingested",
		slog.String("file_id", id),
		slog.Int("rows", table.RowCount),
		slog.Int("columns", table.ColumnCount))
	return nil
}

// settleError moves the record to its terminal error state.
func (c *Coordinator) settleError(id string, cause error) {
	status := domain.FileStatusError
	msg := cause.Error()
	updated, err := c.store.Update(id, FileUpdate{Status: &status, Error: &msg})
	if err != nil {
		c.logger.Error("failed to record ingest error",
			slog.String("file_id", id),
			slog.String("error", err.Error()))
		return
	}
	metrics.FilesIngested.WithLabelValues(string(domain.FileStatusError)).Inc()
	c.broadcast(events.ActionUpdated, updated)
}

func (c *Coordinator) broadcast(action string, data any) {
	if c.broadcaster == nil {
		return
	}
	c.broadcaster.BroadcastUpdate(events.TypeFile, action, data)
}
