package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"datalens/internal/config"
	apperrors "datalens/internal/errors"
	"datalens/pkg/contracts/domain"
)

// stubFetcher serves canned bytes per name and records the call order.
type stubFetcher struct {
	responses map[string][]byte
	errs      map[string]error
	calls     []string
}

func (s *stubFetcher) Fetch(_ context.Context, name string) ([]byte, error) {
	s.calls = append(s.calls, name)
	if err, ok := s.errs[name]; ok {
		return nil, err
	}
	data, ok := s.responses[name]
	if !ok {
		return nil, apperrors.FetchFailure(name, errors.New("no canned response"))
	}
	return data, nil
}

func workbookBytes(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		require.NoError(t, f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func validWorkbook(t *testing.T) []byte {
	return workbookBytes(t, [][]interface{}{
		{"Value", "Label"},
		{1.0, "a"},
		{2.0, "b"},
		{3.0, "c"},
	})
}

func ingestConfig(presets ...string) config.IngestConfig {
	return config.IngestConfig{
		AssetBaseURL: "http://assets.local",
		PresetFiles:  presets,
		PresetDelay:  time.Millisecond,
	}
}

func newTestCoordinator(fetcher PresetFetcher, cfg config.IngestConfig) (*Coordinator, *FileStore) {
	store := newTestStore()
	return NewCoordinator(store, fetcher, cfg, slog.Default(), nil), store
}

func TestUpload(t *testing.T) {
	c, store := newTestCoordinator(&stubFetcher{}, ingestConfig())

	file, err := c.Upload(context.Background(), "data.xlsx", validWorkbook(t))
	require.NoError(t, err)

	assert.Equal(t, domain.FileStatusSuccess, file.Status)
	assert.NotNil(t, file.Table)
	assert.Equal(t, 3, file.Table.RowCount)
	assert.Contains(t, file.Statistics, "Value")
	assert.Equal(t, 1, store.Count())
}

func TestUpload_ExtensionGate(t *testing.T) {
	c, store := newTestCoordinator(&stubFetcher{}, ingestConfig())

	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{"xlsx accepted", "report.xlsx", false},
		{"xls accepted", "legacy.xls", false},
		{"csv rejected", "report.csv", true},
		{"txt rejected", "notes.txt", true},
		{"no extension rejected", "report", true},
		{"case insensitive", "REPORT.XLSX", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := store.Count()
			file, err := c.Upload(context.Background(), tt.filename, validWorkbook(t))
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrUnsupportedType)
				assert.Nil(t, file)
				// Rejection happens before registration: no record.
				assert.Equal(t, before, store.Count())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, before+1, store.Count())
		})
	}
}

func TestUpload_MalformedBytes(t *testing.T) {
	c, store := newTestCoordinator(&stubFetcher{}, ingestConfig())

	file, err := c.Upload(context.Background(), "bad.xlsx", []byte("not a workbook"))
	assert.ErrorIs(t, err, apperrors.ErrMalformedSheet)

	// The failure is recorded, not discarded.
	require.NotNil(t, file)
	assert.Equal(t, domain.FileStatusError, file.Status)
	assert.NotEmpty(t, file.Error)
	assert.Equal(t, 1, store.Count())
}

func TestUpload_DuplicateNamesAllowed(t *testing.T) {
	c, store := newTestCoordinator(&stubFetcher{}, ingestConfig())

	_, err := c.Upload(context.Background(), "data.xlsx", validWorkbook(t))
	require.NoError(t, err)
	_, err = c.Upload(context.Background(), "data.xlsx", validWorkbook(t))
	require.NoError(t, err)

	assert.Equal(t, 2, store.Count())
}

func TestUploadBatch(t *testing.T) {
	c, store := newTestCoordinator(&stubFetcher{}, ingestConfig())

	uploads := []UploadRequest{
		{Name: "a.xlsx", Data: validWorkbook(t)},
		{Name: "b.xlsx", Data: validWorkbook(t)},
	}
	outcomes := c.UploadBatch(context.Background(), uploads)
	require.Len(t, outcomes, 2)
	assert.Equal(t, 2, store.Count())
	for _, outcome := range outcomes {
		require.NotNil(t, outcome.File)
		assert.Empty(t, outcome.Error)
		assert.Equal(t, domain.FileStatusSuccess, outcome.File.Status)
	}
}

func TestUploadBatch_FailuresIsolatedPerFile(t *testing.T) {
	c, store := newTestCoordinator(&stubFetcher{}, ingestConfig())

	uploads := []UploadRequest{{Name: "bad.csv", Data: []byte("a,b\n1,2\n")}}
	valid := validWorkbook(t)
	for i := 0; i < 20; i++ {
		uploads = append(uploads, UploadRequest{
			Name: fmt.Sprintf("batch-%02d.xlsx", i),
			Data: valid,
		})
	}

	outcomes := c.UploadBatch(context.Background(), uploads)
	require.Len(t, outcomes, len(uploads))

	// The rejected entry carries its reason and leaves no record; every
	// sibling still ingests.
	assert.Nil(t, outcomes[0].File)
	assert.Contains(t, outcomes[0].Error, "unsupported file type")
	assert.Equal(t, 20, store.Count())
	for _, outcome := range outcomes[1:] {
		require.NotNil(t, outcome.File, outcome.Name)
		assert.Equal(t, domain.FileStatusSuccess, outcome.File.Status)
	}
}

func TestUploadBatch_PipelineFailureSettlesWithoutAbort(t *testing.T) {
	c, store := newTestCoordinator(&stubFetcher{}, ingestConfig())

	outcomes := c.UploadBatch(context.Background(), []UploadRequest{
		{Name: "broken.xlsx", Data: []byte("not a workbook")},
		{Name: "good.xlsx", Data: validWorkbook(t)},
	})
	require.Len(t, outcomes, 2)

	require.NotNil(t, outcomes[0].File)
	assert.Equal(t, domain.FileStatusError, outcomes[0].File.Status)
	assert.NotEmpty(t, outcomes[0].Error)

	require.NotNil(t, outcomes[1].File)
	assert.Equal(t, domain.FileStatusSuccess, outcomes[1].File.Status)
	assert.Equal(t, 2, store.Count())
}

func TestLoadPresets(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string][]byte{
		"process_data.xlsx": validWorkbook(t),
		"quality_data.xlsx": validWorkbook(t),
	}}
	c, store := newTestCoordinator(fetcher, ingestConfig("process_data.xlsx", "quality_data.xlsx"))

	report, err := c.LoadPresets(context.Background(), FailFast)
	require.NoError(t, err)

	assert.Equal(t, []string{"process_data.xlsx", "quality_data.xlsx"}, report.Loaded)
	assert.Empty(t, report.Failed)
	assert.Equal(t, []string{"process_data.xlsx", "quality_data.xlsx"}, fetcher.calls)
	assert.Equal(t, 2, store.Count())
}

func TestLoadPresets_FailFast(t *testing.T) {
	fetcher := &stubFetcher{
		errs: map[string]error{
			"process_data.xlsx": apperrors.FetchFailure("process_data.xlsx", errors.New("boom")),
		},
		responses: map[string][]byte{
			"quality_data.xlsx": validWorkbook(t),
		},
	}
	c, store := newTestCoordinator(fetcher, ingestConfig("process_data.xlsx", "quality_data.xlsx"))

	report, err := c.LoadPresets(context.Background(), FailFast)
	assert.ErrorIs(t, err, apperrors.ErrFetchFailure)

	// The second preset is never attempted.
	assert.Equal(t, []string{"process_data.xlsx"}, fetcher.calls)
	assert.Empty(t, report.Loaded)
	assert.Contains(t, report.Failed, "process_data.xlsx")

	// The failed fetch leaves a visible error record.
	listed := store.List(domain.FileFilter{Status: domain.FileStatusError})
	require.Len(t, listed, 1)
	assert.Equal(t, "process_data.xlsx", listed[0].Name)
}

func TestLoadPresets_BestEffort(t *testing.T) {
	fetcher := &stubFetcher{
		errs: map[string]error{
			"process_data.xlsx": apperrors.FetchFailure("process_data.xlsx", errors.New("boom")),
		},
		responses: map[string][]byte{
			"quality_data.xlsx": validWorkbook(t),
		},
	}
	c, _ := newTestCoordinator(fetcher, ingestConfig("process_data.xlsx", "quality_data.xlsx"))

	report, err := c.LoadPresets(context.Background(), BestEffort)
	require.NoError(t, err)

	assert.Equal(t, []string{"quality_data.xlsx"}, report.Loaded)
	assert.Contains(t, report.Failed, "process_data.xlsx")
	assert.Equal(t, []string{"process_data.xlsx", "quality_data.xlsx"}, fetcher.calls)
}

func TestLoadPresets_SkipsIngestedNames(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string][]byte{
		"quality_data.xlsx": validWorkbook(t),
	}}
	c, store := newTestCoordinator(fetcher, ingestConfig("process_data.xlsx", "quality_data.xlsx"))

	existing := testFile("process_data.xlsx")
	existing.Status = domain.FileStatusSuccess
	store.Insert(existing)

	report, err := c.LoadPresets(context.Background(), FailFast)
	require.NoError(t, err)

	assert.Equal(t, []string{"process_data.xlsx"}, report.Skipped)
	assert.Equal(t, []string{"quality_data.xlsx"}, report.Loaded)
	assert.Equal(t, []string{"quality_data.xlsx"}, fetcher.calls)
}

func TestLoadPresets_RetriesFailedNames(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string][]byte{
		"process_data.xlsx": validWorkbook(t),
	}}
	c, store := newTestCoordinator(fetcher, ingestConfig("process_data.xlsx"))

	failed := testFile("process_data.xlsx")
	failed.Status = domain.FileStatusError
	store.Insert(failed)

	report, err := c.LoadPresets(context.Background(), FailFast)
	require.NoError(t, err)

	// Error records do not block a retry of the same name.
	assert.Equal(t, []string{"process_data.xlsx"}, report.Loaded)
	assert.Empty(t, report.Skipped)
}

func TestLoadPresets_UploadingRecordDoesNotDedup(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string][]byte{
		"process_data.xlsx": validWorkbook(t),
	}}
	c, store := newTestCoordinator(fetcher, ingestConfig("process_data.xlsx"))

	inFlight := testFile("process_data.xlsx")
	inFlight.Status = domain.FileStatusUploading
	store.Insert(inFlight)

	report, err := c.LoadPresets(context.Background(), FailFast)
	require.NoError(t, err)

	// Only success records dedup; an in-flight record still gets fetched.
	assert.Equal(t, []string{"process_data.xlsx"}, report.Loaded)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, []string{"process_data.xlsx"}, fetcher.calls)
}

func TestRemove(t *testing.T) {
	c, store := newTestCoordinator(&stubFetcher{}, ingestConfig())

	file, err := c.Upload(context.Background(), "data.xlsx", validWorkbook(t))
	require.NoError(t, err)

	require.NoError(t, c.Remove(file.ID))
	assert.Zero(t, store.Count())
	assert.ErrorIs(t, c.Remove(file.ID), apperrors.ErrFileNotFound)
}
