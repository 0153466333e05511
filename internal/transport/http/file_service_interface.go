package http

import (
	"context"

	"datalens/internal/ingest"
	"datalens/pkg/contracts/domain"
)

// FileServiceInterface is what the files handler needs from the ingestion
// coordinator.
type FileServiceInterface interface {
	Upload(ctx context.Context, name string, data []byte) (*domain.DataFile, error)
	UploadBatch(ctx context.Context, uploads []ingest.UploadRequest) []ingest.UploadOutcome
	LoadPresets(ctx context.Context, policy ingest.BatchPolicy) (*ingest.BatchReport, error)
	Get(id string) (*domain.DataFile, error)
	List(filter domain.FileFilter) []*domain.DataFile
	Remove(id string) error
	Select(id string) error
	Selected() *domain.DataFile
}
