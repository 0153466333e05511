package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileStatus is the lifecycle state of one ingested file. A record is
// created in FileStatusUploading the instant acquisition begins and
// transitions exactly once to success or error; terminal states are final.
type FileStatus string

const (
	FileStatusUploading FileStatus = "uploading"
	FileStatusSuccess   FileStatus = "success"
	FileStatusError     FileStatus = "error"
)

// Terminal reports whether the status admits no further transitions.
func (s FileStatus) Terminal() bool {
	return s == FileStatusSuccess || s == FileStatusError
}

// DataFile is the registry record for one ingested spreadsheet. Identity is
// assigned at acquisition time, not derived from content, so two uploads of
// the same filename are distinct records.
type DataFile struct {
	ID         string                      `json:"id"`
	Name       string                      `json:"name"`
	Size       int64                       `json:"size"`
	UploadTime time.Time                   `json:"upload_time"`
	Status     FileStatus                  `json:"status"`
	Table      *ParsedTable                `json:"table,omitempty"`
	Statistics map[string]ColumnStatistics `json:"statistics,omitempty"`
	Error      string                      `json:"error,omitempty"`
}

// NewFileID returns a unique, time-ordered opaque file identifier.
func NewFileID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// FileFilter narrows List results in the file registry. Zero values match
// everything.
type FileFilter struct {
	Status FileStatus `json:"status,omitempty"`
	Text   string     `json:"text,omitempty"`
	From   time.Time  `json:"from,omitempty"`
	To     time.Time  `json:"to,omitempty"`
}

// Matches reports whether the record passes every set criterion.
func (f FileFilter) Matches(file *DataFile) bool {
	if f.Status != "" && file.Status != f.Status {
		return false
	}
	if f.Text != "" && !strings.Contains(strings.ToLower(file.Name), strings.ToLower(f.Text)) {
		return false
	}
	if !f.From.IsZero() && file.UploadTime.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && file.UploadTime.After(f.To) {
		return false
	}
	return true
}
