package ingest

import (
	"log/slog"
	"sync"

	apperrors "datalens/internal/errors"
	"datalens/pkg/contracts/domain"
)

// FileStore is the in-memory file registry. Records are held in insertion
// order; reads return copies so callers never observe a record mid-update.
// The store also carries the current selection, a UI-facing pointer to the
// file whose table is being inspected.
type FileStore struct {
	mu       sync.RWMutex
	files    map[string]*domain.DataFile
	order    []string
	selected string
	logger   *slog.Logger
}

// NewFileStore creates an empty registry.
func NewFileStore(logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		files:  make(map[string]*domain.DataFile),
		logger: logger,
	}
}

// FileUpdate is a partial record update. Nil fields are left untouched;
// set fields replace the stored value. The whole update applies under one
// lock, so status, table, and statistics land together.
type FileUpdate struct {
	Status     *domain.FileStatus
	Size       *int64
	Table      *domain.ParsedTable
	Statistics map[string]domain.ColumnStatistics
	Error      *string
}

// Insert registers a new record. The caller owns id uniqueness; a repeated
// id overwrites in place without duplicating the order entry.
func (s *FileStore) Insert(file *domain.DataFile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[file.ID]; !exists {
		s.order = append(s.order, file.ID)
	}
	clone := *file
	s.files[file.ID] = &clone
}

// Update merges the given fields into the record. Concurrent updates to
// the same id serialize on the store lock; the last writer wins field by
// field.
func (s *FileStore) Update(id string, upd FileUpdate) (*domain.DataFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.files[id]
	if !ok {
		return nil, apperrors.ErrFileNotFound
	}

	if upd.Status != nil {
		file.Status = *upd.Status
	}
	if upd.Size != nil {
		file.Size = *upd.Size
	}
	if upd.Table != nil {
		file.Table = upd.Table
	}
	if upd.Statistics != nil {
		file.Statistics = upd.Statistics
	}
	if upd.Error != nil {
		file.Error = *upd.Error
	}

	clone := *file
	return &clone, nil
}

// Get returns a copy of the record for id.
func (s *FileStore) Get(id string) (*domain.DataFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, ok := s.files[id]
	if !ok {
		return nil, apperrors.ErrFileNotFound
	}
	clone := *file
	return &clone, nil
}

// List returns copies of every matching record in insertion order.
func (s *FileStore) List(filter domain.FileFilter) []*domain.DataFile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.DataFile, 0, len(s.order))
	for _, id := range s.order {
		file := s.files[id]
		if !filter.Matches(file) {
			continue
		}
		clone := *file
		result = append(result, &clone)
	}
	return result
}

// Remove deletes the record. Removing the selected file clears the
// selection; jobs holding the id keep their dangling reference.
func (s *FileStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return apperrors.ErrFileNotFound
	}
	delete(s.files, id)
	for i, fid := range s.order {
		if fid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.selected == id {
		s.selected = ""
	}
	return nil
}

// Select marks id as the file under inspection.
func (s *FileStore) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return apperrors.ErrFileNotFound
	}
	s.selected = id
	return nil
}

// Selected returns the selected record, or nil when nothing is selected.
func (s *FileStore) Selected() *domain.DataFile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.selected == "" {
		return nil
	}
	file, ok := s.files[s.selected]
	if !ok {
		return nil
	}
	clone := *file
	return &clone
}

// HasName reports whether any record carries the given filename. Dedup is
// name-level only; content is never hashed.
func (s *FileStore) HasName(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, file := range s.files {
		if file.Name == name {
			return true
		}
	}
	return false
}

// Count returns the number of records.
func (s *FileStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Clear drops every record and the selection.
func (s *FileStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files = make(map[string]*domain.DataFile)
	s.order = nil
	s.selected = ""
}
