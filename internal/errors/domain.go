package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ingestion and job pipelines. Callers match these
// with errors.Is; wrapped variants carry the underlying cause.
var (
	// ErrEmptySheet is returned when the first sheet of a workbook yields
	// zero rows, header row included.
	ErrEmptySheet = errors.New("sheet contains no rows")

	// ErrMalformedSheet wraps a decode failure of the container format.
	ErrMalformedSheet = errors.New("malformed sheet")

	// ErrFetchFailure covers non-2xx responses and transport errors during
	// preset acquisition.
	ErrFetchFailure = errors.New("fetch failed")

	// ErrUnsupportedType rejects manual uploads whose extension is not a
	// spreadsheet format before any registry record is created.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrMissingSource rejects job submissions without a source file
	// reference.
	ErrMissingSource = errors.New("missing source file reference")

	// ErrFileNotFound is returned by the file registry on an unknown id.
	ErrFileNotFound = errors.New("file not found")

	// ErrJobNotFound is returned by the job registry on an unknown id.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotCancellable is returned when a cancel request targets a job
	// already in a terminal state.
	ErrJobNotCancellable = errors.New("job cannot be cancelled")
)

// MalformedSheet wraps the underlying decode error while keeping
// ErrMalformedSheet matchable.
func MalformedSheet(cause error) error {
	return fmt.Errorf("%w: %v", ErrMalformedSheet, cause)
}

// FetchFailure wraps a fetch error for one preset name.
func FetchFailure(name string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrFetchFailure, name, cause)
}

// UnsupportedType reports a rejected upload extension.
func UnsupportedType(ext string) error {
	return fmt.Errorf("%w: %q (expected .xlsx or .xls)", ErrUnsupportedType, ext)
}
