// Package ingest acquires spreadsheets, runs them through the parsing and
// statistics pipeline, and tracks every acquisition in an in-memory
// registry. Two acquisition paths share one pipeline: preset files fetched
// from a configured asset host at startup, and manual uploads received
// over HTTP. Registry records are created in the uploading state before
// any parsing happens, so failures stay visible as error records instead
// of disappearing.
package ingest
