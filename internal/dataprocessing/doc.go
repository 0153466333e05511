// Package dataprocessing turns raw spreadsheet bytes into normalized tables
// and derives per-column descriptive statistics and histogram bins from them.
//
// # Architecture
//
// The package is organized into three components:
//
// 1. Parser: decodes a spreadsheet byte buffer into a domain.ParsedTable
// 2. Statistics: computes per-column descriptive statistics
// 3. Histogram: derives adaptive histogram bins from a numeric series
//
// # Data Flow
//
// The typical flow through this package:
//
//	Raw bytes → Parse → ParsedTable → ComputeStatistics → ColumnStatistics
//	                               → NumericColumn → ComputeHistogram → HistogramSpec
//
// # Error Handling
//
// Parse distinguishes an empty first sheet (errors.ErrEmptySheet) from an
// unreadable container (errors.ErrMalformedSheet, wrapping the decode
// failure). Statistics never fail: non-coercible cells are excluded and
// columns without a single numeric value are omitted from the result.
package dataprocessing
