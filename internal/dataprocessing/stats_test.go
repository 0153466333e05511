package dataprocessing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalens/pkg/contracts/domain"
)

func tableFromCells(headers []string, rows [][]domain.Cell) *domain.ParsedTable {
	return &domain.ParsedTable{
		Headers:     headers,
		Rows:        rows,
		RowCount:    len(rows),
		ColumnCount: len(headers),
	}
}

func TestComputeStatistics(t *testing.T) {
	table := tableFromCells(
		[]string{"Value", "Label"},
		[][]domain.Cell{
			{domain.NumberCell(1), domain.TextCell("a")},
			{domain.NumberCell(2), domain.TextCell("b")},
			{domain.NumberCell(3), domain.TextCell("c")},
			{domain.NumberCell(4), domain.TextCell("d")},
		},
	)

	stats := ComputeStatistics(table)

	require.Contains(t, stats, "Value")
	s := stats["Value"]
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-9)
	assert.InDelta(t, 1, s.Min, 1e-9)
	assert.InDelta(t, 4, s.Max, 1e-9)
	// Population standard deviation of 1..4.
	assert.InDelta(t, 1.118033988749895, s.Std, 1e-9)
	// Even count averages the two middle values.
	assert.InDelta(t, 2.5, s.Median, 1e-9)

	// A column with no coercible value is omitted, not zeroed.
	assert.NotContains(t, stats, "Label")
}

func TestComputeStatistics_NilTable(t *testing.T) {
	stats := ComputeStatistics(nil)
	assert.Empty(t, stats)
}

func TestComputeStatistics_DuplicateHeaders(t *testing.T) {
	table := tableFromCells(
		[]string{"X", "X"},
		[][]domain.Cell{
			{domain.NumberCell(1), domain.NumberCell(10)},
			{domain.NumberCell(2), domain.NumberCell(20)},
		},
	)

	stats := ComputeStatistics(table)

	// The later column wins the shared key.
	require.Contains(t, stats, "X")
	assert.InDelta(t, 15, stats["X"].Mean, 1e-9)
}

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		name   string
		cell   domain.Cell
		want   float64
		wantOK bool
	}{
		{"number passthrough", domain.NumberCell(3.25), 3.25, true},
		{"plain text number", domain.TextCell("42"), 42, true},
		{"thousands separator", domain.TextCell("1,234.5"), 1234.5, true},
		{"currency prefix", domain.TextCell("$42"), 42, true},
		{"negative", domain.TextCell("-7.5"), -7.5, true},
		{"exponent", domain.TextCell("1.5e2"), 150, true},
		{"pure text", domain.TextCell("north"), 0, false},
		{"empty cell", domain.EmptyCell(), 0, false},
		{"stray symbols only", domain.TextCell("%&"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceNumber(tt.cell)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestNumericColumn_SkipsNonCoercible(t *testing.T) {
	table := tableFromCells(
		[]string{"Mixed"},
		[][]domain.Cell{
			{domain.NumberCell(1)},
			{domain.TextCell("skip me")},
			{domain.NumberCell(3)},
			{domain.EmptyCell()},
		},
	)

	values := NumericColumn(table, 0)
	assert.Equal(t, []float64{1, 3}, values)
}

func TestColumnStatistics_DisplayRounding(t *testing.T) {
	s := domain.ColumnStatistics{
		Count:  3,
		Mean:   1.23456,
		Min:    0.0004,
		Max:    9.9999,
		Std:    0.5,
		Median: 1.25,
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &view))

	assert.Equal(t, "1.235", view["mean"])
	assert.Equal(t, "0.000", view["min"])
	assert.Equal(t, "10.000", view["max"])
	assert.Equal(t, "0.500", view["std"])
	assert.Equal(t, "1.250", view["median"])
	assert.Equal(t, float64(3), view["count"])
}

func TestDescribe_SingleValue(t *testing.T) {
	s := describe([]float64{7})

	assert.Equal(t, 1, s.Count)
	assert.InDelta(t, 7, s.Mean, 1e-9)
	assert.InDelta(t, 7, s.Min, 1e-9)
	assert.InDelta(t, 7, s.Max, 1e-9)
	assert.InDelta(t, 0, s.Std, 1e-9)
	assert.InDelta(t, 7, s.Median, 1e-9)
}

func TestComputeStatistics_Idempotent(t *testing.T) {
	table := tableFromCells(
		[]string{"Temp", "Batch", "Pressure"},
		[][]domain.Cell{
			{domain.NumberCell(20.5), domain.TextCell("a"), domain.TextCell("1,013.2")},
			{domain.NumberCell(21.1), domain.TextCell("b"), domain.TextCell("1,009.8")},
			{domain.EmptyCell(), domain.TextCell("c"), domain.NumberCell(1011.5)},
			{domain.NumberCell(19.7), domain.TextCell("d"), domain.EmptyCell()},
		},
	)

	first := ComputeStatistics(table)
	second := ComputeStatistics(table)

	// Recomputing over the same table reads the same cells and must yield
	// identical statistics, with the table itself left untouched.
	assert.Equal(t, first, second)
	assert.Equal(t, 4, table.RowCount)
	assert.Equal(t, domain.NumberCell(20.5), table.Rows[0][0])
}
