package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cell Cell
		json string
	}{
		{"number", NumberCell(42.5), "42.5"},
		{"integer", NumberCell(7), "7"},
		{"text", TextCell("batch A"), `"batch A"`},
		{"empty", EmptyCell(), "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.cell)
			require.NoError(t, err)
			assert.Equal(t, tt.json, string(data))

			var decoded Cell
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, tt.cell, decoded)
		})
	}
}

func TestCellUnmarshalRejectsObjects(t *testing.T) {
	var c Cell
	assert.Error(t, json.Unmarshal([]byte(`{"v":1}`), &c))
}

func TestParsedTableColumn(t *testing.T) {
	table := &ParsedTable{
		Headers: []string{"a", "b"},
		Rows: [][]Cell{
			{NumberCell(1), TextCell("x")},
			{NumberCell(2)},
		},
		RowCount:    2,
		ColumnCount: 2,
	}

	col := table.Column(1)
	require.Len(t, col, 2)
	assert.Equal(t, TextCell("x"), col[0])
	assert.True(t, col[1].IsEmpty(), "short row padded with empty cell")

	assert.Nil(t, table.Column(-1))
	assert.Nil(t, table.Column(2))
}

func TestParsedTableColumnIndex(t *testing.T) {
	table := &ParsedTable{Headers: []string{"temp", "pressure", "temp"}}

	assert.Equal(t, 0, table.ColumnIndex("temp"))
	assert.Equal(t, 1, table.ColumnIndex("pressure"))
	assert.Equal(t, -1, table.ColumnIndex("flow"))
}
