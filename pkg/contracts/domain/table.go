package domain

import (
	"encoding/json"
	"strconv"
)

// CellKind identifies the concrete type carried by a Cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellNumber
	CellText
)

// Cell is a single spreadsheet cell. Exactly one of Number or Text is
// meaningful depending on Kind; empty cells carry neither.
type Cell struct {
	Kind   CellKind
	Number float64
	Text   string
}

// NumberCell builds a numeric cell.
func NumberCell(v float64) Cell {
	return Cell{Kind: CellNumber, Number: v}
}

// TextCell builds a textual cell.
func TextCell(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

// EmptyCell builds an empty (null) cell.
func EmptyCell() Cell {
	return Cell{Kind: CellEmpty}
}

// IsEmpty reports whether the cell carries no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// MarshalJSON emits the cell as a bare JSON number, string, or null.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CellNumber:
		return []byte(strconv.FormatFloat(c.Number, 'f', -1, 64)), nil
	case CellText:
		return json.Marshal(c.Text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON number, string, or null.
func (c *Cell) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = EmptyCell()
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*c = NumberCell(num)
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	*c = TextCell(text)
	return nil
}

// ParsedTable is the normalized form of one spreadsheet. Headers come from
// the first row of the first sheet and may repeat; no uniqueness is
// enforced. Rows in which every cell is empty are dropped before counting.
// A ParsedTable is created once per successful parse and never mutated
// afterwards; it is owned by the DataFile record that produced it.
type ParsedTable struct {
	Headers     []string `json:"headers"`
	Rows        [][]Cell `json:"rows"`
	RowCount    int      `json:"row_count"`
	ColumnCount int      `json:"column_count"`
}

// Column returns every cell of the column at index idx, padding short rows
// with empty cells so the result always has RowCount entries.
func (t *ParsedTable) Column(idx int) []Cell {
	if idx < 0 || idx >= t.ColumnCount {
		return nil
	}
	col := make([]Cell, 0, t.RowCount)
	for _, row := range t.Rows {
		if idx < len(row) {
			col = append(col, row[idx])
		} else {
			col = append(col, EmptyCell())
		}
	}
	return col
}

// ColumnIndex returns the index of the first header matching name, or -1.
func (t *ParsedTable) ColumnIndex(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}
