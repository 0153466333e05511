package dataprocessing

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "datalens/internal/errors"
	"datalens/pkg/contracts/domain"
)

// Parse decodes a spreadsheet byte buffer into a normalized table.
//
// The first row of the first sheet is taken as the header row
// unconditionally; there is no header-detection heuristic. Rows in which
// every cell is empty are dropped before RowCount is computed. Mixed cell
// types are tolerated: cells that scan as numbers become numeric cells,
// everything else non-blank becomes text.
func Parse(data []byte) (*domain.ParsedTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.MalformedSheet(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.ErrEmptySheet
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.MalformedSheet(err)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrEmptySheet
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	columnCount := len(headers)

	table := &domain.ParsedTable{
		Headers:     headers,
		ColumnCount: columnCount,
	}

	for _, raw := range rows[1:] {
		row := make([]domain.Cell, columnCount)
		blank := true
		for j := 0; j < columnCount; j++ {
			var cell domain.Cell
			if j < len(raw) {
				cell = parseCell(raw[j])
			} else {
				cell = domain.EmptyCell()
			}
			if !cell.IsEmpty() {
				blank = false
			}
			row[j] = cell
		}
		if blank {
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	table.RowCount = len(table.Rows)
	return table, nil
}

// parseCell classifies one raw cell value. Values that scan cleanly as a
// float become numeric cells; blank values are empty; the rest is text.
func parseCell(raw string) domain.Cell {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.EmptyCell()
	}
	if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return domain.NumberCell(v)
	}
	return domain.TextCell(trimmed)
}
