package dataprocessing

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"datalens/pkg/contracts/domain"
)

// ComputeStatistics derives descriptive statistics for every numeric
// column of the table. Cells are coerced to numbers: numeric cells pass
// through, text cells are parsed after stripping non-numeric characters,
// and failures are excluded rather than reported. Columns without a single
// coercible value are omitted from the result entirely.
//
// When headers repeat, the later column wins the shared key; no uniqueness
// is enforced upstream.
func ComputeStatistics(table *domain.ParsedTable) map[string]domain.ColumnStatistics {
	result := make(map[string]domain.ColumnStatistics)
	if table == nil {
		return result
	}

	for idx, header := range table.Headers {
		values := NumericColumn(table, idx)
		if len(values) == 0 {
			continue
		}
		result[header] = describe(values)
	}

	return result
}

// NumericColumn returns every coercible value of the column at idx, in row
// order.
func NumericColumn(table *domain.ParsedTable, idx int) []float64 {
	var values []float64
	for _, cell := range table.Column(idx) {
		if v, ok := CoerceNumber(cell); ok {
			values = append(values, v)
		}
	}
	return values
}

// CoerceNumber attempts to read a cell as a float64. Text cells are
// stripped of everything but digits, sign, decimal point, and exponent
// markers before parsing, which makes "1,234.5" and "$42" coercible.
func CoerceNumber(cell domain.Cell) (float64, bool) {
	switch cell.Kind {
	case domain.CellNumber:
		return cell.Number, true
	case domain.CellText:
		cleaned := stripNonNumeric(cell.Text)
		if cleaned == "" {
			return 0, false
		}
		v, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}

func stripNonNumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '+' || r == 'e' || r == 'E':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// describe computes the statistics of a non-empty series at full float64
// precision. Std is the population standard deviation (divide by n, not
// n-1); median averages the two middle values for even counts.
func describe(values []float64) domain.ColumnStatistics {
	n := len(values)

	var sum float64
	min, max := values[0], values[0]
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / float64(n)

	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	std := math.Sqrt(sqDiff / float64(n))

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return domain.ColumnStatistics{
		Count:  n,
		Mean:   mean,
		Min:    min,
		Max:    max,
		Std:    std,
		Median: median,
	}
}
