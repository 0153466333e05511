package domain

import (
	"encoding/json"
	"fmt"
)

// ColumnStatistics holds descriptive statistics for one numeric column.
// Values are kept at full float64 precision internally; the 3-decimal
// rounding visible in API responses is a presentation contract applied at
// serialization time only.
type ColumnStatistics struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Std    float64 `json:"std"`
	Median float64 `json:"median"`
}

// columnStatisticsView is the wire form: display strings with 3 decimals.
type columnStatisticsView struct {
	Count  int    `json:"count"`
	Mean   string `json:"mean"`
	Min    string `json:"min"`
	Max    string `json:"max"`
	Std    string `json:"std"`
	Median string `json:"median"`
}

// MarshalJSON formats every numeric field to 3 decimal places.
func (s ColumnStatistics) MarshalJSON() ([]byte, error) {
	return json.Marshal(columnStatisticsView{
		Count:  s.Count,
		Mean:   fmt.Sprintf("%.3f", s.Mean),
		Min:    fmt.Sprintf("%.3f", s.Min),
		Max:    fmt.Sprintf("%.3f", s.Max),
		Std:    fmt.Sprintf("%.3f", s.Std),
		Median: fmt.Sprintf("%.3f", s.Median),
	})
}

// UnmarshalJSON accepts the wire form produced by MarshalJSON.
func (s *ColumnStatistics) UnmarshalJSON(data []byte) error {
	var view columnStatisticsView
	if err := json.Unmarshal(data, &view); err != nil {
		return err
	}
	s.Count = view.Count
	if _, err := fmt.Sscanf(view.Mean, "%f", &s.Mean); err != nil {
		return err
	}
	if _, err := fmt.Sscanf(view.Min, "%f", &s.Min); err != nil {
		return err
	}
	if _, err := fmt.Sscanf(view.Max, "%f", &s.Max); err != nil {
		return err
	}
	if _, err := fmt.Sscanf(view.Std, "%f", &s.Std); err != nil {
		return err
	}
	if _, err := fmt.Sscanf(view.Median, "%f", &s.Median); err != nil {
		return err
	}
	return nil
}

// HistogramSpec describes adaptive histogram bins over one numeric series.
// Edges holds the left edge of each bin; Frequencies[i] counts the values
// falling in bin i, with the final bin inclusively capturing the maximum.
type HistogramSpec struct {
	Label       string    `json:"label"`
	BinCount    int       `json:"bin_count"`
	BinWidth    float64   `json:"bin_width"`
	Edges       []float64 `json:"edges"`
	Frequencies []int     `json:"frequencies"`
}
