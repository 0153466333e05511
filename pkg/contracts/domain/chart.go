package domain

import "fmt"

// ChartType tags the fixed payload shape of a ChartSpec.
type ChartType string

const (
	ChartTypeScatter ChartType = "scatter"
	ChartTypeBar     ChartType = "bar"
	ChartTypeLine    ChartType = "line"
)

// ControlLimit carries SPC-style control boundaries for line charts.
type ControlLimit struct {
	Upper  float64 `json:"upper" msgpack:"upper"`
	Lower  float64 `json:"lower" msgpack:"lower"`
	Center float64 `json:"center" msgpack:"center"`
}

// ChartData is the renderer-agnostic payload of one plot. XData entries are
// numbers for scatter/line charts and category labels for bar charts.
type ChartData struct {
	Title        string        `json:"title" msgpack:"title"`
	XData        []any         `json:"xData" msgpack:"xData"`
	YData        []float64     `json:"yData" msgpack:"yData"`
	ControlLimit *ControlLimit `json:"controlLimit,omitempty" msgpack:"controlLimit,omitempty"`
}

// ChartSpec is a pure, serializable description of one plot. It is never
// mutated after being attached to a job.
type ChartSpec struct {
	Type ChartType `json:"type" msgpack:"type"`
	Data ChartData `json:"data" msgpack:"data"`
}

// ToChart converts a histogram into a bar ChartSpec whose categories are
// the formatted left edge of each bin.
func (h *HistogramSpec) ToChart() ChartSpec {
	x := make([]any, len(h.Edges))
	for i, edge := range h.Edges {
		x[i] = fmt.Sprintf("%.3f", edge)
	}
	y := make([]float64, len(h.Frequencies))
	for i, freq := range h.Frequencies {
		y[i] = float64(freq)
	}
	return ChartSpec{
		Type: ChartTypeBar,
		Data: ChartData{Title: h.Label, XData: x, YData: y},
	}
}
