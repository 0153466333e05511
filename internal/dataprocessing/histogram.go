package dataprocessing

import (
	"math"

	"datalens/pkg/contracts/domain"
)

// maxHistogramBins caps adaptive bin counts for readability.
const maxHistogramBins = 20

// ComputeHistogram partitions a numeric series into adaptive bins:
// binCount = min(20, ceil(sqrt(n))), uniform width over [min,max], left
// edges as boundary labels. The final bin inclusively captures the maximum
// value via an index clamp, which also absorbs floating-point boundary
// overflow. An empty series yields nil: callers must treat that as "no
// histogram", not as an empty chart.
func ComputeHistogram(values []float64, label string) *domain.HistogramSpec {
	n := len(values)
	if n == 0 {
		return nil
	}

	binCount := int(math.Ceil(math.Sqrt(float64(n))))
	if binCount > maxHistogramBins {
		binCount = maxHistogramBins
	}
	if binCount < 1 {
		binCount = 1
	}

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	width := (max - min) / float64(binCount)

	edges := make([]float64, binCount)
	for i := range edges {
		edges[i] = min + width*float64(i)
	}

	freqs := make([]int, binCount)
	for _, v := range values {
		idx := 0
		if width > 0 {
			idx = int((v - min) / width)
		}
		if idx > binCount-1 {
			idx = binCount - 1
		}
		freqs[idx]++
	}

	return &domain.HistogramSpec{
		Label:       label,
		BinCount:    binCount,
		BinWidth:    width,
		Edges:       edges,
		Frequencies: freqs,
	}
}
