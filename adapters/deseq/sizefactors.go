package deseq

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// estimateSizeFactors implements the median-of-ratios method: each
// sample's factor is the median, over genes expressed in every sample,
// of that sample's count divided by the gene's geometric mean count.
func estimateSizeFactors(values [][]float64) ([]float64, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("size factor estimation failed: count matrix is empty")
	}
	nSamples := len(values[0])

	// log geometric means over genes with no zero counts
	logGeoMeans := make([]float64, len(values))
	usable := make([]bool, len(values))
	for i, row := range values {
		ok := true
		var logSum float64
		for _, c := range row {
			if c <= 0 {
				ok = false
				break
			}
			logSum += math.Log(c)
		}
		if ok {
			logGeoMeans[i] = logSum / float64(nSamples)
			usable[i] = true
		}
	}

	factors := make([]float64, nSamples)
	for j := 0; j < nSamples; j++ {
		var logRatios []float64
		for i, row := range values {
			if usable[i] {
				logRatios = append(logRatios, math.Log(row[j])-logGeoMeans[i])
			}
		}
		if len(logRatios) == 0 {
			return nil, fmt.Errorf(
				"size factor estimation failed: every gene has at least one zero count; cannot compute median of ratios")
		}
		med, err := stats.Median(logRatios)
		if err != nil {
			return nil, fmt.Errorf("size factor estimation failed: %w", err)
		}
		factors[j] = math.Exp(med)
	}
	return factors, nil
}
