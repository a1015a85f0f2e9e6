package deseq

import (
	"math"

	"github.com/montanaflynn/stats"

	"godeseq/domain/contrast"
)

// minimum prior variance on log2 fold changes; keeps shrinkage finite
// when the observed fold changes are nearly all noise
const minPriorVar = 0.0625

// shrinkRows applies empirical-Bayes fold-change shrinkage under a
// zero-centered normal prior. The prior variance is estimated from the
// spread of the observed fold changes in excess of their sampling
// variance. P-value columns are carried over untouched.
func shrinkRows(raw []contrast.Row) []contrast.Row {
	priorVar := estimatePriorVariance(raw)

	out := make([]contrast.Row, len(raw))
	for i, r := range raw {
		out[i] = r
		if contrast.IsNA(r.Log2FoldChange) || contrast.IsNA(r.LfcSE) {
			continue
		}
		se2 := r.LfcSE * r.LfcSE
		weight := priorVar / (priorVar + se2)
		out[i].Log2FoldChange = r.Log2FoldChange * weight
		out[i].LfcSE = math.Sqrt(priorVar * se2 / (priorVar + se2))
	}
	return out
}

func estimatePriorVariance(rows []contrast.Row) float64 {
	var lfcs, se2s []float64
	for _, r := range rows {
		if contrast.IsNA(r.Log2FoldChange) || contrast.IsNA(r.LfcSE) {
			continue
		}
		lfcs = append(lfcs, r.Log2FoldChange)
		se2s = append(se2s, r.LfcSE*r.LfcSE)
	}
	if len(lfcs) < 2 {
		return minPriorVar
	}
	obsVar, err := stats.Variance(lfcs)
	if err != nil {
		return minPriorVar
	}
	meanSE2, err := stats.Mean(se2s)
	if err != nil {
		return minPriorVar
	}
	return math.Max(obsVar-meanSE2, minPriorVar)
}
