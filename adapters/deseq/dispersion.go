package deseq

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

const (
	minDispersion = 1e-8
	// priorDF tunes how strongly gene-wise estimates are pulled toward
	// the fitted trend; residual degrees of freedom work against it.
	priorDF = 4.0
)

// estimateDispersions produces the per-gene dispersion used by the Wald
// test: a method-of-moments gene-wise estimate shrunk in log space
// toward a mean-dispersion trend fitted across all genes.
func estimateDispersions(m *Model) ([]float64, error) {
	n := len(m.Samples)
	k := len(m.Levels)
	residualDF := n - k
	if residualDF < 1 {
		return nil, fmt.Errorf(
			"dispersion estimation failed: %d samples across %d condition levels leave no replicates", n, k)
	}

	geneWise := make([]float64, len(m.Genes))
	for i := range m.Genes {
		norm := m.normalizedRow(i)
		mu := m.BaseMeans[i]
		if mu <= 0 {
			// zero-expression genes never reach the Wald test; keep the
			// model JSON-serializable by flooring instead of NaN
			geneWise[i] = minDispersion
			continue
		}
		geneWise[i] = momentsDispersion(m, norm, mu)
	}

	trendA0, trendA1 := fitDispersionTrend(geneWise, m.BaseMeans)

	w := float64(residualDF) / (float64(residualDF) + priorDF)
	final := make([]float64, len(geneWise))
	for i, alpha := range geneWise {
		if m.BaseMeans[i] <= 0 {
			final[i] = minDispersion
			continue
		}
		trend := math.Max(trendA0+trendA1/m.BaseMeans[i], minDispersion)
		final[i] = math.Exp(w*math.Log(alpha) + (1-w)*math.Log(trend))
	}
	return final, nil
}

// momentsDispersion estimates alpha from the pooled within-condition
// variance: Var(K) = mu + alpha*mu^2 under the NB model.
func momentsDispersion(m *Model, norm []float64, mu float64) float64 {
	var ssq float64
	var df int
	for _, level := range m.Levels {
		cols := m.levelColumns(level)
		if len(cols) < 2 {
			continue
		}
		var group []float64
		for _, j := range cols {
			group = append(group, norm[j])
		}
		gm := mean(group)
		for _, x := range group {
			ssq += (x - gm) * (x - gm)
		}
		df += len(group) - 1
	}
	if df == 0 {
		return minDispersion
	}
	pooledVar := ssq / float64(df)
	return math.Max((pooledVar-mu)/(mu*mu), minDispersion)
}

// fitDispersionTrend fits alpha(mu) = a0 + a1/mu by least squares over
// genes with informative gene-wise estimates. Falls back to a flat
// trend at the median dispersion when too few genes qualify.
func fitDispersionTrend(alphas, baseMeans []float64) (a0, a1 float64) {
	var xs, ys []float64
	for i, alpha := range alphas {
		if math.IsNaN(alpha) || alpha <= minDispersion*10 || baseMeans[i] <= 0 {
			continue
		}
		xs = append(xs, 1/baseMeans[i])
		ys = append(ys, alpha)
	}
	if len(xs) < 2 {
		med := 0.1
		if len(ys) > 0 {
			if v, err := stats.Median(ys); err == nil {
				med = v
			}
		}
		return med, 0
	}

	mx := mean(xs)
	my := mean(ys)
	var num, den float64
	for i := range xs {
		num += (xs[i] - mx) * (ys[i] - my)
		den += (xs[i] - mx) * (xs[i] - mx)
	}
	if den == 0 {
		return math.Max(my, minDispersion), 0
	}
	a1 = num / den
	a0 = my - a1*mx
	if a1 < 0 {
		a1 = 0
		a0 = my
	}
	if a0 < minDispersion {
		a0 = minDispersion
	}
	return a0, a1
}
