package deseq

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"godeseq/domain/contrast"
)

// priorCount is added to group means before taking the log ratio so
// genes with an all-zero group keep a finite fold change.
const priorCount = 0.5

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// waldResults computes per-gene fold changes, standard errors and Wald
// p-values for a two-level comparison on the condition factor.
func waldResults(m *Model, spec contrast.Spec) []contrast.Row {
	ln2sq := math.Ln2 * math.Ln2
	targetCols := m.levelColumns(spec.Target)
	refCols := m.levelColumns(spec.Reference)

	rows := make([]contrast.Row, len(m.Genes))
	for i, gene := range m.Genes {
		row := contrast.Row{GeneID: gene, BaseMean: m.BaseMeans[i]}
		if m.BaseMeans[i] <= 0 || contrast.IsNA(m.Dispersions[i]) {
			row.Log2FoldChange = contrast.NA()
			row.LfcSE = contrast.NA()
			row.Stat = contrast.NA()
			row.PValue = contrast.NA()
			row.PAdj = contrast.NA()
			rows[i] = row
			continue
		}

		norm := m.normalizedRow(i)
		muT := groupMean(norm, targetCols)
		muR := groupMean(norm, refCols)
		alpha := m.Dispersions[i]

		row.Log2FoldChange = math.Log2(muT+priorCount) - math.Log2(muR+priorCount)

		// delta-method variance of log2 of an NB group mean
		varT := (muT + alpha*muT*muT) / float64(len(targetCols))
		varR := (muR + alpha*muR*muR) / float64(len(refCols))
		se2 := varT/((muT+priorCount)*(muT+priorCount)*ln2sq) +
			varR/((muR+priorCount)*(muR+priorCount)*ln2sq)
		row.LfcSE = math.Sqrt(se2)

		if row.LfcSE > 0 {
			row.Stat = row.Log2FoldChange / row.LfcSE
			row.PValue = 2 * stdNormal.CDF(-math.Abs(row.Stat))
		} else {
			row.Stat = 0
			row.PValue = 1
		}
		row.PAdj = contrast.NA() // filled by adjustBH
		rows[i] = row
	}
	return rows
}

func groupMean(norm []float64, cols []int) float64 {
	var sum float64
	for _, j := range cols {
		sum += norm[j]
	}
	return sum / float64(len(cols))
}

// adjustBH fills the PAdj column with Benjamini-Hochberg adjusted
// p-values. Rows with a missing p-value keep a missing q-value.
func adjustBH(rows []contrast.Row) {
	type indexed struct {
		idx int
		p   float64
	}
	var tested []indexed
	for i, r := range rows {
		if !contrast.IsNA(r.PValue) {
			tested = append(tested, indexed{i, r.PValue})
		}
	}
	if len(tested) == 0 {
		return
	}
	sort.Slice(tested, func(a, b int) bool { return tested[a].p < tested[b].p })

	n := float64(len(tested))
	adj := make([]float64, len(tested))
	running := 1.0
	for k := len(tested) - 1; k >= 0; k-- {
		q := tested[k].p * n / float64(k+1)
		if q < running {
			running = q
		}
		adj[k] = running
	}
	for k, t := range tested {
		rows[t.idx].PAdj = adj[k]
	}
}
