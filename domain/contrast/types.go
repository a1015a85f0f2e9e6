// Package contrast holds the model-output side of the workflow: the
// per-gene result records for one pairwise comparison and the
// significance classification applied to them.
package contrast

import "math"

// Spec names a pairwise comparison between two levels of a factor
type Spec struct {
	Factor    string
	Target    string
	Reference string
}

// Name is the conventional "<target>_vs_<reference>" comparison label
func (s Spec) Name() string {
	return s.Target + "_vs_" + s.Reference
}

// Row is one gene's result for a contrast. Missing values (genes with
// zero counts everywhere, or genes dropped from multiple-testing
// adjustment) are NaN.
type Row struct {
	GeneID         string
	BaseMean       float64
	Log2FoldChange float64
	LfcSE          float64
	Stat           float64
	PValue         float64
	PAdj           float64
}

// Table is the full per-gene result set for one contrast. Shrunken
// marks the empirical-Bayes variant, which differs from the raw table
// only in the fold-change and standard-error columns.
type Table struct {
	Spec     Spec
	Shrunken bool
	Rows     []Row

	index map[string]int
}

// NewTable builds a table and its gene index
func NewTable(spec Spec, shrunken bool, rows []Row) *Table {
	t := &Table{Spec: spec, Shrunken: shrunken, Rows: rows}
	t.index = make(map[string]int, len(rows))
	for i, r := range rows {
		t.index[r.GeneID] = i
	}
	return t
}

// Lookup returns the row for a gene identifier
func (t *Table) Lookup(geneID string) (Row, bool) {
	i, ok := t.index[geneID]
	if !ok {
		return Row{}, false
	}
	return t.Rows[i], true
}

// IsNA reports whether a result value is missing
func IsNA(x float64) bool {
	return math.IsNaN(x)
}

// NA is the missing-value marker used throughout result tables
func NA() float64 {
	return math.NaN()
}

// Thresholds are the significance cutoffs. Both comparisons are strict:
// a gene sitting exactly on either cutoff is not significant.
type Thresholds struct {
	QValue float64
	LFC    float64
}
