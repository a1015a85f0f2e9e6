package counts

// Gene holds the feature metadata columns of a count table row
type Gene struct {
	ID     string
	Chr    string
	Start  int
	End    int
	Length int
}

// Table is a feature-count table: one Gene per row, one raw integer
// count per sample column. Row order is stable; filtering produces a
// new Table and never reorders survivors.
type Table struct {
	Genes   []Gene
	Samples []string
	Counts  [][]int64 // [gene][sample]
}

// Matrix is a named numeric view shared by normalized expression and
// variance-stabilized data: genes down the rows, samples across.
type Matrix struct {
	Genes   []string
	Samples []string
	Values  [][]float64
}

// GeneIDs returns the identifier column in row order
func (t *Table) GeneIDs() []string {
	ids := make([]string, len(t.Genes))
	for i, g := range t.Genes {
		ids[i] = g.ID
	}
	return ids
}

// Total returns the summed count of gene row i across all samples
func (t *Table) Total(i int) int64 {
	var sum int64
	for _, c := range t.Counts[i] {
		sum += c
	}
	return sum
}

// FilterLowTotal returns a new table keeping only genes whose total
// count across samples is at least min. Genes exactly at the threshold
// are retained. Row order is preserved.
func (t *Table) FilterLowTotal(min int64) (*Table, int) {
	out := &Table{Samples: t.Samples}
	dropped := 0
	for i := range t.Genes {
		if t.Total(i) >= min {
			out.Genes = append(out.Genes, t.Genes[i])
			out.Counts = append(out.Counts, t.Counts[i])
		} else {
			dropped++
		}
	}
	return out, dropped
}

// RawMatrix returns the counts as a pure numeric view
func (t *Table) RawMatrix() *Matrix {
	m := &Matrix{
		Genes:   t.GeneIDs(),
		Samples: append([]string(nil), t.Samples...),
		Values:  make([][]float64, len(t.Counts)),
	}
	for i, row := range t.Counts {
		vals := make([]float64, len(row))
		for j, c := range row {
			vals[j] = float64(c)
		}
		m.Values[i] = vals
	}
	return m
}

// Column returns sample column j of a matrix as a slice
func (m *Matrix) Column(j int) []float64 {
	col := make([]float64, len(m.Values))
	for i := range m.Values {
		col[i] = m.Values[i][j]
	}
	return col
}
