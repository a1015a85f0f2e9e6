package contrast

// Classification holds three boolean masks over a result table's rows.
// Invariants: up and down are disjoint subsets of significant, and a
// row with a missing q-value is in none of the three sets.
type Classification struct {
	Significant []bool
	Up          []bool
	Down        []bool
}

// Classify applies the threshold rule to every row: significant iff
// q-value < cutoff and |log2FoldChange| > cutoff; up/down split
// significant rows by fold-change sign.
func Classify(rows []Row, thr Thresholds) Classification {
	c := Classification{
		Significant: make([]bool, len(rows)),
		Up:          make([]bool, len(rows)),
		Down:        make([]bool, len(rows)),
	}
	for i, r := range rows {
		if IsNA(r.PAdj) || IsNA(r.Log2FoldChange) {
			continue
		}
		lfc := r.Log2FoldChange
		abs := lfc
		if abs < 0 {
			abs = -abs
		}
		if r.PAdj < thr.QValue && abs > thr.LFC {
			c.Significant[i] = true
			if lfc > 0 {
				c.Up[i] = true
			} else {
				c.Down[i] = true
			}
		}
	}
	return c
}

// Summary counts classified genes
type Summary struct {
	Total       int
	Significant int
	Up          int
	Down        int
}

// Summarize tallies a classification
func Summarize(c Classification) Summary {
	s := Summary{Total: len(c.Significant)}
	for i := range c.Significant {
		if c.Significant[i] {
			s.Significant++
		}
		if c.Up[i] {
			s.Up++
		}
		if c.Down[i] {
			s.Down++
		}
	}
	return s
}
