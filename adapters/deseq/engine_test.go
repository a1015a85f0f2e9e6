package deseq

import (
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"godeseq/domain/contrast"
	"godeseq/domain/counts"
	"godeseq/domain/design"
	"godeseq/internal/errors"
)

// fourSampleTable is the canonical 2 conditions x 2 replicates fixture:
// no batch tokens, strong signal on g1 (up) and g2 (down), flat g3/g4.
func fourSampleTable() *counts.Table {
	return &counts.Table{
		Genes: []counts.Gene{
			{ID: "g1", Chr: "1", Start: 1, End: 1000, Length: 1000},
			{ID: "g2", Chr: "1", Start: 2000, End: 3000, Length: 1000},
			{ID: "g3", Chr: "2", Start: 1, End: 2000, Length: 2000},
			{ID: "g4", Chr: "2", Start: 5000, End: 5500, Length: 500},
		},
		Samples: []string{"treated1", "treated2", "control1", "control2"},
		Counts: [][]int64{
			{1000, 1100, 10, 12},
			{8, 11, 900, 950},
			{500, 520, 480, 510},
			{40, 45, 38, 42},
		},
	}
}

func fitFourSamples(t *testing.T) (*Engine, *Model, []design.Sample) {
	t.Helper()
	eng := New()
	tbl := fourSampleTable()
	samples := design.Infer(tbl.Samples)
	fm, err := eng.Fit(tbl, samples)
	if err != nil {
		t.Fatal(err)
	}
	return eng, fm.(*Model), samples
}

func TestFit(t *testing.T) {
	t.Run("four sample design", func(t *testing.T) {
		_, m, _ := fitFourSamples(t)
		if !reflect.DeepEqual(m.Levels, []string{"treated", "control"}) {
			t.Errorf("condition levels = %v", m.Levels)
		}
		if got := design.BatchLevels(m.Samples); len(got) != 1 || got[0] != "1" {
			t.Errorf("batch levels = %v, want single implicit batch", got)
		}
		if len(m.SizeFactors) != 4 {
			t.Fatalf("size factors = %v", m.SizeFactors)
		}
		for j, sf := range m.SizeFactors {
			if sf <= 0 || math.IsNaN(sf) {
				t.Errorf("size factor %d = %v", j, sf)
			}
		}
		for i, bm := range m.BaseMeans {
			if bm <= 0 || math.IsNaN(bm) {
				t.Errorf("base mean of %s = %v", m.Genes[i], bm)
			}
		}
		for i, d := range m.Dispersions {
			if d <= 0 || math.IsNaN(d) {
				t.Errorf("dispersion of %s = %v", m.Genes[i], d)
			}
		}
	})

	t.Run("degenerate design is rejected", func(t *testing.T) {
		eng := New()
		tbl := fourSampleTable()
		tbl.Samples = []string{"treated1", "treated2", "treated3", "treated4"}
		_, err := eng.Fit(tbl, design.Infer(tbl.Samples))
		if err == nil || errors.GetCode(err) != errors.CodeModelFitting {
			t.Errorf("expected MODEL_FITTING error, got %v", err)
		}
	})

	t.Run("all-zero-containing genes break size factors", func(t *testing.T) {
		eng := New()
		tbl := fourSampleTable()
		for i := range tbl.Counts {
			tbl.Counts[i][0] = 0
		}
		_, err := eng.Fit(tbl, design.Infer(tbl.Samples))
		if err == nil || errors.GetCode(err) != errors.CodeModelFitting {
			t.Errorf("expected MODEL_FITTING error, got %v", err)
		}
	})

	t.Run("design sample count must match columns", func(t *testing.T) {
		eng := New()
		tbl := fourSampleTable()
		_, err := eng.Fit(tbl, design.Infer(tbl.Samples[:3]))
		if err == nil || errors.GetCode(err) != errors.CodeModelFitting {
			t.Errorf("expected MODEL_FITTING error, got %v", err)
		}
	})
}

func TestResults(t *testing.T) {
	eng, m, _ := fitFourSamples(t)
	spec := contrast.Spec{Factor: "condition", Target: "treated", Reference: "control"}

	res, err := eng.Results(m, spec)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("one row per gene with finite base means", func(t *testing.T) {
		if len(res.Rows) != len(m.Genes) {
			t.Fatalf("got %d rows, want %d", len(res.Rows), len(m.Genes))
		}
		for _, r := range res.Rows {
			if contrast.IsNA(r.BaseMean) || r.BaseMean <= 0 {
				t.Errorf("gene %s: baseMean = %v", r.GeneID, r.BaseMean)
			}
		}
	})

	t.Run("directions match the spiked signal", func(t *testing.T) {
		g1, _ := res.Lookup("g1")
		if g1.Log2FoldChange < 2 {
			t.Errorf("g1 lfc = %v, want strongly positive", g1.Log2FoldChange)
		}
		g2, _ := res.Lookup("g2")
		if g2.Log2FoldChange > -2 {
			t.Errorf("g2 lfc = %v, want strongly negative", g2.Log2FoldChange)
		}
		g3, _ := res.Lookup("g3")
		if math.Abs(g3.Log2FoldChange) > 0.5 {
			t.Errorf("g3 lfc = %v, want near zero", g3.Log2FoldChange)
		}
	})

	t.Run("p-values and q-values are coherent", func(t *testing.T) {
		for _, r := range res.Rows {
			if contrast.IsNA(r.PValue) || r.PValue < 0 || r.PValue > 1 {
				t.Errorf("gene %s: p = %v", r.GeneID, r.PValue)
			}
			if contrast.IsNA(r.PAdj) || r.PAdj < r.PValue-1e-12 || r.PAdj > 1 {
				t.Errorf("gene %s: padj %v should be in [p, 1], p = %v", r.GeneID, r.PAdj, r.PValue)
			}
		}
	})

	t.Run("unknown levels are rejected", func(t *testing.T) {
		_, err := eng.Results(m, contrast.Spec{Factor: "condition", Target: "mutant", Reference: "control"})
		if err == nil || errors.GetCode(err) != errors.CodeModelFitting {
			t.Errorf("expected MODEL_FITTING error, got %v", err)
		}
		_, err = eng.Results(m, contrast.Spec{Factor: "batch", Target: "1", Reference: "2"})
		if err == nil || errors.GetCode(err) != errors.CodeModelFitting {
			t.Errorf("expected MODEL_FITTING error for unknown factor, got %v", err)
		}
	})
}

func TestShrunkenResults(t *testing.T) {
	eng, m, _ := fitFourSamples(t)
	spec := contrast.Spec{Factor: "condition", Target: "treated", Reference: "control"}

	raw, err := eng.Results(m, spec)
	if err != nil {
		t.Fatal(err)
	}
	shr, err := eng.ShrunkenResults(m, spec)
	if err != nil {
		t.Fatal(err)
	}

	if !shr.Shrunken {
		t.Error("shrunken table not flagged as shrunken")
	}
	for i, r := range raw.Rows {
		s := shr.Rows[i]
		if math.Abs(s.Log2FoldChange) >= math.Abs(r.Log2FoldChange)+1e-12 {
			t.Errorf("gene %s: shrunken |lfc| %v not below raw |lfc| %v",
				r.GeneID, math.Abs(s.Log2FoldChange), math.Abs(r.Log2FoldChange))
		}
		if s.LfcSE >= r.LfcSE+1e-12 {
			t.Errorf("gene %s: shrunken SE %v not below raw SE %v", r.GeneID, s.LfcSE, r.LfcSE)
		}
		// only the fold-change and SE columns may differ
		if s.PValue != r.PValue || s.PAdj != r.PAdj || s.BaseMean != r.BaseMean {
			t.Errorf("gene %s: shrinkage changed a column it must not touch", r.GeneID)
		}
	}
}

func TestResultsWithZeroGene(t *testing.T) {
	eng := New()
	tbl := fourSampleTable()
	tbl.Genes = append(tbl.Genes, counts.Gene{ID: "silent", Chr: "3", Start: 1, End: 100, Length: 100})
	tbl.Counts = append(tbl.Counts, []int64{0, 0, 0, 0})

	fm, err := eng.Fit(tbl, design.Infer(tbl.Samples))
	if err != nil {
		t.Fatal(err)
	}
	res, err := eng.Results(fm, contrast.Spec{Factor: "condition", Target: "treated", Reference: "control"})
	if err != nil {
		t.Fatal(err)
	}
	r, ok := res.Lookup("silent")
	if !ok {
		t.Fatal("zero-count gene missing from results")
	}
	if !contrast.IsNA(r.Log2FoldChange) || !contrast.IsNA(r.PValue) || !contrast.IsNA(r.PAdj) {
		t.Errorf("zero-count gene should carry NA results, got %+v", r)
	}
}

func TestModelPersistence(t *testing.T) {
	eng, m, _ := fitFourSamples(t)
	path := filepath.Join(t.TempDir(), "raw.dds.json")

	if err := eng.Save(m, path); err != nil {
		t.Fatal(err)
	}
	loaded, err := eng.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded, m) {
		t.Error("model did not survive the JSON round trip")
	}
}

func TestVarianceStabilized(t *testing.T) {
	eng, m, _ := fitFourSamples(t)
	vst, err := eng.VarianceStabilized(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(vst.Values) != len(m.Genes) || len(vst.Samples) != len(m.Samples) {
		t.Fatalf("vst dims = %dx%d", len(vst.Values), len(vst.Samples))
	}
	for i, row := range vst.Values {
		for j, v := range row {
			if math.IsNaN(v) || v < 0 {
				t.Errorf("vst[%d][%d] = %v", i, j, v)
			}
		}
	}
}
