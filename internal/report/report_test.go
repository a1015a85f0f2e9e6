package report

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"godeseq/adapters/annotation"
	"godeseq/adapters/excel"
	"godeseq/domain/contrast"
	"godeseq/domain/counts"
)

func fixture(t *testing.T) (*counts.Table, *annotation.Table, *contrast.Table, *contrast.Table) {
	t.Helper()
	tbl := &counts.Table{
		Genes: []counts.Gene{
			{ID: "g1", Chr: "1", Start: 1, End: 1000, Length: 1000},
			{ID: "g2", Chr: "1", Start: 1, End: 500, Length: 500},
			{ID: "g3", Chr: "2", Start: 1, End: 2000, Length: 2000},
		},
		Samples: []string{"treated1", "control1"},
		Counts: [][]int64{
			{100, 10},
			{5, 90},
			{50, 50},
		},
	}
	annot, err := annotation.Parse(strings.NewReader(
		"gene_id\tgene_name\tdescription\ng1\tALPHA\tfirst gene\ng2\tBETA\tsecond gene\ng3\tGAMMA\tthird gene\n"))
	if err != nil {
		t.Fatal(err)
	}

	spec := contrast.Spec{Factor: "condition", Target: "treated", Reference: "control"}
	raw := contrast.NewTable(spec, false, []contrast.Row{
		{GeneID: "g1", BaseMean: 55, Log2FoldChange: 3.2, LfcSE: 0.4, Stat: 8, PValue: 1e-8, PAdj: 3e-8},
		{GeneID: "g2", BaseMean: 47, Log2FoldChange: -4.1, LfcSE: 0.5, Stat: -8.2, PValue: 1e-9, PAdj: 6e-9},
		{GeneID: "g3", BaseMean: 50, Log2FoldChange: 0.05, LfcSE: 0.2, Stat: 0.25, PValue: 0.8, PAdj: 0.9},
	})
	shrunken := contrast.NewTable(spec, true, []contrast.Row{
		{GeneID: "g1", BaseMean: 55, Log2FoldChange: 2.9, LfcSE: 0.3, Stat: 8, PValue: 1e-8, PAdj: 3e-8},
		{GeneID: "g2", BaseMean: 47, Log2FoldChange: -3.7, LfcSE: 0.4, Stat: -8.2, PValue: 1e-9, PAdj: 6e-9},
		{GeneID: "g3", BaseMean: 50, Log2FoldChange: 0.04, LfcSE: 0.15, Stat: 0.25, PValue: 0.8, PAdj: 0.9},
	})
	return tbl, annot, raw, shrunken
}

var testThresholds = contrast.Thresholds{QValue: 0.05, LFC: 1}

func TestBuild(t *testing.T) {
	tbl, annot, raw, shrunken := fixture(t)
	m := Build(tbl, annot, raw, shrunken, testThresholds)

	if len(m.Rows) != 3 {
		t.Fatalf("merged rows = %d, want 3", len(m.Rows))
	}
	if m.Headers[0] != "Geneid" || m.Headers[1] != "gene_name" || m.Headers[2] != "description" {
		t.Errorf("headers = %v", m.Headers[:3])
	}
	if want := len(m.Headers); len(m.Rows[0].Cells) != want {
		t.Errorf("row width %d != header width %d", len(m.Rows[0].Cells), want)
	}
	for _, r := range m.Rows {
		switch r.GeneID {
		case "g1", "g2":
			if !r.Significant {
				t.Errorf("gene %s should be significant", r.GeneID)
			}
		case "g3":
			if r.Significant {
				t.Error("flat gene g3 should not be significant")
			}
		}
	}
	if m.Rows[0].DisplayName != "ALPHA" {
		t.Errorf("display name = %q, want annotation gene_name", m.Rows[0].DisplayName)
	}
}

func TestWriteRank(t *testing.T) {
	tbl, annot, raw, shrunken := fixture(t)
	m := Build(tbl, annot, raw, shrunken, testThresholds)
	path := filepath.Join(t.TempDir(), "treated_vs_control.rnk")

	skipped, err := WriteRank(path, m)
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "# Name\tlog2FoldChange_shrinked" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 1+len(m.Rows) {
		t.Fatalf("rank rows = %d, want one per merged gene", len(lines)-1)
	}

	var prev float64 = -1e18
	for _, line := range lines[1:] {
		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			t.Fatalf("malformed rank line %q", line)
		}
		lfc, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			t.Fatal(err)
		}
		if lfc < prev {
			t.Errorf("rank file not sorted ascending at %q", line)
		}
		prev = lfc
	}
	// shrunken fold changes, not raw, and display names, not identifiers
	if !strings.HasPrefix(lines[1], "BETA\t-3.7") {
		t.Errorf("first rank line = %q, want BETA with shrunken lfc", lines[1])
	}
}

func TestWriteRankSkipsNA(t *testing.T) {
	tbl, annot, raw, shrunken := fixture(t)
	shrunken.Rows[2].Log2FoldChange = contrast.NA()
	m := Build(tbl, annot, raw, shrunken, testThresholds)
	path := filepath.Join(t.TempDir(), "out.rnk")

	skipped, err := WriteRank(path, m)
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
}

func TestWriteCSV(t *testing.T) {
	tbl, annot, raw, shrunken := fixture(t)
	raw.Rows[2].PAdj = contrast.NA()
	m := Build(tbl, annot, raw, shrunken, testThresholds)
	path := filepath.Join(t.TempDir(), "out.csv")

	if err := WriteCSV(path, m); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("csv lines = %d, want header + 3", len(lines))
	}
	if !strings.Contains(lines[3], "NA") {
		t.Errorf("missing q-value should be written as NA: %q", lines[3])
	}
}

func TestWriteXLSX(t *testing.T) {
	tbl, annot, raw, shrunken := fixture(t)
	m := Build(tbl, annot, raw, shrunken, testThresholds)
	dir := t.TempDir()

	full := filepath.Join(dir, "out.deseq2.xlsx")
	if err := WriteXLSX(full, m, false); err != nil {
		t.Fatal(err)
	}
	_, rows, err := excel.ReadSheet(full, "DESeq2")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("full workbook rows = %d, want 3", len(rows))
	}

	sig := filepath.Join(dir, "out.deseq2.sig.FDR.0.05.LFC.1.xlsx")
	if err := WriteXLSX(sig, m, true); err != nil {
		t.Fatal(err)
	}
	_, rows, err = excel.ReadSheet(sig, "DESeq2")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("significant workbook rows = %d, want 2 (g1, g2)", len(rows))
	}
}
