// Package report merges contrast results with annotation and
// normalized expression into the per-gene result tables and writes the
// rank file, CSV and spreadsheet outputs.
package report

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"godeseq/adapters/annotation"
	"godeseq/adapters/excel"
	"godeseq/domain/contrast"
	"godeseq/domain/counts"
	"godeseq/internal/errors"
	"godeseq/internal/normalize"
)

// Merged is the row-per-gene report table: annotation fields, shrunken
// and raw contrast results, and TPM expression, keyed by gene
// identifier in annotation row order (unannotated genes appended).
type Merged struct {
	Headers []string
	Rows    []MergedRow
	Order   normalize.MergeOrder
}

// MergedRow carries one gene's report fields plus the raw values the
// rank file and significance filter need
type MergedRow struct {
	GeneID      string
	DisplayName string
	ShrunkenLFC float64
	Significant bool
	Cells       []interface{}
}

// Build assembles the merged table. Significance flags come from the
// classification of the raw result table.
func Build(tbl *counts.Table, annot *annotation.Table, raw, shrunken *contrast.Table, thr contrast.Thresholds) *Merged {
	tpm := normalize.TPM(tbl)
	order := normalize.OrderGenes(annot, tbl.GeneIDs())
	cls := contrast.Classify(raw.Rows, thr)

	sigByGene := make(map[string]bool, len(raw.Rows))
	for i, r := range raw.Rows {
		sigByGene[r.GeneID] = cls.Significant[i]
	}
	tpmRow := make(map[string]int, len(tpm.Genes))
	for i, id := range tpm.Genes {
		tpmRow[id] = i
	}

	m := &Merged{Order: order}
	m.Headers = append(m.Headers, "Geneid")
	if annot != nil {
		m.Headers = append(m.Headers, annot.Columns[1:]...)
	}
	m.Headers = append(m.Headers,
		"baseMean",
		"log2FoldChange_shrinked", "lfcSE_shrinked",
		"log2FoldChange", "lfcSE", "stat", "pvalue", "padj",
	)
	for _, s := range tpm.Samples {
		m.Headers = append(m.Headers, "TPM_"+s)
	}

	for _, id := range order.GeneIDs {
		rawRow, _ := raw.Lookup(id)
		shrRow, _ := shrunken.Lookup(id)

		row := MergedRow{
			GeneID:      id,
			DisplayName: id,
			ShrunkenLFC: shrRow.Log2FoldChange,
			Significant: sigByGene[id],
		}
		if annot != nil {
			row.DisplayName = annot.DisplayName(id)
		}

		row.Cells = append(row.Cells, id)
		for _, f := range normalize.AnnotationFields(annot, id, order.AnnotationFields) {
			row.Cells = append(row.Cells, f)
		}
		row.Cells = append(row.Cells,
			cell(rawRow.BaseMean),
			cell(shrRow.Log2FoldChange), cell(shrRow.LfcSE),
			cell(rawRow.Log2FoldChange), cell(rawRow.LfcSE),
			cell(rawRow.Stat), cell(rawRow.PValue), cell(rawRow.PAdj),
		)
		if ti, ok := tpmRow[id]; ok {
			for _, v := range tpm.Values[ti] {
				row.Cells = append(row.Cells, v)
			}
		}
		m.Rows = append(m.Rows, row)
	}
	return m
}

// cell maps missing values to the "NA" spreadsheet convention
func cell(v float64) interface{} {
	if math.IsNaN(v) {
		return "NA"
	}
	return v
}

// WriteRank writes the two-column rank file for enrichment tools:
// display name and shrunken log2 fold change, sorted ascending. Genes
// without a finite shrunken fold change are skipped; the caller warns
// about them.
func WriteRank(path string, m *Merged) (skipped int, err error) {
	type rankRow struct {
		name string
		lfc  float64
	}
	var rows []rankRow
	for _, r := range m.Rows {
		if contrast.IsNA(r.ShrunkenLFC) {
			skipped++
			continue
		}
		rows = append(rows, rankRow{name: r.DisplayName, lfc: r.ShrunkenLFC})
	}
	sort.Slice(rows, func(a, b int) bool { return rows[a].lfc < rows[b].lfc })

	var b strings.Builder
	b.WriteString("# Name\tlog2FoldChange_shrinked\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s\t%.6f\n", r.name, r.lfc)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return skipped, errors.Wrapf(err, "failed to write rank file %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return skipped, errors.Wrapf(err, "failed to move rank file into place at %s", path)
	}
	return skipped, nil
}

// WriteCSV writes the full merged table
func WriteCSV(path string, m *Merged) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "failed to create CSV %s", path)
	}

	w := csv.NewWriter(f)
	if err := w.Write(m.Headers); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "failed to write CSV header %s", path)
	}
	for _, row := range m.Rows {
		record := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			record[i] = formatCell(c)
		}
		if err := w.Write(record); err != nil {
			f.Close()
			os.Remove(tmp)
			return errors.Wrapf(err, "failed to write CSV row %s", path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "failed to flush CSV %s", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "failed to close CSV %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "failed to move CSV into place at %s", path)
	}
	return nil
}

// WriteXLSX writes the merged table as a single-sheet workbook,
// optionally filtered to significant genes
func WriteXLSX(path string, m *Merged, significantOnly bool) error {
	sheet := excel.Sheet{Name: "DESeq2", Headers: m.Headers}
	for _, row := range m.Rows {
		if significantOnly && !row.Significant {
			continue
		}
		sheet.Rows = append(sheet.Rows, row.Cells)
	}
	if err := excel.WriteWorkbook(path, []excel.Sheet{sheet}); err != nil {
		return errors.Wrapf(err, "failed to write report workbook %s", path)
	}
	return nil
}

func formatCell(c interface{}) string {
	switch v := c.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.6g", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
