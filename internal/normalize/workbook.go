package normalize

import (
	"godeseq/adapters/annotation"
	"godeseq/adapters/excel"
	"godeseq/domain/counts"
	"godeseq/internal/errors"
)

// Sheet names of the normalization workbook
const (
	SheetCount = "COUNT"
	SheetTPM   = "TPM"
	SheetFPKM  = "FPKM"
)

// WriteWorkbook computes TPM and FPKM and writes the three-sheet
// normalization workbook (raw counts, TPM, FPKM), each sheet merged
// with the annotation. Returns the merge bookkeeping so the caller can
// warn about unmatched identifiers.
func WriteWorkbook(path string, tbl *counts.Table, annot *annotation.Table) (MergeOrder, error) {
	order := OrderGenes(annot, tbl.GeneIDs())

	countSheet := buildSheet(SheetCount, tbl.RawMatrix(), annot, order, true)
	tpmSheet := buildSheet(SheetTPM, TPM(tbl), annot, order, false)
	fpkmSheet := buildSheet(SheetFPKM, FPKM(tbl), annot, order, false)

	err := excel.WriteWorkbook(path, []excel.Sheet{countSheet, tpmSheet, fpkmSheet})
	if err != nil {
		return order, errors.Wrapf(err, "failed to write normalization workbook %s", path)
	}
	return order, nil
}

func buildSheet(name string, m *counts.Matrix, annot *annotation.Table, order MergeOrder, integer bool) excel.Sheet {
	rowOf := make(map[string]int, len(m.Genes))
	for i, id := range m.Genes {
		rowOf[id] = i
	}

	sheet := excel.Sheet{Name: name}
	sheet.Headers = append(sheet.Headers, "Geneid")
	if annot != nil {
		sheet.Headers = append(sheet.Headers, annot.Columns[1:]...)
	}
	sheet.Headers = append(sheet.Headers, m.Samples...)

	for _, id := range order.GeneIDs {
		i, ok := rowOf[id]
		if !ok {
			continue
		}
		row := []interface{}{id}
		for _, f := range AnnotationFields(annot, id, order.AnnotationFields) {
			row = append(row, f)
		}
		for _, v := range m.Values[i] {
			if integer {
				row = append(row, int64(v))
			} else {
				row = append(row, v)
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}
