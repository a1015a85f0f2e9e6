package normalize

import (
	"godeseq/adapters/annotation"
)

// MergeOrder is the join contract shared by the normalization workbook
// and the contrast report: a left join of annotation onto the count
// genes, keyed by gene identifier. Matched genes come out in annotation
// row order; count genes missing from the annotation are appended in
// their own order with empty annotation fields, never dropped.
type MergeOrder struct {
	GeneIDs          []string
	UnmatchedCounts  int // count genes absent from the annotation
	UnmatchedAnnot   int // annotation rows absent from the counts
	AnnotationFields int
}

// OrderGenes computes the merged gene order for the given count genes
func OrderGenes(annot *annotation.Table, geneIDs []string) MergeOrder {
	inCounts := make(map[string]bool, len(geneIDs))
	for _, id := range geneIDs {
		inCounts[id] = true
	}

	order := MergeOrder{}
	matched := make(map[string]bool)
	if annot != nil {
		order.AnnotationFields = len(annot.Columns) - 1
		for _, id := range annot.GeneIDs() {
			if inCounts[id] {
				order.GeneIDs = append(order.GeneIDs, id)
				matched[id] = true
			} else {
				order.UnmatchedAnnot++
			}
		}
	}
	for _, id := range geneIDs {
		if !matched[id] {
			order.GeneIDs = append(order.GeneIDs, id)
			order.UnmatchedCounts++
		}
	}
	return order
}

// AnnotationFields returns the annotation columns (minus the key) for a
// gene, or empty placeholders when the gene is unannotated.
func AnnotationFields(annot *annotation.Table, geneID string, width int) []string {
	fields := make([]string, width)
	if annot == nil {
		return fields
	}
	if row, ok := annot.Lookup(geneID); ok {
		copy(fields, row[1:])
	}
	return fields
}
