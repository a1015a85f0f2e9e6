// Package normalize computes length- and depth-normalized expression
// matrices from raw counts and merges them with the gene annotation for
// the normalization workbook.
package normalize

import (
	"godeseq/domain/counts"
)

// TPM computes transcripts-per-million: per-sample, length-normalized
// count rates scaled so each sample column sums to one million.
func TPM(tbl *counts.Table) *counts.Matrix {
	m := &counts.Matrix{
		Genes:   tbl.GeneIDs(),
		Samples: append([]string(nil), tbl.Samples...),
		Values:  make([][]float64, len(tbl.Genes)),
	}

	// rate = count / length in kilobases
	rates := make([][]float64, len(tbl.Genes))
	colSums := make([]float64, len(tbl.Samples))
	for i, gene := range tbl.Genes {
		row := make([]float64, len(tbl.Samples))
		lengthKb := float64(gene.Length) / 1000.0
		for j, c := range tbl.Counts[i] {
			row[j] = float64(c) / lengthKb
			colSums[j] += row[j]
		}
		rates[i] = row
	}

	for i, row := range rates {
		vals := make([]float64, len(row))
		for j, r := range row {
			if colSums[j] > 0 {
				vals[j] = r / colSums[j] * 1e6
			}
		}
		m.Values[i] = vals
	}
	return m
}

// FPKM computes fragments per kilobase per million mapped reads:
// counts scaled by gene length in kilobases and by library size in
// millions.
func FPKM(tbl *counts.Table) *counts.Matrix {
	m := &counts.Matrix{
		Genes:   tbl.GeneIDs(),
		Samples: append([]string(nil), tbl.Samples...),
		Values:  make([][]float64, len(tbl.Genes)),
	}

	libSizes := make([]float64, len(tbl.Samples))
	for i := range tbl.Genes {
		for j, c := range tbl.Counts[i] {
			libSizes[j] += float64(c)
		}
	}

	for i, gene := range tbl.Genes {
		vals := make([]float64, len(tbl.Samples))
		for j, c := range tbl.Counts[i] {
			if libSizes[j] > 0 {
				vals[j] = float64(c) * 1e9 / (float64(gene.Length) * libSizes[j])
			}
		}
		m.Values[i] = vals
	}
	return m
}
