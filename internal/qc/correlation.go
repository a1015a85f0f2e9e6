// Package qc produces the quality-diagnostic outputs: PCA projection,
// sample-distance clustering heatmap, pairwise correlation table,
// count-distribution histogram, and the per-contrast MA, volcano and
// p-value plots.
package qc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/montanaflynn/stats"

	"godeseq/domain/counts"
	"godeseq/internal/errors"
)

// PairCorrelation is one unordered sample pair's Pearson correlation
type PairCorrelation struct {
	Sample1 string
	Sample2 string
	Score   float64
}

// PairwiseCorrelations computes the Pearson correlation of every unique
// unordered sample pair over the raw count matrix. For N samples the
// result has exactly N*(N-1)/2 rows.
func PairwiseCorrelations(raw *counts.Matrix) ([]PairCorrelation, error) {
	n := len(raw.Samples)
	pairs := make([]PairCorrelation, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			score, err := stats.Pearson(raw.Column(i), raw.Column(j))
			if err != nil {
				return nil, errors.Wrapf(err, "failed to correlate samples %s and %s",
					raw.Samples[i], raw.Samples[j])
			}
			pairs = append(pairs, PairCorrelation{
				Sample1: raw.Samples[i],
				Sample2: raw.Samples[j],
				Score:   score,
			})
		}
	}
	return pairs, nil
}

// WriteCorrelationTSV writes the long-format correlation table
func WriteCorrelationTSV(path string, pairs []PairCorrelation) error {
	var b strings.Builder
	b.WriteString("sample1\tsample2\tscore\n")
	for _, p := range pairs {
		fmt.Fprintf(&b, "%s\t%s\t%.6f\n", p.Sample1, p.Sample2, p.Score)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write correlation table %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "failed to move correlation table into place at %s", path)
	}
	return nil
}
