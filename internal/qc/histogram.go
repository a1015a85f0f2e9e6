package qc

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"godeseq/domain/counts"
	"godeseq/internal/errors"
)

// CountHistogram plots the log10(count+1) distribution over all genes
// and samples combined
func CountHistogram(raw *counts.Matrix, path string) error {
	var vals plotter.Values
	for _, row := range raw.Values {
		for _, c := range row {
			vals = append(vals, math.Log10(c+1))
		}
	}
	if len(vals) == 0 {
		return errors.InternalError("count histogram: matrix is empty")
	}

	h, err := plotter.NewHist(vals, 40)
	if err != nil {
		return errors.Wrap(err, "failed to build count histogram")
	}

	p := plot.New()
	p.Title.Text = "Count distribution"
	p.X.Label.Text = "log10(count + 1)"
	p.Y.Label.Text = "frequency"
	p.Add(h)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save count histogram %s", path)
	}
	return nil
}
