package qc

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"godeseq/domain/contrast"
	"godeseq/internal/errors"
)

var dimGray = color.RGBA{R: 150, G: 150, B: 150, A: 255}

// MAPlot draws mean expression against fold change with significant
// genes highlighted
func MAPlot(res *contrast.Table, cls contrast.Classification, path string) error {
	var sig, rest plotter.XYs
	for i, r := range res.Rows {
		if contrast.IsNA(r.Log2FoldChange) || r.BaseMean <= 0 {
			continue
		}
		xy := plotter.XY{X: math.Log10(r.BaseMean), Y: r.Log2FoldChange}
		if cls.Significant[i] {
			sig = append(sig, xy)
		} else {
			rest = append(rest, xy)
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("MA plot: %s", res.Spec.Name())
	p.X.Label.Text = "log10 mean of normalized counts"
	p.Y.Label.Text = "log2 fold change"

	if err := addScatter(p, rest, dimGray, ""); err != nil {
		return err
	}
	if err := addScatter(p, sig, plotutil.Color(0), "significant"); err != nil {
		return err
	}

	if err := p.Save(6*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save MA plot %s", path)
	}
	return nil
}

// VolcanoPlot draws fold change against -log10(q-value), axes clipped
// to the configured bounds, points colored by which thresholds they
// cross.
func VolcanoPlot(res *contrast.Table, thr contrast.Thresholds, maxLFC, maxNegLogQ float64, path string) error {
	var both, lfcOnly, qOnly, neither plotter.XYs
	for _, r := range res.Rows {
		if contrast.IsNA(r.Log2FoldChange) || contrast.IsNA(r.PAdj) {
			continue
		}
		x := clamp(r.Log2FoldChange, -maxLFC, maxLFC)
		y := math.Inf(1)
		if r.PAdj > 0 {
			y = -math.Log10(r.PAdj)
		}
		y = clamp(y, 0, maxNegLogQ)

		passLFC := math.Abs(r.Log2FoldChange) > thr.LFC
		passQ := r.PAdj < thr.QValue
		xy := plotter.XY{X: x, Y: y}
		switch {
		case passLFC && passQ:
			both = append(both, xy)
		case passLFC:
			lfcOnly = append(lfcOnly, xy)
		case passQ:
			qOnly = append(qOnly, xy)
		default:
			neither = append(neither, xy)
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Volcano plot: %s", res.Spec.Name())
	p.X.Label.Text = "log2 fold change"
	p.Y.Label.Text = "-log10(q-value)"
	p.X.Min, p.X.Max = -maxLFC, maxLFC
	p.Y.Min, p.Y.Max = 0, maxNegLogQ

	if err := addScatter(p, neither, dimGray, ""); err != nil {
		return err
	}
	if err := addScatter(p, lfcOnly, plotutil.Color(1), fmt.Sprintf("|LFC| > %g", thr.LFC)); err != nil {
		return err
	}
	if err := addScatter(p, qOnly, plotutil.Color(2), fmt.Sprintf("q < %g", thr.QValue)); err != nil {
		return err
	}
	if err := addScatter(p, both, plotutil.Color(0), "both"); err != nil {
		return err
	}

	if err := p.Save(6*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save volcano plot %s", path)
	}
	return nil
}

// PValueHistogram plots the distribution of raw or adjusted p-values
func PValueHistogram(res *contrast.Table, adjusted bool, path string) error {
	var vals plotter.Values
	for _, r := range res.Rows {
		v := r.PValue
		if adjusted {
			v = r.PAdj
		}
		if !contrast.IsNA(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return errors.InternalError("p-value histogram: no finite values")
	}

	h, err := plotter.NewHist(vals, 20)
	if err != nil {
		return errors.Wrap(err, "failed to build p-value histogram")
	}

	label := "p-value"
	if adjusted {
		label = "q-value"
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s distribution: %s", label, res.Spec.Name())
	p.X.Label.Text = label
	p.Y.Label.Text = "frequency"
	p.Add(h)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save %s histogram %s", label, path)
	}
	return nil
}

func addScatter(p *plot.Plot, xys plotter.XYs, c color.Color, legend string) error {
	if len(xys) == 0 {
		return nil
	}
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return errors.Wrap(err, "failed to build scatter series")
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(s)
	if legend != "" {
		p.Legend.Add(legend, s)
	}
	return nil
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
