package qc

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"godeseq/domain/counts"
	"godeseq/domain/design"
	"godeseq/internal/errors"
)

// topVariableGenes caps the PCA input at the most variable genes, the
// usual practice for expression PCA
const topVariableGenes = 500

// PCAPlot projects the samples onto the first two principal components
// of the variance-stabilized matrix and writes a labeled scatter plot,
// one color per condition, labels carrying condition and batch.
func PCAPlot(vst *counts.Matrix, samples []design.Sample, path string) error {
	n := len(vst.Samples)
	if n < 2 {
		return errors.InternalError("PCA needs at least two samples")
	}

	geneIdx := selectTopVariable(vst, topVariableGenes)
	d := len(geneIdx)
	if d < 2 {
		return errors.InternalError("PCA needs at least two genes")
	}

	x := mat.NewDense(n, d, nil)
	for col, gi := range geneIdx {
		for row := 0; row < n; row++ {
			x.Set(row, col, vst.Values[gi][row])
		}
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return errors.InternalError("principal component decomposition failed")
	}
	var vec mat.Dense
	pc.VectorsTo(&vec)
	var proj mat.Dense
	proj.Mul(x, vec.Slice(0, d, 0, 2))

	vars := pc.VarsTo(nil)
	var total float64
	for _, v := range vars {
		total += v
	}

	p := plot.New()
	p.Title.Text = "PCA of variance-stabilized counts"
	p.X.Label.Text = fmt.Sprintf("PC1 (%.1f%%)", vars[0]/total*100)
	p.Y.Label.Text = fmt.Sprintf("PC2 (%.1f%%)", vars[1]/total*100)

	// one scatter per condition so the legend doubles as the color key
	levels := design.ConditionLevels(samples)
	for li, level := range levels {
		var xys plotter.XYs
		for row, s := range samples {
			if s.Condition == level {
				xys = append(xys, plotter.XY{X: proj.At(row, 0), Y: proj.At(row, 1)})
			}
		}
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return errors.Wrap(err, "failed to build PCA scatter")
		}
		scatter.GlyphStyle.Color = plotutil.Color(li)
		scatter.GlyphStyle.Radius = vg.Points(3)
		p.Add(scatter)
		p.Legend.Add(level, scatter)
	}

	var labelXYs plotter.XYs
	var labelText []string
	for row, s := range samples {
		labelXYs = append(labelXYs, plotter.XY{X: proj.At(row, 0), Y: proj.At(row, 1)})
		labelText = append(labelText, fmt.Sprintf("%s (batch %s)", s.Name, s.Batch))
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: labelXYs, Labels: labelText})
	if err != nil {
		return errors.Wrap(err, "failed to build PCA labels")
	}
	p.Add(labels)

	if err := p.Save(7*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save PCA plot %s", path)
	}
	return nil
}

// selectTopVariable returns the row indexes of the most variable genes
func selectTopVariable(m *counts.Matrix, limit int) []int {
	type geneVar struct {
		idx int
		v   float64
	}
	gv := make([]geneVar, len(m.Values))
	for i, row := range m.Values {
		gv[i] = geneVar{idx: i, v: stat.Variance(row, nil)}
	}
	sort.Slice(gv, func(a, b int) bool { return gv[a].v > gv[b].v })
	if limit > len(gv) {
		limit = len(gv)
	}
	idx := make([]int, limit)
	for i := 0; i < limit; i++ {
		idx[i] = gv[i].idx
	}
	sort.Ints(idx)
	return idx
}
