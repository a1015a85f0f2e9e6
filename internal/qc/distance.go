package qc

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"godeseq/domain/counts"
	"godeseq/internal/errors"
)

// SampleDistances computes the pairwise Euclidean distance between
// sample columns of the variance-stabilized matrix
func SampleDistances(vst *counts.Matrix) [][]float64 {
	n := len(vst.Samples)
	cols := make([][]float64, n)
	for j := 0; j < n; j++ {
		cols[j] = vst.Column(j)
	}
	d := make([][]float64, n)
	for i := 0; i < n; i++ {
		d[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dist := floats.Distance(cols[i], cols[j], 2)
			d[i][j] = dist
			d[j][i] = dist
		}
	}
	return d
}

// ClusterOrder returns a leaf order from complete-linkage agglomerative
// clustering of the distance matrix. Rows and columns of the heatmap
// share this order.
func ClusterOrder(d [][]float64) []int {
	n := len(d)
	clusters := make([][]int, n)
	for i := range clusters {
		clusters[i] = []int{i}
	}

	linkage := func(a, b []int) float64 {
		worst := 0.0
		for _, i := range a {
			for _, j := range b {
				if d[i][j] > worst {
					worst = d[i][j]
				}
			}
		}
		return worst
	}

	for len(clusters) > 1 {
		bestA, bestB := 0, 1
		best := math.Inf(1)
		for a := 0; a < len(clusters); a++ {
			for b := a + 1; b < len(clusters); b++ {
				if l := linkage(clusters[a], clusters[b]); l < best {
					best = l
					bestA, bestB = a, b
				}
			}
		}
		merged := append(append([]int{}, clusters[bestA]...), clusters[bestB]...)
		next := make([][]int, 0, len(clusters)-1)
		for i, c := range clusters {
			if i != bestA && i != bestB {
				next = append(next, c)
			}
		}
		clusters = append(next, merged)
	}
	return clusters[0]
}

// distanceGrid adapts a reordered distance matrix to plotter.GridXYZ
type distanceGrid struct {
	d     [][]float64
	order []int
}

func (g distanceGrid) Dims() (c, r int)   { return len(g.order), len(g.order) }
func (g distanceGrid) X(c int) float64    { return float64(c) }
func (g distanceGrid) Y(r int) float64    { return float64(r) }
func (g distanceGrid) Z(c, r int) float64 { return g.d[g.order[r]][g.order[c]] }

// DistanceHeatmap renders the clustered sample-distance matrix
func DistanceHeatmap(vst *counts.Matrix, path string) error {
	if len(vst.Samples) < 2 {
		return errors.InternalError("distance heatmap needs at least two samples")
	}
	d := SampleDistances(vst)
	order := ClusterOrder(d)

	pal := moreland.SmoothBlueRed().Palette(255)
	heat := plotter.NewHeatMap(distanceGrid{d: d, order: order}, pal)

	p := plot.New()
	p.Title.Text = "Sample distance (variance-stabilized)"
	p.Add(heat)

	names := make([]string, len(order))
	for i, o := range order {
		names[i] = vst.Samples[o]
	}
	p.NominalX(names...)
	p.NominalY(names...)
	p.X.Tick.Label.Rotation = math.Pi / 2
	p.X.Tick.Label.XAlign = -0.5

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save distance heatmap %s", path)
	}
	return nil
}
