// Package deseq is the negative-binomial modeling engine behind
// ports.EnginePort. It estimates size factors by the median-of-ratios
// method, per-gene dispersions by moments with shrinkage toward a
// fitted mean-dispersion trend, tests fold changes with a Wald z
// statistic, adjusts p-values by Benjamini-Hochberg, and shrinks fold
// changes under a zero-centered normal prior. The rest of the workflow
// never looks inside this package.
package deseq

import (
	"fmt"

	"godeseq/domain/contrast"
	"godeseq/domain/counts"
	"godeseq/domain/design"
	"godeseq/internal/errors"
	"godeseq/ports"
)

// Engine implements ports.EnginePort
type Engine struct{}

// New creates the engine
func New() *Engine {
	return &Engine{}
}

// Model is the fitted-model artifact. Immutable after Fit; all fields
// are exported so the model survives a JSON round trip.
type Model struct {
	Genes       []string        `json:"genes"`
	Samples     []design.Sample `json:"samples"`
	Levels      []string        `json:"condition_levels"`
	Counts      [][]float64     `json:"counts"`
	SizeFactors []float64       `json:"size_factors"`
	Dispersions []float64       `json:"dispersions"`
	BaseMeans   []float64       `json:"base_means"`
}

// GeneIDs returns fitted gene identifiers in row order
func (m *Model) GeneIDs() []string { return m.Genes }

// Design returns the sample design used for fitting
func (m *Model) Design() []design.Sample { return m.Samples }

// ConditionLevels returns factor levels in first appearance order
func (m *Model) ConditionLevels() []string { return m.Levels }

// normalizedRow returns counts of gene row i divided by size factors
func (m *Model) normalizedRow(i int) []float64 {
	row := make([]float64, len(m.Counts[i]))
	for j, c := range m.Counts[i] {
		row[j] = c / m.SizeFactors[j]
	}
	return row
}

// levelColumns returns the sample column indexes belonging to a
// condition level
func (m *Model) levelColumns(level string) []int {
	var cols []int
	for j, s := range m.Samples {
		if s.Condition == level {
			cols = append(cols, j)
		}
	}
	return cols
}

// Fit estimates size factors and dispersions and fits the per-gene
// count model with condition as the sole explanatory factor.
func (e *Engine) Fit(tbl *counts.Table, samples []design.Sample) (ports.FittedModel, error) {
	if len(samples) != len(tbl.Samples) {
		return nil, errors.ModelFitting(fmt.Sprintf(
			"design has %d samples but count table has %d columns", len(samples), len(tbl.Samples)))
	}
	levels := design.ConditionLevels(samples)
	if len(levels) < 2 {
		return nil, errors.ModelFitting(fmt.Sprintf(
			"degenerate design: need at least two condition levels, got %q", levels))
	}

	raw := tbl.RawMatrix()
	sf, err := estimateSizeFactors(raw.Values)
	if err != nil {
		return nil, errors.WithCode(errors.CodeModelFitting, err)
	}

	m := &Model{
		Genes:       raw.Genes,
		Samples:     samples,
		Levels:      levels,
		Counts:      raw.Values,
		SizeFactors: sf,
	}

	m.BaseMeans = make([]float64, len(m.Genes))
	for i := range m.Genes {
		norm := m.normalizedRow(i)
		m.BaseMeans[i] = mean(norm)
	}

	disp, err := estimateDispersions(m)
	if err != nil {
		return nil, errors.WithCode(errors.CodeModelFitting, err)
	}
	m.Dispersions = disp

	return m, nil
}

// Results extracts raw Wald-test results for the given two-level comparison
func (e *Engine) Results(fm ports.FittedModel, spec contrast.Spec) (*contrast.Table, error) {
	m, err := concrete(fm)
	if err != nil {
		return nil, err
	}
	if err := validateSpec(m, spec); err != nil {
		return nil, err
	}
	rows := waldResults(m, spec)
	adjustBH(rows)
	return contrast.NewTable(spec, false, rows), nil
}

// ShrunkenResults extracts results with empirical-Bayes shrunken fold
// changes. P-values and adjusted p-values are carried over unchanged
// from the raw results; only the fold-change and standard-error columns
// differ.
func (e *Engine) ShrunkenResults(fm ports.FittedModel, spec contrast.Spec) (*contrast.Table, error) {
	raw, err := e.Results(fm, spec)
	if err != nil {
		return nil, err
	}
	rows := shrinkRows(raw.Rows)
	return contrast.NewTable(spec, true, rows), nil
}

func concrete(fm ports.FittedModel) (*Model, error) {
	m, ok := fm.(*Model)
	if !ok {
		return nil, errors.ModelFitting("fitted model was not produced by this engine")
	}
	return m, nil
}

func validateSpec(m *Model, spec contrast.Spec) error {
	if spec.Factor != "condition" {
		return errors.ModelFitting(fmt.Sprintf(
			"unknown factor %q: the fitted design has a single factor, condition", spec.Factor))
	}
	if !hasLevel(m.Levels, spec.Target) {
		return errors.ModelFitting(fmt.Sprintf("target level %q not present in design %v", spec.Target, m.Levels))
	}
	if !hasLevel(m.Levels, spec.Reference) {
		return errors.ModelFitting(fmt.Sprintf("reference level %q not present in design %v", spec.Reference, m.Levels))
	}
	if spec.Target == spec.Reference {
		return errors.ModelFitting("target and reference levels are identical")
	}
	return nil
}

func hasLevel(levels []string, level string) bool {
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
