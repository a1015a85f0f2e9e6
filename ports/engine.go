package ports

import (
	"godeseq/domain/contrast"
	"godeseq/domain/counts"
	"godeseq/domain/design"
)

// FittedModel is the opaque handle produced by the statistical engine.
// It is immutable after fitting; everything the pipeline may inspect is
// exposed here, everything else stays inside the engine.
type FittedModel interface {
	// GeneIDs returns the fitted gene identifiers in table row order
	GeneIDs() []string
	// Design returns the sample design the model was fitted against
	Design() []design.Sample
	// ConditionLevels returns the factor levels in first appearance order
	ConditionLevels() []string
}

// EnginePort abstracts the negative-binomial modeling library. The
// pipeline is engine-agnostic: dispersion estimation, GLM fitting,
// shrinkage and multiple-testing correction all live behind this
// interface.
type EnginePort interface {
	// Fit estimates size factors and dispersions and fits the per-gene
	// count model for the condition factor
	Fit(tbl *counts.Table, samples []design.Sample) (FittedModel, error)

	// Results extracts raw Wald-test results for a two-level comparison
	Results(m FittedModel, spec contrast.Spec) (*contrast.Table, error)

	// ShrunkenResults extracts results with empirical-Bayes shrunken
	// fold changes; only the fold-change and standard-error columns
	// differ from Results
	ShrunkenResults(m FittedModel, spec contrast.Spec) (*contrast.Table, error)

	// VarianceStabilized returns the variance-stabilized expression
	// matrix used by quality diagnostics
	VarianceStabilized(m FittedModel) (*counts.Matrix, error)

	// Save persists a fitted model for reuse by later invocations
	Save(m FittedModel, path string) error

	// Load restores a previously persisted model
	Load(path string) (FittedModel, error)
}
