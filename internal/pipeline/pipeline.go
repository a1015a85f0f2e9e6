// Package pipeline wires the workflow stages together: load, fetch
// annotation, normalize, fit, quality diagnostics, contrast analysis,
// report. Control flows strictly forward and any stage failure aborts
// the run.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"godeseq/adapters/annotation"
	"godeseq/adapters/featurecounts"
	"godeseq/domain/contrast"
	"godeseq/domain/counts"
	"godeseq/domain/design"
	"godeseq/internal"
	"godeseq/internal/config"
	"godeseq/internal/errors"
	"godeseq/internal/normalize"
	"godeseq/internal/qc"
	"godeseq/internal/report"
	"godeseq/ports"
)

// Pipeline threads one configuration through every stage. State set by
// a stage is read-only for the stages after it.
type Pipeline struct {
	cfg    *config.Config
	log    *internal.Logger
	engine ports.EnginePort

	tbl      *counts.Table
	annot    *annotation.Table
	samples  []design.Sample
	model    ports.FittedModel
	raw      *contrast.Table
	shrunken *contrast.Table
}

// New builds a pipeline
func New(cfg *config.Config, engine ports.EnginePort, logger *internal.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, engine: engine, log: logger}
}

// Run executes every stage in order
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.cfg.Validate(); err != nil {
		return err
	}
	if err := p.cfg.ValidateContrast(); err != nil {
		return err
	}
	if err := p.LoadCounts(); err != nil {
		return err
	}
	if err := p.FetchAnnotation(ctx); err != nil {
		return err
	}
	if err := p.Normalize(); err != nil {
		return err
	}
	if err := p.FitModel(); err != nil {
		return err
	}
	if err := p.QualityDiagnostics(); err != nil {
		return err
	}
	if err := p.Contrast(); err != nil {
		return err
	}
	return p.Report()
}

// LoadCounts reads and filters the feature-count table
func (p *Pipeline) LoadCounts() error {
	p.log.Info("[Loader] reading count table %s", p.cfg.Paths.CountsFile)
	tbl, dropped, err := featurecounts.Load(p.cfg.Paths.CountsFile, p.cfg.Filter.MinCount)
	if err != nil {
		return errors.Wrap(err, "loader stage failed")
	}
	p.log.Info("[Loader] kept %d genes across %d samples, filtered %d below total count %d",
		len(tbl.Genes), len(tbl.Samples), dropped, p.cfg.Filter.MinCount)
	p.tbl = tbl
	return nil
}

// FetchAnnotation downloads and parses the gene annotation
func (p *Pipeline) FetchAnnotation(ctx context.Context) error {
	if p.cfg.Annotation.URL == "" {
		p.log.Warn("[AnnotationFetcher] no annotation URL configured; reports will carry empty annotation fields")
		return nil
	}
	p.log.Info("[AnnotationFetcher] fetching %s", p.cfg.Annotation.URL)
	annot, err := annotation.Fetch(ctx, p.cfg.Annotation.URL, p.cfg.Annotation.FetchTimeout)
	if err != nil {
		return errors.Wrap(err, "annotation stage failed")
	}
	p.log.Info("[AnnotationFetcher] loaded %d annotation rows (%d columns)",
		len(annot.Rows), len(annot.Columns))
	p.annot = annot
	return nil
}

// Normalize writes the COUNT/TPM/FPKM workbook
func (p *Pipeline) Normalize() error {
	path := filepath.Join(p.cfg.Paths.OutDir, "Normalization.xlsx")
	p.log.Info("[Normalizer] writing %s", path)
	order, err := normalize.WriteWorkbook(path, p.tbl, p.annot)
	if err != nil {
		return errors.Wrap(err, "normalizer stage failed")
	}
	p.warnUnmatched(order)
	return nil
}

// FitModel infers the sample design and fits (or reloads) the count
// model, persisting it for reuse
func (p *Pipeline) FitModel() error {
	p.samples = design.Infer(p.tbl.Samples)
	levels := design.ConditionLevels(p.samples)
	batches := design.BatchLevels(p.samples)
	p.log.Info("[ModelFitter] inferred %d condition levels %v, %d batch levels %v",
		len(levels), levels, len(batches), batches)

	modelPath := p.modelPath()
	if _, err := os.Stat(modelPath); err == nil {
		model, err := p.engine.Load(modelPath)
		if err == nil && sameGenes(model.GeneIDs(), p.tbl.GeneIDs()) {
			p.log.Info("[ModelFitter] reusing fitted model %s", modelPath)
			p.model = model
			return nil
		}
		p.log.Warn("[ModelFitter] persisted model %s does not match the count table; refitting", modelPath)
	}

	model, err := p.engine.Fit(p.tbl, p.samples)
	if err != nil {
		return errors.Wrap(err, "model fitting stage failed")
	}
	if err := p.engine.Save(model, modelPath); err != nil {
		return errors.Wrap(err, "failed to persist fitted model")
	}
	p.log.Info("[ModelFitter] fitted %d genes, model persisted to %s", len(model.GeneIDs()), modelPath)
	p.model = model
	return nil
}

// QualityDiagnostics writes the PCA, distance heatmap, correlation
// table and count histogram
func (p *Pipeline) QualityDiagnostics() error {
	vst, err := p.engine.VarianceStabilized(p.model)
	if err != nil {
		return errors.Wrap(err, "quality diagnostics stage failed")
	}

	out := func(name string) string { return filepath.Join(p.cfg.Paths.OutDir, name) }

	p.log.Info("[QualityDiagnostics] writing PCA, heatmap, correlation, histogram")
	if err := qc.PCAPlot(vst, p.samples, out("pca.png")); err != nil {
		return errors.Wrap(err, "quality diagnostics stage failed")
	}
	if err := qc.DistanceHeatmap(vst, out("sample_distance.png")); err != nil {
		return errors.Wrap(err, "quality diagnostics stage failed")
	}
	pairs, err := qc.PairwiseCorrelations(p.tbl.RawMatrix())
	if err != nil {
		return errors.Wrap(err, "quality diagnostics stage failed")
	}
	if err := qc.WriteCorrelationTSV(out("sample_correlation.tsv"), pairs); err != nil {
		return errors.Wrap(err, "quality diagnostics stage failed")
	}
	if err := qc.CountHistogram(p.tbl.RawMatrix(), out("counts_hist.png")); err != nil {
		return errors.Wrap(err, "quality diagnostics stage failed")
	}
	return nil
}

// Contrast extracts raw and shrunken results for the configured
// comparison, classifies them and writes the per-contrast plots
func (p *Pipeline) Contrast() error {
	spec := contrast.Spec{
		Factor:    p.cfg.Contrast.Factor,
		Target:    p.cfg.Contrast.Target,
		Reference: p.cfg.Contrast.Reference,
	}
	p.log.Info("[ContrastAnalyzer] extracting results for %s", spec.Name())

	raw, err := p.engine.Results(p.model, spec)
	if err != nil {
		return errors.Wrap(err, "contrast stage failed")
	}
	shrunken, err := p.engine.ShrunkenResults(p.model, spec)
	if err != nil {
		return errors.Wrap(err, "contrast stage failed")
	}
	p.raw = raw
	p.shrunken = shrunken

	thr := p.thresholds()
	cls := contrast.Classify(raw.Rows, thr)
	sum := contrast.Summarize(cls)
	p.log.Info("[ContrastAnalyzer] %d genes: %d significant (%d up, %d down) at q < %g, |LFC| > %g",
		sum.Total, sum.Significant, sum.Up, sum.Down, thr.QValue, thr.LFC)

	name := spec.Name()
	out := func(suffix string) string {
		return filepath.Join(p.cfg.Paths.OutDir, name+suffix)
	}
	if err := qc.MAPlot(raw, cls, out(".ma.png")); err != nil {
		return errors.Wrap(err, "contrast stage failed")
	}
	if err := qc.VolcanoPlot(raw, thr, p.cfg.Plot.VolcanoMaxLFC, p.cfg.Plot.VolcanoMaxNegLogQ, out(".volcano.png")); err != nil {
		return errors.Wrap(err, "contrast stage failed")
	}
	if err := qc.PValueHistogram(raw, false, out(".pvalue_hist.png")); err != nil {
		return errors.Wrap(err, "contrast stage failed")
	}
	if err := qc.PValueHistogram(raw, true, out(".qvalue_hist.png")); err != nil {
		return errors.Wrap(err, "contrast stage failed")
	}
	return nil
}

// Report writes the rank file, CSV and spreadsheets for the active
// contrast
func (p *Pipeline) Report() error {
	thr := p.thresholds()
	merged := report.Build(p.tbl, p.annot, p.raw, p.shrunken, thr)
	p.warnUnmatched(merged.Order)

	name := p.cfg.ContrastName()
	out := func(suffix string) string {
		return filepath.Join(p.cfg.Paths.OutDir, name+suffix)
	}

	skipped, err := report.WriteRank(out(".rnk"), merged)
	if err != nil {
		return errors.Wrap(err, "report stage failed")
	}
	if skipped > 0 {
		p.log.Warn("[ReportGenerator] %d genes without a finite shrunken fold change were left out of the rank file", skipped)
	}
	if err := report.WriteCSV(out(".deseq2.csv"), merged); err != nil {
		return errors.Wrap(err, "report stage failed")
	}
	if err := report.WriteXLSX(out(".deseq2.xlsx"), merged, false); err != nil {
		return errors.Wrap(err, "report stage failed")
	}
	sigName := fmt.Sprintf(".deseq2.sig.FDR.%v.LFC.%v.xlsx", thr.QValue, thr.LFC)
	if err := report.WriteXLSX(out(sigName), merged, true); err != nil {
		return errors.Wrap(err, "report stage failed")
	}
	p.log.Info("[ReportGenerator] wrote %s outputs to %s", name, p.cfg.Paths.OutDir)
	return nil
}

func (p *Pipeline) thresholds() contrast.Thresholds {
	return contrast.Thresholds{
		QValue: p.cfg.Significance.QValueCutoff,
		LFC:    p.cfg.Significance.LFCCutoff,
	}
}

func (p *Pipeline) modelPath() string {
	if filepath.IsAbs(p.cfg.Paths.ModelFile) {
		return p.cfg.Paths.ModelFile
	}
	return filepath.Join(p.cfg.Paths.OutDir, p.cfg.Paths.ModelFile)
}

func (p *Pipeline) warnUnmatched(order normalize.MergeOrder) {
	if p.annot == nil {
		return
	}
	if order.UnmatchedCounts > 0 {
		p.log.Warn("[%s] %d count genes have no annotation entry; their annotation fields are empty",
			errors.CodeMergeKeyMismatch, order.UnmatchedCounts)
	}
	if order.UnmatchedAnnot > 0 {
		p.log.Debug("[%s] %d annotation rows are absent from the filtered count table",
			errors.CodeMergeKeyMismatch, order.UnmatchedAnnot)
	}
}

func sameGenes(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
