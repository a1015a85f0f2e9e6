package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"godeseq/adapters/deseq"
	"godeseq/internal"
	"godeseq/internal/config"
	"godeseq/internal/pipeline"
)

func main() {
	// .env is optional; environment variables win over defaults and
	// flags win over both
	_ = godotenv.Load()

	cfg := config.Load()
	logger := internal.NewDefaultLogger()

	rootCmd := &cobra.Command{
		Use:   "godeseq",
		Short: "RNA-seq differential expression workflow",
		Long: `godeseq runs a batch RNA-seq differential-expression analysis:
count loading and filtering, annotation download, TPM/FPKM normalization,
negative-binomial model fitting, quality diagnostics, contrast extraction
and report generation.`,
		SilenceUsage: true,
	}

	var timeout time.Duration
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.Paths.CountsFile, "counts", cfg.Paths.CountsFile, "feature-count table (tab-separated)")
	pf.StringVar(&cfg.Paths.OutDir, "out", cfg.Paths.OutDir, "output directory")
	pf.StringVar(&cfg.Paths.ModelFile, "model", cfg.Paths.ModelFile, "fitted-model artifact filename")
	pf.IntVar(&cfg.Filter.MinCount, "min-count", cfg.Filter.MinCount, "minimum total count to keep a gene")
	pf.StringVar(&cfg.Annotation.URL, "annotation-url", cfg.Annotation.URL, "gene annotation URL (plain tab-delimited text)")
	pf.DurationVar(&timeout, "annotation-timeout", cfg.Annotation.FetchTimeout, "annotation fetch timeout")
	pf.StringVar(&cfg.Contrast.Factor, "factor", cfg.Contrast.Factor, "contrast factor")
	pf.StringVar(&cfg.Contrast.Target, "target", cfg.Contrast.Target, "contrast target level")
	pf.StringVar(&cfg.Contrast.Reference, "reference", cfg.Contrast.Reference, "contrast reference level")
	pf.Float64Var(&cfg.Significance.QValueCutoff, "qvalue", cfg.Significance.QValueCutoff, "adjusted p-value cutoff")
	pf.Float64Var(&cfg.Significance.LFCCutoff, "lfc", cfg.Significance.LFCCutoff, "absolute log2 fold-change cutoff")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cfg.Annotation.FetchTimeout = timeout
	}

	newPipeline := func() *pipeline.Pipeline {
		return pipeline.New(cfg, deseq.New(), logger)
	}

	rootCmd.AddCommand(
		newRunCmd(cfg, newPipeline),
		newNormalizeCmd(cfg, newPipeline),
		newQCCmd(cfg, newPipeline),
		newContrastCmd(cfg, newPipeline),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd(cfg *config.Config, newPipeline func() *pipeline.Pipeline) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full workflow end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newPipeline().Run(cmd.Context())
		},
	}
}

func newNormalizeCmd(cfg *config.Config, newPipeline func() *pipeline.Pipeline) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize",
		Short: "Write the COUNT/TPM/FPKM normalization workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			p := newPipeline()
			if err := p.LoadCounts(); err != nil {
				return err
			}
			if err := p.FetchAnnotation(cmd.Context()); err != nil {
				return err
			}
			return p.Normalize()
		},
	}
}

func newQCCmd(cfg *config.Config, newPipeline func() *pipeline.Pipeline) *cobra.Command {
	return &cobra.Command{
		Use:   "qc",
		Short: "Fit the model and write quality diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			p := newPipeline()
			if err := p.LoadCounts(); err != nil {
				return err
			}
			if err := p.FitModel(); err != nil {
				return err
			}
			return p.QualityDiagnostics()
		},
	}
}

func newContrastCmd(cfg *config.Config, newPipeline func() *pipeline.Pipeline) *cobra.Command {
	return &cobra.Command{
		Use:   "contrast",
		Short: "Extract one contrast and write its plots and reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.ValidateContrast(); err != nil {
				return err
			}
			p := newPipeline()
			if err := p.LoadCounts(); err != nil {
				return err
			}
			if err := p.FetchAnnotation(cmd.Context()); err != nil {
				return err
			}
			if err := p.FitModel(); err != nil {
				return err
			}
			if err := p.Contrast(); err != nil {
				return err
			}
			return p.Report()
		},
	}
}
