package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"godeseq/internal/errors"
)

// Config represents the complete workflow configuration. It is built once
// at startup and threaded through every pipeline stage; no stage reads
// ambient state.
type Config struct {
	Paths        PathConfig
	Filter       FilterConfig
	Annotation   AnnotationConfig
	Contrast     ContrastConfig
	Significance SignificanceConfig
	Plot         PlotConfig
}

// PathConfig holds file system paths
type PathConfig struct {
	CountsFile string
	OutDir     string
	ModelFile  string
}

// FilterConfig holds count-table filtering settings
type FilterConfig struct {
	MinCount int
}

// AnnotationConfig holds annotation download settings
type AnnotationConfig struct {
	URL          string
	FetchTimeout time.Duration
}

// ContrastConfig names the pairwise comparison to analyze
type ContrastConfig struct {
	Factor    string
	Target    string
	Reference string
}

// SignificanceConfig holds the thresholds applied to contrast results
type SignificanceConfig struct {
	QValueCutoff float64
	LFCCutoff    float64
}

// PlotConfig holds axis clipping bounds for the volcano plot
type PlotConfig struct {
	VolcanoMaxLFC     float64
	VolcanoMaxNegLogQ float64
}

// Load reads configuration from environment variables and applies defaults.
// CLI flags override fields after Load returns.
func Load() *Config {
	return &Config{
		Paths: PathConfig{
			CountsFile: getEnvOrDefault("COUNTS_FILE", "counts.txt"),
			OutDir:     getEnvOrDefault("OUT_DIR", "."),
			ModelFile:  getEnvOrDefault("MODEL_FILE", "raw.dds.json"),
		},
		Filter: FilterConfig{
			MinCount: getEnvIntOrDefault("MIN_COUNT", 10),
		},
		Annotation: AnnotationConfig{
			URL:          getEnvOrDefault("ANNOTATION_URL", ""),
			FetchTimeout: getEnvDurationOrDefault("ANNOTATION_TIMEOUT", 30*time.Second),
		},
		Contrast: ContrastConfig{
			Factor:    getEnvOrDefault("CONTRAST_FACTOR", "condition"),
			Target:    getEnvOrDefault("CONTRAST_TARGET", ""),
			Reference: getEnvOrDefault("CONTRAST_REFERENCE", ""),
		},
		Significance: SignificanceConfig{
			QValueCutoff: getEnvFloatOrDefault("QVALUE_CUTOFF", 0.05),
			LFCCutoff:    getEnvFloatOrDefault("LFC_CUTOFF", 1.0),
		},
		Plot: PlotConfig{
			VolcanoMaxLFC:     getEnvFloatOrDefault("VOLCANO_MAX_LFC", 10),
			VolcanoMaxNegLogQ: getEnvFloatOrDefault("VOLCANO_MAX_NEGLOGQ", 50),
		},
	}
}

// Validate checks fields every stage depends on
func (c *Config) Validate() error {
	if c.Paths.CountsFile == "" {
		return errors.ConfigInvalid("counts file path is required")
	}
	if c.Filter.MinCount < 0 {
		return errors.ConfigInvalid("minimum count threshold must be non-negative")
	}
	if c.Significance.QValueCutoff <= 0 || c.Significance.QValueCutoff >= 1 {
		return errors.ConfigInvalid("q-value cutoff must be in (0, 1)")
	}
	if c.Significance.LFCCutoff < 0 {
		return errors.ConfigInvalid("log2 fold-change cutoff must be non-negative")
	}
	return nil
}

// ValidateContrast checks fields the contrast and report stages depend on
func (c *Config) ValidateContrast() error {
	if c.Contrast.Target == "" || c.Contrast.Reference == "" {
		return errors.ConfigInvalid("contrast target and reference levels are required")
	}
	if c.Contrast.Target == c.Contrast.Reference {
		return errors.ConfigInvalid("contrast target and reference must differ")
	}
	return nil
}

// ContrastName is the user-visible comparison name used in output filenames
func (c *Config) ContrastName() string {
	return fmt.Sprintf("%s_vs_%s", c.Contrast.Target, c.Contrast.Reference)
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
