// Package design infers the experimental design from sample column
// names. Labels drive model fitting, so the parsing rules are a
// contract:
//
//   - batch: the first case-insensitive "batch" token followed by
//     digits (optionally preceded by '.', '_' or '-') yields the batch
//     number. No token means every sample belongs to implicit batch "1".
//   - condition: the sample name with the batch token (and separators
//     left dangling by its removal) stripped, then the entire trailing
//     run of numeric suffixes (each optionally preceded by '.', '_' or
//     '-') stripped, so a condition never ends in digits.
//
// Inference is idempotent: deriving labels from an already-derived
// condition name yields the same condition.
package design

import (
	"regexp"
	"strings"
)

// Sample pairs a count-table column with its inferred factor levels
type Sample struct {
	Name      string
	Condition string
	Batch     string
}

var (
	batchRe     = regexp.MustCompile(`(?i)[._-]?batch(\d+)`)
	replicateRe = regexp.MustCompile(`(?:[._-]?\d+)+$`)
)

// Infer derives condition and batch labels for every sample name,
// preserving input order. One entry is returned per name.
func Infer(names []string) []Sample {
	samples := make([]Sample, len(names))
	for i, name := range names {
		cond, batch := InferOne(name)
		samples[i] = Sample{Name: name, Condition: cond, Batch: batch}
	}
	return samples
}

// InferOne parses a single sample name into (condition, batch)
func InferOne(name string) (condition, batch string) {
	batch = "1"
	rest := name
	if m := batchRe.FindStringSubmatch(rest); m != nil {
		batch = m[1]
		rest = strings.Trim(batchRe.ReplaceAllString(rest, ""), "._-")
	}
	condition = replicateRe.ReplaceAllString(rest, "")
	if condition == "" {
		condition = rest
	}
	return condition, batch
}

// ConditionLevels returns the distinct condition labels in first
// appearance order, for use as categorical factor levels.
func ConditionLevels(samples []Sample) []string {
	seen := make(map[string]bool)
	var levels []string
	for _, s := range samples {
		if !seen[s.Condition] {
			seen[s.Condition] = true
			levels = append(levels, s.Condition)
		}
	}
	return levels
}

// BatchLevels returns the distinct batch labels in first appearance order
func BatchLevels(samples []Sample) []string {
	seen := make(map[string]bool)
	var levels []string
	for _, s := range samples {
		if !seen[s.Batch] {
			seen[s.Batch] = true
			levels = append(levels, s.Batch)
		}
	}
	return levels
}
