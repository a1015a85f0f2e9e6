// Package featurecounts loads the tab-separated feature-count tables
// produced by alignment pipelines: five metadata columns (identifier,
// chromosome, start, end, length) followed by one raw integer count
// column per sample, sample headers carrying alignment filenames.
package featurecounts

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"godeseq/domain/counts"
	"godeseq/internal/errors"
)

const metaColumns = 5

// sampleSuffixRe strips the alignment filename decoration from a sample
// header: an optional path prefix and optional .sorted/.markdup tokens
// before the fixed .bam extension.
var sampleSuffixRe = regexp.MustCompile(`^(?:.*/)?(.+?)(?:\.sorted)?(?:\.markdup)?\.bam$`)

// CleanSampleName reduces a count-table column header to the bare
// sample name. Headers without the .bam decoration pass through
// unchanged.
func CleanSampleName(header string) string {
	if m := sampleSuffixRe.FindStringSubmatch(header); m != nil {
		return m[1]
	}
	return header
}

// Load reads a feature-count table, cleans sample headers and filters
// out genes whose total count across samples is below minCount. Genes
// exactly at the threshold are retained. Returns the filtered table and
// the number of genes removed.
func Load(path string, minCount int) (*counts.Table, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "failed to open count table %s", path)
	}
	defer f.Close()

	tbl, err := parse(bufio.NewScanner(f))
	if err != nil {
		return nil, 0, errors.Wrapf(err, "count table %s", path)
	}

	filtered, dropped := tbl.FilterLowTotal(int64(minCount))
	return filtered, dropped, nil
}

// Parse reads the table without filtering; exposed separately so tests
// and tools can inspect the raw rows.
func Parse(path string) (*counts.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open count table %s", path)
	}
	defer f.Close()
	tbl, err := parse(bufio.NewScanner(f))
	if err != nil {
		return nil, errors.Wrapf(err, "count table %s", path)
	}
	return tbl, nil
}

func parse(scanner *bufio.Scanner) (*counts.Table, error) {
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	var header []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		header = strings.Split(line, "\t")
		break
	}
	if header == nil {
		return nil, errors.FileFormat("missing header row")
	}
	if len(header) < metaColumns+1 {
		return nil, errors.FileFormat(fmt.Sprintf(
			"header has %d columns; need %d metadata columns plus at least one sample", len(header), metaColumns))
	}

	tbl := &counts.Table{}
	for _, h := range header[metaColumns:] {
		tbl.Samples = append(tbl.Samples, CleanSampleName(h))
	}

	seen := make(map[string]bool)
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != len(header) {
			return nil, errors.FileFormat(fmt.Sprintf(
				"line %d has %d columns, expected %d", lineNo, len(fields), len(header)))
		}

		gene, err := parseGene(fields, lineNo)
		if err != nil {
			return nil, err
		}
		if seen[gene.ID] {
			return nil, errors.FileFormat(fmt.Sprintf(
				"duplicate gene identifier %q at line %d", gene.ID, lineNo))
		}
		seen[gene.ID] = true

		row := make([]int64, len(tbl.Samples))
		for j, field := range fields[metaColumns:] {
			c, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
			if err != nil {
				return nil, errors.FileFormat(fmt.Sprintf(
					"line %d: count for sample %s is not an integer: %q", lineNo, tbl.Samples[j], field))
			}
			row[j] = c
		}

		tbl.Genes = append(tbl.Genes, gene)
		tbl.Counts = append(tbl.Counts, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read count table")
	}
	if len(tbl.Genes) == 0 {
		return nil, errors.FileFormat("table has no data rows")
	}
	return tbl, nil
}

func parseGene(fields []string, lineNo int) (counts.Gene, error) {
	gene := counts.Gene{
		ID:  strings.TrimSpace(fields[0]),
		Chr: strings.TrimSpace(fields[1]),
	}
	if gene.ID == "" {
		return gene, errors.FileFormat(fmt.Sprintf("line %d: empty gene identifier", lineNo))
	}
	var err error
	if gene.Start, err = strconv.Atoi(strings.TrimSpace(fields[2])); err != nil {
		return gene, errors.FileFormat(fmt.Sprintf("line %d: bad start coordinate %q", lineNo, fields[2]))
	}
	if gene.End, err = strconv.Atoi(strings.TrimSpace(fields[3])); err != nil {
		return gene, errors.FileFormat(fmt.Sprintf("line %d: bad end coordinate %q", lineNo, fields[3]))
	}
	if gene.Length, err = strconv.Atoi(strings.TrimSpace(fields[4])); err != nil {
		return gene, errors.FileFormat(fmt.Sprintf("line %d: bad gene length %q", lineNo, fields[4]))
	}
	if gene.Length <= 0 {
		return gene, errors.FileFormat(fmt.Sprintf("line %d: gene length must be positive, got %d", lineNo, gene.Length))
	}
	return gene, nil
}
