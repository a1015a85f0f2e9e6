// Package annotation fetches and parses the gene-annotation table the
// report stages join against. The table is a plain-text, tab- or
// whitespace-delimited file with a header row; the first column is the
// gene identifier, the second its display name.
package annotation

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"godeseq/internal/errors"
)

// Table is the parsed annotation: read-only for every downstream
// consumer. Rows keep file order; the first column is the join key.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// Lookup returns the annotation row for a gene identifier
func (t *Table) Lookup(geneID string) ([]string, bool) {
	i, ok := t.index[geneID]
	if !ok {
		return nil, false
	}
	return t.Rows[i], true
}

// DisplayName returns the gene's display name (second column), falling
// back to the identifier itself when the gene is not annotated.
func (t *Table) DisplayName(geneID string) string {
	row, ok := t.Lookup(geneID)
	if !ok || len(row) < 2 || row[1] == "" {
		return geneID
	}
	return row[1]
}

// GeneIDs returns the join-key column in file order
func (t *Table) GeneIDs() []string {
	ids := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		ids[i] = row[0]
	}
	return ids
}

// Fetch downloads the annotation table from url into a temporary file
// and parses it. Single attempt; the only hardening is the client
// timeout. The temporary file is removed on every exit path.
func Fetch(ctx context.Context, url string, timeout time.Duration) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Network(fmt.Sprintf("invalid annotation URL %s", url), err)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Network(fmt.Sprintf("failed to fetch annotation from %s", url), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Network(fmt.Sprintf(
			"annotation fetch from %s returned status %s", url, resp.Status), nil)
	}

	tmp, err := os.CreateTemp("", "annotation-*.tsv")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temporary annotation file")
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		return nil, errors.Network(fmt.Sprintf("failed to download annotation from %s", url), err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "failed to rewind temporary annotation file")
	}

	return Parse(tmp)
}

// ParseFile parses a local annotation file
func ParseFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open annotation file %s", path)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads an annotation table from r. Tab-delimited when the header
// contains a tab, otherwise whitespace-delimited. Short rows are padded
// with empty fields; rows wider than the header are a ParseError.
func Parse(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var header []string
	tabbed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		tabbed = strings.Contains(line, "\t")
		header = splitRow(line, tabbed)
		break
	}
	if header == nil {
		return nil, errors.Parse("annotation is empty: missing header row")
	}
	if len(header) < 2 {
		return nil, errors.Parse(fmt.Sprintf(
			"annotation header has %d columns; need at least a gene identifier and a name", len(header)))
	}

	t := &Table{Columns: header, index: make(map[string]int)}
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitRow(line, tabbed)
		if len(fields) > len(header) {
			return nil, errors.Parse(fmt.Sprintf(
				"annotation line %d has %d fields, header has %d", lineNo, len(fields), len(header)))
		}
		for len(fields) < len(header) {
			fields = append(fields, "")
		}
		if fields[0] == "" {
			return nil, errors.Parse(fmt.Sprintf("annotation line %d: empty gene identifier", lineNo))
		}
		if _, dup := t.index[fields[0]]; dup {
			// keep the first occurrence, matching left-join semantics
			continue
		}
		t.index[fields[0]] = len(t.Rows)
		t.Rows = append(t.Rows, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithCode(errors.CodeParse, err)
	}
	if len(t.Rows) == 0 {
		return nil, errors.Parse("annotation has a header but no data rows")
	}
	return t, nil
}

func splitRow(line string, tabbed bool) []string {
	if tabbed {
		return strings.Split(line, "\t")
	}
	return strings.Fields(line)
}
