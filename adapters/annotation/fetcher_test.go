package annotation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"godeseq/internal/errors"
)

const tabAnnotation = "gene_id\tgene_name\tdescription\n" +
	"ENSG01\tTP53\ttumor protein p53\n" +
	"ENSG02\tBRCA1\tbreast cancer type 1\n" +
	"ENSG03\t\t\n"

func TestParse(t *testing.T) {
	t.Run("tab delimited", func(t *testing.T) {
		tbl, err := Parse(strings.NewReader(tabAnnotation))
		if err != nil {
			t.Fatal(err)
		}
		if len(tbl.Columns) != 3 || len(tbl.Rows) != 3 {
			t.Fatalf("got %d columns, %d rows", len(tbl.Columns), len(tbl.Rows))
		}
		row, ok := tbl.Lookup("ENSG01")
		if !ok || row[1] != "TP53" || row[2] != "tumor protein p53" {
			t.Errorf("Lookup(ENSG01) = %v, %v", row, ok)
		}
	})

	t.Run("whitespace delimited", func(t *testing.T) {
		tbl, err := Parse(strings.NewReader("gene_id  gene_name\nENSG01   TP53\n"))
		if err != nil {
			t.Fatal(err)
		}
		if tbl.DisplayName("ENSG01") != "TP53" {
			t.Errorf("DisplayName = %q", tbl.DisplayName("ENSG01"))
		}
	})

	t.Run("display name falls back to identifier", func(t *testing.T) {
		tbl, err := Parse(strings.NewReader(tabAnnotation))
		if err != nil {
			t.Fatal(err)
		}
		if got := tbl.DisplayName("ENSG03"); got != "ENSG03" {
			t.Errorf("empty name should fall back to the identifier, got %q", got)
		}
		if got := tbl.DisplayName("unknown"); got != "unknown" {
			t.Errorf("unannotated gene should fall back to the identifier, got %q", got)
		}
	})

	t.Run("short rows are padded", func(t *testing.T) {
		tbl, err := Parse(strings.NewReader("gene_id\tgene_name\tdescription\nENSG01\tTP53\n"))
		if err != nil {
			t.Fatal(err)
		}
		row, _ := tbl.Lookup("ENSG01")
		if len(row) != 3 || row[2] != "" {
			t.Errorf("short row not padded: %v", row)
		}
	})

	t.Run("overflowing row is a parse error", func(t *testing.T) {
		_, err := Parse(strings.NewReader("gene_id\tgene_name\nENSG01\tTP53\textra\n"))
		if err == nil || errors.GetCode(err) != errors.CodeParse {
			t.Errorf("expected PARSE error, got %v", err)
		}
	})

	t.Run("empty input is a parse error", func(t *testing.T) {
		_, err := Parse(strings.NewReader(""))
		if err == nil || errors.GetCode(err) != errors.CodeParse {
			t.Errorf("expected PARSE error, got %v", err)
		}
	})

	t.Run("single column header is a parse error", func(t *testing.T) {
		_, err := Parse(strings.NewReader("gene_id\nENSG01\n"))
		if err == nil || errors.GetCode(err) != errors.CodeParse {
			t.Errorf("expected PARSE error, got %v", err)
		}
	})
}

func TestFetch(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(tabAnnotation))
		}))
		defer srv.Close()

		tbl, err := Fetch(context.Background(), srv.URL, 5*time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if len(tbl.Rows) != 3 {
			t.Errorf("got %d rows, want 3", len(tbl.Rows))
		}
	})

	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		_, err := Fetch(context.Background(), srv.URL, 5*time.Second)
		if err == nil || errors.GetCode(err) != errors.CodeNetwork {
			t.Errorf("expected NETWORK error, got %v", err)
		}
	})

	t.Run("unreachable host", func(t *testing.T) {
		_, err := Fetch(context.Background(), "http://127.0.0.1:1/annotation.tsv", time.Second)
		if err == nil || errors.GetCode(err) != errors.CodeNetwork {
			t.Errorf("expected NETWORK error, got %v", err)
		}
	})

	t.Run("malformed body is a parse error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("gene_id\n"))
		}))
		defer srv.Close()

		_, err := Fetch(context.Background(), srv.URL, 5*time.Second)
		if err == nil || errors.GetCode(err) != errors.CodeParse {
			t.Errorf("expected PARSE error, got %v", err)
		}
	})
}
