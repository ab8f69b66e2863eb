package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/campuscrawl/internal/database"
	"github.com/nao1215/campuscrawl/internal/urlcanon"
)

// setupReportDB creates a database with two completed pages.
func setupReportDB(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	ctx := context.Background()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	for _, u := range []string{"https://www.ics.uci.edu/", "https://vision.ics.uci.edu/"} {
		key := urlcanon.LedgerKey(u)
		domain, _ := urlcanon.Domain(u)
		if _, err := db.InsertURL(ctx, key, u, domain); err != nil {
			t.Fatalf("failed to insert url: %v", err)
		}
		if _, err := db.MarkComplete(ctx, key, u, domain); err != nil {
			t.Fatalf("failed to complete url: %v", err)
		}
	}
	if err := db.AddWordCounts(ctx, map[string]int{"machine": 4, "learning": 2}); err != nil {
		t.Fatalf("failed to add words: %v", err)
	}
	return dir
}

// executeReport runs the report command with args.
func executeReport(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := NewReportCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// TestReportCmd tests the report command end to end.
func TestReportCmd(t *testing.T) {
	t.Parallel()

	t.Run("text report", func(t *testing.T) {
		t.Parallel()
		out, err := executeReport(t, "--db-dir", setupReportDB(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"CAMPUSCRAWL REPORT", "machine", "vision.ics.uci.edu, 1", "www.ics.uci.edu, 1"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("json report to file is echoed as text", func(t *testing.T) {
		t.Parallel()
		outPath := filepath.Join(t.TempDir(), "reports", "crawl.json")
		out, err := executeReport(t, "--db-dir", setupReportDB(t), "--json", "-o", outPath, "-n", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "CAMPUSCRAWL REPORT") {
			t.Errorf("expected text echo on stdout, got %q", out)
		}

		data, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatalf("failed to read report file: %v", err)
		}
		var decoded struct {
			CompletedURLs int `json:"completedUrls"`
			TopWords      []struct {
				Word string `json:"word"`
			} `json:"topWords"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.CompletedURLs != 2 || len(decoded.TopWords) != 1 || decoded.TopWords[0].Word != "machine" {
			t.Errorf("unexpected report %+v", decoded)
		}
	})

	t.Run("quiet suppresses the echo", func(t *testing.T) {
		t.Parallel()
		outPath := filepath.Join(t.TempDir(), "crawl.md")
		out, err := executeReport(t, "--db-dir", setupReportDB(t), "--markdown", "-o", outPath, "-q")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out != "" {
			t.Errorf("expected no stdout output, got %q", out)
		}
		data, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatalf("failed to read report file: %v", err)
		}
		if !strings.Contains(string(data), "# Crawl Report") {
			t.Errorf("expected markdown report, got %s", data)
		}
	})

	t.Run("json and markdown are mutually exclusive", func(t *testing.T) {
		t.Parallel()
		if _, err := executeReport(t, "--db-dir", setupReportDB(t), "--json", "--markdown"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("missing database", func(t *testing.T) {
		t.Parallel()
		_, err := executeReport(t, "--db-dir", t.TempDir())
		if err == nil || !strings.Contains(err.Error(), "database not found") {
			t.Errorf("expected missing database error, got %v", err)
		}
	})

	t.Run("invalid top", func(t *testing.T) {
		t.Parallel()
		if _, err := executeReport(t, "--db-dir", setupReportDB(t), "--top", "0"); err == nil {
			t.Error("expected error for --top 0")
		}
	})
}
