package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/campuscrawl/internal/urlcanon"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*CrawlDB, func()) {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return db, cleanup
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		dbPath := filepath.Join(dbDir, FileName)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != dbPath {
			t.Errorf("expected Path %q, got %q", dbPath, db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err == nil {
			t.Fatal("expected error when CreateIfNotExists=false and database does not exist")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("expected informative error, got %q", err.Error())
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created when CreateIfNotExists=false")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "existing-db")
		ctx := context.Background()

		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		key := urlcanon.LedgerKey("https://www.ics.uci.edu/")
		if _, err := db1.InsertURL(ctx, key, "https://www.ics.uci.edu/", "www.ics.uci.edu"); err != nil {
			t.Fatalf("failed to insert url: %v", err)
		}
		db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open existing database: %v", err)
		}
		defer db2.Close()

		ok, err := db2.HasURL(ctx, key)
		if err != nil {
			t.Fatalf("failed to look up url: %v", err)
		}
		if !ok {
			t.Error("expected url to persist across reopen")
		}
	})
}

// TestRemove tests that restart mode can discard the database.
func TestRemove(t *testing.T) {
	t.Parallel()

	t.Run("removes database and companions", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		db.Close()

		if err := Remove(dir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, FileName)); !os.IsNotExist(err) {
			t.Error("database file should be gone")
		}
	})

	t.Run("missing database is not an error", func(t *testing.T) {
		t.Parallel()
		if err := Remove(t.TempDir()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

// TestDefaultOptions tests the default options values.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true by default")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true by default")
	}
}

// TestLedger tests URL ledger operations.
func TestLedger(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	const (
		urlA = "https://www.ics.uci.edu/a"
		urlB = "https://www.ics.uci.edu/b"
		urlC = "https://vision.ics.uci.edu/c"
	)
	keyA := urlcanon.LedgerKey(urlA)
	keyB := urlcanon.LedgerKey(urlB)
	keyC := urlcanon.LedgerKey(urlC)

	t.Run("insert is at most once", func(t *testing.T) {
		inserted, err := db.InsertURL(ctx, keyA, urlA, "www.ics.uci.edu")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !inserted {
			t.Error("expected first insert to succeed")
		}
		inserted, err = db.InsertURL(ctx, keyA, urlA, "www.ics.uci.edu")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if inserted {
			t.Error("expected second insert to be ignored")
		}
		if _, err := db.InsertURL(ctx, keyB, urlB, "www.ics.uci.edu"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("mark complete moves url out of pending", func(t *testing.T) {
		found, err := db.MarkComplete(ctx, keyA, urlA, "www.ics.uci.edu")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !found {
			t.Error("expected known url to be found")
		}

		pending, err := db.PendingURLs(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pending) != 1 || pending[0].URL != urlB || pending[0].Key != keyB {
			t.Errorf("expected only %s pending, got %+v", urlB, pending)
		}
	})

	t.Run("completed url is not reset by a later insert", func(t *testing.T) {
		if _, err := db.InsertURL(ctx, keyA, urlA, "www.ics.uci.edu"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		counts, err := db.CountURLs(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if counts.Completed != 1 {
			t.Errorf("expected 1 completed url, got %+v", counts)
		}
		pending, err := db.PendingURLs(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, rec := range pending {
			if rec.URL == urlA {
				t.Errorf("%s was reset to pending", urlA)
			}
		}
	})

	t.Run("mark complete of unknown url inserts it", func(t *testing.T) {
		found, err := db.MarkComplete(ctx, keyC, urlC, "vision.ics.uci.edu")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found {
			t.Error("expected unknown url to be reported as not found")
		}
		ok, err := db.HasURL(ctx, keyC)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Error("expected url to be persisted")
		}
	})

	t.Run("counts", func(t *testing.T) {
		counts, err := db.CountURLs(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if counts.Total != 3 || counts.Completed != 2 {
			t.Errorf("expected 3 total and 2 completed, got %+v", counts)
		}
	})

	t.Run("completed by domain", func(t *testing.T) {
		counts, err := db.CompletedByDomain(ctx, "ics.uci.edu")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(counts) != 2 {
			t.Fatalf("expected 2 domains, got %+v", counts)
		}
		if counts[0].Domain != "vision.ics.uci.edu" || counts[0].Pages != 1 {
			t.Errorf("unexpected first domain %+v", counts[0])
		}
		if counts[1].Domain != "www.ics.uci.edu" || counts[1].Pages != 1 {
			t.Errorf("unexpected second domain %+v", counts[1])
		}
	})

	t.Run("for each key visits every row", func(t *testing.T) {
		seen := make(map[urlcanon.Key]bool)
		if err := db.ForEachURLKey(ctx, func(k urlcanon.Key) { seen[k] = true }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(seen) != 3 || !seen[keyA] || !seen[keyB] || !seen[keyC] {
			t.Errorf("unexpected keys: %d", len(seen))
		}
	})
}

// TestDedupEntries tests persistence of dedup namespaces.
func TestDedupEntries(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	high := uint64(0xF000_0000_0000_0001)

	entries := []DedupEntry{
		{Key: urlcanon.LedgerKey("p1"), URL: "https://www.ics.uci.edu/1", Fingerprint: &high},
		{Key: urlcanon.LedgerKey("p2"), URL: "https://www.ics.uci.edu/2"},
	}
	for _, e := range entries {
		if err := db.InsertDedupEntry(ctx, "pages", e); err != nil {
			t.Fatalf("failed to insert entry: %v", err)
		}
	}
	if err := db.InsertDedupEntry(ctx, "links", DedupEntry{Key: urlcanon.LedgerKey("p1"), URL: "https://www.ics.uci.edu/1"}); err != nil {
		t.Fatalf("same key in another namespace should be allowed: %v", err)
	}

	t.Run("duplicate key in a namespace is rejected", func(t *testing.T) {
		if err := db.InsertDedupEntry(ctx, "pages", entries[0]); err == nil {
			t.Error("expected primary key violation")
		}
	})

	t.Run("load preserves fingerprints and order", func(t *testing.T) {
		loaded, err := db.LoadDedupEntries(ctx, "pages")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(loaded) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(loaded))
		}
		if loaded[0].Fingerprint == nil || *loaded[0].Fingerprint != high {
			t.Errorf("fingerprint did not survive storage: %v", loaded[0].Fingerprint)
		}
		if loaded[1].Fingerprint != nil {
			t.Errorf("expected nil fingerprint, got %d", *loaded[1].Fingerprint)
		}
		if loaded[1].Key != entries[1].Key {
			t.Error("key did not survive storage")
		}
	})

	t.Run("count per namespace", func(t *testing.T) {
		n, err := db.CountDedupEntries(ctx, "links")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 link entry, got %d", n)
		}
	})

	t.Run("delete touches one namespace only", func(t *testing.T) {
		if err := db.DeleteDedupEntry(ctx, "links", urlcanon.LedgerKey("p1")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n, _ := db.CountDedupEntries(ctx, "links"); n != 0 {
			t.Errorf("expected no link entries, got %d", n)
		}
		if n, _ := db.CountDedupEntries(ctx, "pages"); n != 2 {
			t.Errorf("expected 2 page entries, got %d", n)
		}
		if err := db.DeleteDedupEntry(ctx, "links", urlcanon.LedgerKey("absent")); err != nil {
			t.Errorf("deleting a missing entry should succeed, got %v", err)
		}
	})
}

// TestWords tests the word-frequency store.
func TestWords(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("counts accumulate across pages", func(t *testing.T) {
		if err := db.AddWordCounts(ctx, map[string]int{"research": 3, "faculty": 1}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := db.AddWordCounts(ctx, map[string]int{"research": 2, "students": 4}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := db.AddWordCounts(ctx, nil); err != nil {
			t.Fatalf("empty map should be a no-op: %v", err)
		}

		top, err := db.TopWords(ctx, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(top) != 2 {
			t.Fatalf("expected 2 words, got %+v", top)
		}
		if top[0].Word != "research" || top[0].Count != 5 {
			t.Errorf("unexpected top word %+v", top[0])
		}
		if top[1].Word != "students" || top[1].Count != 4 {
			t.Errorf("unexpected second word %+v", top[1])
		}
	})

	t.Run("richest page keeps the maximum", func(t *testing.T) {
		rp, err := db.Richest(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rp != nil {
			t.Fatalf("expected no richest page yet, got %+v", rp)
		}

		steps := []struct {
			url     string
			words   int
			changed bool
		}{
			{url: "https://www.ics.uci.edu/a", words: 120, changed: true},
			{url: "https://www.ics.uci.edu/b", words: 80, changed: false},
			{url: "https://www.ics.uci.edu/c", words: 120, changed: false},
			{url: "https://www.ics.uci.edu/d", words: 300, changed: true},
		}
		for _, s := range steps {
			changed, err := db.UpdateRichest(ctx, s.url, s.words)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if changed != s.changed {
				t.Errorf("UpdateRichest(%s, %d) changed = %v, want %v", s.url, s.words, changed, s.changed)
			}
		}

		rp, err = db.Richest(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rp == nil || rp.URL != "https://www.ics.uci.edu/d" || rp.WordCount != 300 {
			t.Errorf("unexpected richest page %+v", rp)
		}
	})
}

// TestRuns tests run bookkeeping.
func TestRuns(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	id, err := db.StartRun(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatal("expected run id")
	}

	if err := db.FinishRun(ctx, id, 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := db.FinishRun(ctx, "no-such-run", 1); err == nil {
		t.Error("expected error for unknown run")
	}

	runs, err := db.ListRuns(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.ID != id || run.Pages != 42 {
		t.Errorf("unexpected run %+v", run)
	}
	if run.StartedAt.IsZero() || run.FinishedAt.IsZero() {
		t.Errorf("expected timestamps, got %+v", run)
	}
	if time.Since(run.StartedAt) > time.Hour {
		t.Errorf("start time looks wrong: %v", run.StartedAt)
	}
}

// TestParseTimestamp tests timestamp parsing with multiple formats.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		zero  bool
	}{
		{name: "SQLite default", input: "2024-03-15 10:30:00"},
		{name: "RFC3339", input: "2024-03-15T10:30:00Z"},
		{name: "RFC3339Nano", input: "2024-03-15T10:30:00.123456789Z"},
		{name: "garbage", input: "yesterday", zero: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := parseTimestamp(tt.input)
			if got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q) = %v", tt.input, got)
			}
		})
	}
}
