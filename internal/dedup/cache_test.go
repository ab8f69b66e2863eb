package dedup

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nao1215/campuscrawl/internal/database"
	"github.com/nao1215/campuscrawl/internal/urlcanon"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu      sync.Mutex
	entries map[string][]database.DedupEntry
	failOn  string
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string][]database.DedupEntry)}
}

func (m *memStore) LoadDedupEntries(_ context.Context, namespace string) ([]database.DedupEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]database.DedupEntry(nil), m.entries[namespace]...), nil
}

func (m *memStore) InsertDedupEntry(_ context.Context, namespace string, entry database.DedupEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != "" && entry.URL == m.failOn {
		return errors.New("disk full")
	}
	m.entries[namespace] = append(m.entries[namespace], entry)
	return nil
}

func (m *memStore) DeleteDedupEntry(_ context.Context, namespace string, k urlcanon.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[namespace] = slices.DeleteFunc(m.entries[namespace], func(e database.DedupEntry) bool {
		return e.Key == k
	})
	return nil
}

func fp(v uint64) *uint64 { return &v }

func key(s string) urlcanon.Key { return urlcanon.LedgerKey(s) }

// TestCheckAndRecord tests exact and near-duplicate detection.
func TestCheckAndRecord(t *testing.T) {
	t.Parallel()

	t.Run("near duplicates of the first page are rejected", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		c, err := New(ctx, newMemStore(), NamespacePages)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		base := uint64(0xAAAA_AAAA_AAAA_AAAA)
		pages := []struct {
			fp   uint64
			seen bool
		}{
			{fp: base, seen: false},                         // 1
			{fp: ^base, seen: false},                        // 2
			{fp: base ^ 0b111, seen: true},                  // 3: distance 3 from 1
			{fp: base ^ 0xFFFF_0000, seen: false},           // 4: distance 16 from 1
			{fp: ^base ^ 0xFFFF_0000_0000, seen: false},     // 5: distance 16 from 2
			{fp: base ^ 0xFF00_0000_0000_00FF, seen: false}, // 6: distance 16 from 1
			{fp: base ^ 0x1FF, seen: true},                  // 7: distance 9 from 1
		}

		var admitted []int
		for i, p := range pages {
			n := i + 1
			seen, err := c.CheckAndRecord(ctx, key(fmt.Sprintf("page-%d", n)), fp(p.fp), fmt.Sprintf("https://www.ics.uci.edu/%d", n))
			if err != nil {
				t.Fatalf("page %d: unexpected error: %v", n, err)
			}
			if seen != p.seen {
				t.Errorf("page %d: seen = %v, want %v", n, seen, p.seen)
			}
			if !seen {
				admitted = append(admitted, n)
			}
		}

		want := []int{1, 2, 4, 5, 6}
		if fmt.Sprint(admitted) != fmt.Sprint(want) {
			t.Errorf("admitted %v, want %v", admitted, want)
		}
		if c.Len() != len(want) {
			t.Errorf("Len = %d, want %d", c.Len(), len(want))
		}
	})

	t.Run("exact key match wins before the fingerprint scan", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		c, err := New(ctx, newMemStore(), NamespacePages)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen, _ := c.CheckAndRecord(ctx, key("a"), fp(0), "https://www.cs.uci.edu/a"); seen {
			t.Fatal("first page should be admitted")
		}
		if seen, _ := c.CheckAndRecord(ctx, key("a"), fp(^uint64(0)), "https://www.cs.uci.edu/a?utm_source=x"); !seen {
			t.Error("same key with a distant fingerprint should be a duplicate")
		}
	})

	t.Run("threshold is strict and configurable", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		c, err := New(ctx, newMemStore(), NamespacePages, WithThreshold(4))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, _ = c.CheckAndRecord(ctx, key("a"), fp(0), "a")
		if seen, _ := c.CheckAndRecord(ctx, key("b"), fp(0b1111), "b"); seen {
			t.Error("distance 4 should not be a duplicate at threshold 4")
		}
		if seen, _ := c.CheckAndRecord(ctx, key("c"), fp(0b111), "c"); !seen {
			t.Error("distance 3 should be a duplicate at threshold 4")
		}
	})

	t.Run("nil fingerprint only matches by key", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		c, err := New(ctx, newMemStore(), NamespaceLinks)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen, _ := c.CheckURL(ctx, key("x"), "x"); seen {
			t.Error("first link should be admitted")
		}
		if seen, _ := c.CheckURL(ctx, key("y"), "y"); seen {
			t.Error("different link should be admitted")
		}
		if seen, _ := c.CheckURL(ctx, key("x"), "x"); !seen {
			t.Error("repeated link should be a duplicate")
		}
	})

	t.Run("persistence failure does not admit", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := newMemStore()
		store.failOn = "bad"
		c, err := New(ctx, store, NamespaceLinks)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := c.CheckURL(ctx, key("bad"), "bad"); err == nil {
			t.Fatal("expected error")
		}
		store.mu.Lock()
		store.failOn = ""
		store.mu.Unlock()
		seen, err := c.CheckURL(ctx, key("bad"), "bad")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen {
			t.Error("failed insert must not count as seen")
		}
	})
}

// TestCheckAndRecord_Concurrent tests at-most-once admission under contention.
func TestCheckAndRecord_Concurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, err := New(ctx, newMemStore(), NamespacePages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// distinct keys, fingerprints within distance 1 of each other
			seen, err := c.CheckAndRecord(ctx, key(fmt.Sprintf("k%d", i)), fp(uint64(i%2)), "u")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if !seen {
				admitted.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if got := admitted.Load(); got != 1 {
		t.Errorf("expected exactly one admission, got %d", got)
	}
}

// TestLookupAndForget tests withdrawing an admitted entry.
func TestLookupAndForget(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newMemStore()
	c, err := New(ctx, store, NamespacePages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url := "https://www.ics.uci.edu/a"
	if _, err := c.CheckAndRecord(ctx, key("a"), fp(0xF0F0), url); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := c.Lookup(key("a")); !ok || got != url {
		t.Errorf("Lookup = %q, %v; want %q, true", got, ok, url)
	}

	if err := c.Forget(ctx, key("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.Lookup(key("a")); ok {
		t.Error("forgotten key is still admitted")
	}
	if entries, _ := store.LoadDedupEntries(ctx, NamespacePages); len(entries) != 0 {
		t.Errorf("forgotten entry is still stored: %v", entries)
	}

	// the fingerprint is gone too
	seen, err := c.CheckAndRecord(ctx, key("b"), fp(0xF0F0), "https://www.ics.uci.edu/b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen {
		t.Error("forgotten fingerprint still matches")
	}

	if err := c.Forget(ctx, key("missing")); err != nil {
		t.Errorf("forgetting an unknown key should succeed, got %v", err)
	}
}

// TestNew_WarmStart tests that entries survive a reopen of the database.
func TestNew_WarmStart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	c, err := New(ctx, db, NamespacePages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.CheckAndRecord(ctx, key("p"), fp(0xDEAD_BEEF), "https://www.stat.uci.edu/p"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.CheckURL(ctx, key("q"), "https://www.stat.uci.edu/q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	db.Close()

	db, err = database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	defer db.Close()

	c, err = New(ctx, db, NamespacePages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries after reopen, got %d", c.Len())
	}
	seen, err := c.CheckAndRecord(ctx, key("other"), fp(0xDEAD_BEEF^1), "https://www.stat.uci.edu/other")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !seen {
		t.Error("expected near duplicate of a reloaded fingerprint")
	}

	links, err := New(ctx, db, NamespaceLinks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if links.Len() != 0 {
		t.Errorf("namespaces must be independent, got %d link entries", links.Len())
	}
}
