package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nao1215/campuscrawl/internal/urlcanon"
)

// DedupEntry is one admitted item of a dedup namespace.
type DedupEntry struct {
	Key urlcanon.Key
	URL string

	// Fingerprint is nil for entries admitted by key only.
	Fingerprint *uint64
}

// LoadDedupEntries returns every entry of namespace in insertion order.
func (cdb *CrawlDB) LoadDedupEntries(ctx context.Context, namespace string) ([]DedupEntry, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT identity_key, url, fingerprint FROM dedup_entries
	WHERE namespace = ?
	ORDER BY rowid
	`, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to load dedup entries: %w", err)
	}
	defer rows.Close()

	var entries []DedupEntry
	for rows.Next() {
		var entry DedupEntry
		var key []byte
		var fp sql.NullInt64
		if err := rows.Scan(&key, &entry.URL, &fp); err != nil {
			return nil, fmt.Errorf("failed to scan dedup entry: %w", err)
		}
		if entry.Key, err = urlcanon.KeyFromBytes(key); err != nil {
			return nil, fmt.Errorf("corrupt dedup entry for %s: %w", entry.URL, err)
		}
		if fp.Valid {
			v := uint64(fp.Int64)
			entry.Fingerprint = &v
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// InsertDedupEntry persists an admitted entry. SQLite integers are signed,
// so the fingerprint is stored with the same bits as an int64.
func (cdb *CrawlDB) InsertDedupEntry(ctx context.Context, namespace string, entry DedupEntry) error {
	var fp any
	if entry.Fingerprint != nil {
		fp = int64(*entry.Fingerprint)
	}

	_, err := cdb.db.ExecContext(ctx, `
	INSERT INTO dedup_entries (namespace, identity_key, url, fingerprint)
	VALUES (?, ?, ?, ?)
	`, namespace, entry.Key[:], entry.URL, fp)
	if err != nil {
		return fmt.Errorf("failed to insert dedup entry: %w", err)
	}
	return nil
}

// DeleteDedupEntry removes the entry for key from namespace. A missing
// entry is not an error.
func (cdb *CrawlDB) DeleteDedupEntry(ctx context.Context, namespace string, key urlcanon.Key) error {
	_, err := cdb.db.ExecContext(ctx,
		`DELETE FROM dedup_entries WHERE namespace = ? AND identity_key = ?`,
		namespace, key[:],
	)
	if err != nil {
		return fmt.Errorf("failed to delete dedup entry: %w", err)
	}
	return nil
}

// CountDedupEntries returns the number of entries in namespace.
func (cdb *CrawlDB) CountDedupEntries(ctx context.Context, namespace string) (int, error) {
	var n int
	err := cdb.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dedup_entries WHERE namespace = ?`, namespace,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count dedup entries: %w", err)
	}
	return n, nil
}
