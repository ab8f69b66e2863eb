package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nao1215/campuscrawl/internal/urlcanon"
)

// URLRecord is one row of the URL ledger.
type URLRecord struct {
	Key       urlcanon.Key
	URL       string
	Domain    string
	Completed bool
}

// HasURL reports whether the ledger contains key.
func (cdb *CrawlDB) HasURL(ctx context.Context, key urlcanon.Key) (bool, error) {
	var one int
	err := cdb.db.QueryRowContext(ctx, `SELECT 1 FROM urls WHERE url_hash = ?`, key[:]).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up url: %w", err)
	}
	return true, nil
}

// InsertURL records a newly discovered URL as not completed.
// It returns false when the key was already in the ledger; the existing row
// is left untouched.
func (cdb *CrawlDB) InsertURL(ctx context.Context, key urlcanon.Key, url, domain string) (bool, error) {
	result, err := cdb.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO urls (url_hash, url, domain, completed) VALUES (?, ?, ?, 0)`,
		key[:], url, domain,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert url: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert url: %w", err)
	}
	return n > 0, nil
}

// MarkComplete sets completed for key. If the key was never discovered a
// completed row is inserted and found is false.
func (cdb *CrawlDB) MarkComplete(ctx context.Context, key urlcanon.Key, url, domain string) (found bool, err error) {
	result, err := cdb.db.ExecContext(ctx, `UPDATE urls SET completed = 1 WHERE url_hash = ?`, key[:])
	if err != nil {
		return false, fmt.Errorf("failed to mark url complete: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark url complete: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	_, err = cdb.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO urls (url_hash, url, domain, completed) VALUES (?, ?, ?, 1)`,
		key[:], url, domain,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert completed url: %w", err)
	}
	return false, nil
}

// PendingURLs returns every ledger row that has not been completed, in
// discovery order.
func (cdb *CrawlDB) PendingURLs(ctx context.Context) ([]URLRecord, error) {
	return cdb.queryURLs(ctx, `
	SELECT url_hash, url, domain, completed FROM urls
	WHERE completed = 0
	ORDER BY rowid
	`)
}

func (cdb *CrawlDB) queryURLs(ctx context.Context, query string) ([]URLRecord, error) {
	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query urls: %w", err)
	}
	defer rows.Close()

	var records []URLRecord
	for rows.Next() {
		var rec URLRecord
		var hash []byte
		if err := rows.Scan(&hash, &rec.URL, &rec.Domain, &rec.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		if rec.Key, err = urlcanon.KeyFromBytes(hash); err != nil {
			return nil, fmt.Errorf("corrupt ledger row for %s: %w", rec.URL, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ForEachURLKey calls fn with the key of every ledger row.
func (cdb *CrawlDB) ForEachURLKey(ctx context.Context, fn func(urlcanon.Key)) error {
	rows, err := cdb.db.QueryContext(ctx, `SELECT url_hash FROM urls`)
	if err != nil {
		return fmt.Errorf("failed to query url keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hash []byte
		if err := rows.Scan(&hash); err != nil {
			return fmt.Errorf("failed to scan url key: %w", err)
		}
		key, err := urlcanon.KeyFromBytes(hash)
		if err != nil {
			return fmt.Errorf("corrupt ledger key: %w", err)
		}
		fn(key)
	}
	return rows.Err()
}

// URLCounts summarizes the ledger.
type URLCounts struct {
	Total     int
	Completed int
}

// CountURLs returns the number of ledger rows and how many are completed.
func (cdb *CrawlDB) CountURLs(ctx context.Context) (URLCounts, error) {
	var c URLCounts
	err := cdb.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(completed), 0) FROM urls`,
	).Scan(&c.Total, &c.Completed)
	if err != nil {
		return URLCounts{}, fmt.Errorf("failed to count urls: %w", err)
	}
	return c, nil
}

// DomainCount is the number of completed URLs under one host.
type DomainCount struct {
	Domain string `json:"domain"`
	Pages  int    `json:"pages"`
}

// CompletedByDomain returns per-host counts of completed URLs whose host is
// suffix or a subdomain of it, ordered by host name.
func (cdb *CrawlDB) CompletedByDomain(ctx context.Context, suffix string) ([]DomainCount, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT domain, COUNT(*) FROM urls
	WHERE completed = 1 AND (domain = ? OR domain LIKE ?)
	GROUP BY domain
	ORDER BY domain
	`, suffix, "%."+suffix)
	if err != nil {
		return nil, fmt.Errorf("failed to count domains: %w", err)
	}
	defer rows.Close()

	var counts []DomainCount
	for rows.Next() {
		var dc DomainCount
		if err := rows.Scan(&dc.Domain, &dc.Pages); err != nil {
			return nil, fmt.Errorf("failed to scan domain count: %w", err)
		}
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}
