package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// WordCount is one entry of the word-frequency store.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// RichestPage is the page with the most words seen so far.
type RichestPage struct {
	URL       string `json:"url"`
	WordCount int    `json:"wordCount"`
}

// AddWordCounts adds freq to the stored counts in a single transaction.
func (cdb *CrawlDB) AddWordCounts(ctx context.Context, freq map[string]int) error {
	if len(freq) == 0 {
		return nil
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO words (word, count) VALUES (?, ?)
	ON CONFLICT(word) DO UPDATE SET count = count + excluded.count
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare word upsert: %w", err)
	}
	defer stmt.Close()

	for word, n := range freq {
		if _, err := stmt.ExecContext(ctx, word, n); err != nil {
			return fmt.Errorf("failed to add word %q: %w", word, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit word counts: %w", err)
	}
	return nil
}

// UpdateRichest replaces the richest-page sentinel when wordCount is larger
// than the stored one. It reports whether the sentinel changed.
func (cdb *CrawlDB) UpdateRichest(ctx context.Context, url string, wordCount int) (bool, error) {
	result, err := cdb.db.ExecContext(ctx, `
	INSERT INTO richest_page (id, url, word_count) VALUES (1, ?, ?)
	ON CONFLICT(id) DO UPDATE SET url = excluded.url, word_count = excluded.word_count
	WHERE excluded.word_count > richest_page.word_count
	`, url, wordCount)
	if err != nil {
		return false, fmt.Errorf("failed to update richest page: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update richest page: %w", err)
	}
	return n > 0, nil
}

// Richest returns the richest-page sentinel, or nil if no page qualified yet.
func (cdb *CrawlDB) Richest(ctx context.Context) (*RichestPage, error) {
	var rp RichestPage
	err := cdb.db.QueryRowContext(ctx,
		`SELECT url, word_count FROM richest_page WHERE id = 1`,
	).Scan(&rp.URL, &rp.WordCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get richest page: %w", err)
	}
	return &rp, nil
}

// TopWords returns the n most frequent words. Ties are broken alphabetically.
func (cdb *CrawlDB) TopWords(ctx context.Context, n int) ([]WordCount, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT word, count FROM words
	ORDER BY count DESC, word ASC
	LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query top words: %w", err)
	}
	defer rows.Close()

	var words []WordCount
	for rows.Next() {
		var wc WordCount
		if err := rows.Scan(&wc.Word, &wc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan word: %w", err)
		}
		words = append(words, wc)
	}
	return words, rows.Err()
}
