package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one crawl invocation.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"` // zero while the run is in progress or was interrupted
	Pages      int       `json:"pages"`
}

// StartRun records the start of a crawl and returns its identifier.
func (cdb *CrawlDB) StartRun(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := cdb.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// FinishRun records the end of a crawl and how many pages it fetched.
func (cdb *CrawlDB) FinishRun(ctx context.Context, id string, pages int) error {
	result, err := cdb.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, pages = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), pages, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to finish run: unknown run %s", id)
	}
	return nil
}

// ListRuns returns all runs, most recent first.
func (cdb *CrawlDB) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT id, started_at, finished_at, pages FROM runs
	ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started string
		var finished sql.NullString
		if err := rows.Scan(&run.ID, &started, &finished, &run.Pages); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = parseTimestamp(started)
		if finished.Valid {
			run.FinishedAt = parseTimestamp(finished.String)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
