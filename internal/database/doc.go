// Package database provides SQLite-based storage for campuscrawl.
//
// A single CrawlDB file holds every piece of state that must survive a
// restart:
//   - the URL ledger (discovered URLs and whether they were processed)
//   - the dedup entries for both the link pass and the content pass
//   - the word-frequency store and the richest-page sentinel
//   - one row per crawl run
//
// The database uses modernc.org/sqlite so the binary stays CGO-free. The
// connection pool is limited to one connection, which makes the driver
// serialize all writers.
package database
