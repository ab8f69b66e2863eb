// Package crawler runs the crawl workers.
//
// # Architecture
//
// A Pool owns a fixed number of workers started with errgroup. Each worker
// claims one host at a time from the frontier and drains its queue, so a
// host is never fetched by two workers at once. For every URL the worker
//
//   - downloads the page through a Downloader
//   - drops non-HTML bodies and pages marked noindex
//   - admits the page through the page dedup cache
//   - feeds the word store when the page has enough words
//   - extracts, validates and link-dedups the outgoing anchors
//   - marks the URL complete and sleeps for the politeness delay
//
// # Termination
//
// A worker without a host polls the frontier every idle interval. The crawl
// ends when no host is available and no worker owns one. Cancelling the
// context stops every worker between URLs; the interrupted URL stays pending
// in the ledger and is picked up by the next run.
//
// # Usage
//
//	pool := crawler.New(f, fetcher, db, links, pages, crawler.WithWorkers(4))
//	result, err := pool.Run(ctx)
package crawler
