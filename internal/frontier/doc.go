// Package frontier tracks which URLs still need to be crawled.
//
// Pending URLs are grouped into one LIFO stack per host. A host with a
// non-empty stack that no worker owns sits in the active pool. A worker
// claims a host with GetDomain, drains it with GetNextURL and hands it back
// with ReleaseDomain. While a host is claimed, newly discovered URLs for it
// go onto its stack without re-activating it, so at most one worker fetches
// from a host at a time.
//
// Every discovered URL is written to the ledger before it becomes visible
// in memory. On start the stacks are rebuilt from ledger rows that were not
// completed, which makes an interrupted crawl resumable.
package frontier
