// Package main provides the entry point for the campuscrawl CLI.
//
// campuscrawl is a polite, restartable crawler for the UCI academic web
// (ics, cs, informatics and stat). It keeps its URL ledger, dedup cache and
// word statistics in a SQLite database so an interrupted crawl resumes where
// it stopped.
//
// Usage:
//
//	campuscrawl crawl [seed-url...]
//	campuscrawl report
//
// See --help for all available options.
package main

// main is the entry point for campuscrawl.
func main() {
	Execute()
}
