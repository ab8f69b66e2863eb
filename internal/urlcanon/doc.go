// Package urlcanon normalizes URLs, decides whether a URL is worth crawling,
// and derives the stable keys used for deduplication.
//
// Three views of a URL are used throughout the crawler:
//   - Normalize resolves a link against the page it was found on and drops
//     the fragment. This is the form that is fetched and stored.
//   - IsValid is the scope and trap filter. It rejects off-scope hosts,
//     non-HTML file types, calendar and repeated-segment traps, and
//     download actions.
//   - IdentityKey is the content identity of a URL. URLs that differ only in
//     www prefix, scheme, index file, trailing slash, or tracking, session,
//     sort and pagination parameters share one key.
//
// LedgerKey is a lighter hash used by the frontier's URL ledger. It only
// ignores the scheme and trailing slashes, so the ledger records every
// distinct URL it was asked to crawl.
package urlcanon
