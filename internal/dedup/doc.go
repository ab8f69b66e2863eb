// Package dedup answers "have we already seen this?" for the crawler.
//
// A Cache holds one namespace of admitted entries. Each entry has an
// identity key and, for page content, a simhash fingerprint. A candidate
// is a duplicate if its key was admitted before, or if its fingerprint is
// strictly closer than the threshold to any admitted fingerprint. The check
// and the insert happen under one lock so concurrent workers cannot both
// admit the same item.
//
// Entries are written through to the database before they are admitted and
// reloaded on start, so a resumed crawl keeps its dedup history.
package dedup
