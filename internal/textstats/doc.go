// Package textstats turns extracted page text into the statistics the
// crawler uses for deduplication and the word-frequency summary.
//
// Text is lower-cased, reduced to ASCII letters and whitespace, and split
// into tokens. Word counts ignore tokens of two letters or fewer; the
// informative count additionally ignores English stop-words.
//
// Fingerprint is a 64-bit simhash over consecutive-token bigrams. Each
// bigram is hashed with xxhash64 and votes on every bit, weighted by how
// often the bigram occurs. Pages with similar bigram distributions end up
// a small Hamming distance apart.
package textstats
