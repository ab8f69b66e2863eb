package textstats

import (
	"math/bits"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultDupThreshold is the Hamming distance below which two fingerprints
// are near-duplicates.
const DefaultDupThreshold = 10

// minWordLen is the shortest token that counts as a word.
const minWordLen = 3

// Stats holds everything the crawler needs to know about one page's text.
type Stats struct {
	// WordCount is the number of tokens longer than two letters.
	WordCount int

	// InformativeWordCount is WordCount minus stop-words.
	InformativeWordCount int

	// Frequencies counts informative words.
	Frequencies map[string]int

	// Fingerprint is the bigram simhash of the page.
	// Valid only when HasFingerprint is true.
	Fingerprint uint64

	// HasFingerprint is false when the text has fewer than two tokens.
	HasFingerprint bool
}

// Analyze tokenizes text once and computes all statistics.
func Analyze(text string) Stats {
	tokens := Tokenize(text)
	fp, ok := fingerprintTokens(tokens)

	stats := Stats{
		Frequencies:    make(map[string]int),
		Fingerprint:    fp,
		HasFingerprint: ok,
	}
	for _, tok := range tokens {
		if len(tok) < minWordLen {
			continue
		}
		stats.WordCount++
		if IsStopWord(tok) {
			continue
		}
		stats.InformativeWordCount++
		stats.Frequencies[tok]++
	}
	return stats
}

// Tokenize lower-cases text, drops every character that is not an ASCII
// letter or whitespace, and splits on whitespace. Any Unicode space,
// including the no-break space of &nbsp;, separates tokens.
func Tokenize(text string) []string {
	lower := cases.Lower(language.Und).String(text)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// WordCount returns the number of tokens longer than two letters.
func WordCount(text string) int {
	return Analyze(text).WordCount
}

// InformativeWordCount returns the number of tokens longer than two
// letters that are not stop-words.
func InformativeWordCount(text string) int {
	return Analyze(text).InformativeWordCount
}

// Frequencies returns the informative word counts of text.
func Frequencies(text string) map[string]int {
	return Analyze(text).Frequencies
}

// Fingerprint returns the bigram simhash of text. The second result is
// false when text has fewer than two tokens and no bigram exists.
func Fingerprint(text string) (uint64, bool) {
	return fingerprintTokens(Tokenize(text))
}

func fingerprintTokens(tokens []string) (uint64, bool) {
	if len(tokens) < 2 {
		return 0, false
	}

	bigrams := make(map[string]int, len(tokens)-1)
	for i := 0; i < len(tokens)-1; i++ {
		bigrams[tokens[i]+" "+tokens[i+1]]++
	}

	var votes [64]int
	for bigram, weight := range bigrams {
		h := xxhash.Sum64String(bigram)
		for i := 0; i < 64; i++ {
			if h&(1<<uint(i)) != 0 {
				votes[i] += weight
			} else {
				votes[i] -= weight
			}
		}
	}

	var fp uint64
	for i, v := range votes {
		if v > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp, true
}

// HammingDistance returns the number of differing bits.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// IsNearDuplicate reports whether a and b are strictly closer than threshold.
func IsNearDuplicate(a, b uint64, threshold int) bool {
	return HammingDistance(a, b) < threshold
}
