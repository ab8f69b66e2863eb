package urlcanon

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ErrMalformedURL is returned when a URL cannot be parsed.
var ErrMalformedURL = errors.New("malformed URL")

// KeySize is the length of Key in bytes.
const KeySize = 32

// Key is a fixed-size URL hash.
type Key [KeySize]byte

// String returns the hex form of the key.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// KeyFromBytes converts a stored key back into a Key.
func KeyFromBytes(b []byte) (Key, error) {
	var k Key
	if len(b) != KeySize {
		return k, fmt.Errorf("invalid key length %d", len(b))
	}
	copy(k[:], b)
	return k, nil
}

// ignoredParams are query parameters that never change page content:
// campaign tracking, sessions, referrers, sorting, display and pagination.
var ignoredParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true, "utm_term": true, "utm_content": true,
	"sessionid": true, "sessid": true, "sid": true, "phpsessid": true, "aspsessionid": true, "jsessionid": true,
	"date": true, "time": true, "calendar": true, "schedule": true,
	"ref": true, "referrer": true, "src": true,
	"sort": true, "order": true, "orderby": true, "direction": true, "view": true, "display": true,
	"page": true, "paged": true, "offset": true, "start": true,
	"clid": true, "click_id": true, "aff_id": true, "aid": true, "affiliate_id": true, "aff_sub": true,
	"banner_id": true, "campaign_id": true, "fbclid": true, "gclid": true,
}

// Normalize resolves rawURL against baseURL and strips the fragment.
// baseURL should be the final, post-redirect URL of the page the link was
// found on. An empty baseURL requires rawURL to be absolute.
func Normalize(rawURL, baseURL string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrMalformedURL, rawURL, err)
	}

	resolved := ref
	if baseURL != "" {
		base, err := url.Parse(baseURL)
		if err != nil {
			return "", fmt.Errorf("%w: base %q: %w", ErrMalformedURL, baseURL, err)
		}
		resolved = base.ResolveReference(ref)
	}

	if !resolved.IsAbs() || resolved.Host == "" {
		return "", fmt.Errorf("%w: %q is not absolute", ErrMalformedURL, rawURL)
	}

	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String(), nil
}

// Domain returns the lower-cased host (with port, if any) of rawURL.
// The frontier partitions its queues by this value.
func Domain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrMalformedURL, rawURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrMalformedURL, rawURL)
	}
	return strings.ToLower(u.Host), nil
}

// IdentityKey computes the content identity of rawURL.
// Two URLs that differ only in ignored dimensions yield the same key.
func IdentityKey(rawURL string) (Key, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: %w", ErrMalformedURL, rawURL, err)
	}

	host := canonicalHost(u)
	path := canonicalPath(u.Path)
	query := canonicalQuery(u.Query())

	h := sha3.New256()
	h.Write([]byte(host))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(query))

	var k Key
	copy(k[:], h.Sum(nil))
	return k, nil
}

// LedgerKey hashes rawURL for the frontier ledger: the scheme and trailing
// slashes are ignored, everything else is significant.
func LedgerKey(rawURL string) Key {
	s := strings.TrimRight(rawURL, "/")
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+1:]
	}
	return sha3.Sum256([]byte(s))
}

func canonicalHost(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	port := u.Port()
	if port != "" && port != "80" && port != "443" {
		host += ":" + port
	}
	return host
}

func canonicalPath(p string) string {
	switch {
	case strings.HasSuffix(p, "index.html"):
		p = strings.TrimSuffix(p, "index.html")
	case strings.HasSuffix(p, "index.htm"):
		p = strings.TrimSuffix(p, "index.htm")
	}
	return strings.TrimRight(p, "/")
}

// canonicalQuery drops ignored parameters and encodes the rest in sorted
// key order.
func canonicalQuery(query url.Values) string {
	for name := range query {
		if isIgnoredParam(name) {
			delete(query, name)
		}
	}
	return query.Encode()
}

func isIgnoredParam(name string) bool {
	lower := strings.ToLower(name)
	if ignoredParams[lower] {
		return true
	}
	return strings.Contains(lower, "filter") || strings.Contains(lower, "sort")
}
