// Package page turns a fetched HTML body into the pieces the crawler uses:
// outgoing anchors, robots meta directives and visible text.
//
// Bodies are decoded to UTF-8 with golang.org/x/net/html/charset using the
// Content-Type header and any <meta charset> declaration, then parsed into
// a goquery document.
package page
