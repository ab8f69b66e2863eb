package page

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/nao1215/campuscrawl/internal/urlcanon"
)

// Document is a parsed HTML page.
type Document struct {
	doc  *goquery.Document
	base string
}

// Anchor is one <a href> of a page.
type Anchor struct {
	// Href is the attribute value as written.
	Href string

	// URL is Href resolved against the page URL with the fragment removed.
	// Empty when Err is set.
	URL string

	// Err is set when Href could not be resolved.
	Err error
}

// Robots holds the directives of <meta name="robots">.
type Robots struct {
	NoIndex  bool
	NoFollow bool
}

// Parse decodes body and parses it as HTML. pageURL is the URL the body was
// served from after redirects; relative links resolve against it unless the
// page declares a <base href>.
func Parse(body []byte, contentType, pageURL string) (*Document, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	d := &Document{doc: doc, base: pageURL}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if resolved, err := urlcanon.Normalize(href, pageURL); err == nil {
			d.base = resolved
		}
	}
	return d, nil
}

// Title returns the trimmed <title> text.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// Anchors returns the crawlable links of the page in document order.
// Links marked rel="nofollow", in-page fragments and javascript:, mailto:,
// tel: and data: links are skipped.
func (d *Document) Anchors() []Anchor {
	var anchors []Anchor
	d.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if skipHref(href) || hasToken(s.AttrOr("rel", ""), "nofollow") {
			return
		}

		resolved, err := urlcanon.Normalize(href, d.base)
		if err != nil {
			anchors = append(anchors, Anchor{Href: href, Err: err})
			return
		}
		anchors = append(anchors, Anchor{Href: href, URL: resolved})
	})
	return anchors
}

// skipHref reports whether href never leads to another page.
func skipHref(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// RobotsMeta returns the page's robots directives. "none" implies both.
func (d *Document) RobotsMeta() Robots {
	var r Robots
	d.doc.Find("meta[name]").Each(func(_ int, s *goquery.Selection) {
		if !strings.EqualFold(strings.TrimSpace(s.AttrOr("name", "")), "robots") {
			return
		}
		content := s.AttrOr("content", "")
		if hasToken(content, "none") {
			r.NoIndex = true
			r.NoFollow = true
		}
		if hasToken(content, "noindex") {
			r.NoIndex = true
		}
		if hasToken(content, "nofollow") {
			r.NoFollow = true
		}
	})
	return r
}

// hasToken reports whether the comma or space separated list contains token.
func hasToken(list, token string) bool {
	for _, field := range strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == ' ' }) {
		if strings.EqualFold(field, token) {
			return true
		}
	}
	return false
}

// skipText lists elements whose content is not visible text.
var skipText = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
}

// Text returns the visible text of the page. Text nodes are separated by
// spaces so words in adjacent elements do not run together.
func (d *Document) Text() string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if skipText[n.Data] {
				return
			}
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				b.WriteString(t)
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range d.doc.Nodes {
		walk(n)
	}
	return strings.TrimSpace(b.String())
}
