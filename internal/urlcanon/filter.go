package urlcanon

import (
	"net/url"
	"regexp"
	"strings"
)

// AllowedDomains are the academic domains in crawl scope. A host matches
// when it equals one of them or is a subdomain of one.
var AllowedDomains = []string{
	"ics.uci.edu",
	"cs.uci.edu",
	"informatics.uci.edu",
	"stat.uci.edu",
}

// Path-qualified scope exception: only this subtree of the host is crawled.
const (
	exceptionHost       = "today.uci.edu"
	exceptionPathPrefix = "/department/information_computer_sciences/"
)

// maxSegmentRepeats is how often one path segment may occur in a path.
const maxSegmentRepeats = 2

// deniedExtension matches file types that are never HTML pages.
var deniedExtension = regexp.MustCompile(`\.(` +
	`css|js|bmp|gif|jpe?g|ico|png|tiff?|svg|webp|heic` +
	`|mid|mp2|mp3|mp4|wav|avi|mov|mpeg|ram|m4v|mkv|ogg|ogv|webm|flv|wmv|wma|swf|rm|smil` +
	`|pdf|ps|eps|tex|bib|ppt|pptx|pps|doc|docx|xls|xlsx|odt|ods|odp|odc|rtf|epub|key|numbers|thmx|mso` +
	`|names|data|dat|arff|csv|tsv|json|xml|txt|log|sql|db|mdb|sqlite|sas|mat|nb|r|rdata|rds` +
	`|exe|msi|bin|dll|dmg|iso|img|pkg|apk|ipa|jar|war|bat|sh|deb|rpm` +
	`|7z|bz2|tar|tgz|tbz|gz|z|xz|lz|zip|rar|sha1|psd|cnf|bak|swp|ini|config|cfg|conf` +
	`|ttf|otf|woff2?|eot|fon` +
	`|c|h|cc|cpp|hpp|java|py|ipynb|m|o|a|lib|obj|class|pix|raw` +
	`)$`)

// dateToken matches YYYY-MM-DD and YYYY-MM tokens used by calendar pages.
var dateToken = regexp.MustCompile(`\b\d{4}-\d{2}(-\d{2})?\b`)

// deniedSegments are path segments that lead to file dumps or login walls.
var deniedSegments = map[string]bool{
	"pdf":   true,
	"pix":   true,
	"ical":  true,
	"login": true,
}

// deniedPathWords are rejected wherever they appear in the path.
var deniedPathWords = []string{"calendar"}

// IsValid reports whether rawURL is in scope and unlikely to be a trap.
func IsValid(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}

	lowerPath := strings.ToLower(u.Path)
	if deniedExtension.MatchString(lowerPath) {
		return false
	}

	if !InScope(u.Hostname(), u.Path) {
		return false
	}

	if hasDeniedSegment(lowerPath) {
		return false
	}

	if hasRepeatedSegment(u.Path) {
		return false
	}

	if dateToken.MatchString(u.Path) || dateToken.MatchString(u.RawQuery) {
		return false
	}

	return !isDownloadAction(u.Query())
}

// InScope reports whether host (and path, for the path-qualified
// exception) belongs to the crawl scope.
func InScope(host, path string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, domain := range AllowedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return host == exceptionHost && strings.HasPrefix(path, exceptionPathPrefix)
}

func hasDeniedSegment(lowerPath string) bool {
	for _, word := range deniedPathWords {
		if strings.Contains(lowerPath, word) {
			return true
		}
	}
	for _, segment := range strings.Split(lowerPath, "/") {
		if deniedSegments[segment] {
			return true
		}
	}
	return false
}

// hasRepeatedSegment reports whether any non-empty path segment occurs more
// than maxSegmentRepeats times, the signature of self-referencing relative
// links and endless faceted paths.
func hasRepeatedSegment(path string) bool {
	counts := make(map[string]int)
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		counts[segment]++
		if counts[segment] > maxSegmentRepeats {
			return true
		}
	}
	return false
}

// isDownloadAction reports whether the query asks the server for a file
// download or export instead of a page.
func isDownloadAction(query url.Values) bool {
	for name, values := range query {
		lowerName := strings.ToLower(name)
		if lowerName == "download" {
			return true
		}
		if lowerName != "action" && lowerName != "do" && lowerName != "format" {
			continue
		}
		for _, v := range values {
			v = strings.ToLower(v)
			if v == "download" || v == "export" || v == "raw" || v == "txt" ||
				strings.HasPrefix(v, "export_") {
				return true
			}
		}
	}
	return false
}
