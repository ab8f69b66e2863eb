package page

import (
	"bytes"
	"mime"
	"net/http"
	"strings"
)

// sniffLen is how much of the body is inspected for binary content.
const sniffLen = 512

// binarySignatures are leading bytes of formats that are never HTML.
var binarySignatures = [][]byte{
	[]byte("%PDF-"),
	[]byte("\x89PNG"),
	[]byte("GIF8"),
	[]byte("\xff\xd8\xff"),     // JPEG
	[]byte("PK\x03\x04"),       // zip, docx, xlsx, pptx
	[]byte("\x1f\x8b"),         // gzip
	[]byte("\xd0\xcf\x11\xe0"), // legacy office documents
	[]byte("{\\rtf"),
	[]byte("%!PS"),
	[]byte("\x7fELF"),
	[]byte("MZ"),
}

// htmlTypes are media types accepted as HTML.
var htmlTypes = map[string]bool{
	"text/html":             true,
	"application/xhtml+xml": true,
}

// IsHTML reports whether body looks like an HTML page. A known binary
// signature or a NUL byte rejects the body whatever the header says. A
// declared non-HTML media type rejects it too. Without a header the body is
// sniffed.
func IsHTML(body []byte, contentType string) bool {
	head := body
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}

	for _, sig := range binarySignatures {
		if bytes.HasPrefix(head, sig) {
			return false
		}
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return false
	}

	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			return htmlTypes[strings.ToLower(mediaType)]
		}
	}

	return strings.HasPrefix(http.DetectContentType(head), "text/")
}
