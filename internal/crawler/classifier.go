package crawler

import (
	"net/url"
	"path"
	"strings"
)

// Content-type fragments that mark a response as a known document kind
// regardless of its URL extension.
var documentContentTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats",
}

// Classifier decides what a URL is: a retrievable document, ignorable
// media, or a page worth crawling. The decision is a pure function of
// the path extension and, secondarily, the declared content type.
// Classification rules are fixed for the duration of a scan.
type Classifier struct {
	documentExts map[string]bool
	ignoreExts   map[string]bool
}

// NewClassifier creates a classifier from an extension allow-list and
// ignore-list. Extensions must be lower-case with a leading dot
// (config.NormalizeExtensions produces that form).
func NewClassifier(documentExts, ignoreExts []string) *Classifier {
	c := &Classifier{
		documentExts: make(map[string]bool, len(documentExts)),
		ignoreExts:   make(map[string]bool, len(ignoreExts)),
	}
	for _, ext := range documentExts {
		c.documentExts[ext] = true
	}
	for _, ext := range ignoreExts {
		c.ignoreExts[ext] = true
	}
	return c
}

// FileExtension extracts the lower-cased path extension from a URL,
// including the dot. Query strings and fragments never count as part
// of the extension.
func FileExtension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(u.Path))
}

// IsDocumentURL reports whether the URL's extension is on the document
// allow-list. An ignore-list match wins over an allow-list match: an
// extension listed as ignorable media is a stricter signal against
// further work than an allow entry is for it.
func (c *Classifier) IsDocumentURL(rawURL string) bool {
	ext := FileExtension(rawURL)
	if c.ignoreExts[ext] {
		return false
	}
	return c.documentExts[ext]
}

// ShouldIgnore reports whether the URL's extension is on the ignore
// list (binary media irrelevant to a document scan).
func (c *Classifier) ShouldIgnore(rawURL string) bool {
	return c.ignoreExts[FileExtension(rawURL)]
}

// IsDocumentContentType reports whether a declared content type
// indicates a known document kind. Used for URLs without a telling
// extension that still serve document bytes.
func (c *Classifier) IsDocumentContentType(contentType string) bool {
	for _, marker := range documentContentTypes {
		if strings.Contains(contentType, marker) {
			return true
		}
	}
	return false
}

// IsHTMLContentType reports whether a declared content type indicates
// hypertext, i.e. a page whose links should be followed.
func (c *Classifier) IsHTMLContentType(contentType string) bool {
	return strings.Contains(contentType, "text/html")
}
