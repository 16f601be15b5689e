package crawler

import "testing"

func newTestClassifier() *Classifier {
	return NewClassifier(
		[]string{".pdf", ".txt", ".doc", ".docx", ".csv", ".xlsx"},
		[]string{".jpg", ".jpeg", ".png", ".gif", ".mp4"},
	)
}

// TestFileExtension tests URL extension extraction.
func TestFileExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"plain pdf", "https://example.com/report.pdf", ".pdf"},
		{"uppercase extension is lowered", "https://example.com/REPORT.PDF", ".pdf"},
		{"query string does not count", "https://example.com/report.pdf?version=2", ".pdf"},
		{"fragment does not count", "https://example.com/report.pdf#page=3", ".pdf"},
		{"no extension", "https://example.com/reports/", ""},
		{"extension in query only", "https://example.com/download?file=report.pdf", ""},
		{"nested path", "https://example.com/a/b/c/data.csv", ".csv"},
		{"malformed url", "http://%zz", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := FileExtension(tt.url); got != tt.want {
				t.Errorf("FileExtension(%q) = %q, expected %q", tt.url, got, tt.want)
			}
		})
	}
}

// TestIsDocumentURL tests the allow-list classification.
func TestIsDocumentURL(t *testing.T) {
	t.Parallel()

	c := newTestClassifier()

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"pdf is a document", "https://example.com/report.pdf", true},
		{"docx is a document", "https://example.com/minutes.docx", true},
		{"html is not", "https://example.com/index.html", false},
		{"no extension is not", "https://example.com/reports", false},
		{"image is not", "https://example.com/logo.png", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := c.IsDocumentURL(tt.url); got != tt.want {
				t.Errorf("IsDocumentURL(%q) = %v, expected %v", tt.url, got, tt.want)
			}
		})
	}
}

// TestIgnoreListWinsOverDocumentList tests precedence when an extension
// appears on both lists.
func TestIgnoreListWinsOverDocumentList(t *testing.T) {
	t.Parallel()

	c := NewClassifier([]string{".pdf"}, []string{".pdf"})

	if c.IsDocumentURL("https://example.com/report.pdf") {
		t.Error("IsDocumentURL() should be false when the extension is also ignored")
	}
	if !c.ShouldIgnore("https://example.com/report.pdf") {
		t.Error("ShouldIgnore() should be true for an ignored extension")
	}
}

// TestShouldIgnore tests the ignore-list classification.
func TestShouldIgnore(t *testing.T) {
	t.Parallel()

	c := newTestClassifier()

	if !c.ShouldIgnore("https://example.com/photo.JPG") {
		t.Error("ShouldIgnore() should match case-insensitively")
	}
	if c.ShouldIgnore("https://example.com/report.pdf") {
		t.Error("ShouldIgnore() should be false for document extensions")
	}
	if c.ShouldIgnore("https://example.com/page") {
		t.Error("ShouldIgnore() should be false for extension-less URLs")
	}
}

// TestContentTypeClassification tests document and HTML content-type
// detection.
func TestContentTypeClassification(t *testing.T) {
	t.Parallel()

	c := newTestClassifier()

	docTypes := []string{
		"application/pdf",
		"application/pdf; charset=binary",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
	for _, ct := range docTypes {
		if !c.IsDocumentContentType(ct) {
			t.Errorf("IsDocumentContentType(%q) = false, expected true", ct)
		}
	}

	if c.IsDocumentContentType("text/html; charset=utf-8") {
		t.Error("IsDocumentContentType() should be false for HTML")
	}

	if !c.IsHTMLContentType("text/html; charset=utf-8") {
		t.Error("IsHTMLContentType() should be true for HTML")
	}
	if c.IsHTMLContentType("application/json") {
		t.Error("IsHTMLContentType() should be false for JSON")
	}
}
