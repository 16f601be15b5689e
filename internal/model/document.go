package model

// DocumentResult is the per-document outcome of the retrieval and
// analysis stage. It is created when a download is attempted and
// populated progressively: first the local path and content hash,
// then the extracted text sample, then the sensitivity verdict.
//
// The local temporary file is removed once downstream processing
// finishes, so LocalPath must not be relied on after a scan completes.
type DocumentResult struct {
	// URL is the absolute URL the document was discovered at.
	URL string `json:"url"`

	// LocalPath is the temporary file the body was written to.
	// Empty when the download failed.
	LocalPath string `json:"-"`

	// ContentHash is the SHA3-256 hex digest of the downloaded body.
	// Two URLs serving identical bytes share the same hash.
	ContentHash string `json:"contentHash,omitempty"`

	// Size is the downloaded body size in bytes.
	Size int64 `json:"size,omitempty"`

	// Sensitive is the analysis collaborator's verdict.
	Sensitive bool `json:"isSensitive"`

	// Analysis is the collaborator's free-text rationale.
	// Callers must not assume any structure beyond plain text.
	Analysis string `json:"analysis,omitempty"`

	// Analyzed reports whether the document reached the analysis step.
	// Documents whose download or extraction failed never do.
	Analyzed bool `json:"analyzed"`

	// Error holds the terminal per-document failure, if any.
	// A failed document never aborts the scan; it is simply recorded.
	Error string `json:"error,omitempty"`
}

// Downloaded reports whether the document body reached local storage.
func (d *DocumentResult) Downloaded() bool {
	return d.LocalPath != ""
}
