package download

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/cenkalti/backoff"
	"golang.org/x/crypto/sha3"

	"github.com/FlyMan2612/DocCrawler/internal/crawler"
	"github.com/FlyMan2612/DocCrawler/internal/session"
	"github.com/FlyMan2612/DocCrawler/internal/tor"
)

// Result describes one successful retrieval.
type Result struct {
	// Path is the temporary file holding the document body. The caller
	// owns it and removes it when downstream processing finishes.
	Path string

	// ContentHash is the SHA3-256 hex digest of the body, used to spot
	// distinct URLs serving identical payloads.
	ContentHash string

	// Size is the body size in bytes.
	Size int64
}

// Downloader fetches document URLs to temporary storage.
//
// Retry policy: a network-level failure while the anonymous transport
// is active triggers an identity rotation, a fresh session, and a
// retry — but only up to maxRetries attempts with exponential backoff
// between them. Exhaustion surfaces as a per-document failure; a
// persistently broken target must not hang the whole scan. Without
// anonymity there is nothing a retry would change, so the first
// failure is terminal.
type Downloader struct {
	sessions  *session.Factory
	transport *tor.Transport

	// clientMu guards client. One Downloader serves every worker in
	// the retrieval pool, and the rotate-and-retry path swaps the
	// session while sibling downloads are in flight. Each attempt
	// snapshots the client once; in-flight requests finish on the
	// session they started with.
	clientMu sync.Mutex
	client   *http.Client

	maxRetries int
	tempDir    string
	logger     *slog.Logger
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithMaxRetries bounds retry attempts per document in anonymous mode.
func WithMaxRetries(n int) DownloaderOption {
	return func(d *Downloader) {
		if n >= 0 {
			d.maxRetries = n
		}
	}
}

// WithTempDir sets the directory for temporary files.
// Defaults to the system temp directory.
func WithTempDir(dir string) DownloaderOption {
	return func(d *Downloader) {
		d.tempDir = dir
	}
}

// WithDownloadLogger sets the structured logger.
func WithDownloadLogger(logger *slog.Logger) DownloaderOption {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// NewDownloader creates a Downloader. The session factory should be
// built with the longer download timeout, since document payloads can
// be large and are streamed.
func NewDownloader(sessions *session.Factory, transport *tor.Transport, opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		sessions:   sessions,
		transport:  transport,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.client = sessions.New()
	return d
}

// Fetch downloads a document URL to a uniquely named temporary file
// and returns its path, content hash and size. The returned error is
// terminal: the retry budget, if applicable, is already spent.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	var result *Result

	operation := func() error {
		r, err := d.attempt(ctx, rawURL)
		if err == nil {
			result = r
			return nil
		}

		// Non-network failures (bad status, disk trouble) are not
		// fixed by a new exit identity; neither is anything when the
		// transport is direct.
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return err
		}
		if !d.transport.Active() {
			return backoff.Permanent(err)
		}

		d.logger.Warn("download failed, rotating identity before retry",
			"url", rawURL, "error", err)
		d.transport.RotateIdentity(ctx)
		d.replaceSession()
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(d.maxRetries)),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	return result, nil
}

// currentClient returns the session to issue the next request on.
func (d *Downloader) currentClient() *http.Client {
	d.clientMu.Lock()
	defer d.clientMu.Unlock()
	return d.client
}

// replaceSession installs a fresh session, built only after the
// rotation has completed so it cannot capture the old circuit.
func (d *Downloader) replaceSession() {
	fresh := d.sessions.New()
	d.clientMu.Lock()
	d.client = fresh
	d.clientMu.Unlock()
}

// attempt performs a single streaming download.
func (d *Downloader) attempt(ctx context.Context, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := d.currentClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// A definite answer from the server; retrying under a new
		// identity will not turn a 404 into a 200.
		return nil, backoff.Permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	suffix := fileSuffix(rawURL, resp.Header.Get("Content-Type"))

	tmp, err := os.CreateTemp(d.tempDir, "docscoop-*"+suffix)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	hasher := sha3.New256()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body)
	closeErr := tmp.Close()
	if err != nil || closeErr != nil {
		os.Remove(tmp.Name()) //nolint:errcheck // Best effort cleanup
		if err == nil {
			err = closeErr
		}
		return nil, err
	}

	return &Result{
		Path:        tmp.Name(),
		ContentHash: hex.EncodeToString(hasher.Sum(nil)),
		Size:        size,
	}, nil
}

// fileSuffix picks a temporary-file suffix: the URL path extension if
// present, otherwise a guess from the declared content type, falling
// back to .txt so the extraction stage at least attempts a plain read.
func fileSuffix(rawURL, contentType string) string {
	if ext := crawler.FileExtension(rawURL); ext != "" {
		return ext
	}

	switch {
	case strings.Contains(contentType, "application/pdf"):
		return ".pdf"
	case strings.Contains(contentType, "application/msword"):
		return ".doc"
	case strings.Contains(contentType, "application/vnd.openxmlformats"):
		return ".docx"
	default:
		return ".txt"
	}
}
