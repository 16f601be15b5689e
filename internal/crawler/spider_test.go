package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FlyMan2612/DocCrawler/internal/session"
	"github.com/FlyMan2612/DocCrawler/internal/tor"
	"github.com/FlyMan2612/DocCrawler/internal/tor/tortest"
)

// newTestSpider builds a spider over a direct (non-anonymous) transport.
func newTestSpider(t *testing.T) *Spider {
	t.Helper()

	transport := tor.NewTransport("127.0.0.1:1", "127.0.0.1:2",
		tor.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	sessions := session.NewFactory(transport, 5*time.Second)

	return NewSpider(sessions, transport, newTestClassifier(),
		WithSpiderLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

// countingServer wraps httptest.Server and records per-path hit counts.
type countingServer struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func newCountingServer(t *testing.T, pages map[string]string) *countingServer {
	t.Helper()

	cs := &countingServer{hits: make(map[string]int)}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.mu.Lock()
		cs.hits[r.URL.Path]++
		cs.mu.Unlock()

		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *countingServer) hitCount(path string) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.hits[path]
}

// TestCrawlDepthZero tests that a zero depth limit fetches only the
// seed and never extracts links, even when documents are linked.
func TestCrawlDepthZero(t *testing.T) {
	t.Parallel()

	srv := newCountingServer(t, map[string]string{
		"/": `<html><body>
			<a href="/report.pdf">Report</a>
			<a href="/page2">Page 2</a>
		</body></html>`,
		"/page2": `<html><body>ok</body></html>`,
	})

	spider := newTestSpider(t)
	docs, err := spider.Crawl(context.Background(), srv.URL+"/", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(docs) != 0 {
		t.Errorf("got %v, expected no documents at depth 0", docs)
	}
	if spider.PagesCrawled() != 1 {
		t.Errorf("PagesCrawled() = %d, expected 1", spider.PagesCrawled())
	}
	if srv.hitCount("/page2") != 0 {
		t.Error("linked page should not be fetched at depth 0")
	}
}

// TestCrawlCollectsDocuments tests a two-level crawl: document links
// are recorded without being fetched, and pages at the depth limit are
// fetched but not parsed.
func TestCrawlCollectsDocuments(t *testing.T) {
	t.Parallel()

	srv := newCountingServer(t, map[string]string{
		"/": `<html><body>
			<a href="/report.pdf">Report</a>
			<a href="/photo.jpg">Photo</a>
			<a href="/page2">Page 2</a>
		</body></html>`,
		"/page2": `<html><body>
			<a href="/deep.pdf">Deep document</a>
		</body></html>`,
	})

	spider := newTestSpider(t)
	docs, err := spider.Crawl(context.Background(), srv.URL+"/", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(docs) != 1 || docs[0] != srv.URL+"/report.pdf" {
		t.Errorf("got %v, expected exactly the top-level report.pdf", docs)
	}

	// Document and ignored URLs are classified by extension, never fetched.
	if srv.hitCount("/report.pdf") != 0 {
		t.Error("document URL should not be fetched during the crawl")
	}
	if srv.hitCount("/photo.jpg") != 0 {
		t.Error("ignored URL should never be fetched")
	}

	// page2 sits at the depth limit: fetched but not parsed, so the
	// deep document is never discovered.
	if srv.hitCount("/page2") != 1 {
		t.Errorf("page2 fetched %d times, expected 1", srv.hitCount("/page2"))
	}
}

// TestCrawlDeduplicatesURLs tests that multiple paths to the same page
// cause only one fetch.
func TestCrawlDeduplicatesURLs(t *testing.T) {
	t.Parallel()

	srv := newCountingServer(t, map[string]string{
		"/": `<html><body>
			<a href="/page2">First link</a>
			<a href="/page2#section">Same page, fragment</a>
			<a href="/">Self link</a>
		</body></html>`,
		"/page2": `<html><body>
			<a href="/">Back home</a>
		</body></html>`,
	})

	spider := newTestSpider(t)
	if _, err := spider.Crawl(context.Background(), srv.URL+"/", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if srv.hitCount("/") != 1 {
		t.Errorf("seed fetched %d times, expected 1", srv.hitCount("/"))
	}
	if srv.hitCount("/page2") != 1 {
		t.Errorf("page2 fetched %d times, expected 1", srv.hitCount("/page2"))
	}
}

// TestCrawlSeedNotFound tests that a failing seed terminates the crawl
// with an empty document set but a marked frontier.
func TestCrawlSeedNotFound(t *testing.T) {
	t.Parallel()

	srv := newCountingServer(t, map[string]string{}) // everything 404s

	spider := newTestSpider(t)
	seed := srv.URL + "/missing"
	docs, err := spider.Crawl(context.Background(), seed, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(docs) != 0 {
		t.Errorf("got %v, expected no documents", docs)
	}
	if spider.PagesCrawled() != 1 {
		t.Errorf("PagesCrawled() = %d, expected 1", spider.PagesCrawled())
	}
	if !spider.Visited(seed) {
		t.Error("seed should be marked visited even though the fetch failed")
	}
	if spider.IsValidURL(seed) {
		t.Error("IsValidURL() should be false for a visited URL")
	}
}

// TestCrawlDocumentByContentType tests that an extension-less URL
// serving document bytes is recorded as a leaf.
func TestCrawlDocumentByContentType(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	var downloadFetched atomic.Bool
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><a href="/download">Get it</a></body></html>`)
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4 fake")
		downloadFetched.Store(true)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	spider := newTestSpider(t)
	docs, err := spider.Crawl(context.Background(), srv.URL+"/", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(docs) != 1 || docs[0] != srv.URL+"/download" {
		t.Errorf("got %v, expected the content-type classified document", docs)
	}
	if !downloadFetched.Load() {
		t.Error("extension-less URL must be fetched to classify by content type")
	}
}

// TestCrawlCancelledContext tests that cancellation stops traversal and
// surfaces the context error with partial results.
func TestCrawlCancelledContext(t *testing.T) {
	t.Parallel()

	srv := newCountingServer(t, map[string]string{
		"/": `<html><body><a href="/page2">Next</a></body></html>`,
	})

	spider := newTestSpider(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := spider.Crawl(ctx, srv.URL+"/", 2)
	if err == nil {
		t.Fatal("expected context error, got nil")
	}
	if spider.PagesCrawled() != 0 {
		t.Errorf("PagesCrawled() = %d, expected 0 after pre-cancelled crawl", spider.PagesCrawled())
	}
}

// TestCrawlRotatesAndRetriesShallowFailure tests the anonymous-mode
// retry policy: a network failure at the top of the crawl triggers
// exactly one identity rotation and one re-fetch of the same URL, and
// the retried page is parsed normally.
func TestCrawlRotatesAndRetriesShallowFailure(t *testing.T) {
	// Activation mutates the proxy environment; must not run in parallel.
	t.Setenv("HTTP_PROXY", "")

	page := `<html><body><a href="files/report.pdf">Report</a></body></html>`
	socks := tortest.StartSocksServer(t,
		tortest.Response("text/plain", "ok"), // activation verify
		tortest.DropTunnel,                   // seed fetch fails
		tortest.Response("text/html; charset=utf-8", page),
	)
	control := tortest.StartControlServer(t)

	transport := tor.NewTransport(socks.Addr(), control.Addr(),
		tor.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		tor.WithVerifyURL("http://connectivity-check.invalid/"),
		tor.WithSettleDelay(10*time.Millisecond),
	)
	t.Cleanup(transport.Deactivate)
	if state := transport.Activate(context.Background(), false); state != tor.StateActiveAnonymous {
		t.Fatalf("Activate() = %v, expected an active anonymous transport", state)
	}

	sessions := session.NewFactory(transport, 5*time.Second)
	spider := NewSpider(sessions, transport, newTestClassifier(),
		WithSpiderLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	docs, err := spider.Crawl(context.Background(), "http://site.invalid/", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(docs) != 1 || docs[0] != "http://site.invalid/files/report.pdf" {
		t.Errorf("got %v, expected the document from the retried page", docs)
	}
	if control.Rotations() != 1 {
		t.Errorf("Rotations() = %d, expected exactly one identity renewal", control.Rotations())
	}
	// The dropped attempt does not count as a crawled page.
	if spider.PagesCrawled() != 1 {
		t.Errorf("PagesCrawled() = %d, expected 1", spider.PagesCrawled())
	}
	// Verification, the failed seed fetch, and the single retry.
	if socks.Requests() != 3 {
		t.Errorf("proxy served %d requests, expected 3", socks.Requests())
	}
}

// TestNormalizeURL tests the frontier deduplication key.
func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		url    string
		want   string
		wantOK bool
	}{
		{"case folds in scheme and host", "HTTPS://Example.COM/Path", "https://example.com/Path", true},
		{"fragment is stripped", "https://example.com/p#x", "https://example.com/p", true},
		{"empty path becomes slash", "https://example.com", "https://example.com/", true},
		{"missing scheme rejected", "example.com/p", "", false},
		{"missing host rejected", "https:///p", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := normalizeURL(tt.url)
			if ok != tt.wantOK {
				t.Fatalf("normalizeURL(%q) ok = %v, expected %v", tt.url, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("normalizeURL(%q) = %q, expected %q", tt.url, got, tt.want)
			}
		})
	}
}
