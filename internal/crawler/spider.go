package crawler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/FlyMan2612/DocCrawler/internal/session"
	"github.com/FlyMan2612/DocCrawler/internal/tor"
)

// Spider performs bounded-depth traversal of the link graph from a
// seed URL, collecting every URL classified as a document.
//
// Traversal uses an explicit queue of (URL, depth) items rather than
// call-stack recursion, so a deep or wide link graph cannot exhaust
// the stack. The frontier (visited set) is marked before any network
// call, which guarantees termination even under redirect loops.
type Spider struct {
	sessions   *session.Factory
	transport  *tor.Transport
	classifier *Classifier

	// client is the session all fetches go through. Replaced with a
	// fresh session after an identity rotation; in-flight requests
	// complete under the old session, never mixed.
	client *http.Client

	maxBodySize int64
	logger      *slog.Logger

	// mu guards frontier, documents and stats. Check-then-mark on the
	// frontier is a single critical section so two workers can never
	// claim the same URL.
	mu        sync.Mutex
	frontier  map[string]bool
	documents []string
	docSet    map[string]bool
	pages     int
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxBodySize limits how many bytes of a page are read for parsing.
func WithMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithSpiderLogger sets the structured logger.
func WithSpiderLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider. The session factory provides the HTTP
// client, and the transport is consulted for the rotate-and-retry
// policy on shallow fetch failures.
func NewSpider(sessions *session.Factory, transport *tor.Transport, classifier *Classifier, opts ...SpiderOption) *Spider {
	s := &Spider{
		sessions:    sessions,
		transport:   transport,
		classifier:  classifier,
		maxBodySize: 5 * 1024 * 1024,
		frontier:    make(map[string]bool),
		docSet:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.client = sessions.New()
	return s
}

// queueItem is one unit of traversal work.
type queueItem struct {
	url   string
	depth int

	// retry marks the single re-attempt of a URL after an identity
	// rotation. A retry bypasses the frontier check (it is the same
	// node) and is never retried again.
	retry bool
}

// Crawl walks the link graph from seed down to maxDepth and returns
// the document URLs discovered, in discovery order.
//
// Per-branch failures (malformed URLs, non-200 responses, timeouts)
// are logged and terminate only that branch. The one exception is a
// network-level failure at depth <= 1 while the anonymous transport is
// active: those get one identity rotation, a fresh session, and a
// single retry of the same URL at the same depth. Shallow fetches are
// the ones most likely blocked by a guard that a new exit identity can
// bypass; failing deep branches fast bounds retry amplification.
func (s *Spider) Crawl(ctx context.Context, seed string, maxDepth int) ([]string, error) {
	queue := []queueItem{{url: seed, depth: 0}}

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return s.Documents(), ctx.Err()
		default:
		}

		item := queue[0]
		queue = queue[1:]

		if !item.retry {
			if !s.visit(item.url) {
				continue
			}
		}

		s.logger.Debug("crawling", "url", item.url, "depth", item.depth)

		resp, err := s.fetch(ctx, item.url)
		if err != nil {
			if s.transport.Active() && item.depth <= 1 && !item.retry {
				s.logger.Warn("fetch failed at top level, rotating identity and retrying",
					"url", item.url, "error", err)
				s.transport.RotateIdentity(ctx)
				s.client = s.sessions.New()
				queue = append([]queueItem{{url: item.url, depth: item.depth, retry: true}}, queue...)
				continue
			}
			s.logger.Warn("fetch failed, abandoning branch", "url", item.url, "error", err)
			continue
		}

		contentType := resp.Header.Get("Content-Type")
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			s.logger.Warn("unexpected status, abandoning branch",
				"url", item.url, "status", resp.StatusCode)
			continue
		}

		// Fetched URL is itself a document: record it as a leaf.
		if s.classifier.IsDocumentURL(item.url) || s.classifier.IsDocumentContentType(contentType) {
			resp.Body.Close()
			s.recordDocument(item.url)
			continue
		}

		// Link extraction happens only above the depth limit; a page
		// at the limit is fetched and classified but never parsed.
		if item.depth >= maxDepth || !s.classifier.IsHTMLContentType(contentType) {
			resp.Body.Close()
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
		resp.Body.Close()
		if err != nil {
			s.logger.Warn("failed to read page body", "url", item.url, "error", err)
			continue
		}

		base, err := url.Parse(item.url)
		if err != nil {
			continue
		}

		links, err := ExtractLinks(bytes.NewReader(body), base)
		if err != nil {
			s.logger.Warn("failed to parse page", "url", item.url, "error", err)
			continue
		}

		for _, link := range links {
			switch {
			case s.classifier.ShouldIgnore(link):
				// Media irrelevant to the scan; never fetched.
			case s.classifier.IsDocumentURL(link):
				s.recordDocument(link)
			default:
				queue = append(queue, queueItem{url: link, depth: item.depth + 1})
			}
		}
	}

	return s.Documents(), nil
}

// fetch issues one GET through the current session and counts the page.
func (s *Spider) fetch(ctx context.Context, pageURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.pages++
	s.mu.Unlock()
	return resp, nil
}

// visit atomically checks the frontier and marks the URL visited.
// It returns false when the URL is malformed or already claimed.
// Marking happens before any network activity so no URL is ever
// fetched twice, regardless of how many paths reach it.
func (s *Spider) visit(rawURL string) bool {
	key, ok := normalizeURL(rawURL)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frontier[key] {
		return false
	}
	s.frontier[key] = true
	return true
}

// Visited reports whether a URL is already in the frontier.
func (s *Spider) Visited(rawURL string) bool {
	key, ok := normalizeURL(rawURL)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frontier[key]
}

// IsValidURL reports whether a URL is well-formed and not yet visited,
// i.e. whether traversal would act on it at all.
func (s *Spider) IsValidURL(rawURL string) bool {
	key, ok := normalizeURL(rawURL)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.frontier[key]
}

// recordDocument appends a URL to the document set once.
func (s *Spider) recordDocument(docURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docSet[docURL] {
		return
	}
	s.docSet[docURL] = true
	s.documents = append(s.documents, docURL)
	s.logger.Info("found document", "url", docURL)
}

// Documents returns the document set in discovery order.
func (s *Spider) Documents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.documents))
	copy(out, s.documents)
	return out
}

// PagesCrawled returns the number of fetches performed.
func (s *Spider) PagesCrawled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages
}

// normalizeURL produces the frontier deduplication key: lower-cased
// scheme and host, no fragment, and "" and "/" paths unified. URLs
// missing a scheme or host are rejected; identical pages reached via
// different textual forms collapse to one node.
func normalizeURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), true
}
