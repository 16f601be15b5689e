package session

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/FlyMan2612/DocCrawler/internal/tor"
)

func inactiveTransport() *tor.Transport {
	return tor.NewTransport("127.0.0.1:1", "127.0.0.1:2",
		tor.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

// TestNewDirectSession tests client construction in direct mode.
func TestNewDirectSession(t *testing.T) {
	t.Parallel()

	factory := NewFactory(inactiveTransport(), 7*time.Second)
	client := factory.New()

	if client.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v, expected 7s", client.Timeout)
	}
	if client.Jar == nil {
		t.Error("expected a cookie jar")
	}
}

// TestDirectSessionUserAgent tests that direct sessions send the single
// stable browser profile.
func TestDirectSessionUserAgent(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	client := NewFactory(inactiveTransport(), 5*time.Second).New()
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if gotUA != directUserAgent {
		t.Errorf("User-Agent = %q, expected the direct profile %q", gotUA, directUserAgent)
	}
}

// TestHeaderTransportInjection tests that configured headers are set
// without overriding caller-provided values.
func TestHeaderTransportInjection(t *testing.T) {
	t.Parallel()

	var (
		gotUA  string
		gotDNT string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotDNT = r.Header.Get("DNT")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	client := &http.Client{
		Transport: &headerTransport{
			base:    http.DefaultTransport,
			headers: map[string]string{"User-Agent": "injected-agent", "DNT": "1"},
		},
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req.Header.Set("User-Agent", "caller-agent")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if gotUA != "caller-agent" {
		t.Errorf("User-Agent = %q, caller header must win", gotUA)
	}
	if gotDNT != "1" {
		t.Errorf("DNT = %q, expected injected header", gotDNT)
	}
}

// TestAnonymousHeaders tests the rotating header set.
func TestAnonymousHeaders(t *testing.T) {
	t.Parallel()

	pool := make(map[string]bool, len(userAgentPool))
	for _, ua := range userAgentPool {
		pool[ua] = true
	}

	for range 20 {
		headers := anonymousHeaders()

		if !pool[headers["User-Agent"]] {
			t.Fatalf("User-Agent %q is not from the rotation pool", headers["User-Agent"])
		}
		if headers["DNT"] != "1" {
			t.Error("DNT header missing")
		}
		if headers["Upgrade-Insecure-Requests"] != "1" {
			t.Error("Upgrade-Insecure-Requests header missing")
		}
		if headers["Accept-Language"] == "" {
			t.Error("Accept-Language header missing")
		}
	}
}

// TestRedirectLimit tests that long redirect chains stop at the last
// response instead of erroring out.
func TestRedirectLimit(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/hop/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewFactory(inactiveTransport(), 5*time.Second).New()
	resp, err := client.Get(srv.URL + "/hop/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	// The chain is infinite; the client must give up with the last
	// redirect response rather than an error.
	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, expected the final redirect response", resp.StatusCode)
	}
}
