package session

import (
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/FlyMan2612/DocCrawler/internal/tor"
)

// userAgentPool is the fixed rotation pool for anonymous sessions.
// A small pool of realistic, common browser strings blends into normal
// traffic better than either a single repeated string or a large pool
// of exotic ones.
var userAgentPool = []string{
	// Windows Chrome
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	// Windows Firefox
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	// Mac Safari
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
	// Linux Firefox
	"Mozilla/5.0 (X11; Linux x86_64; rv:89.0) Gecko/20100101 Firefox/89.0",
	// Edge
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36 Edg/91.0.864.59",
}

// directUserAgent is the single stable profile for non-anonymous mode.
const directUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Factory produces HTTP clients for the current transport mode.
// It holds an explicit transport handle rather than reading ambient
// proxy state, so anonymous and direct clients could coexist safely.
type Factory struct {
	transport *tor.Transport
	timeout   time.Duration
}

// NewFactory creates a session factory. The transport may be in any
// state; each New call reads the state at that moment, so sessions
// created after an identity rotation pick up the fresh circuit.
func NewFactory(transport *tor.Transport, timeout time.Duration) *Factory {
	return &Factory{transport: transport, timeout: timeout}
}

// New returns a client configured for the transport's current mode.
//
// Anonymous mode binds the transport's DialContext into the HTTP
// transport so every outbound connection, including redirects and
// TLS dials, goes through the SOCKS endpoint; proxying only the
// high-level request path would leak the true network origin. It also
// attaches a randomized browser identification header plus
// privacy-signaling headers.
//
// Direct mode uses the default network path and one stable profile.
func (f *Factory) New() *http.Client {
	// Cookie jar so multi-page sites with session cookies crawl coherently.
	jar, _ := cookiejar.New(nil) //nolint:errcheck // only fails with invalid options

	client := &http.Client{
		Timeout: f.timeout,
		Jar:     jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	socksClient := f.transport.Client()
	if f.transport.Active() && socksClient != nil {
		client.Transport = &headerTransport{
			base: &http.Transport{
				DialContext: socksClient.DialContext,
				// Each connection rides a Tor circuit, a scarcer
				// resource than a direct TCP connection.
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     30 * time.Second,
				// Compressed response sizes are a content side channel;
				// not worth the bandwidth on an anonymity path.
				DisableCompression: true,
			},
			headers: anonymousHeaders(),
		}
		return client
	}

	client.Transport = &headerTransport{
		base:    http.DefaultTransport,
		headers: map[string]string{"User-Agent": directUserAgent},
	}
	return client
}

// anonymousHeaders builds the fingerprint-resistant header set for one
// anonymous session: a random pool entry plus privacy signals.
func anonymousHeaders() map[string]string {
	return map[string]string{
		"User-Agent":                userAgentPool[rand.IntN(len(userAgentPool))],
		"Accept-Language":           "en-US,en;q=0.5",
		"DNT":                       "1",
		"Upgrade-Insecure-Requests": "1",
	}
}

// headerTransport injects a fixed header set into every request,
// including redirects, which per-request header setting would miss.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for key, value := range t.headers {
		if clone.Header.Get(key) == "" {
			clone.Header.Set(key, value)
		}
	}
	return t.base.RoundTrip(clone)
}
