package config

import (
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. Where the original tool had an opinion
// (depth 2, 30s timeout, ports 9050/9051) we keep it.
const (
	// DefaultCrawlDepth bounds link recursion from the seed. Depth 2
	// covers the seed, its links, and their links, which finds most
	// exposed document listings without runaway crawling.
	DefaultCrawlDepth = 2

	// DefaultTimeout is the per-request timeout for crawl fetches.
	DefaultTimeout = 30 * time.Second

	// DefaultDownloadTimeout is the per-request timeout for document
	// retrieval. Longer than the crawl timeout because document
	// payloads can be large and streamed.
	DefaultDownloadTimeout = 120 * time.Second

	// DefaultSocksPort is the standard Tor SOCKS port.
	DefaultSocksPort = 9050

	// DefaultControlPort is the standard Tor control port.
	DefaultControlPort = 9051

	// DefaultConcurrency is the number of parallel document retrievals.
	// Document downloads are independent, so a small pool speeds up the
	// retrieval phase without hammering the target or the proxy.
	DefaultConcurrency = 4

	// DefaultDownloadRetries bounds rotate-then-retry cycles per
	// document when the anonymous transport is active. Retrying forever
	// on a persistently broken target would hang the scan.
	DefaultDownloadRetries = 3

	// DefaultMaxBodySize limits how much of a crawled page is read.
	// 5MB is plenty for HTML while preventing memory exhaustion.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultAnalysisSampleSize caps the text handed to the sensitivity
	// analysis collaborator. First 10K characters, as the collaborator
	// prices and truncates by input size anyway.
	DefaultAnalysisSampleSize = 10000

	// AppName is used for XDG directory paths.
	AppName = "docscoop"
)

// DefaultDocumentExtensions are the path extensions classified as
// retrievable documents.
func DefaultDocumentExtensions() []string {
	return []string{".pdf", ".txt", ".doc", ".docx", ".rtf", ".csv", ".xls", ".xlsx"}
}

// DefaultIgnoreExtensions are extensions never crawled or retrieved:
// image and video media irrelevant to a document scan.
func DefaultIgnoreExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".svg", ".mp4", ".avi", ".mov"}
}

// Config holds all options for one scan run. It is populated from CLI
// flags and the optional .docscoop file, then passed down by value
// injection rather than global state.
type Config struct {
	// Seed is the starting URL for the crawl.
	Seed string

	// CrawlDepth is the maximum recursion depth. 0 fetches only the seed.
	CrawlDepth int

	// Timeout is the per-request timeout for crawl fetches.
	Timeout time.Duration

	// DownloadTimeout is the per-request timeout for document retrieval.
	DownloadTimeout time.Duration

	// DocumentExtensions is the extension allow-list for classification.
	DocumentExtensions []string

	// IgnoreExtensions is the extension deny-list. A match here wins
	// over a DocumentExtensions match.
	IgnoreExtensions []string

	// Anonymous routes all traffic through the Tor SOCKS proxy.
	Anonymous bool

	// LaunchTor starts a Tor process if none is reachable.
	// Only meaningful together with Anonymous.
	LaunchTor bool

	// SocksPort and ControlPort locate the local Tor endpoints.
	SocksPort   int
	ControlPort int

	// ControlPassword authenticates against the control port. Empty
	// means default authentication (cookie or NULL).
	ControlPassword string

	// APIKey is the sensitivity-analysis credential. Required.
	APIKey string

	// Concurrency is the size of the document retrieval worker pool.
	Concurrency int

	// DownloadRetries bounds per-document retry attempts in anonymous mode.
	DownloadRetries int

	// MaxBodySize limits crawl response body reads, in bytes.
	MaxBodySize int64

	// OutputFile, when set, receives the CSV results table.
	OutputFile string

	// MarkdownReport writes the human-facing report as Markdown
	// instead of plain text.
	MarkdownReport bool

	// Verbose enables debug logging; Silent suppresses progress output.
	Verbose bool
	Silent  bool

	// DBDir is the directory holding the scan-history SQLite database.
	DBDir string
}

// NewConfig creates a Config with defaults. Many defaults are non-zero,
// so relying on zero values would be error-prone; the constructor also
// documents what the defaults are.
func NewConfig() *Config {
	return &Config{
		CrawlDepth:         DefaultCrawlDepth,
		Timeout:            DefaultTimeout,
		DownloadTimeout:    DefaultDownloadTimeout,
		DocumentExtensions: DefaultDocumentExtensions(),
		IgnoreExtensions:   DefaultIgnoreExtensions(),
		SocksPort:          DefaultSocksPort,
		ControlPort:        DefaultControlPort,
		Concurrency:        DefaultConcurrency,
		DownloadRetries:    DefaultDownloadRetries,
		MaxBodySize:        DefaultMaxBodySize,
		DBDir:              XDGDataDir(),
	}
}

// XDGDataDir returns the data directory following the XDG Base
// Directory Specification (~/.local/share/docscoop on Linux). The
// launched Tor data directory and the SQLite history live here.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// TorDataDir returns the data directory handed to a launched Tor process.
func TorDataDir() string {
	return filepath.Join(XDGDataDir(), "tor_data")
}

// Validate checks the configuration and returns the first problem found.
// It is called once after flag parsing, before any network activity,
// so configuration errors fail fast with a clear message.
func (c *Config) Validate() error {
	if c.Seed == "" {
		return ErrNoSeed
	}

	u, err := url.Parse(c.Seed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidSeed
	}

	if c.CrawlDepth < 0 {
		return ErrInvalidDepth
	}

	if c.Timeout <= 0 || c.DownloadTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.LaunchTor && !c.Anonymous {
		return ErrLaunchWithoutAnonymous
	}

	if c.APIKey == "" {
		return ErrMissingAPIKey
	}

	return nil
}

// SocksAddr returns the SOCKS endpoint in "host:port" form.
// We use 127.0.0.1 rather than localhost to skip DNS resolution and
// avoid IPv6 surprises on some systems.
func (c *Config) SocksAddr() string {
	return hostPort(c.SocksPort)
}

// ControlAddr returns the control endpoint in "host:port" form.
func (c *Config) ControlAddr() string {
	return hostPort(c.ControlPort)
}

func hostPort(port int) string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
}
