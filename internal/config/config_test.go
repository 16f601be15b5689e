package config

import (
	"errors"
	"testing"
	"time"
)

// validConfig returns a config that passes validation.
func validConfig() *Config {
	c := NewConfig()
	c.Seed = "https://example.com"
	c.APIKey = "test-key"
	return c
}

// TestNewConfig tests default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	c := NewConfig()

	if c.CrawlDepth != DefaultCrawlDepth {
		t.Errorf("CrawlDepth = %d, expected %d", c.CrawlDepth, DefaultCrawlDepth)
	}
	if c.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, expected %v", c.Timeout, DefaultTimeout)
	}
	if c.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, expected %d", c.Concurrency, DefaultConcurrency)
	}
	if len(c.DocumentExtensions) == 0 {
		t.Error("expected default document extensions")
	}
	if len(c.IgnoreExtensions) == 0 {
		t.Error("expected default ignore extensions")
	}
}

// TestConfigValidate tests validation rules.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	t.Run("valid config passes", func(t *testing.T) {
		t.Parallel()

		if err := validConfig().Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"missing seed", func(c *Config) { c.Seed = "" }, ErrNoSeed},
		{"seed without scheme", func(c *Config) { c.Seed = "example.com" }, ErrInvalidSeed},
		{"seed without host", func(c *Config) { c.Seed = "https://" }, ErrInvalidSeed},
		{"negative depth", func(c *Config) { c.CrawlDepth = -1 }, ErrInvalidDepth},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"zero download timeout", func(c *Config) { c.DownloadTimeout = 0 }, ErrInvalidTimeout},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, ErrInvalidConcurrency},
		{"missing api key", func(c *Config) { c.APIKey = "" }, ErrMissingAPIKey},
		{"launch without anonymous", func(c *Config) { c.LaunchTor = true }, ErrLaunchWithoutAnonymous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validConfig()
			tt.mutate(c)
			if err := c.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, expected %v", err, tt.wantErr)
			}
		})
	}

	t.Run("launch with anonymous passes", func(t *testing.T) {
		t.Parallel()

		c := validConfig()
		c.Anonymous = true
		c.LaunchTor = true
		if err := c.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("depth zero is allowed", func(t *testing.T) {
		t.Parallel()

		c := validConfig()
		c.CrawlDepth = 0
		if err := c.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

// TestAddressHelpers tests SOCKS and control endpoint formatting.
func TestAddressHelpers(t *testing.T) {
	t.Parallel()

	c := NewConfig()
	c.SocksPort = 9150
	c.ControlPort = 9151

	if got := c.SocksAddr(); got != "127.0.0.1:9150" {
		t.Errorf("SocksAddr() = %q, expected 127.0.0.1:9150", got)
	}
	if got := c.ControlAddr(); got != "127.0.0.1:9151" {
		t.Errorf("ControlAddr() = %q, expected 127.0.0.1:9151", got)
	}
}

// TestDefaultTimeouts sanity-checks the timeout relationship.
func TestDefaultTimeouts(t *testing.T) {
	t.Parallel()

	if DefaultDownloadTimeout <= DefaultTimeout {
		t.Error("download timeout should exceed the crawl timeout")
	}
	if DefaultTimeout < time.Second {
		t.Error("crawl timeout suspiciously small")
	}
}
