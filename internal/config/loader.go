package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".docscoop"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .docscoop configuration file.
// It holds scan defaults that would be tedious to repeat as CLI flags,
// chiefly the extension lists.
type File struct {
	// DocumentExtensions replaces the built-in document allow-list
	// when non-empty. Entries may be written with or without the dot.
	DocumentExtensions []string `yaml:"documentExtensions,omitempty"`

	// IgnoreExtensions is appended to the built-in deny-list.
	IgnoreExtensions []string `yaml:"ignoreExtensions,omitempty"`

	// Depth overrides the default crawl depth when positive.
	Depth int `yaml:"depth,omitempty"`

	// Concurrency overrides the retrieval pool size when positive.
	Concurrency int `yaml:"concurrency,omitempty"`
}

// LoadConfigFile loads scan defaults from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound so callers
// can distinguish a missing optional file from a malformed one.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file:
// 1. the explicit path, if given
// 2. .docscoop in the current directory
// 3. .docscoop in the user's home directory
// Returns empty string if none exists.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}

// Apply merges file values into the config. File values only override
// where set; CLI flags applied after this call still win.
func (cf *File) Apply(c *Config) {
	if len(cf.DocumentExtensions) > 0 {
		c.DocumentExtensions = NormalizeExtensions(cf.DocumentExtensions)
	}
	if len(cf.IgnoreExtensions) > 0 {
		c.IgnoreExtensions = append(c.IgnoreExtensions, NormalizeExtensions(cf.IgnoreExtensions)...)
	}
	if cf.Depth > 0 {
		c.CrawlDepth = cf.Depth
	}
	if cf.Concurrency > 0 {
		c.Concurrency = cf.Concurrency
	}
}

// NormalizeExtensions lower-cases extensions and ensures a leading dot,
// so "PDF", "pdf" and ".pdf" all compare equal during classification.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
