// Package config provides configuration structures and utilities for
// the document scanner. It defines the crawl, transport, and output
// options populated from CLI flags, plus the optional .docscoop YAML
// file that overrides the document extension lists.
package config
