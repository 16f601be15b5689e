// Package main provides the entry point for the DocScoop CLI.
//
// DocScoop crawls a web site looking for publicly exposed documents
// (PDFs, spreadsheets, text files) and analyzes whether they look
// sensitive or unintended for public release. Crawl and download
// traffic can be routed through a Tor SOCKS proxy for anonymity.
//
// Usage:
//
//	docscoop scan https://example.com
//	docscoop scan --anonymous --depth 3 https://example.com
//
// See --help for all available options.
package main

// main is the entry point for DocScoop.
func main() {
	Execute()
}
