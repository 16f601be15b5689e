// Package download retrieves classified document URLs to uniquely
// named temporary files. Failures under the anonymous transport are
// recovered by rotating the exit identity, replacing the session, and
// retrying under a bounded exponential backoff budget; direct-mode
// failures are terminal for that document.
package download
