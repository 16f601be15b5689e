package config

import "errors"

// Configuration validation errors.
//
// These are package-level sentinel errors so callers can use errors.Is()
// for programmatic handling while still getting readable messages.
var (
	// ErrNoSeed is returned when no starting URL is provided.
	ErrNoSeed = errors.New("no seed URL specified: provide a starting URL as the first argument")

	// ErrInvalidSeed is returned when the seed URL is missing a scheme or host.
	ErrInvalidSeed = errors.New("invalid seed URL: scheme and host are required")

	// ErrInvalidDepth is returned when the crawl depth is negative.
	ErrInvalidDepth = errors.New("invalid crawl depth: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the retrieval concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrMissingAPIKey is returned when the sensitivity analysis credential
	// is absent. This is the one fatal configuration error: the scan never
	// starts without it.
	ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set: export it or add it to a .env file")

	// ErrLaunchWithoutAnonymous is returned when --launch-tor is given
	// without --anonymous. Launching a proxy that nothing uses is almost
	// certainly a mistake.
	ErrLaunchWithoutAnonymous = errors.New("--launch-tor requires --anonymous")
)
