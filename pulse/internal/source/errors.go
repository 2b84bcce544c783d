package source

import "errors"

var (
	// ErrUpstreamUnavailable marks network failures and non-2xx responses.
	ErrUpstreamUnavailable = errors.New("source: upstream unavailable")

	// ErrMalformedResponse marks a reachable upstream whose body did not
	// parse or did not contain the expected fields.
	ErrMalformedResponse = errors.New("source: malformed response")

	// ErrAllFallbacksExhausted is returned when every variant in a
	// fallback chain failed.
	ErrAllFallbacksExhausted = errors.New("source: all fallbacks exhausted")
)
