package domain

import "errors"

var (
	// ErrFeedFormat means the feed table has no dashed separator line, so
	// its column layout cannot be trusted.
	ErrFeedFormat = errors.New("feed format unrecognized: dashed separator line not found")

	// ErrMissingMagnitude means an event reports neither Mw nor ML.
	ErrMissingMagnitude = errors.New("event has neither Mw nor ML magnitude")

	// ErrMalformedRecord wraps every per-line parse failure.
	ErrMalformedRecord = errors.New("malformed feed record")
)
