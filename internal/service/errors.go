package service

import "errors"

// Failure taxonomy surfaced to the HTTP layer. Services wrap these sentinels
// so handlers can map them to status codes with errors.Is.
var (
	// ErrUnauthorized: bad or missing webhook signature.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden: bad media access token.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound: unknown message or out-of-range media index.
	ErrNotFound = errors.New("not found")

	// ErrUpstream: the provider returned a non-success for media content.
	ErrUpstream = errors.New("upstream error")

	// ErrStorageUnavailable: the sheet backend is unreachable or
	// misconfigured. Never retried here; the provider redelivers.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
