package client

import "errors"

var (
	// ErrProviderUnavailable covers network errors, timeouts and 5xx responses
	// from either upstream provider.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrProviderResponseInvalid is returned when a provider responds 2xx but
	// the payload cannot be parsed into the expected shape. Hard failure for
	// weather; the suggestion pipeline falls back instead (see service/agro).
	ErrProviderResponseInvalid = errors.New("provider response invalid")

	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrLocationNotFound = errors.New("location not found")
	ErrRateLimited      = errors.New("rate limited")
)
