package preload

import (
	"errors"
	"time"

	"github.com/fukivoice/fukivoice/pkg/tts"
)

// Class is the failure classification driving the retry decision.
type Class int

const (
	// ClassFatal covers every provider failure with no specific handling.
	// Deliberately not retried, even though some of these may be transient
	// in reality; the next batch picks the unit up again.
	ClassFatal Class = iota

	// ClassRateLimited marks provider throttling (HTTP 429). Retried with
	// exponential backoff until the attempt budget runs out.
	ClassRateLimited

	// ClassAuth marks rejected credentials (HTTP 401/403). Never retried.
	ClassAuth

	// ClassConfig marks a missing credential or unknown service name.
	// Never retried; no network attempt is made.
	ClassConfig
)

// String returns the class name for logging.
func (c Class) String() string {
	switch c {
	case ClassRateLimited:
		return "rate_limited"
	case ClassAuth:
		return "auth"
	case ClassConfig:
		return "config"
	default:
		return "fatal"
	}
}

// ClassifyFailure maps a synthesis error into the retry taxonomy.
func ClassifyFailure(err error) Class {
	if errors.Is(err, tts.ErrUnknownService) ||
		errors.Is(err, tts.ErrNoAPIKey) ||
		errors.Is(err, tts.ErrNoVoice) {
		return ClassConfig
	}

	var apiErr *tts.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsRateLimited():
			return ClassRateLimited
		case apiErr.IsUnauthorized(), apiErr.IsForbidden():
			return ClassAuth
		}
	}

	return ClassFatal
}

// Backoff computes the delay before the next attempt after a rate-limit
// failure on the given zero-based attempt: base, 2*base, 4*base, ...
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	return base << attempt
}
