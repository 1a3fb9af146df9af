package crawler

import (
	"errors"
	"fmt"

	"github.com/JakeFAU/misheard-crawler/internal/extract"
)

// FailureKind classifies why a unit of crawl work did not complete.
type FailureKind string

// Failure kinds recorded by the engine.
const (
	FailureTransport       FailureKind = "transport"
	FailureHTTPStatus      FailureKind = "http_status"
	FailureParseMiss       FailureKind = "parse_miss"
	FailurePublishRejected FailureKind = "publish_rejected"
)

// ErrNoLyrics marks a song page without any qualifying lyric anchors.
var ErrNoLyrics = errors.New("no misheard lyric links found")

// StatusError reports a fetch that completed with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// RejectedError reports a publish the ingestion endpoint did not accept.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("publish rejected with status %d", e.StatusCode)
	}
	return fmt.Sprintf("publish rejected with status %d: %s", e.StatusCode, e.Body)
}

// KindOf maps an error returned by any pipeline stage to its FailureKind.
// Unrecognized errors are treated as transport failures.
func KindOf(err error) FailureKind {
	var statusErr *StatusError
	var rejectedErr *RejectedError
	switch {
	case errors.As(err, &statusErr):
		return FailureHTTPStatus
	case errors.As(err, &rejectedErr):
		return FailurePublishRejected
	case errors.Is(err, extract.ErrParse), errors.Is(err, ErrNoLyrics):
		return FailureParseMiss
	default:
		return FailureTransport
	}
}
