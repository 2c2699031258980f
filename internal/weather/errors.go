package weather

import (
	"errors"
	"fmt"

	"github.com/i474232898/pws-daily-ingest/internal/common"
)

var (
	ErrValidation          = errors.New("invalid request")
	ErrConfiguration       = errors.New("server misconfigured")
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	ErrUpstreamDenied      = errors.New("upstream returned an error status")
	ErrUpstreamMalformed   = errors.New("upstream returned malformed data")
	ErrNoObservations      = errors.New("no observations for requested day")
	ErrStoreUnavailable    = errors.New("daily store unavailable")
	ErrNotFound            = errors.New("no daily record for date")
)

// MaxBodyPreview bounds how much of an upstream error body is echoed back.
const MaxBodyPreview = 300

// UpstreamStatusError carries a non-2xx upstream answer.
type UpstreamStatusError struct {
	StatusCode  int
	BodyPreview string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("%v: %d", ErrUpstreamDenied, e.StatusCode)
}

func (e *UpstreamStatusError) Unwrap() error {
	return ErrUpstreamDenied
}

// NewUpstreamStatusError truncates body to MaxBodyPreview characters.
func NewUpstreamStatusError(status int, body []byte) *UpstreamStatusError {
	return &UpstreamStatusError{
		StatusCode:  status,
		BodyPreview: common.Truncate(string(body), MaxBodyPreview),
	}
}
