package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/i474232898/pws-daily-ingest/internal/weather"
	"github.com/sony/gobreaker"
)

// maxBodyBytes caps how much of an upstream response is read into memory.
const maxBodyBytes = 16 << 20

// HTTPClientConfig bundles the outbound HTTP client.
type HTTPClientConfig struct {
	Client *http.Client
}

var (
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// errCallerGone marks a request abandoned by its caller; it says nothing
// about upstream health.
var errCallerGone = errors.New("request cancelled by caller")

// countsAsSuccess tells the breaker which outcomes are not upstream failures.
func countsAsSuccess(err error) bool {
	return err == nil || errors.Is(err, errCallerGone)
}

// stripURL drops the request URL from net/url and net/http errors. The URL
// carries the api key and must not reach logs or clients.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s request: %w", ue.Op, ue.Err)
	}
	return err
}

func transportError(ctx context.Context, err error) error {
	err = stripURL(err)
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", errCallerGone, err)
	}
	return err
}

// doRequest executes the request once through the circuit breaker and reads the
// whole body. Only transport failures count against the breaker; HTTP error
// statuses and caller cancellation do not. There are no retries.
func doRequest(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (int, []byte, error) {
	if cfg.Client == nil {
		return 0, nil, fmt.Errorf("%w: %v", weather.ErrConfiguration, errNoHTTPClient)
	}

	req, err := buildRequest()
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", weather.ErrConfiguration, stripURL(err))
	}

	// Ensure the request obeys context cancellation.
	req = req.WithContext(ctx)

	if err := ctx.Err(); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", weather.ErrUpstreamUnreachable, err)
	}

	type result struct {
		status int
		body   []byte
	}

	out, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, transportError(ctx, execErr)
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if readErr != nil {
			return nil, transportError(ctx, readErr)
		}
		return result{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, nil, fmt.Errorf("%w: %v: %v", weather.ErrUpstreamUnreachable, errCircuitOpen, err)
		}
		return 0, nil, fmt.Errorf("%w: %v", weather.ErrUpstreamUnreachable, err)
	}

	r, ok := out.(result)
	if !ok {
		return 0, nil, fmt.Errorf("%w: unexpected result type from circuit breaker", weather.ErrUpstreamUnreachable)
	}
	return r.status, r.body, nil
}
