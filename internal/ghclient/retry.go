package ghclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spiffcs/boardsync/internal/log"
)

// TransportError is returned when a call could not be completed after all
// retry attempts, or failed in a way retrying cannot fix.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Attempts   int
	Retryable  bool
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d after %d attempt(s)", e.Method, e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("%s %s: %v after %d attempt(s)", e.Method, e.URL, e.Err, e.Attempts)
}

func (e *TransportError) Unwrap() error { return e.Err }

// retryTransport retries network errors, per-attempt timeouts, 429s that
// are not rate limit signals, and 5xx responses with exponential backoff.
// Every attempt, first or retried, waits on the pacer.
type retryTransport struct {
	base     http.RoundTripper
	pacer    *pacer
	attempts int
	backoff  time.Duration
	timeout  time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	attempts := t.attempts
	if attempts < 1 || !replayable(req) {
		attempts = 1
	}

	var (
		lastErr    error
		lastStatus int
	)
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := t.backoff << (attempt - 1)
			log.Debug("retrying request", "method", req.Method, "url", req.URL.String(), "attempt", attempt+1, "delay", delay)
			if err := sleep(req.Context(), delay); err != nil {
				return nil, err
			}
		}

		if err := t.pacer.wait(req); err != nil {
			return nil, err
		}

		r, err := rewind(req)
		if err != nil {
			return nil, err
		}

		resp, err := t.attempt(r)
		if err != nil {
			// Cancellation of the caller's context is final.
			if req.Context().Err() != nil {
				return nil, req.Context().Err()
			}
			lastErr, lastStatus = err, 0
			continue
		}

		if !retryableStatus(resp) {
			return resp, nil
		}
		lastStatus = resp.StatusCode
		lastErr = fmt.Errorf("server responded %s", resp.Status)
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}

	return nil, &TransportError{
		Method:     req.Method,
		URL:        req.URL.Redacted(),
		StatusCode: lastStatus,
		Attempts:   attempts,
		Retryable:  true,
		Err:        lastErr,
	}
}

// attempt performs one round trip bounded by the per-attempt timeout. The
// timeout stays armed until the response body is closed.
func (t *retryTransport) attempt(req *http.Request) (*http.Response, error) {
	if t.timeout <= 0 {
		return t.base.RoundTrip(req)
	}

	ctx, cancel := context.WithTimeout(req.Context(), t.timeout)
	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("request timed out after %s: %w", t.timeout, err)
		}
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func retryableStatus(resp *http.Response) bool {
	if resp.StatusCode >= 500 {
		return true
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		return false
	}
	// A 429 carrying quota headers is left to rateLimitTransport.
	return resp.Header.Get("Retry-After") == "" && resp.Header.Get("X-RateLimit-Remaining") == ""
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// replayable reports whether req can be sent more than once.
func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// rewind returns a copy of req with a fresh body.
func rewind(req *http.Request) (*http.Request, error) {
	r := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		r.Body = body
	}
	return r, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
