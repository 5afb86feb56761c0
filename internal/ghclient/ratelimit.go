package ghclient

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spiffcs/boardsync/internal/constants"
	"github.com/spiffcs/boardsync/internal/log"
)

// ErrRateLimited is returned when GitHub's rate limit is exhausted and the
// reset is further away than the configured maximum wait.
var ErrRateLimited = errors.New("GitHub API rate limit exceeded")

// GitHub keeps a separate quota per API resource.
const (
	ResourceCore    = "core"
	ResourceSearch  = "search"
	ResourceGraphQL = "graphql"
)

// RateLimitState tracks the rate limits reported by GitHub response headers,
// one bucket per resource.
type RateLimitState struct {
	mu      sync.RWMutex
	buckets map[string]*quota
}

type quota struct {
	limited   bool
	resetAt   time.Time
	remaining int
	limit     int
}

// RateLimitStatus is a point-in-time copy of one resource's quota.
type RateLimitStatus struct {
	Resource  string
	Remaining int
	Limit     int
	ResetAt   time.Time
	Limited   bool
}

func (s *RateLimitState) bucket(resource string) *quota {
	if s.buckets == nil {
		s.buckets = make(map[string]*quota)
	}
	q, ok := s.buckets[resource]
	if !ok {
		q = &quota{}
		s.buckets[resource] = q
	}
	return q
}

// Update records the quota reported by a response for resource.
func (s *RateLimitState) Update(resource string, remaining, limit int, resetAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.bucket(resource)
	q.remaining = remaining
	q.limit = limit
	q.resetAt = resetAt
	q.limited = remaining == 0
}

// SetLimited marks resource as limited until resetAt.
func (s *RateLimitState) SetLimited(resource string, resetAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.bucket(resource)
	q.limited = true
	q.resetAt = resetAt
}

// Wait returns how long a request against resource must wait. Zero means
// the resource is not limited.
func (s *RateLimitState) Wait(resource string, now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.buckets[resource]
	if !ok || !q.limited || !now.Before(q.resetAt) {
		return 0
	}
	return q.resetAt.Sub(now)
}

// StatusFor returns the status of one resource.
func (s *RateLimitState) StatusFor(resource string, now time.Time) RateLimitStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.buckets[resource]
	if !ok {
		return RateLimitStatus{Resource: resource}
	}
	return q.status(resource, now)
}

// Status returns the most constrained resource: a limited one first,
// otherwise the one with the smallest share of its quota left.
func (s *RateLimitState) Status() RateLimitStatus {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var worst RateLimitStatus
	found := false
	for _, resource := range []string{ResourceCore, ResourceSearch, ResourceGraphQL} {
		q, ok := s.buckets[resource]
		if !ok || (q.limit <= 0 && !q.limited) {
			continue
		}
		st := q.status(resource, now)
		if !found || tighter(st, worst) {
			worst, found = st, true
		}
	}
	return worst
}

func (q *quota) status(resource string, now time.Time) RateLimitStatus {
	return RateLimitStatus{
		Resource:  resource,
		Remaining: q.remaining,
		Limit:     q.limit,
		ResetAt:   q.resetAt,
		Limited:   q.limited && now.Before(q.resetAt),
	}
}

func tighter(a, b RateLimitStatus) bool {
	if a.Limited != b.Limited {
		return a.Limited
	}
	if a.Limit <= 0 || b.Limit <= 0 {
		return b.Limit <= 0 && a.Limit > 0
	}
	return float64(a.Remaining)/float64(a.Limit) < float64(b.Remaining)/float64(b.Limit)
}

// resourceFor names the quota a request is charged against.
func resourceFor(req *http.Request) string {
	switch p := req.URL.Path; {
	case strings.HasSuffix(p, "/graphql"):
		return ResourceGraphQL
	case strings.HasPrefix(p, "/search/") || strings.Contains(p, "/api/v3/search/"):
		return ResourceSearch
	default:
		return ResourceCore
	}
}

// rateLimitTransport blocks requests while GitHub reports the quota as
// exhausted. Waits longer than maxWait fail with ErrRateLimited instead.
type rateLimitTransport struct {
	base    http.RoundTripper
	state   *RateLimitState
	maxWait time.Duration
	now     func() time.Time
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resource := resourceFor(req)
	if err := t.waitForReset(req.Context(), resource); err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	if r := resp.Header.Get("X-RateLimit-Resource"); r != "" {
		resource = r
	}
	remaining, limit, resetAt := parseRateLimitHeaders(resp)
	if remaining >= 0 && limit > 0 {
		t.state.Update(resource, remaining, limit, resetAt)
	}

	if remaining <= constants.RateLimitLowWatermark && remaining > 0 {
		log.Debug("rate limit low", "resource", resource, "remaining", remaining, "resets_at", resetAt.Format(time.RFC3339))
	}

	if !isRateLimitResponse(resp) {
		return resp, nil
	}

	// Primary limits report a reset time; secondary limits send Retry-After.
	if after, ok := retryAfter(resp, t.now()); ok {
		resetAt = after
	}
	if resetAt.IsZero() {
		resetAt = t.now().Add(time.Minute)
	}
	t.state.SetLimited(resource, resetAt)
	log.Warn("rate limited by GitHub", "resource", resource, "status", resp.StatusCode, "resets_at", resetAt.Format(time.RFC3339))

	if !replayable(req) {
		return resp, nil
	}
	_ = resp.Body.Close()

	if err := t.waitForReset(req.Context(), resource); err != nil {
		return nil, err
	}
	retry, err := rewind(req)
	if err != nil {
		return nil, err
	}
	return t.base.RoundTrip(retry)
}

func (t *rateLimitTransport) waitForReset(ctx context.Context, resource string) error {
	wait := t.state.Wait(resource, t.now())
	if wait <= 0 {
		return nil
	}
	if wait > t.maxWait {
		return ErrRateLimited
	}

	log.Info("waiting for rate limit reset", "resource", resource, "wait", wait.Round(time.Second))
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isRateLimitResponse reports whether resp is a primary or secondary limit.
func isRateLimitResponse(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		return resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.Header.Get("Retry-After") != ""
	default:
		return false
	}
}

// parseRateLimitHeaders extracts rate limit info from response headers.
func parseRateLimitHeaders(resp *http.Response) (remaining, limit int, resetAt time.Time) {
	remaining = -1
	limit = -1

	if remainingStr := resp.Header.Get("X-RateLimit-Remaining"); remainingStr != "" {
		if rem, err := strconv.Atoi(remainingStr); err == nil {
			remaining = rem
		}
	}

	if limitStr := resp.Header.Get("X-RateLimit-Limit"); limitStr != "" {
		if lim, err := strconv.Atoi(limitStr); err == nil {
			limit = lim
		}
	}

	if resetStr := resp.Header.Get("X-RateLimit-Reset"); resetStr != "" {
		if resetTime, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			resetAt = time.Unix(resetTime, 0)
		}
	}

	return remaining, limit, resetAt
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(resp *http.Response, now time.Time) (time.Time, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return time.Time{}, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return time.Time{}, false
	}
	return now.Add(time.Duration(secs) * time.Second), true
}
