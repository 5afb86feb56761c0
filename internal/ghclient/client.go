package ghclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/spiffcs/boardsync/internal/constants"
)

const defaultGraphQLURL = "https://api.github.com/graphql"

// Client wraps the GitHub REST and GraphQL APIs behind one paced,
// rate-limit-aware HTTP client.
type Client struct {
	client     *gh.Client
	http       *http.Client
	graphqlURL string
	rateLimit  *RateLimitState
}

// Options configures a Client.
type Options struct {
	BaseURL          string
	GraphQLURL       string
	PacingInterval   time.Duration
	PacingBurst      int
	MaxRateLimitWait time.Duration
	RetryAttempts    int
	RetryBackoff     time.Duration
	RequestTimeout   time.Duration

	// Transport is the innermost round tripper. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// Option is a functional option for configuring a Client.
type Option func(*Options)

// WithBaseURL points REST calls at a different API root, e.g. GitHub Enterprise.
func WithBaseURL(u string) Option {
	return func(o *Options) { o.BaseURL = u }
}

// WithGraphQLURL points GraphQL calls at a different endpoint.
func WithGraphQLURL(u string) Option {
	return func(o *Options) { o.GraphQLURL = u }
}

// WithPacing sets the token bucket interval and burst. An interval of zero
// disables pacing.
func WithPacing(interval time.Duration, burst int) Option {
	return func(o *Options) {
		o.PacingInterval = interval
		o.PacingBurst = burst
	}
}

// WithMaxRateLimitWait sets how long a call may block on a rate limit reset.
func WithMaxRateLimitWait(d time.Duration) Option {
	return func(o *Options) { o.MaxRateLimitWait = d }
}

// WithRetry sets the number of attempts and the base backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(o *Options) {
		o.RetryAttempts = attempts
		o.RetryBackoff = backoff
	}
}

// WithRequestTimeout bounds each HTTP attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) { o.RequestTimeout = d }
}

// WithTransport replaces the innermost round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *Options) { o.Transport = rt }
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		GraphQLURL:       defaultGraphQLURL,
		PacingInterval:   constants.DefaultPacingInterval,
		PacingBurst:      constants.DefaultPacingBurst,
		MaxRateLimitWait: constants.DefaultMaxRateLimitWait,
		RetryAttempts:    constants.DefaultRetryAttempts,
		RetryBackoff:     constants.DefaultRetryBackoff,
		RequestTimeout:   constants.DefaultRequestTimeout,
		Transport:        http.DefaultTransport,
	}
}

// NewClient creates a GitHub client authenticated with token. Every call,
// REST or GraphQL, passes through pacing, rate limit handling and retries.
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("GitHub token not provided. Set the GITHUB_TOKEN environment variable")
	}

	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Transport == nil {
		o.Transport = http.DefaultTransport
	}

	state := &RateLimitState{}

	// Outermost first: rate limit, retry, auth. Pacing sits inside retry so
	// retried attempts and rate limit re-sends take a token too.
	var rt http.RoundTripper = &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		Base:   o.Transport,
	}
	rt = &retryTransport{
		base:     rt,
		pacer:    newPacer(o.PacingInterval, o.PacingBurst),
		attempts: o.RetryAttempts,
		backoff:  o.RetryBackoff,
		timeout:  o.RequestTimeout,
	}
	rt = &rateLimitTransport{base: rt, state: state, maxWait: o.MaxRateLimitWait, now: time.Now}

	httpClient := &http.Client{Transport: rt}
	client := gh.NewClient(httpClient)

	if o.BaseURL != "" {
		base := o.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", o.BaseURL, err)
		}
		client.BaseURL = u
	}

	graphqlURL := o.GraphQLURL
	if graphqlURL == "" {
		graphqlURL = defaultGraphQLURL
	}

	return &Client{
		client:     client,
		http:       httpClient,
		graphqlURL: graphqlURL,
		rateLimit:  state,
	}, nil
}

// AuthenticatedUser returns the authenticated user's login
func (c *Client) AuthenticatedUser(ctx context.Context) (string, error) {
	user, _, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("failed to get authenticated user: %w", err)
	}
	return user.GetLogin(), nil
}

// RateLimits fetches the current GitHub API rate limit status.
func (c *Client) RateLimits(ctx context.Context) (*gh.RateLimits, error) {
	limits, _, err := c.client.RateLimit.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get rate limits: %w", err)
	}
	return limits, nil
}

// RateLimitStatus returns the most constrained quota seen so far.
func (c *Client) RateLimitStatus() RateLimitStatus {
	return c.rateLimit.Status()
}
