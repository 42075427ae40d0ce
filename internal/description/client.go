package description

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/muurk/dialscan/internal/logging"
	"github.com/muurk/dialscan/internal/version"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 2

	// DefaultRetryDelay is the initial delay between retry attempts
	DefaultRetryDelay = 250 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 2 * time.Second

	// DefaultMaxBodySize caps how much of a description document is read
	DefaultMaxBodySize = 1 << 20
)

// Client fetches device description documents from SSDP locations
type Client struct {
	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// MaxBodySize is the largest document accepted, in bytes
	MaxBodySize int64
}

// NewClient creates a description client with default settings
func NewClient() *Client {
	return &Client{
		HTTPClient:    &http.Client{Timeout: DefaultTimeout},
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
		MaxBodySize:   DefaultMaxBodySize,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// Fetch downloads and parses the description at location.
// Network errors and 5xx responses are retried with exponential backoff;
// everything else fails immediately.
func (c *Client) Fetch(ctx context.Context, location string) (*Description, error) {
	if err := validateLocation(location); err != nil {
		return nil, err
	}

	var (
		desc    *Description
		attempt int
	)
	operation := func() error {
		attempt++
		d, err := c.fetchAttempt(ctx, location, attempt)
		if err != nil {
			if !IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		desc = d
		return nil
	}

	if err := backoff.Retry(operation, c.retryPolicy(ctx)); err != nil {
		logging.Debug("Description fetch failed",
			zap.String("location", location),
			zap.Int("attempts", attempt),
			zap.Error(err))
		return nil, err
	}
	return desc, nil
}

func (c *Client) retryPolicy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.RetryDelay
	exp.MaxInterval = c.MaxRetryDelay
	exp.MaxElapsedTime = 0

	// WithMaxRetries treats zero as unlimited
	if c.MaxRetries <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.MaxRetries)), ctx)
}

// fetchAttempt performs a single GET of the description document
func (c *Client) fetchAttempt(ctx context.Context, location string, attempt int) (*Description, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("failed to create request: %v", err), location)
	}
	req.Header.Set("Accept", "text/xml, application/xml")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewNetworkError("GET request failed", location, err)
	}
	defer func() { _ = resp.Body.Close() }()

	logging.LogHTTPRequest(req.Method, location, resp.StatusCode, attempt)

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, location)
	}

	limit := c.MaxBodySize
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, NewNetworkError("failed to read response body", location, err)
	}

	desc, err := Parse(body)
	if err != nil {
		if descErr, ok := err.(*DescriptionError); ok {
			descErr.Location = location
		}
		return nil, err
	}
	desc.Location = location
	desc.ApplicationURL = strings.TrimSpace(resp.Header.Get(ApplicationURLHeader))
	return desc, nil
}

func validateLocation(location string) error {
	u, err := url.Parse(location)
	if err != nil {
		return NewValidationError(fmt.Sprintf("invalid location URL: %v", err), location)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NewValidationError(fmt.Sprintf("unsupported location scheme %q", u.Scheme), location)
	}
	if u.Host == "" {
		return NewValidationError("location URL has no host", location)
	}
	return nil
}
