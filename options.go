package approvedeny

import (
	"fmt"
	"time"
)

// Option configures a Client during construction in New.
//
// Options that shape the default HTTPTransport (base URL, HTTP client,
// timeout, debug logging) are ignored when WithTransport supplies a transport.
type Option func(*Client) error

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		if baseURL == "" {
			return fmt.Errorf("approvedeny: base url cannot be empty")
		}
		c.baseURL = baseURL
		return nil
	}
}

// WithHTTPClient sends requests through doer instead of the built-in
// *http.Client. WithHTTPTimeout has no effect on a custom doer.
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) error {
		if doer == nil {
			return fmt.Errorf("approvedeny: http client cannot be nil")
		}
		c.doer = doer
		return nil
	}
}

// WithHTTPTimeout sets the Timeout of the built-in *http.Client.
//
// Prefer per-request context deadlines where possible; this bounds the whole
// exchange including connection setup and reading the body. Must be > 0.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("approvedeny: http timeout must be > 0")
		}
		c.http.Timeout = d
		return nil
	}
}

// WithDebugLogging dumps every request and response through zerolog at debug
// level when enabled is true. The Authorization header is redacted but bodies
// are logged in full, so keep this out of production.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		c.debug = enabled
		return nil
	}
}

// WithTransport installs t in place of the default HTTPTransport.
func WithTransport(t Transport) Option {
	return func(c *Client) error {
		if t == nil {
			return fmt.Errorf("approvedeny: transport cannot be nil")
		}
		c.transport = t
		return nil
	}
}
