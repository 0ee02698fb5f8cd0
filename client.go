// Package approvedeny is a client for the approvedeny check request API.
//
// A Client creates check requests, fetches check requests and their
// responses, and verifies webhook signatures:
//
//	client, err := approvedeny.New(os.Getenv("APPROVEDENY_API_KEY"))
//	if err != nil {
//		return err
//	}
//	doc, err := client.CreateCheckRequest(ctx, "check_id", map[string]any{
//		"description": "A description for the check request",
//		"metadata":    map[string]string{"key": "value"},
//	})
//
// The client is a direct pass-through: it does not retry, paginate or
// inspect HTTP status codes. Every response body that decodes as a JSON
// object is returned as a Document, including the API's error envelopes.
package approvedeny

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// Version of this SDK, reported in the User-Agent header.
	Version = "1.0.0"

	// UserAgent is sent with every request.
	UserAgent = "approvedeny-go/" + Version

	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://api.approvedeny.com"

	// DefaultTimeout bounds each request made by the built-in HTTP client.
	DefaultTimeout = 30 * time.Second
)

// Document is a decoded JSON object returned by the API. Its schema is owned
// by the remote service and is not validated here. Numbers are kept as
// json.Number so integers beyond float64 precision survive unchanged.
type Document map[string]any

// Client talks to the approvedeny API with a single API key.
//
// A Client is safe for concurrent use as long as its Transport is and
// SetTransport is not called while requests are in flight.
type Client struct {
	apiKey    string
	baseURL   string
	http      *http.Client
	doer      Doer
	debug     bool
	transport Transport
}

// New returns a Client authenticated with apiKey. It performs no network I/O.
// An empty apiKey yields ErrInvalidCredential.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrInvalidCredential
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		debug:   debugLoggingRequested(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.transport == nil {
		doer := c.doer
		if doer == nil {
			doer = c.http
		}
		if c.debug {
			doer = &debugDoer{base: doer}
		}
		t, err := NewHTTPTransport(c.baseURL, defaultHeader(c.apiKey), doer)
		if err != nil {
			return nil, err
		}
		c.transport = t
	}
	return c, nil
}

// Transport returns the transport requests are currently sent through.
func (c *Client) Transport() Transport { return c.transport }

// SetTransport replaces the transport used by all subsequent calls. t must
// not be nil, and the call must not race with in-flight requests.
func (c *Client) SetTransport(t Transport) { c.transport = t }

// GetCheckRequest fetches a single check request.
func (c *Client) GetCheckRequest(ctx context.Context, checkRequestID string) (Document, error) {
	return c.do(ctx, http.MethodGet, "/v1/requests/"+url.PathEscape(checkRequestID), nil)
}

// CreateCheckRequest creates a new request for the check identified by
// checkID. payload is sent JSON-encoded, typically a description and
// metadata.
func (c *Client) CreateCheckRequest(ctx context.Context, checkID string, payload any) (Document, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("approvedeny: encode check request payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/v1/checks/"+url.PathEscape(checkID), body)
}

// GetCheckRequestResponse fetches the response recorded for a check request.
func (c *Client) GetCheckRequestResponse(ctx context.Context, checkRequestID string) (Document, error) {
	return c.do(ctx, http.MethodGet, "/v1/requests/"+url.PathEscape(checkRequestID)+"/response", nil)
}

// do sends one request and decodes the body regardless of status. Transport
// errors are returned as-is; a body that is not a JSON object yields a nil
// Document and no error.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (Document, error) {
	_, data, err := c.transport.Send(ctx, method, path, nil, body)
	if err != nil {
		return nil, err
	}
	return decodeDocument(data), nil
}

func decodeDocument(data []byte) Document {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil
	}
	return doc
}
