package approvedeny

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Transport sends one request to the approvedeny API and returns the raw
// status code and body. path is relative to the transport's base URL and
// header holds per-request headers layered over the transport defaults.
//
// Implementations must not treat non-2xx statuses as errors.
type Transport interface {
	Send(ctx context.Context, method, path string, header http.Header, body []byte) (status int, respBody []byte, err error)
}

// HTTPTransport is the default Transport. It is bound to a base URL and a
// default header set at construction and is safe for concurrent use when its
// Doer is.
type HTTPTransport struct {
	baseURL string
	header  http.Header
	doer    Doer
}

// NewHTTPTransport returns a transport rooted at baseURL that adds header to
// every request. A nil doer falls back to an *http.Client with DefaultTimeout.
func NewHTTPTransport(baseURL string, header http.Header, doer Doer) (*HTTPTransport, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("approvedeny: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("approvedeny: base url %q must be absolute", baseURL)
	}
	if doer == nil {
		doer = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(u.String(), "/"),
		header:  header.Clone(),
		doer:    doer,
	}, nil
}

// BaseURL returns the URL every request path is resolved against.
func (t *HTTPTransport) BaseURL() string { return t.baseURL }

// Header returns a copy of the default header set.
func (t *HTTPTransport) Header() http.Header { return t.header.Clone() }

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, method, path string, header http.Header, body []byte) (int, []byte, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	for k, vs := range t.header {
		req.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range header {
		req.Header[k] = append([]string(nil), vs...)
	}

	resp, err := t.doer.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

func defaultHeader(apiKey string) http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+apiKey)
	h.Set("Accept", "application/json")
	h.Set("Content-Type", "application/json")
	h.Set("User-Agent", UserAgent)
	return h
}
