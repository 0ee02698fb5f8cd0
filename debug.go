package approvedeny

import (
	"net/http"
	"net/http/httputil"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// debugDoer logs full request/response dumps around another Doer.
type debugDoer struct{ base Doer }

func (d *debugDoer) Do(req *http.Request) (*http.Response, error) {
	if dump, err := httputil.DumpRequestOut(req, true); err == nil {
		log.Debug().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Str("request_dump", redactAuthorization(string(dump), req.Header.Get("Authorization"))).
			Msg("approvedeny request")
	}

	resp, err := d.base.Do(req)
	if err != nil {
		log.Error().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("approvedeny request failed")
		return nil, err
	}

	if dump, err := httputil.DumpResponse(resp, true); err == nil {
		log.Debug().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Int("status_code", resp.StatusCode).
			Str("response_dump", string(dump)).
			Msg("approvedeny response")
	}
	return resp, nil
}

func redactAuthorization(dump, authorization string) string {
	if authorization == "" {
		return dump
	}
	return strings.ReplaceAll(dump, authorization, "Bearer [redacted]")
}

// debugLoggingRequested reports whether APPROVEDENY_DEBUG=true is set.
func debugLoggingRequested() bool {
	return os.Getenv("APPROVEDENY_DEBUG") == "true"
}
