package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ownage/approvedeny-go"
	"github.com/ownage/approvedeny-go/internal/contextkeys"
	"github.com/ownage/approvedeny-go/internal/metrics"
)

// DefaultSignatureHeader carries the webhook signature unless configured otherwise.
const DefaultSignatureHeader = "X-Approvedeny-Signature"

// VerifySignature is a Chi middleware that checks the webhook signature in
// header against the canonical JSON of the request body.
func VerifySignature(logger *slog.Logger, encryptionKey, header string, m *metrics.Metrics) func(next http.Handler) http.Handler {
	if header == "" {
		header = DefaultSignatureHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signature := r.Header.Get(header)
			if signature == "" {
				logger.Warn("Missing signature header", "header", header)
				m.Webhook("missing_signature")
				http.Error(w, "Missing "+header+" header", http.StatusForbidden)
				return
			}

			bodyBytes, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Error("Failed to read request body", "error", err)
				m.Webhook("unreadable")
				http.Error(w, "Cannot read request body", http.StatusInternalServerError)
				return
			}
			_ = r.Body.Close()

			// Restore the body so the next handler can read it.
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			err = approvedeny.VerifyWebhookSignature(encryptionKey, signature, json.RawMessage(bodyBytes))
			switch {
			case err == nil:
			case errors.Is(err, approvedeny.ErrInvalidSignature):
				logger.Warn("Invalid signature received", "received_signature", signature)
				m.Webhook("invalid_signature")
				http.Error(w, "Invalid signature", http.StatusForbidden)
				return
			case errors.Is(err, approvedeny.ErrInvalidEncryptionKey):
				logger.Error("Webhook encryption key is not configured")
				m.Webhook("misconfigured")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			default:
				logger.Warn("Webhook body is not valid JSON", "error", err)
				m.Webhook("malformed")
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}

			ctx := context.WithValue(r.Context(), contextkeys.RequestBodyKey, bodyBytes)
			ctx = context.WithValue(ctx, contextkeys.SignatureKey, signature)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
