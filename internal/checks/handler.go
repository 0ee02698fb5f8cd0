// Package checks exposes the approvedeny check request operations over HTTP
// so internal services can reach the API without holding the API key.
package checks

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ownage/approvedeny-go"
	"github.com/ownage/approvedeny-go/internal/metrics"
)

// CheckRequester is implemented by *approvedeny.Client.
type CheckRequester interface {
	GetCheckRequest(ctx context.Context, checkRequestID string) (approvedeny.Document, error)
	CreateCheckRequest(ctx context.Context, checkID string, payload any) (approvedeny.Document, error)
	GetCheckRequestResponse(ctx context.Context, checkRequestID string) (approvedeny.Document, error)
}

// Handler contains dependencies for the check gateway handlers.
type Handler struct {
	Logger  *slog.Logger
	Client  CheckRequester
	Metrics *metrics.Metrics
}

// Routes mounts the gateway endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/checks/{checkID}/requests", h.HandleCreateCheckRequest)
	r.Get("/requests/{requestID}", h.HandleGetCheckRequest)
	r.Get("/requests/{requestID}/response", h.HandleGetCheckRequestResponse)
}

// HandleCreateCheckRequest forwards the JSON body as a new check request.
func (h *Handler) HandleCreateCheckRequest(w http.ResponseWriter, r *http.Request) {
	checkID := chi.URLParam(r, "checkID")

	var payload json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.Logger.Info("Creating check request", "check_id", checkID)
	doc, err := h.Client.CreateCheckRequest(r.Context(), checkID, payload)
	h.respond(w, "create_check_request", doc, err)
}

// HandleGetCheckRequest returns a single check request.
func (h *Handler) HandleGetCheckRequest(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Client.GetCheckRequest(r.Context(), chi.URLParam(r, "requestID"))
	h.respond(w, "get_check_request", doc, err)
}

// HandleGetCheckRequestResponse returns the response of a check request.
func (h *Handler) HandleGetCheckRequestResponse(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Client.GetCheckRequestResponse(r.Context(), chi.URLParam(r, "requestID"))
	h.respond(w, "get_check_request_response", doc, err)
}

// respond writes the API document through unchanged. Documents are returned
// with 200 whatever the upstream status was, since the client does not
// expose it.
func (h *Handler) respond(w http.ResponseWriter, operation string, doc approvedeny.Document, err error) {
	if err != nil {
		h.Logger.Error("approvedeny API call failed", "operation", operation, "error", err)
		h.Metrics.Gateway(operation, "error")
		http.Error(w, "Error reaching approvedeny", http.StatusBadGateway)
		return
	}
	if doc == nil {
		h.Logger.Error("approvedeny API returned a non-object body", "operation", operation)
		h.Metrics.Gateway(operation, "invalid_body")
		http.Error(w, "Unexpected response from approvedeny", http.StatusBadGateway)
		return
	}

	h.Metrics.Gateway(operation, "ok")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(doc)
}
