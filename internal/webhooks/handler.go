package webhooks

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ownage/approvedeny-go"
	"github.com/ownage/approvedeny-go/internal/contextkeys"
	"github.com/ownage/approvedeny-go/internal/metrics"
	"github.com/ownage/approvedeny-go/internal/models"
)

// ResponseLookup returns check request responses fetched by the workers.
type ResponseLookup interface {
	Response(checkRequestID string) (approvedeny.Document, bool)
}

// Handler contains dependencies for the webhook HTTP handlers.
type Handler struct {
	Logger    *slog.Logger
	JobQueue  chan<- models.Job
	Responses ResponseLookup
	Metrics   *metrics.Metrics
}

// NewHandler creates a new instance of the webhook Handler.
func NewHandler(logger *slog.Logger, jobQueue chan<- models.Job, responses ResponseLookup, m *metrics.Metrics) *Handler {
	return &Handler{
		Logger:    logger,
		JobQueue:  jobQueue,
		Responses: responses,
		Metrics:   m,
	}
}

// HandleWebhook queues a verified check request event for the worker pool.
// It must run behind middleware.VerifySignature.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	bodyBytes, ok := r.Context().Value(contextkeys.RequestBodyKey).([]byte)
	if !ok {
		h.Logger.Error("Could not retrieve request body from context")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	signature, _ := r.Context().Value(contextkeys.SignatureKey).(string)

	var event models.CheckRequestEvent
	if err := json.Unmarshal(bodyBytes, &event); err != nil {
		h.Metrics.Webhook("malformed")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if event.CheckRequestID == "" {
		h.Logger.Warn("Received webhook with unknown payload format", "body", string(bodyBytes))
		h.Metrics.Webhook("unknown_format")
		http.Error(w, "Unknown request format", http.StatusBadRequest)
		return
	}

	job := models.NewJob(bodyBytes, signature)
	select {
	case h.JobQueue <- job:
		h.Logger.Info("Webhook event successfully queued for processing",
			"job_id", job.ID,
			"event", event.Event,
			"check_request_id", event.CheckRequestID,
		)
		h.Metrics.Webhook("accepted")
		writeJSON(w, http.StatusAccepted, Receipt{
			Status:         "queued",
			JobID:          job.ID,
			CheckRequestID: event.CheckRequestID,
		})
	default:
		h.Logger.Error("Job queue is full. Rejecting webhook event.")
		h.Metrics.Webhook("queue_full")
		http.Error(w, "Server busy.", http.StatusServiceUnavailable)
	}
}

// HandleStoredResponse serves the response document a worker fetched for a
// check request.
func (h *Handler) HandleStoredResponse(w http.ResponseWriter, r *http.Request) {
	checkRequestID := chi.URLParam(r, "requestID")
	doc, ok := h.Responses.Response(checkRequestID)
	if !ok {
		http.Error(w, "No response received for this check request yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
