package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// CheckRequestEvent is the part of an approvedeny webhook the receiver acts
// on. Anything else in the body is kept in Data untouched.
type CheckRequestEvent struct {
	ID             string          `json:"id"`
	Event          string          `json:"event"`
	CheckRequestID string          `json:"check_request_id"`
	Status         string          `json:"status"`
	Data           json.RawMessage `json:"data"`
}

// DedupKey identifies the delivery for idempotency purposes: the event ID
// when the sender provides one, otherwise the payload signature.
func (e CheckRequestEvent) DedupKey(signature string) string {
	if e.ID != "" {
		return e.ID
	}
	return "sig:" + signature
}

// Job wraps a verified webhook body queued for processing.
type Job struct {
	ID        string
	Payload   []byte
	Signature string
	Attempts  int
}

// NewJob returns a job with a fresh ID.
func NewJob(payload []byte, signature string) Job {
	return Job{
		ID:        uuid.NewString(),
		Payload:   payload,
		Signature: signature,
	}
}
