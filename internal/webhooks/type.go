package webhooks

// Receipt is the body returned for an accepted webhook delivery.
type Receipt struct {
	Status         string `json:"status"`
	JobID          string `json:"job_id"`
	CheckRequestID string `json:"check_request_id"`
}
