package contextkeys

// CtxKey is a custom type for context keys to avoid collisions.
type CtxKey string

const (
	// RequestBodyKey holds the verified raw webhook body ([]byte).
	RequestBodyKey CtxKey = "requestBody"

	// SignatureKey holds the verified webhook signature (string).
	SignatureKey CtxKey = "webhookSignature"
)
