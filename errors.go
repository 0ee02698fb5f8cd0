package approvedeny

import "errors"

var (
	// ErrInvalidCredential is returned by New when the API key is empty.
	ErrInvalidCredential = errors.New("approvedeny: the sdk requires an api key to be provided at initialization")

	// ErrInvalidEncryptionKey is returned when a webhook signature is computed
	// or verified with an empty encryption key.
	ErrInvalidEncryptionKey = errors.New("approvedeny: the sdk requires an encryption key to verify webhook signatures")

	// ErrInvalidSignature is returned by VerifyWebhookSignature when the
	// signature does not match the payload.
	ErrInvalidSignature = errors.New("approvedeny: webhook signature does not match payload")
)
