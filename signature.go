package approvedeny

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ownage/approvedeny-go/internal/canonicaljson"
)

// SignWebhookPayload returns the hex HMAC-SHA256 of payload's canonical JSON
// keyed with encryptionKey, the value the API sends alongside a webhook.
//
// The canonical JSON is compact, keeps producer key order and escapes strings
// like PHP's json_encode ("/" as "\/", non-ASCII as \uXXXX). Structs,
// json.RawMessage, ordered maps and ParseWebhookPayload results keep their
// key order; plain Go maps are encoded with sorted keys.
func SignWebhookPayload(encryptionKey string, payload any) (string, error) {
	if encryptionKey == "" {
		return "", ErrInvalidEncryptionKey
	}
	msg, err := canonicaljson.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("approvedeny: encode webhook payload: %w", err)
	}
	mac := hmac.New(sha256.New, []byte(encryptionKey))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifyWebhookSignature checks signature against payload in constant time.
// It returns ErrInvalidEncryptionKey for an empty key and ErrInvalidSignature
// on mismatch.
func VerifyWebhookSignature(encryptionKey, signature string, payload any) error {
	expected, err := SignWebhookPayload(encryptionKey, payload)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// IsValidWebhookSignature reports whether signature is the webhook signature
// of payload under encryptionKey. An empty key is never valid.
func (c *Client) IsValidWebhookSignature(encryptionKey, signature string, payload any) bool {
	return VerifyWebhookSignature(encryptionKey, signature, payload) == nil
}

// VerifyWebhookSignature is the error-returning form of IsValidWebhookSignature.
func (c *Client) VerifyWebhookSignature(encryptionKey, signature string, payload any) error {
	return VerifyWebhookSignature(encryptionKey, signature, payload)
}
