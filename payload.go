package approvedeny

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ownage/approvedeny-go/internal/canonicaljson"
)

// WebhookPayload is a decoded webhook body that remembers its key order.
type WebhookPayload = orderedmap.OrderedMap[string, any]

// ParseWebhookPayload decodes a received webhook body without losing key
// order or number formatting, so the result signs to the same value the
// sender computed. The body must be a JSON object.
func ParseWebhookPayload(body []byte) (*WebhookPayload, error) {
	return canonicaljson.DecodeOrdered(body)
}
