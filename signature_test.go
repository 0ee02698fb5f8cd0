package approvedeny

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// calculateHmac mirrors what the API does on its side.
func calculateHmac(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestIsValidWebhookSignature(t *testing.T) {
	c, err := New("__api_key__")
	require.NoError(t, err)

	const key = "my_encryption_key"
	payload := map[string]string{"foo": "bar"}

	testCases := []struct {
		name      string
		key       string
		signature string
		expected  bool
	}{
		{
			name:      "known_vector",
			key:       key,
			signature: "1432a3251834457fae5144eb56598583036a8d0ca64460ecbc5508a9b85e9a38",
			expected:  true,
		},
		{
			name:      "computed_signature",
			key:       key,
			signature: calculateHmac(key, `{"foo":"bar"}`),
			expected:  true,
		},
		{
			name:      "invalid_signature",
			key:       key,
			signature: "invalid_signature",
			expected:  false,
		},
		{
			name:      "uppercase_hex_is_rejected",
			key:       key,
			signature: "1432A3251834457FAE5144EB56598583036A8D0CA64460ECBC5508A9B85E9A38",
			expected:  false,
		},
		{
			name:      "wrong_key",
			key:       "other_key",
			signature: calculateHmac(key, `{"foo":"bar"}`),
			expected:  false,
		},
		{
			name:      "empty_key",
			key:       "",
			signature: calculateHmac("", `{"foo":"bar"}`),
			expected:  false,
		},
		{
			name:      "empty_signature",
			key:       key,
			signature: "",
			expected:  false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, c.IsValidWebhookSignature(tc.key, tc.signature, payload))
		})
	}
}

func TestVerifyWebhookSignature_Errors(t *testing.T) {
	payload := map[string]string{"foo": "bar"}

	assert.ErrorIs(t, VerifyWebhookSignature("", "sig", payload), ErrInvalidEncryptionKey)
	assert.ErrorIs(t, VerifyWebhookSignature("key", "sig", payload), ErrInvalidSignature)

	err := VerifyWebhookSignature("key", "sig", map[string]any{"fn": func() {}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidSignature)
}

func TestSignWebhookPayload_KeyOrderAndEscaping(t *testing.T) {
	// Matches the bytes a PHP sender produces with json_encode.
	const key = "whsec_test"
	const want = "de47c935e4960721b0c81ce0c87f7815cc925606d6b333111cb7b72af159ade4"

	body := []byte(`{"id":"evt_1","check_request_id":"req_1","url":"https://example.com/a","name":"Jos` + "\xc3\xa9" + `"}`)

	parsed, err := ParseWebhookPayload(body)
	require.NoError(t, err)

	ordered := orderedmap.New[string, any]()
	ordered.Set("id", "evt_1")
	ordered.Set("check_request_id", "req_1")
	ordered.Set("url", "https://example.com/a")
	ordered.Set("name", "Jos\xc3\xa9")

	type event struct {
		ID             string `json:"id"`
		CheckRequestID string `json:"check_request_id"`
		URL            string `json:"url"`
		Name           string `json:"name"`
	}

	for name, payload := range map[string]any{
		"parsed_body": parsed,
		"raw_body":    json.RawMessage(body),
		"ordered_map": ordered,
		"struct":      event{"evt_1", "req_1", "https://example.com/a", "Jos\xc3\xa9"},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := SignWebhookPayload(key, payload)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.NoError(t, VerifyWebhookSignature(key, want, payload))
		})
	}
}

func TestSignatureRoundTrip(t *testing.T) {
	roundTrip := func(key string, payload map[string]string) bool {
		if key == "" {
			return true
		}
		sig, err := SignWebhookPayload(key, payload)
		if err != nil {
			return false
		}
		return VerifyWebhookSignature(key, sig, payload) == nil
	}
	require.NoError(t, quick.Check(roundTrip, nil))
}

func TestSignatureMismatch(t *testing.T) {
	mismatch := func(key string, payload map[string]string, signature string) bool {
		if key == "" {
			return true
		}
		sig, err := SignWebhookPayload(key, payload)
		if err != nil {
			return false
		}
		if signature == sig {
			return true
		}
		return VerifyWebhookSignature(key, signature, payload) == ErrInvalidSignature
	}
	require.NoError(t, quick.Check(mismatch, nil))

	// Same length, one character flipped.
	sig, err := SignWebhookPayload("k", map[string]int{"n": 1})
	require.NoError(t, err)
	flipped := []byte(sig)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	assert.ErrorIs(t, VerifyWebhookSignature("k", string(flipped), map[string]int{"n": 1}), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyWebhookSignature("k", sig[:len(sig)-1], map[string]int{"n": 1}), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyWebhookSignature("k", sig+"0", map[string]int{"n": 1}), ErrInvalidSignature)
}

func TestParseWebhookPayload_RejectsNonObjects(t *testing.T) {
	_, err := ParseWebhookPayload([]byte(`["not","an","object"]`))
	assert.Error(t, err)
}
