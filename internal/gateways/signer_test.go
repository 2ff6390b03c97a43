package gateway

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignParams(t *testing.T) {
	t.Run("sorts keys and joins values after salt", func(t *testing.T) {
		hash := SignParams(map[string]string{
			"order_id": "ORD_42",
			"api_key":  "key1",
		}, "salt123")

		// SHA-512("salt123|key1|ORD_42")
		assert.Equal(t, "67A8F13FFB3A95C227C6D3D5510FDC285A3A309987ABB04AF3F5929FBC3E75519F1BFEE206DE134F3D8CB0C38B7D8828D11DCA73BA93F05C46150D4D75F1356A", hash)
	})

	t.Run("drops empty values entirely", func(t *testing.T) {
		withEmpty := SignParams(map[string]string{
			"api_key":  "key1",
			"order_id": "ORD_42",
			"email":    "",
			"phone":    "",
		}, "salt123")
		without := SignParams(map[string]string{
			"api_key":  "key1",
			"order_id": "ORD_42",
		}, "salt123")

		assert.Equal(t, without, withEmpty)
	})

	t.Run("collapses line breaks and whitespace runs in values", func(t *testing.T) {
		hash := SignParams(map[string]string{
			"api_key":        "key1",
			"order_id":       "ORD_42",
			"address_line_1": "  42 Marina\r\nBeach   Road ",
		}, "salt123")

		// SHA-512("salt123|42 Marina Beach Road|key1|ORD_42")
		assert.Equal(t, "9E222E2F688F5AFA02F8369CB536C56804AADA626CEAD624726815B4516A99AEC825A765E239D90552DA85324A5749665CDEBD056F761A3EE670C92B453A1FCA", hash)
	})

	t.Run("output is uppercase hex of sha512 length", func(t *testing.T) {
		hash := SignParams(map[string]string{"a": "b"}, "s")
		assert.Len(t, hash, 128)
		assert.Equal(t, strings.ToUpper(hash), hash)
	})
}

func TestSanitizeParam(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"plain value untouched", "Chennai", "Chennai"},
		{"crlf collapsed", "line1\r\nline2", "line1 line2"},
		{"runs collapsed", "a   b\t\tc", "a b c"},
		{"trimmed", "  padded  ", "padded"},
		{"only whitespace becomes empty", " \r\n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeParam(tt.in))
		})
	}
}

func TestWebhookHash(t *testing.T) {
	// SHA-512("TXN001|ORD_42|500.00|0|salt123")
	const expected = "ADD3708EC199A5CFA172EBBCCC1BF9D380E79647294A495A714E131E007F1436427CD7043AB90BB01005868031516BD2302833119907FDF51EBC8D9CFF18370B"

	hash := WebhookHash("TXN001", "ORD_42", "500.00", "0", "salt123")
	assert.Equal(t, expected, hash)
}

func TestVerifyWebhookHash(t *testing.T) {
	valid := WebhookHash("TXN001", "ORD_42", "500.00", "0", "salt123")

	t.Run("accepts matching hash", func(t *testing.T) {
		assert.True(t, VerifyWebhookHash("TXN001", "ORD_42", "500.00", "0", "salt123", valid))
	})

	t.Run("accepts lowercase received hash", func(t *testing.T) {
		assert.True(t, VerifyWebhookHash("TXN001", "ORD_42", "500.00", "0", "salt123", strings.ToLower(valid)))
	})

	t.Run("rejects empty hash", func(t *testing.T) {
		assert.False(t, VerifyWebhookHash("TXN001", "ORD_42", "500.00", "0", "salt123", ""))
	})

	t.Run("rejects tampered amount", func(t *testing.T) {
		assert.False(t, VerifyWebhookHash("TXN001", "ORD_42", "9999.00", "0", "salt123", valid))
	})

	t.Run("rejects wrong salt", func(t *testing.T) {
		assert.False(t, VerifyWebhookHash("TXN001", "ORD_42", "500.00", "0", "othersalt", valid))
	})

	t.Run("raw values are hashed without normalization", func(t *testing.T) {
		// "500.00" and "500.0" are the same amount but different hashes.
		fromRaw := WebhookHash("TXN001", "ORD_42", "500.0", "0", "salt123")
		assert.NotEqual(t, valid, fromRaw)
	})
}
