package gateway

import (
	"crypto/sha512"
	"encoding/hex"
	"sort"
	"strings"
)

// SignParams computes the request signature the gateway expects on
// outbound calls: parameters with empty values are dropped, each value
// is sanitized, keys are sorted lexicographically and the values are
// joined as SALT|v1|v2|..., then SHA-512 and uppercase hex.
func SignParams(params map[string]string, salt string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(salt)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(sanitizeParam(params[k]))
	}

	sum := sha512.Sum512([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// sanitizeParam collapses line breaks and whitespace runs to single
// spaces and trims. Customers with line breaks in their address would
// otherwise produce a hash the gateway cannot reproduce.
func sanitizeParam(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

// WebhookHash computes the inbound notification signature. Unlike
// SignParams this uses the gateway's fixed field ordering
// transaction_id|order_id|amount|response_code|SALT; the two schemes
// coexist and must not be conflated.
func WebhookHash(transactionID, orderID, amount, responseCode, salt string) string {
	s := transactionID + "|" + orderID + "|" + amount + "|" + responseCode + "|" + salt
	sum := sha512.Sum512([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// VerifyWebhookHash reports whether the received hash matches the one
// computed over the raw webhook field values. A mismatch is always a
// verification failure; callers must reject the event.
func VerifyWebhookHash(transactionID, orderID, amount, responseCode, salt, received string) bool {
	if received == "" {
		return false
	}
	return WebhookHash(transactionID, orderID, amount, responseCode, salt) == strings.ToUpper(received)
}
