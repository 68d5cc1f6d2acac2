package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifyAtlanticWebhookSignature checks the X-Signature header of a deposit
// callback: signature = HMAC-SHA256(reff_id + nominal + status, secret).
func VerifyAtlanticWebhookSignature(secret, reffID, nominal, status, signature string) bool {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(reffID + nominal + status))
	expected := hex.EncodeToString(h.Sum(nil))

	return strings.EqualFold(expected, signature)
}
