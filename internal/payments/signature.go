package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrSignatureMismatch is returned when the gateway signature does not match
// the order and payment ids.
var ErrSignatureMismatch = errors.New("payments: signature mismatch")

// VerifySignature checks a checkout success signature:
// hex(HMAC-SHA256(secret, "<order_id>|<payment_id>")).
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	expected := Sign(secret, orderID, paymentID)
	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected))
}

// Sign computes the signature VerifySignature expects.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
