package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"medicos/m/domain"
)

// Sign returns the checkout signature the gateway issues for a payment:
// hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against the expected value in constant time.
func VerifySignature(secret, orderID, paymentID, signature string) error {
	if secret == "" || orderID == "" || paymentID == "" || signature == "" {
		return domain.ErrInvalidSignature
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return domain.ErrInvalidSignature
	}
	want, _ := hex.DecodeString(Sign(secret, orderID, paymentID))
	if !hmac.Equal(got, want) {
		return domain.ErrInvalidSignature
	}
	return nil
}
