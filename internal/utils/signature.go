package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// SignHMAC creates a hex-encoded HMAC-SHA256 signature of a message
func SignHMAC(message []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(message)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyWebhookSignature checks an inbound webhook signature against the
// configured shared secret. Providers are inconsistent here: some echo the
// raw shared secret, others send an HMAC-SHA256 of the body, so both are
// accepted. Comparison is constant-time to prevent timing attacks.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if subtle.ConstantTimeCompare([]byte(signature), []byte(secret)) == 1 {
		return true
	}
	expected := SignHMAC(body, secret)
	return subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1
}
