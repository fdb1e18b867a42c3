package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"invoiceId":"DON_1","txStatus":"SUCCESS"}`)
	secret := "shared-secret"

	t.Run("accepts raw shared secret", func(t *testing.T) {
		assert.True(t, VerifyWebhookSignature(body, secret, secret))
	})

	t.Run("accepts hmac of body", func(t *testing.T) {
		assert.True(t, VerifyWebhookSignature(body, SignHMAC(body, secret), secret))
	})

	t.Run("rejects wrong signature", func(t *testing.T) {
		assert.False(t, VerifyWebhookSignature(body, "nonsense", secret))
	})

	t.Run("rejects hmac computed over different body", func(t *testing.T) {
		sig := SignHMAC([]byte(`{"other":"payload"}`), secret)
		assert.False(t, VerifyWebhookSignature(body, sig, secret))
	})

	t.Run("rejects empty signature", func(t *testing.T) {
		assert.False(t, VerifyWebhookSignature(body, "", secret))
	})
}
