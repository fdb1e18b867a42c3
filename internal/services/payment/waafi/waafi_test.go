package waafi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samafal/backend/internal/models"
	"github.com/samafal/backend/internal/services/payment"
)

func validConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL,
		MerchantUID: "M0910291",
		APIUserID:   "1000297",
		APIKey:      "API-675418888AHX",
		Timeout:     5 * time.Second,
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing merchant uid", func(c *Config) { c.MerchantUID = "" }},
		{"missing api user id", func(c *Config) { c.APIUserID = "" }},
		{"missing api key", func(c *Config) { c.APIKey = "  " }},
		{"empty base url", func(c *Config) { c.BaseURL = "" }},
		{"relative base url", func(c *Config) { c.BaseURL = "api.waafipay.net/asm" }},
		{"bad scheme", func(c *Config) { c.BaseURL = "ftp://api.waafipay.net" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig("https://api.waafipay.net/asm")
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.Error(t, err)
		})
	}

	t.Run("valid config", func(t *testing.T) {
		adapter, err := New(validConfig("https://api.waafipay.net/asm"))
		require.NoError(t, err)
		assert.NotNil(t, adapter)
	})

	t.Run("zero timeout falls back to default", func(t *testing.T) {
		cfg := validConfig("https://api.waafipay.net/asm")
		cfg.Timeout = 0
		adapter, err := New(cfg)
		require.NoError(t, err)
		assert.Equal(t, defaultTimeout, adapter.httpClient.Timeout)
	})
}

func TestMapResponse(t *testing.T) {
	tests := []struct {
		name     string
		raw      models.JSON
		expected models.PaymentStatus
	}{
		{
			"responseCode zero string",
			models.JSON{"responseCode": "0"},
			models.PaymentStatusSuccess,
		},
		{
			"responseCode zero number",
			models.JSON{"responseCode": float64(0)},
			models.PaymentStatusSuccess,
		},
		{
			"statusCode 2001",
			models.JSON{"statusCode": "2001"},
			models.PaymentStatusSuccess,
		},
		{
			"transaction status SUCCESS",
			models.JSON{"transactionInfo": map[string]interface{}{"status": "success"}},
			models.PaymentStatusSuccess,
		},
		{
			"responseMsg RCS_SUCCESS",
			models.JSON{"responseMsg": "rcs_success"},
			models.PaymentStatusSuccess,
		},
		{
			"transaction status PENDING",
			models.JSON{"transactionInfo": map[string]interface{}{"status": "PENDING"}},
			models.PaymentStatusPending,
		},
		{
			"responseMsg contains PENDING",
			models.JSON{"responseMsg": "RCS_USER_PENDING"},
			models.PaymentStatusPending,
		},
		{
			"statusCode 2000",
			models.JSON{"statusCode": "2000"},
			models.PaymentStatusPending,
		},
		{
			"declined response",
			models.JSON{"responseCode": "5310", "responseMsg": "RCS_USER_REJECTED"},
			models.PaymentStatusFailed,
		},
		{
			"unrecognized shape",
			models.JSON{"something": "else"},
			models.PaymentStatusFailed,
		},
		{
			"empty response",
			models.JSON{},
			models.PaymentStatusFailed,
		},
		{
			"success wins over pending signals",
			models.JSON{"responseCode": "0", "statusCode": "2000"},
			models.PaymentStatusSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapResponse(tt.raw).Status)
		})
	}
}

func TestMapResponseExtractsReference(t *testing.T) {
	raw := models.JSON{
		"responseCode": "0",
		"transactionInfo": map[string]interface{}{
			"status":      "SUCCESS",
			"referenceId": float64(38172),
		},
	}

	mapped := MapResponse(raw)
	assert.Equal(t, models.PaymentStatusSuccess, mapped.Status)
	assert.Equal(t, "38172", mapped.ProviderRef)
}

func TestCharge(t *testing.T) {
	t.Run("successful purchase", func(t *testing.T) {
		var received models.JSON
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"responseCode": "0",
				"responseMsg":  "RCS_SUCCESS",
				"transactionInfo": map[string]interface{}{
					"status":      "SUCCESS",
					"referenceId": "TX-9912",
				},
			})
		}))
		defer server.Close()

		adapter, err := New(validConfig(server.URL))
		require.NoError(t, err)

		result, err := adapter.Charge(context.Background(), payment.ChargeRequest{
			Phone:       "252612345678",
			Amount:      25.5,
			InvoiceID:   "DON_20260828_abc",
			Description: "Donation",
		})
		require.NoError(t, err)

		assert.Equal(t, models.PaymentStatusSuccess, result.Mapped.Status)
		assert.Equal(t, "TX-9912", result.Mapped.ProviderRef)

		// outbound envelope carries the merchant credentials and the charge
		assert.Equal(t, "API_PURCHASE", received["serviceName"])
		params := received["serviceParams"].(map[string]interface{})
		assert.Equal(t, "M0910291", params["merchantUid"])
		assert.Equal(t, "MWALLET_ACCOUNT", params["paymentMethod"])
		txInfo := params["transactionInfo"].(map[string]interface{})
		assert.Equal(t, "DON_20260828_abc", txInfo["invoiceId"])
		assert.Equal(t, 25.5, txInfo["amount"])
		payer := params["payerInfo"].(map[string]interface{})
		assert.Equal(t, "252612345678", payer["accountNo"])
	})

	t.Run("declined purchase maps to failed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"responseCode": "5310",
				"responseMsg":  "RCS_USER_REJECTED",
			})
		}))
		defer server.Close()

		adapter, err := New(validConfig(server.URL))
		require.NoError(t, err)

		result, err := adapter.Charge(context.Background(), payment.ChargeRequest{
			Phone: "252612345678", Amount: 10, InvoiceID: "DON_x",
		})
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusFailed, result.Mapped.Status)
	})

	t.Run("http error carries audit data", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream unavailable"))
		}))
		defer server.Close()

		adapter, err := New(validConfig(server.URL))
		require.NoError(t, err)

		_, err = adapter.Charge(context.Background(), payment.ChargeRequest{
			Phone: "252612345678", Amount: 10, InvoiceID: "DON_x",
		})
		require.Error(t, err)

		var pe *payment.ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, models.PaymentStatusFailed, pe.Mapped.Status)
		assert.NotNil(t, pe.Payload)
		assert.Equal(t, "upstream unavailable", pe.Raw["body"])
	})

	t.Run("transport failure wraps into provider error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // connection refused

		adapter, err := New(validConfig(server.URL))
		require.NoError(t, err)

		_, err = adapter.Charge(context.Background(), payment.ChargeRequest{
			Phone: "252612345678", Amount: 10, InvoiceID: "DON_x",
		})
		require.Error(t, err)

		var pe *payment.ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, models.PaymentStatusFailed, pe.Mapped.Status)
	})

	t.Run("invalid amount rejected before any call", func(t *testing.T) {
		adapter, err := New(validConfig("https://api.waafipay.net/asm"))
		require.NoError(t, err)

		_, err = adapter.Charge(context.Background(), payment.ChargeRequest{
			Phone: "252612345678", Amount: 0, InvoiceID: "DON_x",
		})
		var ve *payment.ValidationError
		assert.ErrorAs(t, err, &ve)
	})
}
