package waafi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samafal/backend/internal/models"
	"github.com/samafal/backend/internal/services/payment"
)

// WaafiPay response sentinels. The provider signals success through several
// inconsistent fields; the mapper ORs them all.
const (
	successResponseCode = "0"
	successStatusCode   = "2001"
	pendingStatusCode   = "2000"
	successResponseMsg  = "RCS_SUCCESS"
)

const defaultTimeout = 30 * time.Second

// Config holds WaafiPay merchant credentials and endpoint
type Config struct {
	BaseURL     string
	MerchantUID string
	APIUserID   string
	APIKey      string
	Timeout     time.Duration
}

// Adapter implements the payment.Provider capability against the WaafiPay
// hosted wallet API (EVC Plus)
type Adapter struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a WaafiPay adapter. Configuration is validated here so a
// misconfigured deployment fails at startup rather than per request.
func New(cfg Config) (*Adapter, error) {
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.MerchantUID = strings.TrimSpace(cfg.MerchantUID)
	cfg.APIUserID = strings.TrimSpace(cfg.APIUserID)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	if cfg.MerchantUID == "" || cfg.APIUserID == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("waafi: missing merchant credentials")
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("waafi: invalid API URL %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Adapter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Charge sends an API_PURCHASE request debiting the payer's mobile wallet
func (a *Adapter) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	payload, err := a.buildPayload(req)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("waafi: failed to encode payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("waafi: failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, &payment.ProviderError{
			Mapped: payment.MappedResult{
				Status:  models.PaymentStatusFailed,
				Message: err.Error(),
			},
			Payload: payload,
			Err:     err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &payment.ProviderError{
			Mapped: payment.MappedResult{
				Status:  models.PaymentStatusFailed,
				Message: err.Error(),
			},
			Payload: payload,
			Err:     err,
		}
	}

	raw := decodeRaw(respBody)
	mapped := MapResponse(raw)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &payment.ProviderError{
			Mapped:  mapped,
			Payload: payload,
			Raw:     raw,
			Err:     fmt.Errorf("waafi: HTTP %d", resp.StatusCode),
		}
	}

	return &payment.ChargeResult{Payload: payload, Raw: raw, Mapped: mapped}, nil
}

// buildPayload assembles the provider request envelope around the charge
func (a *Adapter) buildPayload(req payment.ChargeRequest) (models.JSON, error) {
	if req.Amount <= 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return nil, &payment.ValidationError{Message: "amount must be greater than 0"}
	}

	currency := req.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}

	return models.JSON{
		"schemaVersion": "1.0",
		"requestId":     uuid.New().String(),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"channelName":   "WEB",
		"serviceName":   "API_PURCHASE",
		"serviceParams": map[string]interface{}{
			"merchantUid":   a.cfg.MerchantUID,
			"apiUserId":     a.cfg.APIUserID,
			"apiKey":        a.cfg.APIKey,
			"paymentMethod": "MWALLET_ACCOUNT",
			"payerInfo": map[string]interface{}{
				"accountNo": req.Phone,
			},
			"transactionInfo": map[string]interface{}{
				"referenceId": fmt.Sprintf("ref-%d", time.Now().UnixMilli()),
				"invoiceId":   req.InvoiceID,
				"amount":      math.Round(req.Amount*100) / 100,
				"currency":    currency,
				"description": req.Description,
			},
		},
	}, nil
}

// MapResponse normalizes a WaafiPay response into the canonical mapped
// result. The success signal may live in the numeric response code, the
// HTTP-like status code, the nested transaction status or the response
// message; any one of them is sufficient. Pending is checked only when the
// response is not already a success, and anything unrecognized is failed.
// The same mapping works for synchronous charge responses and callback
// bodies that follow the charge shape.
func MapResponse(raw models.JSON) payment.MappedResult {
	responseCode := firstString(raw, "responseCode", "code")
	statusCode := firstString(raw, "statusCode")
	responseMsg := strings.ToUpper(firstString(raw, "responseMsg", "responseMessage"))

	var txStatus, providerRef string
	if txInfo, ok := raw["transactionInfo"].(map[string]interface{}); ok {
		txStatus = strings.ToUpper(stringify(txInfo["status"]))
		providerRef = stringify(txInfo["referenceId"])
	}
	if providerRef == "" {
		providerRef = firstString(raw, "referenceId")
	}

	isSuccess := responseCode == successResponseCode ||
		statusCode == successStatusCode ||
		txStatus == "SUCCESS" ||
		responseMsg == successResponseMsg

	isPending := !isSuccess && (txStatus == "PENDING" ||
		strings.Contains(responseMsg, "PENDING") ||
		statusCode == pendingStatusCode)

	status := models.PaymentStatusFailed
	if isSuccess {
		status = models.PaymentStatusSuccess
	} else if isPending {
		status = models.PaymentStatusPending
	}

	message := firstString(raw, "responseMessage", "responseMsg", "message")
	if message == "" {
		message = strings.ToUpper(string(status))
	}

	return payment.MappedResult{
		Status:       status,
		ProviderRef:  providerRef,
		Message:      message,
		ResponseCode: responseCode,
		StatusCode:   statusCode,
		ResponseMsg:  responseMsg,
		TxStatus:     txStatus,
	}
}

// decodeRaw keeps whatever the provider sent, even when it is not JSON, so
// the audit trail is never empty
func decodeRaw(body []byte) models.JSON {
	var raw models.JSON
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return models.JSON{"body": string(body)}
	}
	return raw
}

func firstString(raw models.JSON, keys ...string) string {
	for _, key := range keys {
		if s := stringify(raw[key]); s != "" {
			return s
		}
	}
	return ""
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		return ""
	}
}
