package payment

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/samafal/backend/internal/models"
	"github.com/samafal/backend/internal/utils"
)

// WebhookResult acknowledges a processed provider callback
type WebhookResult struct {
	OK        bool                 `json:"ok"`
	Reference string               `json:"-"`
	Status    models.PaymentStatus `json:"-"`
	Credited  bool                 `json:"-"`
	Warnings  []string             `json:"-"`
}

// HandleWebhook reconciles an asynchronous provider callback against the
// payment record it correlates to. Crediting fires only on a genuine
// transition into success, so retries and callbacks that confirm an
// already-credited payment are no-ops.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if s.webhookSecret != "" && !utils.VerifyWebhookSignature(body, signature, s.webhookSecret) {
		return nil, ErrInvalidSignature
	}

	var payload models.JSON
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ValidationError{Message: "invalid webhook payload"}
	}

	ref := extractReference(payload)
	if ref == "" {
		return nil, &ValidationError{Message: "missing reference"}
	}

	classified := ClassifyWebhookPayload(body)

	release := s.locks.acquire(ref)
	defer release()

	creditNeeded := false
	updated, err := s.store.UpdateLocked(ctx, ref, func(p *models.Payment) error {
		prior := p.Status

		// success is terminal: a late failed-looking callback must not
		// downgrade an already-credited payment
		if prior != models.PaymentStatusSuccess {
			p.Status = classified
		}
		appendWebhookEvent(p, payload)

		creditNeeded = prior != models.PaymentStatusSuccess &&
			p.Status == models.PaymentStatusSuccess &&
			p.CharityID != nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &WebhookResult{
		OK:        true,
		Reference: updated.Reference,
		Status:    updated.Status,
		Credited:  creditNeeded,
	}

	if creditNeeded {
		res.Warnings = append(res.Warnings, s.credit(ctx, updated)...)
		res.Warnings = append(res.Warnings, s.notifyReceipt(ctx, updated)...)
	}

	return res, nil
}

// ClassifyWebhookPayload maps a callback body to a canonical status using a
// lenient substring heuristic. Callback shapes vary by provider and
// integration maturity, so this is intentionally coarser than the
// synchronous response mapper; an unrecognized shape stays pending.
func ClassifyWebhookPayload(body []byte) models.PaymentStatus {
	upper := strings.ToUpper(string(body))

	switch {
	case strings.Contains(upper, "SUCCESS"),
		strings.Contains(upper, "APPROVED"),
		strings.Contains(upper, `"CODE":0`):
		return models.PaymentStatusSuccess
	case strings.Contains(upper, "DECLINED"),
		strings.Contains(upper, "CANCELLED"),
		strings.Contains(upper, "FAILED"):
		return models.PaymentStatusFailed
	default:
		return models.PaymentStatusPending
	}
}

// extractReference pulls the correlation token out of a callback payload,
// checking the known field locations in order of reliability
func extractReference(payload models.JSON) string {
	if txInfo, ok := payload["transactionInfo"].(map[string]interface{}); ok {
		if v, ok := txInfo["invoiceId"].(string); ok && v != "" {
			return v
		}
	}
	for _, key := range []string{"invoiceId", "reference", "referenceId"} {
		if v, ok := payload[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// appendWebhookEvent adds the raw callback to the record's append-only
// webhook audit trail
func appendWebhookEvent(p *models.Payment, payload models.JSON) {
	var events []interface{}
	if p.ProviderWebhook != nil {
		if prior, ok := p.ProviderWebhook["events"].([]interface{}); ok {
			events = prior
		} else {
			// earlier writers stored a single payload directly
			events = []interface{}{map[string]interface{}(p.ProviderWebhook)}
		}
	}
	events = append(events, map[string]interface{}(payload))
	p.ProviderWebhook = models.JSON{"events": events}
}
