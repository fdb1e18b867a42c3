package payment

import (
	"context"

	"github.com/samafal/backend/internal/models"
)

// Provider is the capability every mobile-money adapter implements: build a
// provider-specific payload from a generic charge request, perform the call
// and map the response into a canonical result.
type Provider interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// ChargeRequest is the provider-agnostic debit request
type ChargeRequest struct {
	Phone       string
	Amount      float64
	InvoiceID   string
	Description string
	Currency    string
}

// ChargeResult carries the exact outbound payload, the raw provider response
// and the canonical mapping derived from it. Payload and Raw are persisted
// verbatim for dispute resolution.
type ChargeResult struct {
	Payload models.JSON
	Raw     models.JSON
	Mapped  MappedResult
}

// MappedResult is the canonical classification of a provider response.
// Providers scatter their success signal across several fields; the raw
// diagnostic codes are kept alongside the verdict for debugging.
type MappedResult struct {
	Status       models.PaymentStatus
	ProviderRef  string
	Message      string
	ResponseCode string
	StatusCode   string
	ResponseMsg  string
	TxStatus     string
}
