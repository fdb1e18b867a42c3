package payment

import (
	"errors"
	"fmt"

	"github.com/samafal/backend/internal/models"
)

var (
	// ErrUnsupportedMethod is returned when a charge names a payment rail
	// with no registered provider
	ErrUnsupportedMethod = errors.New("unsupported payment method")

	// ErrPaymentNotFound is returned when no record matches a reference or id
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrInvalidSignature is returned when a webhook signature does not match
	// the configured shared secret
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrProviderNotConfigured is returned by adapters whose integration is
	// not live yet. Callers can distinguish it from a transport failure.
	ErrProviderNotConfigured = errors.New("provider integration not configured")
)

// ValidationError reports malformed or missing input. No record is persisted
// when one is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ProviderError wraps a network or provider-side failure. It carries the
// best-effort mapped status and whatever the provider returned so the
// orchestrator can still persist an audit trail of the attempt.
type ProviderError struct {
	Mapped  MappedResult
	Payload models.JSON
	Raw     models.JSON
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Mapped.Message != "" {
		return fmt.Sprintf("provider error: %s", e.Mapped.Message)
	}
	return fmt.Sprintf("provider error: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
