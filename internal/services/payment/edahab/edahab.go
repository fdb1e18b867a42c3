package edahab

import (
	"context"

	"github.com/samafal/backend/internal/services/payment"
)

// TODO: wire the real eDahab agent API once merchant onboarding completes.

// Config holds eDahab credentials. The adapter may start unconfigured; it
// then rejects every charge with a dedicated error instead of failing at
// startup.
type Config struct {
	BaseURL   string
	AgentCode string
	APIKey    string
}

// Adapter is a placeholder for the eDahab integration
type Adapter struct {
	cfg Config
}

// New creates an eDahab adapter
func New(cfg Config) *Adapter {
	return &Adapter{cfg: cfg}
}

// Charge always fails with ErrProviderNotConfigured so callers can respond
// deterministically rather than with a generic failure
func (a *Adapter) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	return nil, payment.ErrProviderNotConfigured
}
