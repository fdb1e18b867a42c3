package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/samafal/backend/internal/models"
	"github.com/samafal/backend/internal/utils"
)

// Crediter is the contract with the charity subsystem: atomically increment a
// campaign's raised total by the exact donation amount.
type Crediter interface {
	IncrementRaised(ctx context.Context, charityID uuid.UUID, amount float64) (*models.Charity, error)
}

// Notifier dispatches fire-and-forget donation receipts. Failures never fail
// the payment; they surface as warnings on the result.
type Notifier interface {
	NotifyDonationReceipt(ctx context.Context, p *models.Payment) error
}

// Service orchestrates payment intake, provider calls, webhook reconciliation
// and charity crediting
type Service struct {
	store         Store
	crediter      Crediter
	notifier      Notifier
	providers     map[models.PaymentMethod]Provider
	webhookSecret string
	locks         *refLocks
}

// NewService creates a payment service. Providers are registered explicitly;
// unknown method keys are rejected at the boundary.
func NewService(store Store, crediter Crediter, webhookSecret string) *Service {
	return &Service{
		store:         store,
		crediter:      crediter,
		providers:     make(map[models.PaymentMethod]Provider),
		webhookSecret: webhookSecret,
		locks:         newRefLocks(),
	}
}

// RegisterProvider registers a payment provider for a method key
func (s *Service) RegisterProvider(method models.PaymentMethod, provider Provider) {
	s.providers[method] = provider
}

// SetNotifier attaches an optional receipt notifier
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// InitiateRequest is an inbound donation charge request
type InitiateRequest struct {
	Method    models.PaymentMethod
	Amount    float64
	Currency  string
	Name      string
	Phone     string
	Email     string
	Note      string
	CharityID string
}

// InitiateResult is returned to the donor-facing caller
type InitiateResult struct {
	ID        uuid.UUID            `json:"id"`
	Reference string               `json:"reference"`
	Status    models.PaymentStatus `json:"status"`
	Message   string               `json:"message,omitempty"`
	Warnings  []string             `json:"warnings,omitempty"`
}

// StatusResult is the shape returned by status lookups
type StatusResult struct {
	ID        uuid.UUID            `json:"id"`
	Reference string               `json:"reference"`
	Status    models.PaymentStatus `json:"status"`
}

// CreditResult reports the outcome of a manual charity credit
type CreditResult struct {
	CharityID   uuid.UUID `json:"charity_id"`
	AmountAdded float64   `json:"amount_added"`
	NewTotal    float64   `json:"new_total"`
}

// Initiate validates a charge request, creates the pending record, invokes
// the selected provider and finalizes the record from the mapped result,
// crediting the linked charity exactly once on a transition into success.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	charityID, err := s.validateInitiate(req)
	if err != nil {
		return nil, err
	}

	provider, ok := s.providers[req.Method]
	if !ok {
		return nil, ErrUnsupportedMethod
	}

	currency := req.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}

	reference := utils.GenerateReference("DON")

	record := &models.Payment{
		Reference:      reference,
		InvoiceID:      reference,
		Method:         req.Method,
		Currency:       currency,
		Amount:         req.Amount,
		CharityID:      charityID,
		Name:           req.Name,
		Phone:          req.Phone,
		PhoneFormatted: utils.FormatPhone252(req.Phone),
		Email:          req.Email,
		Note:           req.Note,
		Status:         models.PaymentStatusPending,
	}

	if err := s.store.Create(ctx, record); err != nil {
		return nil, err
	}

	description := req.Note
	if description == "" {
		description = fmt.Sprintf("Donation %s", reference)
	}

	result, chargeErr := provider.Charge(ctx, ChargeRequest{
		Phone:       record.PhoneFormatted,
		Amount:      record.Amount,
		InvoiceID:   record.InvoiceID,
		Description: description,
		Currency:    currency,
	})

	if chargeErr != nil {
		return s.finalizeFailedCharge(ctx, record, chargeErr)
	}

	return s.finalizeCharge(ctx, record, result)
}

// finalizeCharge applies the mapped provider result to the record and fires
// the exactly-once credit on a genuine transition into success
func (s *Service) finalizeCharge(ctx context.Context, record *models.Payment, result *ChargeResult) (*InitiateResult, error) {
	release := s.locks.acquire(record.Reference)
	defer release()

	creditNeeded := false
	updated, err := s.store.UpdateLocked(ctx, record.Reference, func(p *models.Payment) error {
		prior := p.Status

		p.ProviderRequest = result.Payload
		p.ProviderResponse = result.Raw
		if result.Mapped.ProviderRef != "" {
			p.ProviderReference = result.Mapped.ProviderRef
		}
		// success is terminal; a racing webhook may already have landed
		if prior != models.PaymentStatusSuccess {
			p.Status = result.Mapped.Status
		}

		creditNeeded = prior != models.PaymentStatusSuccess &&
			p.Status == models.PaymentStatusSuccess &&
			p.CharityID != nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &InitiateResult{
		ID:        updated.ID,
		Reference: updated.Reference,
		Status:    updated.Status,
		Message:   result.Mapped.Message,
	}

	if creditNeeded {
		res.Warnings = append(res.Warnings, s.credit(ctx, updated)...)
	}
	if updated.Status == models.PaymentStatusSuccess {
		res.Warnings = append(res.Warnings, s.notifyReceipt(ctx, updated)...)
	}

	return res, nil
}

// finalizeFailedCharge persists whatever audit data the failed attempt
// produced and returns the provider error to the caller
func (s *Service) finalizeFailedCharge(ctx context.Context, record *models.Payment, chargeErr error) (*InitiateResult, error) {
	release := s.locks.acquire(record.Reference)
	defer release()

	status := models.PaymentStatusFailed
	message := chargeErr.Error()

	var pe *ProviderError
	if errors.As(chargeErr, &pe) {
		if pe.Mapped.Status != "" {
			status = pe.Mapped.Status
		}
		if pe.Mapped.Message != "" {
			message = pe.Mapped.Message
		}
	}

	updated, err := s.store.UpdateLocked(ctx, record.Reference, func(p *models.Payment) error {
		if pe != nil {
			if pe.Payload != nil {
				p.ProviderRequest = pe.Payload
			}
			if pe.Raw != nil {
				p.ProviderResponse = pe.Raw
			}
			if pe.Mapped.ProviderRef != "" {
				p.ProviderReference = pe.Mapped.ProviderRef
			}
		}
		if p.Status != models.PaymentStatusSuccess {
			p.Status = status
		}
		return nil
	})
	if err != nil {
		log.Printf("failed to persist provider failure for %s: %v", record.Reference, err)
	}

	res := &InitiateResult{
		ID:        record.ID,
		Reference: record.Reference,
		Status:    status,
		Message:   message,
	}
	if updated != nil {
		res.Status = updated.Status
	}
	return res, chargeErr
}

// GetStatus looks a payment up by merchant reference or internal id
func (s *Service) GetStatus(ctx context.Context, token string) (*StatusResult, error) {
	payment, err := s.store.FindByReferenceOrID(ctx, token)
	if err != nil {
		return nil, err
	}
	return &StatusResult{
		ID:        payment.ID,
		Reference: payment.Reference,
		Status:    payment.Status,
	}, nil
}

// ManualCredit re-runs the charity credit for a successful payment whose
// original credit attempt failed. It is an operator-trusted escape hatch and
// deliberately not idempotent: invoking it twice credits twice.
func (s *Service) ManualCredit(ctx context.Context, paymentID uuid.UUID) (*CreditResult, error) {
	payment, err := s.store.FindByReferenceOrID(ctx, paymentID.String())
	if err != nil {
		return nil, err
	}

	if payment.Status != models.PaymentStatusSuccess {
		return nil, &ValidationError{Message: "payment is not successful"}
	}
	if payment.CharityID == nil {
		return nil, &ValidationError{Message: "payment has no charity linkage"}
	}

	charity, err := s.crediter.IncrementRaised(ctx, *payment.CharityID, payment.Amount)
	if err != nil {
		return nil, err
	}

	return &CreditResult{
		CharityID:   charity.ID,
		AmountAdded: payment.Amount,
		NewTotal:    charity.Raised,
	}, nil
}

// ListPayments returns payments newest-first for the admin surface
func (s *Service) ListPayments(ctx context.Context, page, pageSize int) ([]models.Payment, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	return s.store.List(ctx, page, pageSize)
}

// ExpireStalePending fails out payments stuck in pending beyond maxAge.
// Called from the reconciliation schedule; transitions are forward-only, so a
// record a webhook resolved in the meantime is left alone.
func (s *Service) ExpireStalePending(ctx context.Context, maxAge time.Duration) (int, error) {
	stale, err := s.store.FindStalePending(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		ref := stale[i].Reference
		release := s.locks.acquire(ref)
		_, err := s.store.UpdateLocked(ctx, ref, func(p *models.Payment) error {
			if p.Status != models.PaymentStatusPending {
				return nil
			}
			p.Status = models.PaymentStatusFailed
			expired++
			return nil
		})
		release()
		if err != nil {
			log.Printf("failed to expire stale payment %s: %v", ref, err)
		}
	}
	return expired, nil
}

// credit invokes the charity increment and converts failures into warnings.
// A missed credit is repaired out-of-band via ManualCredit.
func (s *Service) credit(ctx context.Context, p *models.Payment) []string {
	if p.CharityID == nil {
		return nil
	}
	charity, err := s.crediter.IncrementRaised(ctx, *p.CharityID, p.Amount)
	if err != nil {
		log.Printf("charity credit failed for payment %s: %v", p.Reference, err)
		return []string{fmt.Sprintf("charity credit failed: %v", err)}
	}
	log.Printf("credited charity %s with %.2f (total %.2f) for payment %s",
		charity.ID, p.Amount, charity.Raised, p.Reference)
	return nil
}

func (s *Service) notifyReceipt(ctx context.Context, p *models.Payment) []string {
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.NotifyDonationReceipt(ctx, p); err != nil {
		log.Printf("receipt notification failed for payment %s: %v", p.Reference, err)
		return []string{fmt.Sprintf("receipt notification failed: %v", err)}
	}
	return nil
}

func (s *Service) validateInitiate(req InitiateRequest) (*uuid.UUID, error) {
	if req.Amount <= 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return nil, &ValidationError{Message: "amount must be a positive number"}
	}
	if req.Phone == "" {
		return nil, &ValidationError{Message: "phone is required"}
	}
	if req.Method == "" {
		return nil, &ValidationError{Message: "method is required"}
	}

	if req.CharityID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(req.CharityID)
	if err != nil {
		return nil, &ValidationError{Message: "charityId is not a valid identifier"}
	}
	return &id, nil
}
