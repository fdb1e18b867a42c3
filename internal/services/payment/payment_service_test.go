package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samafal/backend/internal/models"
)

// fakeStore is an in-memory Store. UpdateLocked serializes on a mutex, which
// models the row lock the real store takes.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]*models.Payment
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*models.Payment)}
}

func (s *fakeStore) Create(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	cp := *p
	s.records[p.Reference] = &cp
	return nil
}

func (s *fakeStore) FindByReferenceOrID(ctx context.Context, token string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.find(token)
	if err != nil {
		return nil, err
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) UpdateLocked(ctx context.Context, token string, fn func(p *models.Payment) error) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.find(token)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

func (s *fakeStore) FindStalePending(ctx context.Context, cutoff time.Time) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Payment
	for _, p := range s.records {
		if p.Status == models.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakeStore) List(ctx context.Context, page, pageSize int) ([]models.Payment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Payment
	for _, p := range s.records {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

// find must be called with the mutex held
func (s *fakeStore) find(token string) (*models.Payment, error) {
	if p, ok := s.records[token]; ok {
		return p, nil
	}
	for _, p := range s.records {
		if p.InvoiceID == token || p.ID.String() == token {
			return p, nil
		}
	}
	return nil, ErrPaymentNotFound
}

// fakeCrediter counts increments so tests can assert exactly-once crediting
type fakeCrediter struct {
	mu      sync.Mutex
	calls   int
	amounts []float64
	err     error
	raised  float64
}

func (c *fakeCrediter) IncrementRaised(ctx context.Context, charityID uuid.UUID, amount float64) (*models.Charity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.calls++
	c.amounts = append(c.amounts, amount)
	c.raised += amount
	return &models.Charity{ID: charityID, Raised: c.raised}, nil
}

func (c *fakeCrediter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// fakeProvider returns a canned result or error
type fakeProvider struct {
	result *ChargeResult
	err    error
	calls  int
}

func (p *fakeProvider) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

// fakeNotifier records receipt notifications
type fakeNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (n *fakeNotifier) NotifyDonationReceipt(ctx context.Context, p *models.Payment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return n.err
}

func chargeResult(status models.PaymentStatus) *ChargeResult {
	return &ChargeResult{
		Payload: models.JSON{"serviceName": "API_PURCHASE"},
		Raw:     models.JSON{"responseCode": "0"},
		Mapped: MappedResult{
			Status:      status,
			ProviderRef: "TX-123",
			Message:     string(status),
		},
	}
}

func newTestService(store Store, crediter Crediter, provider Provider) *Service {
	svc := NewService(store, crediter, "")
	if provider != nil {
		svc.RegisterProvider(models.PaymentMethodEVC, provider)
	}
	return svc
}

func validRequest(charityID string) InitiateRequest {
	return InitiateRequest{
		Method:    models.PaymentMethodEVC,
		Amount:    25,
		Name:      "Ayaan",
		Phone:     "0612345678",
		Email:     "ayaan@example.com",
		CharityID: charityID,
	}
}

func TestInitiateValidation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeCrediter{}, &fakeProvider{result: chargeResult(models.PaymentStatusSuccess)})

	tests := []struct {
		name   string
		mutate func(*InitiateRequest)
	}{
		{"zero amount", func(r *InitiateRequest) { r.Amount = 0 }},
		{"negative amount", func(r *InitiateRequest) { r.Amount = -5 }},
		{"missing phone", func(r *InitiateRequest) { r.Phone = "" }},
		{"missing method", func(r *InitiateRequest) { r.Method = "" }},
		{"malformed charity id", func(r *InitiateRequest) { r.CharityID = "not-a-uuid" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest("")
			tt.mutate(&req)

			_, err := svc.Initiate(context.Background(), req)

			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
			assert.Empty(t, store.records, "validation failure must not persist a record")
		})
	}
}

func TestInitiateUnsupportedMethod(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeCrediter{}, nil)

	_, err := svc.Initiate(context.Background(), validRequest(""))

	assert.ErrorIs(t, err, ErrUnsupportedMethod)
	assert.Empty(t, store.records)
}

func TestInitiateSuccessCreditsExactlyOnce(t *testing.T) {
	store := newFakeStore()
	crediter := &fakeCrediter{}
	notifier := &fakeNotifier{}
	svc := newTestService(store, crediter, &fakeProvider{result: chargeResult(models.PaymentStatusSuccess)})
	svc.SetNotifier(notifier)

	charityID := uuid.New()
	result, err := svc.Initiate(context.Background(), validRequest(charityID.String()))
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusSuccess, result.Status)
	assert.NotEmpty(t, result.Reference)
	assert.Empty(t, result.Warnings)

	assert.Equal(t, 1, crediter.callCount())
	assert.Equal(t, []float64{25}, crediter.amounts)
	assert.Equal(t, 1, notifier.calls)

	stored, err := store.FindByReferenceOrID(context.Background(), result.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, stored.Status)
	assert.Equal(t, "TX-123", stored.ProviderReference)
	assert.Equal(t, "252612345678", stored.PhoneFormatted)
	assert.NotNil(t, stored.ProviderRequest)
	assert.NotNil(t, stored.ProviderResponse)
}

func TestInitiateWithoutCharityDoesNotCredit(t *testing.T) {
	crediter := &fakeCrediter{}
	svc := newTestService(newFakeStore(), crediter, &fakeProvider{result: chargeResult(models.PaymentStatusSuccess)})

	result, err := svc.Initiate(context.Background(), validRequest(""))
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusSuccess, result.Status)
	assert.Equal(t, 0, crediter.callCount())
}

func TestInitiatePendingDoesNotCredit(t *testing.T) {
	crediter := &fakeCrediter{}
	svc := newTestService(newFakeStore(), crediter, &fakeProvider{result: chargeResult(models.PaymentStatusPending)})

	result, err := svc.Initiate(context.Background(), validRequest(uuid.New().String()))
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPending, result.Status)
	assert.Equal(t, 0, crediter.callCount())
}

func TestInitiateCreditFailureSurfacesAsWarning(t *testing.T) {
	crediter := &fakeCrediter{err: errors.New("charity gone")}
	svc := newTestService(newFakeStore(), crediter, &fakeProvider{result: chargeResult(models.PaymentStatusSuccess)})

	result, err := svc.Initiate(context.Background(), validRequest(uuid.New().String()))
	require.NoError(t, err, "a failed credit must not fail the payment")

	assert.Equal(t, models.PaymentStatusSuccess, result.Status)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "charity credit failed")
}

func TestInitiateProviderErrorPersistsAudit(t *testing.T) {
	store := newFakeStore()
	providerErr := &ProviderError{
		Mapped:  MappedResult{Status: models.PaymentStatusFailed, Message: "RCS_USER_REJECTED"},
		Payload: models.JSON{"serviceName": "API_PURCHASE"},
		Raw:     models.JSON{"responseCode": "5310"},
		Err:     errors.New("waafi: HTTP 400"),
	}
	svc := newTestService(store, &fakeCrediter{}, &fakeProvider{err: providerErr})

	result, err := svc.Initiate(context.Background(), validRequest(""))

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	require.NotNil(t, result)
	assert.Equal(t, models.PaymentStatusFailed, result.Status)
	assert.Equal(t, "RCS_USER_REJECTED", result.Message)

	stored, findErr := store.FindByReferenceOrID(context.Background(), result.Reference)
	require.NoError(t, findErr)
	assert.Equal(t, models.PaymentStatusFailed, stored.Status)
	assert.Equal(t, models.JSON{"responseCode": "5310"}, stored.ProviderResponse)
}

func TestGetStatus(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeCrediter{}, &fakeProvider{result: chargeResult(models.PaymentStatusPending)})

	created, err := svc.Initiate(context.Background(), validRequest(""))
	require.NoError(t, err)

	byRef, err := svc.GetStatus(context.Background(), created.Reference)
	require.NoError(t, err)
	byID, err := svc.GetStatus(context.Background(), created.ID.String())
	require.NoError(t, err)

	assert.Equal(t, byRef, byID)
	assert.Equal(t, models.PaymentStatusPending, byRef.Status)

	_, err = svc.GetStatus(context.Background(), "DON_19990101_missing")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestManualCredit(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-successful payment", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store, &fakeCrediter{}, nil)
		charityID := uuid.New()
		p := &models.Payment{
			Reference: "DON_1", CharityID: &charityID,
			Amount: 10, Status: models.PaymentStatusPending,
		}
		require.NoError(t, store.Create(ctx, p))

		_, err := svc.ManualCredit(ctx, p.ID)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("rejects payment without charity linkage", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store, &fakeCrediter{}, nil)
		p := &models.Payment{
			Reference: "DON_2", Amount: 10, Status: models.PaymentStatusSuccess,
		}
		require.NoError(t, store.Create(ctx, p))

		_, err := svc.ManualCredit(ctx, p.ID)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("unknown payment", func(t *testing.T) {
		svc := newTestService(newFakeStore(), &fakeCrediter{}, nil)
		_, err := svc.ManualCredit(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})

	t.Run("credits and is deliberately repeatable", func(t *testing.T) {
		store := newFakeStore()
		crediter := &fakeCrediter{}
		svc := newTestService(store, crediter, nil)
		charityID := uuid.New()
		p := &models.Payment{
			Reference: "DON_3", CharityID: &charityID,
			Amount: 40, Status: models.PaymentStatusSuccess,
		}
		require.NoError(t, store.Create(ctx, p))

		first, err := svc.ManualCredit(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, charityID, first.CharityID)
		assert.Equal(t, 40.0, first.AmountAdded)
		assert.Equal(t, 40.0, first.NewTotal)

		second, err := svc.ManualCredit(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 80.0, second.NewTotal)
		assert.Equal(t, 2, crediter.callCount())
	})
}

func TestExpireStalePending(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(store, &fakeCrediter{}, nil)

	old := time.Now().Add(-48 * time.Hour)
	stale := &models.Payment{Reference: "DON_stale", Status: models.PaymentStatusPending, CreatedAt: old}
	fresh := &models.Payment{Reference: "DON_fresh", Status: models.PaymentStatusPending}
	settled := &models.Payment{Reference: "DON_done", Status: models.PaymentStatusSuccess, CreatedAt: old}
	for _, p := range []*models.Payment{stale, fresh, settled} {
		require.NoError(t, store.Create(ctx, p))
	}

	expired, err := svc.ExpireStalePending(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	got, _ := store.FindByReferenceOrID(ctx, "DON_stale")
	assert.Equal(t, models.PaymentStatusFailed, got.Status)
	got, _ = store.FindByReferenceOrID(ctx, "DON_fresh")
	assert.Equal(t, models.PaymentStatusPending, got.Status)
	got, _ = store.FindByReferenceOrID(ctx, "DON_done")
	assert.Equal(t, models.PaymentStatusSuccess, got.Status)
}

func TestListPaymentsClampsPaging(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(store, &fakeCrediter{}, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Create(ctx, &models.Payment{
			Reference: fmt.Sprintf("DON_%d", i), Status: models.PaymentStatusPending,
		}))
	}

	items, total, err := svc.ListPayments(ctx, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, items, 3)
}
