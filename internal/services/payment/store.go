package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samafal/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence contract for payment records. No business logic
// lives behind it; the orchestrator owns every transition decision.
type Store interface {
	Create(ctx context.Context, p *models.Payment) error

	// FindByReferenceOrID resolves a token that may be either the merchant
	// reference, the invoice id, or the internal id, in that order.
	FindByReferenceOrID(ctx context.Context, token string) (*models.Payment, error)

	// UpdateLocked runs fn against the payment identified by token with the
	// row exclusively locked, then persists the mutated record. The
	// read-modify-write is serialized per record, which the status-transition
	// guards depend on.
	UpdateLocked(ctx context.Context, token string, fn func(p *models.Payment) error) (*models.Payment, error)

	// FindStalePending returns pending payments created before the cutoff
	FindStalePending(ctx context.Context, cutoff time.Time) ([]models.Payment, error)

	// List returns payments newest-first with a total count
	List(ctx context.Context, page, pageSize int) ([]models.Payment, int64, error)
}

// GormStore implements Store on a relational database
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a payment store backed by the given database
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Create persists a new payment record
func (s *GormStore) Create(ctx context.Context, p *models.Payment) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("error creating payment record: %w", err)
	}
	return nil
}

// FindByReferenceOrID resolves a token to a payment record
func (s *GormStore) FindByReferenceOrID(ctx context.Context, token string) (*models.Payment, error) {
	return findByToken(s.db.WithContext(ctx), token)
}

// UpdateLocked applies fn to the payment row under a FOR UPDATE lock
func (s *GormStore) UpdateLocked(ctx context.Context, token string, fn func(p *models.Payment) error) (*models.Payment, error) {
	var payment *models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := findByToken(tx.Clauses(clause.Locking{Strength: "UPDATE"}), token)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		if err := tx.Save(p).Error; err != nil {
			return fmt.Errorf("error updating payment record: %w", err)
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// FindStalePending returns pending payments created before the cutoff
func (s *GormStore) FindStalePending(ctx context.Context, cutoff time.Time) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.PaymentStatusPending, cutoff).
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("error finding stale payments: %w", err)
	}
	return payments, nil
}

// List returns payments newest-first with a total count
func (s *GormStore) List(ctx context.Context, page, pageSize int) ([]models.Payment, int64, error) {
	var payments []models.Payment
	var total int64

	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Payment{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting payments: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := db.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&payments).Error; err != nil {
		return nil, 0, fmt.Errorf("error finding payments: %w", err)
	}

	return payments, total, nil
}

func findByToken(db *gorm.DB, token string) (*models.Payment, error) {
	var payment models.Payment

	err := db.First(&payment, "reference = ?", token).Error
	if err == nil {
		return &payment, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error finding payment: %w", err)
	}

	err = db.First(&payment, "invoice_id = ?", token).Error
	if err == nil {
		return &payment, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error finding payment: %w", err)
	}

	id, parseErr := uuid.Parse(token)
	if parseErr != nil {
		return nil, ErrPaymentNotFound
	}
	err = db.First(&payment, "id = ?", id).Error
	if err == nil {
		return &payment, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	return nil, fmt.Errorf("error finding payment: %w", err)
}
