package charity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/samafal/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCharityNotFound is returned when no campaign matches the given id
var ErrCharityNotFound = errors.New("charity not found")

// CharityService handles campaign persistence and the raised-total
// accumulator the payment core credits into
type CharityService struct {
	db *gorm.DB
}

// NewCharityService creates a new charity service
func NewCharityService(db *gorm.DB) *CharityService {
	return &CharityService{db: db}
}

// IncrementRaised atomically adds amount to a campaign's raised total and
// returns the updated campaign. The row is locked for the read-modify-write
// so concurrent credits serialize instead of losing updates.
func (s *CharityService) IncrementRaised(ctx context.Context, charityID uuid.UUID, amount float64) (*models.Charity, error) {
	var charity models.Charity

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&charity, "id = ?", charityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCharityNotFound
			}
			return fmt.Errorf("error finding charity: %w", err)
		}

		charity.Raised += amount
		if err := tx.Save(&charity).Error; err != nil {
			return fmt.Errorf("error updating raised total: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &charity, nil
}

// ListFilter narrows charity listings
type ListFilter struct {
	Query    string
	Category string
	Featured *bool
	Status   string // "all", "Draft" or "Published"; empty means Published only
	Page     int
	Limit    int
}

// List returns campaigns matching the filter, newest first, with a total
// count for pagination
func (s *CharityService) List(ctx context.Context, filter ListFilter) ([]models.Charity, int64, error) {
	db := s.db.WithContext(ctx).Model(&models.Charity{})

	switch filter.Status {
	case "all":
	case "":
		db = db.Where("status = ?", models.CharityStatusPublished)
	default:
		db = db.Where("status = ?", filter.Status)
	}

	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		db = db.Where("title ILIKE ? OR location ILIKE ? OR excerpt ILIKE ?", like, like, like)
	}
	if filter.Category != "" {
		db = db.Where("category = ?", filter.Category)
	}
	if filter.Featured != nil {
		db = db.Where("featured = ?", *filter.Featured)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting charities: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var charities []models.Charity
	err := db.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&charities).Error
	if err != nil {
		return nil, 0, fmt.Errorf("error finding charities: %w", err)
	}

	return charities, total, nil
}

// Get returns a single campaign. When publishedOnly is set, draft campaigns
// are treated as not found.
func (s *CharityService) Get(ctx context.Context, id uuid.UUID, publishedOnly bool) (*models.Charity, error) {
	db := s.db.WithContext(ctx)
	if publishedOnly {
		db = db.Where("status = ?", models.CharityStatusPublished)
	}

	var charity models.Charity
	if err := db.First(&charity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCharityNotFound
		}
		return nil, fmt.Errorf("error finding charity: %w", err)
	}
	return &charity, nil
}

// Create persists a new campaign with a unique slug derived from its title
func (s *CharityService) Create(ctx context.Context, charity *models.Charity) error {
	if charity.Slug == "" {
		charity.Slug = fmt.Sprintf("%s-%s", slug.Make(charity.Title), uuid.New().String()[:8])
	}
	if charity.Status == "" {
		charity.Status = models.CharityStatusDraft
	}
	if err := s.db.WithContext(ctx).Create(charity).Error; err != nil {
		return fmt.Errorf("error creating charity: %w", err)
	}
	return nil
}

// Update applies partial updates to a campaign. Raised is never updatable
// through this path; only the locked increment touches it.
func (s *CharityService) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.Charity, error) {
	delete(updates, "raised")

	charity, err := s.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(charity).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("error updating charity: %w", err)
	}
	return charity, nil
}

// Delete soft-deletes a campaign
func (s *CharityService) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.Charity{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("error deleting charity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCharityNotFound
	}
	return nil
}
