package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentMethod represents supported mobile-money rails
type PaymentMethod string

const (
	PaymentMethodEVC    PaymentMethod = "EVC"
	PaymentMethodEDahab PaymentMethod = "EDAHAB"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// DefaultCurrency is used when a donation does not specify one
const DefaultCurrency = "USD"

// Payment represents one fundraising transaction attempt.
//
// Reference is assigned once at creation and never changes; it doubles as the
// merchant invoice id sent to the provider and is the correlation token for
// webhooks. The Provider* JSON columns are an append-only audit trail of the
// exact payloads exchanged with the provider.
type Payment struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Reference string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"reference"`
	InvoiceID string    `gorm:"type:varchar(100);index" json:"invoice_id"`

	Method   PaymentMethod `gorm:"type:varchar(20);not null" json:"method"`
	Currency string        `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Amount   float64       `gorm:"type:decimal(20,2);not null" json:"amount"`

	CharityID *uuid.UUID `gorm:"type:uuid;index" json:"charity_id,omitempty"`
	Charity   *Charity   `gorm:"foreignKey:CharityID" json:"-"`

	Name           string `gorm:"type:varchar(255)" json:"name"`
	Phone          string `gorm:"type:varchar(50)" json:"phone"`
	PhoneFormatted string `gorm:"type:varchar(50)" json:"phone_formatted"`
	Email          string `gorm:"type:varchar(255)" json:"email"`
	Note           string `gorm:"type:text" json:"note"`

	Status            PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ProviderReference string        `gorm:"type:varchar(100)" json:"provider_reference"`

	ProviderRequest  JSON `gorm:"type:jsonb" json:"provider_request"`
	ProviderResponse JSON `gorm:"type:jsonb" json:"provider_response"`
	ProviderWebhook  JSON `gorm:"type:jsonb" json:"provider_webhook"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// BeforeCreate assigns a UUID when the database does not
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
