package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CharityStatus controls public visibility of a campaign
type CharityStatus string

const (
	CharityStatusDraft     CharityStatus = "Draft"
	CharityStatusPublished CharityStatus = "Published"
)

// Charity represents a fundraising campaign. Raised is only ever mutated by
// the charity service's locked increment; donations must never write it
// directly.
type Charity struct {
	ID       uuid.UUID     `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title    string        `gorm:"type:varchar(255);not null" json:"title"`
	Slug     string        `gorm:"type:varchar(255);uniqueIndex" json:"slug"`
	Excerpt  string        `gorm:"type:text" json:"excerpt"`
	Category string        `gorm:"type:varchar(100);index" json:"category"`
	Location string        `gorm:"type:varchar(255)" json:"location"`
	Cover    string        `gorm:"type:varchar(500)" json:"cover"`
	Goal     float64       `gorm:"type:decimal(20,2);default:0" json:"goal"`
	Raised   float64       `gorm:"type:decimal(20,2);default:0" json:"raised"`
	Featured bool          `gorm:"default:false" json:"featured"`
	Status   CharityStatus `gorm:"type:varchar(20);not null;default:'Draft';index" json:"status"`

	CreatedAt time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a UUID when the database does not
func (c *Charity) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
