package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultPoolName = "default"

// Favorite is a company bookmark on a freelance, unique per pair.
type Favorite struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_favorites_company_freelance,priority:1" json:"company_id"`
	FreelanceID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_favorites_company_freelance,priority:2;index" json:"freelance_id"`
	PoolName    string    `gorm:"type:varchar(80);not null;default:'default'" json:"pool_name"`

	CreatedAt time.Time `json:"created_at"`

	Freelance *User `gorm:"foreignKey:FreelanceID" json:"freelance,omitempty"`
}

func (f *Favorite) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return
}
