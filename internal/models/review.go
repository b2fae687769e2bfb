package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is written once per completed project and never updated.
type Review struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"project_id"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`
	FreelanceID uuid.UUID `gorm:"type:uuid;not null;index" json:"freelance_id"`

	Rating  int    `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"` // 1-5
	Comment string `gorm:"type:text" json:"comment"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Project   *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Company   *User    `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Freelance *User    `gorm:"foreignKey:FreelanceID" json:"freelance,omitempty"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
