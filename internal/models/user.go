package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleFreelance Role = "freelance"
	RoleCompany   Role = "company"
)

func (r Role) Valid() bool {
	return r == RoleFreelance || r == RoleCompany
}

// internal/models/user.go
type User struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string    `gorm:"not null" json:"name"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"` // always stored lower-case

	Password string `gorm:"not null" json:"-"`
	// Role is fixed at signup; no update path writes it.
	Role       Role       `gorm:"type:varchar(20);not null;index" json:"role"`
	IsVerified bool       `gorm:"not null;default:false" json:"is_verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	IsActive   bool       `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FreelanceProfile *FreelanceProfile `gorm:"foreignKey:UserID;references:ID" json:"freelance_profile,omitempty"`
	CompanyProfile   *CompanyProfile   `gorm:"foreignKey:UserID;references:ID" json:"company_profile,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}
