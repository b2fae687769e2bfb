package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CompanySize string

const (
	CompanySizeMicro  CompanySize = "1-10"
	CompanySizeSmall  CompanySize = "11-50"
	CompanySizeMedium CompanySize = "51-200"
	CompanySizeLarge  CompanySize = "200+"
)

func (s CompanySize) Valid() bool {
	switch s {
	case CompanySizeMicro, CompanySizeSmall, CompanySizeMedium, CompanySizeLarge:
		return true
	}
	return false
}

type CompanyProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	CompanyName string      `gorm:"type:varchar(150);not null" json:"company_name"`
	Sector      string      `gorm:"type:varchar(80);index" json:"sector"`
	Size        CompanySize `gorm:"type:varchar(10)" json:"size"`
	Description string      `gorm:"type:text" json:"description"`
	Website     string      `gorm:"type:varchar(255)" json:"website"`
	Location    string      `gorm:"type:varchar(120)" json:"location"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *CompanyProfile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
