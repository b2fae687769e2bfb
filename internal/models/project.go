package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectOpen       ProjectStatus = "open"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

type Project struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	// CompanyID is the owning company user; never updated after create.
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`

	Title       string         `gorm:"type:varchar(200);not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Budget      int64          `json:"budget"` // FCFA
	Skills      datatypes.JSON `json:"skills"`
	Location    string         `gorm:"type:varchar(120)" json:"location"`
	Deadline    *time.Time     `json:"deadline,omitempty"`

	Status              ProjectStatus `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	AcceptedFreelanceID *uuid.UUID    `gorm:"type:uuid;index" json:"accepted_freelance_id,omitempty"`
	CompletedAt         *time.Time    `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Company *User `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

func (p *Project) SkillList() []string {
	return decodeSkills(p.Skills)
}

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// ProjectApplication is unique per (project, freelance). The partial index
// keeps at most one accepted application per project at the storage level.
type ProjectApplication struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_applications_project_freelance,priority:1;uniqueIndex:idx_applications_one_accepted,where:status = 'accepted'" json:"project_id"`
	FreelanceID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_applications_project_freelance,priority:2;index" json:"freelance_id"`

	CoverLetter  string            `gorm:"type:text" json:"cover_letter"`
	ProposedRate int64             `json:"proposed_rate"`
	Status       ApplicationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	DecidedAt    *time.Time        `json:"decided_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Project   *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Freelance *User    `gorm:"foreignKey:FreelanceID" json:"freelance,omitempty"`
}

func (a *ProjectApplication) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
