package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotifApplicationReceived NotificationType = "application_received"
	NotifApplicationAccepted NotificationType = "application_accepted"
	NotifApplicationRejected NotificationType = "application_rejected"
	NotifProjectCompleted    NotificationType = "project_completed"
	NotifProjectCancelled    NotificationType = "project_cancelled"
	NotifReviewReceived      NotificationType = "review_received"
	NotifNewMessage          NotificationType = "new_message"
)

type Notification struct {
	ID      uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Type    NotificationType `gorm:"type:varchar(40);not null" json:"type"`
	Title   string           `gorm:"not null" json:"title"`
	Message string           `gorm:"type:text" json:"message"`
	Data    datatypes.JSON   `json:"data,omitempty"`

	// Read only ever goes false -> true.
	Read   bool       `gorm:"not null;default:false;index" json:"read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}

// NotificationPreference is optional per user; a missing row means
// everything enabled.
type NotificationPreference struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	InApp      bool           `gorm:"not null" json:"in_app"`
	Email      bool           `gorm:"not null" json:"email"`
	MutedTypes datatypes.JSON `json:"muted_types"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (p *NotificationPreference) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
