package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityBusy        Availability = "busy"
	AvailabilityUnavailable Availability = "unavailable"
)

func (a Availability) Valid() bool {
	return a == AvailabilityAvailable || a == AvailabilityBusy || a == AvailabilityUnavailable
}

type FreelanceProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	FirstName string `gorm:"type:varchar(80)" json:"first_name"`
	LastName  string `gorm:"type:varchar(80)" json:"last_name"`
	Title     string `gorm:"type:varchar(120)" json:"title"` // e.g. "Ingénieur DevOps"
	Bio       string `gorm:"type:text" json:"bio"`

	// Skills is a JSON array of lower-case skill names.
	Skills          datatypes.JSON `json:"skills"`
	HourlyRate      int64          `json:"hourly_rate"` // FCFA
	Location        string         `gorm:"type:varchar(120);index" json:"location"`
	Availability    Availability   `gorm:"type:varchar(20);not null;default:'available'" json:"availability"`
	YearsExperience int            `json:"years_experience"`

	// Maintained by the review flow.
	Rating      float64 `gorm:"not null;default:0" json:"rating"`
	ReviewCount int     `gorm:"not null;default:0" json:"review_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (p *FreelanceProfile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

// SkillList decodes Skills, returning nil on malformed data.
func (p *FreelanceProfile) SkillList() []string {
	return decodeSkills(p.Skills)
}

func decodeSkills(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// EncodeSkills marshals an already normalized skill list.
func EncodeSkills(skills []string) datatypes.JSON {
	if skills == nil {
		skills = []string{}
	}
	b, _ := json.Marshal(skills)
	return datatypes.JSON(b)
}

// NormalizeSkills trims, lower-cases and de-duplicates skill names,
// dropping empty entries.
func NormalizeSkills(skills []string) []string {
	out := lo.Map(skills, func(s string, _ int) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
	return lo.Uniq(lo.Compact(out))
}

// SkillPattern builds the LIKE pattern matching skill inside a JSON skills
// column cast to text.
func SkillPattern(skill string) string {
	b, _ := json.Marshal(strings.ToLower(strings.TrimSpace(skill)))
	return "%" + string(b) + "%"
}
