package profiles

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/pagination"
)

type ProfileService struct {
	DB *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{DB: db}
}

type FreelanceProfileInput struct {
	FirstName       string              `json:"first_name"`
	LastName        string              `json:"last_name"`
	Title           string              `json:"title"`
	Bio             string              `json:"bio"`
	Skills          []string            `json:"skills"`
	HourlyRate      int64               `json:"hourly_rate"`
	Location        string              `json:"location"`
	Availability    models.Availability `json:"availability"`
	YearsExperience int                 `json:"years_experience"`
}

func (in *FreelanceProfileInput) normalize() apperr.FieldErrors {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Title = strings.TrimSpace(in.Title)
	in.Bio = strings.TrimSpace(in.Bio)
	in.Location = strings.TrimSpace(in.Location)
	in.Skills = models.NormalizeSkills(in.Skills)
	if in.Availability == "" {
		in.Availability = models.AvailabilityAvailable
	}

	fe := apperr.FieldErrors{}
	if in.FirstName == "" {
		fe.Add("first_name", "First name is required")
	}
	if in.LastName == "" {
		fe.Add("last_name", "Last name is required")
	}
	if in.Title == "" {
		fe.Add("title", "Title is required")
	}
	if len(in.Skills) > 30 {
		fe.Add("skills", "At most 30 skills")
	}
	if in.HourlyRate < 0 {
		fe.Add("hourly_rate", "Hourly rate cannot be negative")
	}
	if !in.Availability.Valid() {
		fe.Add("availability", "Availability must be available, busy or unavailable")
	}
	if in.YearsExperience < 0 || in.YearsExperience > 60 {
		fe.Add("years_experience", "Years of experience must be between 0 and 60")
	}
	return fe
}

func (in FreelanceProfileInput) apply(p *models.FreelanceProfile) {
	p.FirstName = in.FirstName
	p.LastName = in.LastName
	p.Title = in.Title
	p.Bio = in.Bio
	p.Skills = models.EncodeSkills(in.Skills)
	p.HourlyRate = in.HourlyRate
	p.Location = in.Location
	p.Availability = in.Availability
	p.YearsExperience = in.YearsExperience
}

type CompanyProfileInput struct {
	CompanyName string             `json:"company_name"`
	Sector      string             `json:"sector"`
	Size        models.CompanySize `json:"size"`
	Description string             `json:"description"`
	Website     string             `json:"website"`
	Location    string             `json:"location"`
}

func (in *CompanyProfileInput) normalize() apperr.FieldErrors {
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.Sector = strings.TrimSpace(in.Sector)
	in.Description = strings.TrimSpace(in.Description)
	in.Website = strings.TrimSpace(in.Website)
	in.Location = strings.TrimSpace(in.Location)

	fe := apperr.FieldErrors{}
	if in.CompanyName == "" {
		fe.Add("company_name", "Company name is required")
	}
	if in.Size != "" && !in.Size.Valid() {
		fe.Add("size", "Size must be one of 1-10, 11-50, 51-200, 200+")
	}
	if in.Website != "" {
		u, err := url.Parse(in.Website)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			fe.Add("website", "Website must be an http(s) URL")
		}
	}
	return fe
}

func (in CompanyProfileInput) apply(p *models.CompanyProfile) {
	p.CompanyName = in.CompanyName
	p.Sector = in.Sector
	p.Size = in.Size
	p.Description = in.Description
	p.Website = in.Website
	p.Location = in.Location
}

// CreateFreelanceProfile creates the caller's single freelance profile.
func (s *ProfileService) CreateFreelanceProfile(ctx context.Context, caller authz.Caller, in FreelanceProfileInput) (*models.FreelanceProfile, error) {
	if err := authz.Authorize(caller, authz.RequireRole(models.RoleFreelance)); err != nil {
		return nil, err
	}
	if fe := in.normalize(); len(fe) > 0 {
		return nil, apperr.Validation(fe)
	}

	db := s.DB.WithContext(ctx)
	if exists, err := hasRow(db, &models.FreelanceProfile{}, caller.UserID); err != nil {
		return nil, apperr.Internal(err)
	} else if exists {
		return nil, apperr.Duplicate(apperr.ReasonProfileExists, "Profile already exists")
	}

	p := models.FreelanceProfile{UserID: caller.UserID}
	in.apply(&p)
	if err := db.Create(&p).Error; err != nil {
		return nil, apperr.FromStore(err, "User not found", apperr.Duplicate(apperr.ReasonProfileExists, "Profile already exists"))
	}
	return &p, nil
}

func (s *ProfileService) UpdateFreelanceProfile(ctx context.Context, caller authz.Caller, in FreelanceProfileInput) (*models.FreelanceProfile, error) {
	if err := authz.Authorize(caller, authz.RequireRole(models.RoleFreelance)); err != nil {
		return nil, err
	}
	if fe := in.normalize(); len(fe) > 0 {
		return nil, apperr.Validation(fe)
	}

	db := s.DB.WithContext(ctx)
	var p models.FreelanceProfile
	if err := db.First(&p, "user_id = ?", caller.UserID).Error; err != nil {
		return nil, apperr.FromStore(err, "Profile not found", nil)
	}
	if err := authz.Authorize(caller, authz.RequireOwner(p.UserID)); err != nil {
		return nil, err
	}

	in.apply(&p)
	if err := db.Model(&p).
		Select("first_name", "last_name", "title", "bio", "skills", "hourly_rate", "location", "availability", "years_experience").
		Updates(&p).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return &p, nil
}

func (s *ProfileService) CreateCompanyProfile(ctx context.Context, caller authz.Caller, in CompanyProfileInput) (*models.CompanyProfile, error) {
	if err := authz.Authorize(caller, authz.RequireRole(models.RoleCompany)); err != nil {
		return nil, err
	}
	if fe := in.normalize(); len(fe) > 0 {
		return nil, apperr.Validation(fe)
	}

	db := s.DB.WithContext(ctx)
	if exists, err := hasRow(db, &models.CompanyProfile{}, caller.UserID); err != nil {
		return nil, apperr.Internal(err)
	} else if exists {
		return nil, apperr.Duplicate(apperr.ReasonProfileExists, "Profile already exists")
	}

	p := models.CompanyProfile{UserID: caller.UserID}
	in.apply(&p)
	if err := db.Create(&p).Error; err != nil {
		return nil, apperr.FromStore(err, "User not found", apperr.Duplicate(apperr.ReasonProfileExists, "Profile already exists"))
	}
	return &p, nil
}

func (s *ProfileService) UpdateCompanyProfile(ctx context.Context, caller authz.Caller, in CompanyProfileInput) (*models.CompanyProfile, error) {
	if err := authz.Authorize(caller, authz.RequireRole(models.RoleCompany)); err != nil {
		return nil, err
	}
	if fe := in.normalize(); len(fe) > 0 {
		return nil, apperr.Validation(fe)
	}

	db := s.DB.WithContext(ctx)
	var p models.CompanyProfile
	if err := db.First(&p, "user_id = ?", caller.UserID).Error; err != nil {
		return nil, apperr.FromStore(err, "Profile not found", nil)
	}
	if err := authz.Authorize(caller, authz.RequireOwner(p.UserID)); err != nil {
		return nil, err
	}

	in.apply(&p)
	if err := db.Model(&p).
		Select("company_name", "sector", "size", "description", "website", "location").
		Updates(&p).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return &p, nil
}

// PublicFreelance is what anyone may see about a freelance. No email.
type PublicFreelance struct {
	UserID          uuid.UUID           `json:"user_id"`
	Name            string              `json:"name"`
	FirstName       string              `json:"first_name"`
	LastName        string              `json:"last_name"`
	Title           string              `json:"title"`
	Bio             string              `json:"bio"`
	Skills          []string            `json:"skills"`
	HourlyRate      int64               `json:"hourly_rate"`
	Location        string              `json:"location"`
	Availability    models.Availability `json:"availability"`
	YearsExperience int                 `json:"years_experience"`
	Rating          float64             `json:"rating"`
	ReviewCount     int                 `json:"review_count"`
	IsVerified      bool                `json:"is_verified"`
	MemberSince     time.Time           `json:"member_since"`
}

func toPublicFreelance(p models.FreelanceProfile, _ int) PublicFreelance {
	skills := p.SkillList()
	if skills == nil {
		skills = []string{}
	}
	out := PublicFreelance{
		UserID:          p.UserID,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		Title:           p.Title,
		Bio:             p.Bio,
		Skills:          skills,
		HourlyRate:      p.HourlyRate,
		Location:        p.Location,
		Availability:    p.Availability,
		YearsExperience: p.YearsExperience,
		Rating:          p.Rating,
		ReviewCount:     p.ReviewCount,
	}
	if p.User != nil {
		out.Name = p.User.Name
		out.IsVerified = p.User.IsVerified
		out.MemberSince = p.User.CreatedAt
	}
	return out
}

type PublicCompany struct {
	UserID       uuid.UUID          `json:"user_id"`
	CompanyName  string             `json:"company_name"`
	Sector       string             `json:"sector"`
	Size         models.CompanySize `json:"size"`
	Description  string             `json:"description"`
	Website      string             `json:"website"`
	Location     string             `json:"location"`
	OpenProjects int64              `json:"open_projects"`
}

func (s *ProfileService) GetPublicFreelance(ctx context.Context, userID uuid.UUID) (*PublicFreelance, error) {
	var p models.FreelanceProfile
	err := s.DB.WithContext(ctx).
		Preload("User").
		Joins("JOIN users ON users.id = freelance_profiles.user_id AND users.is_active = ?", true).
		First(&p, "freelance_profiles.user_id = ?", userID).Error
	if err != nil {
		return nil, apperr.FromStore(err, "Freelance not found", nil)
	}
	out := toPublicFreelance(p, 0)
	return &out, nil
}

func (s *ProfileService) GetPublicCompany(ctx context.Context, userID uuid.UUID) (*PublicCompany, error) {
	db := s.DB.WithContext(ctx)
	var p models.CompanyProfile
	if err := db.First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, apperr.FromStore(err, "Company not found", nil)
	}

	out := &PublicCompany{
		UserID:      p.UserID,
		CompanyName: p.CompanyName,
		Sector:      p.Sector,
		Size:        p.Size,
		Description: p.Description,
		Website:     p.Website,
		Location:    p.Location,
	}
	if err := db.Model(&models.Project{}).
		Where("company_id = ? AND status = ?", p.UserID, models.ProjectOpen).
		Count(&out.OpenProjects).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

type FreelanceQuery struct {
	Skills       []string
	Location     string
	MinRating    float64
	Availability models.Availability
	Search       string
	pagination.Params
}

// SearchFreelancers matches every requested skill. Results are ordered by
// rating, then review count.
func (s *ProfileService) SearchFreelancers(ctx context.Context, q FreelanceQuery) (pagination.Result[PublicFreelance], error) {
	var empty pagination.Result[PublicFreelance]
	if q.Availability != "" && !q.Availability.Valid() {
		fe := apperr.FieldErrors{}
		fe.Add("availability", "Availability must be available, busy or unavailable")
		return empty, apperr.Validation(fe)
	}

	base := s.DB.WithContext(ctx).Model(&models.FreelanceProfile{}).
		Joins("JOIN users ON users.id = freelance_profiles.user_id AND users.is_active = ?", true)
	for _, skill := range models.NormalizeSkills(q.Skills) {
		base = base.Where("CAST(freelance_profiles.skills AS TEXT) LIKE ?", models.SkillPattern(skill))
	}
	if loc := strings.TrimSpace(q.Location); loc != "" {
		base = base.Where("LOWER(freelance_profiles.location) LIKE ?", "%"+strings.ToLower(loc)+"%")
	}
	if q.MinRating > 0 {
		base = base.Where("freelance_profiles.rating >= ?", q.MinRating)
	}
	if q.Availability != "" {
		base = base.Where("freelance_profiles.availability = ?", q.Availability)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		base = base.Where(
			"LOWER(freelance_profiles.title) LIKE ? OR LOWER(freelance_profiles.first_name) LIKE ? OR LOWER(freelance_profiles.last_name) LIKE ?",
			like, like, like)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return empty, apperr.Internal(err)
	}

	var rows []models.FreelanceProfile
	if err := base.Session(&gorm.Session{}).
		Preload("User").
		Order("freelance_profiles.rating DESC, freelance_profiles.review_count DESC, freelance_profiles.created_at ASC").
		Scopes(q.Params.Scope).
		Find(&rows).Error; err != nil {
		return empty, apperr.Internal(err)
	}
	return pagination.NewResult(lo.Map(rows, toPublicFreelance), q.Params, total), nil
}

func hasRow(db *gorm.DB, model any, userID uuid.UUID) (bool, error) {
	var n int64
	err := db.Model(model).Where("user_id = ?", userID).Count(&n).Error
	return n > 0, err
}
