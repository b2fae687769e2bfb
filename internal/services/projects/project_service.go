package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/lifecycle"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/pagination"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/notifications"
)

type ProjectService struct {
	DB       *gorm.DB
	Notifier *notifications.NotificationService
	Now      func() time.Time
}

func NewProjectService(db *gorm.DB, notifier *notifications.NotificationService) *ProjectService {
	return &ProjectService{DB: db, Notifier: notifier, Now: time.Now}
}

type ProjectInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Budget      int64      `json:"budget"`
	Skills      []string   `json:"skills"`
	Location    string     `json:"location"`
	Deadline    *time.Time `json:"deadline"`
}

func (in *ProjectInput) normalize() apperr.FieldErrors {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	in.Skills = models.NormalizeSkills(in.Skills)

	fe := apperr.FieldErrors{}
	if in.Title == "" {
		fe.Add("title", "Title is required")
	} else if len(in.Title) > 200 {
		fe.Add("title", "Title must be at most 200 characters")
	}
	if in.Description == "" {
		fe.Add("description", "Description is required")
	}
	if in.Budget <= 0 {
		fe.Add("budget", "Budget must be greater than zero")
	}
	return fe
}

func (s *ProjectService) Create(ctx context.Context, caller authz.Caller, in ProjectInput) (*models.Project, error) {
	if err := authz.Authorize(caller, authz.RequireRole(models.RoleCompany)); err != nil {
		return nil, err
	}
	if fe := in.normalize(); len(fe) > 0 {
		return nil, apperr.Validation(fe)
	}

	p := &models.Project{
		CompanyID:   caller.UserID,
		Title:       in.Title,
		Description: in.Description,
		Budget:      in.Budget,
		Skills:      models.EncodeSkills(in.Skills),
		Location:    in.Location,
		Deadline:    in.Deadline,
		Status:      models.ProjectOpen,
	}
	if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return p, nil
}

// Update edits an open project's details. Ownership and status never
// change here.
func (s *ProjectService) Update(ctx context.Context, caller authz.Caller, id uuid.UUID, in ProjectInput) (*models.Project, error) {
	if err := authz.Authorize(caller, authz.RequireRole(models.RoleCompany)); err != nil {
		return nil, err
	}
	if fe := in.normalize(); len(fe) > 0 {
		return nil, apperr.Validation(fe)
	}

	var p models.Project
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, id, &p); err != nil {
			return err
		}
		if err := authz.Authorize(caller, authz.RequireOwner(p.CompanyID)); err != nil {
			return err
		}
		if p.Status != models.ProjectOpen {
			return apperr.InvalidState(apperr.ReasonProjectNotOpen, "Only open projects can be edited")
		}

		p.Title = in.Title
		p.Description = in.Description
		p.Budget = in.Budget
		p.Skills = models.EncodeSkills(in.Skills)
		p.Location = in.Location
		p.Deadline = in.Deadline
		return tx.Model(&p).Select("title", "description", "budget", "skills", "location", "deadline").Updates(&p).Error
	})
	if err != nil {
		return nil, apperr.FromStore(err, "Project not found", nil)
	}
	return &p, nil
}

func (s *ProjectService) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, apperr.FromStore(err, "Project not found", nil)
	}
	return &p, nil
}

type ProjectQuery struct {
	Status   models.ProjectStatus
	Skill    string
	Location string
	Search   string
	pagination.Params
}

func (q ProjectQuery) apply(db *gorm.DB) *gorm.DB {
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.Skill != "" {
		db = db.Where("CAST(skills AS TEXT) LIKE ?", models.SkillPattern(q.Skill))
	}
	if q.Location != "" {
		db = db.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(q.Location)+"%")
	}
	if q.Search != "" {
		like := "%" + strings.ToLower(q.Search) + "%"
		db = db.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	return db
}

// ListPublic lists projects for anyone. Status defaults to open.
func (s *ProjectService) ListPublic(ctx context.Context, q ProjectQuery) (pagination.Result[models.Project], error) {
	if q.Status == "" {
		q.Status = models.ProjectOpen
	}
	if !lifecycle.ValidProjectStatus(q.Status) {
		fe := apperr.FieldErrors{}
		fe.Add("status", "Unknown project status")
		return pagination.Result[models.Project]{}, apperr.Validation(fe)
	}
	return s.list(ctx, q, s.DB.WithContext(ctx).Model(&models.Project{}))
}

// ListMine lists the calling company's projects in any status.
func (s *ProjectService) ListMine(ctx context.Context, caller authz.Caller, q ProjectQuery) (pagination.Result[models.Project], error) {
	if err := authz.Authorize(caller, authz.RequireRole(models.RoleCompany)); err != nil {
		return pagination.Result[models.Project]{}, err
	}
	return s.list(ctx, q, s.DB.WithContext(ctx).Model(&models.Project{}).Where("company_id = ?", caller.UserID))
}

func (s *ProjectService) list(ctx context.Context, q ProjectQuery, base *gorm.DB) (pagination.Result[models.Project], error) {
	base = q.apply(base)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return pagination.Result[models.Project]{}, apperr.Internal(err)
	}
	var items []models.Project
	if err := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Scopes(q.Params.Scope).
		Find(&items).Error; err != nil {
		return pagination.Result[models.Project]{}, apperr.Internal(err)
	}
	return pagination.NewResult(items, q.Params, total), nil
}

// ChangeStatus moves a project through the lifecycle table. Starting a
// project only happens through Accept. Cancelling rejects every pending
// application.
func (s *ProjectService) ChangeStatus(ctx context.Context, caller authz.Caller, id uuid.UUID, to models.ProjectStatus) (*models.Project, error) {
	if err := authz.Authorize(caller, authz.RequireRole(models.RoleCompany)); err != nil {
		return nil, err
	}
	if !lifecycle.ValidProjectStatus(to) {
		fe := apperr.FieldErrors{}
		fe.Add("status", "Unknown project status")
		return nil, apperr.Validation(fe)
	}

	var (
		p    models.Project
		outs []*notifications.Outgoing
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, id, &p); err != nil {
			return err
		}
		if err := authz.Authorize(caller, authz.RequireOwner(p.CompanyID)); err != nil {
			return err
		}
		if err := lifecycle.CheckProjectTransition(p.Status, to); err != nil {
			return err
		}
		if to == models.ProjectInProgress {
			return apperr.InvalidState(apperr.ReasonInvalidTransition, "Accept an application to start the project")
		}

		now := s.Now()
		updates := map[string]any{"status": to}
		if to == models.ProjectCompleted {
			updates["completed_at"] = now
		}
		res := tx.Model(&models.Project{}).Where("id = ? AND status = ?", p.ID, p.Status).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState(apperr.ReasonInvalidTransition, "Project status changed concurrently")
		}
		p.Status = to
		if to == models.ProjectCompleted {
			p.CompletedAt = &now
		}

		var err error
		switch to {
		case models.ProjectCompleted:
			outs, err = s.recordCompleted(tx, &p)
		case models.ProjectCancelled:
			outs, err = s.cancelApplications(tx, &p, now)
		}
		return err
	})
	if err != nil {
		return nil, apperr.FromStore(err, "Project not found", nil)
	}

	s.Notifier.Dispatch(ctx, outs...)
	return &p, nil
}

func (s *ProjectService) recordCompleted(tx *gorm.DB, p *models.Project) ([]*notifications.Outgoing, error) {
	if p.AcceptedFreelanceID == nil {
		return nil, nil
	}
	out, err := s.Notifier.Record(tx, notifications.Event{
		UserID:  *p.AcceptedFreelanceID,
		Type:    models.NotifProjectCompleted,
		Title:   "Projet terminé",
		Message: fmt.Sprintf("Le projet \"%s\" a été marqué comme terminé.", p.Title),
		Data:    map[string]any{"project_id": p.ID},
	})
	return []*notifications.Outgoing{out}, err
}

func (s *ProjectService) cancelApplications(tx *gorm.DB, p *models.Project, now time.Time) ([]*notifications.Outgoing, error) {
	var pending []models.ProjectApplication
	if err := tx.Where("project_id = ? AND status = ?", p.ID, models.ApplicationPending).Find(&pending).Error; err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		if err := tx.Model(&models.ProjectApplication{}).
			Where("project_id = ? AND status = ?", p.ID, models.ApplicationPending).
			Updates(map[string]any{"status": models.ApplicationRejected, "decided_at": now}).Error; err != nil {
			return nil, err
		}
	}

	recipients := lo.Map(pending, func(a models.ProjectApplication, _ int) uuid.UUID { return a.FreelanceID })
	if p.AcceptedFreelanceID != nil {
		recipients = append(recipients, *p.AcceptedFreelanceID)
	}

	var outs []*notifications.Outgoing
	for _, uid := range lo.Uniq(recipients) {
		out, err := s.Notifier.Record(tx, notifications.Event{
			UserID:  uid,
			Type:    models.NotifProjectCancelled,
			Title:   "Projet annulé",
			Message: fmt.Sprintf("Le projet \"%s\" a été annulé par l'entreprise.", p.Title),
			Data:    map[string]any{"project_id": p.ID},
		})
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

// lockProject loads a project FOR UPDATE inside tx.
func lockProject(tx *gorm.DB, id uuid.UUID, p *models.Project) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Project not found")
	}
	return err
}
