package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/lifecycle"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/metrics"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/pagination"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/notifications"
)

type ApplicationInput struct {
	CoverLetter  string `json:"cover_letter"`
	ProposedRate int64  `json:"proposed_rate"`
}

func (in *ApplicationInput) normalize() apperr.FieldErrors {
	in.CoverLetter = strings.TrimSpace(in.CoverLetter)

	fe := apperr.FieldErrors{}
	if in.CoverLetter == "" {
		fe.Add("cover_letter", "Cover letter is required")
	}
	if in.ProposedRate < 0 {
		fe.Add("proposed_rate", "Proposed rate cannot be negative")
	}
	return fe
}

// Apply submits the caller's application to an open project. A second
// application by the same freelance fails with already_applied, whether
// caught by the lookup or by the unique index.
func (s *ProjectService) Apply(ctx context.Context, caller authz.Caller, projectID uuid.UUID, in ApplicationInput) (*models.ProjectApplication, error) {
	if err := authz.Authorize(caller, authz.RequireRole(models.RoleFreelance)); err != nil {
		return nil, err
	}
	if fe := in.normalize(); len(fe) > 0 {
		return nil, apperr.Validation(fe)
	}

	var (
		app models.ProjectApplication
		out *notifications.Outgoing
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.First(&p, "id = ?", projectID).Error; err != nil {
			return apperr.FromStore(err, "Project not found", nil)
		}
		if err := lifecycle.CanApply(&p); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.ProjectApplication{}).
			Where("project_id = ? AND freelance_id = ?", p.ID, caller.UserID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.Duplicate(apperr.ReasonAlreadyApplied, "You already applied to this project")
		}

		app = models.ProjectApplication{
			ProjectID:    p.ID,
			FreelanceID:  caller.UserID,
			CoverLetter:  in.CoverLetter,
			ProposedRate: in.ProposedRate,
			Status:       models.ApplicationPending,
		}
		if err := tx.Create(&app).Error; err != nil {
			return err
		}

		var err error
		out, err = s.Notifier.Record(tx, notifications.Event{
			UserID:  p.CompanyID,
			Type:    models.NotifApplicationReceived,
			Title:   "Nouvelle candidature",
			Message: fmt.Sprintf("Nouvelle candidature pour \"%s\".", p.Title),
			Data:    map[string]any{"project_id": p.ID, "application_id": app.ID},
		})
		return err
	})
	if err != nil {
		return nil, apperr.FromStore(err, "Project not found", apperr.Duplicate(apperr.ReasonAlreadyApplied, "You already applied to this project"))
	}

	s.Notifier.Dispatch(ctx, out)
	return &app, nil
}

// ListApplications is visible to the owning company only.
func (s *ProjectService) ListApplications(ctx context.Context, caller authz.Caller, projectID uuid.UUID, status models.ApplicationStatus) ([]models.ProjectApplication, error) {
	if err := authz.Authorize(caller, authz.RequireRole(models.RoleCompany)); err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	var p models.Project
	if err := db.First(&p, "id = ?", projectID).Error; err != nil {
		return nil, apperr.FromStore(err, "Project not found", nil)
	}
	if err := authz.Authorize(caller, authz.RequireOwner(p.CompanyID)); err != nil {
		return nil, err
	}

	q := db.Where("project_id = ?", p.ID).Preload("Freelance.FreelanceProfile")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var apps []models.ProjectApplication
	if err := q.Order("created_at ASC").Find(&apps).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return apps, nil
}

// ListMyApplications returns the calling freelance's applications.
func (s *ProjectService) ListMyApplications(ctx context.Context, caller authz.Caller, params pagination.Params) (pagination.Result[models.ProjectApplication], error) {
	var empty pagination.Result[models.ProjectApplication]
	if err := authz.Authorize(caller, authz.RequireRole(models.RoleFreelance)); err != nil {
		return empty, err
	}

	base := s.DB.WithContext(ctx).Model(&models.ProjectApplication{}).Where("freelance_id = ?", caller.UserID)
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return empty, apperr.Internal(err)
	}
	var apps []models.ProjectApplication
	if err := base.Session(&gorm.Session{}).
		Preload("Project").
		Order("created_at DESC").
		Scopes(params.Scope).
		Find(&apps).Error; err != nil {
		return empty, apperr.Internal(err)
	}
	return pagination.NewResult(apps, params, total), nil
}

// Accept hires the applicant. In one transaction the application becomes
// accepted, the project moves to in_progress with the freelance recorded,
// and every other pending application is rejected.
func (s *ProjectService) Accept(ctx context.Context, caller authz.Caller, projectID, applicationID uuid.UUID) (*models.ProjectApplication, error) {
	if err := authz.Authorize(caller, authz.RequireRole(models.RoleCompany)); err != nil {
		return nil, err
	}

	var (
		app  models.ProjectApplication
		outs []*notifications.Outgoing
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := lockProject(tx, projectID, &p); err != nil {
			return err
		}
		if err := authz.Authorize(caller, authz.RequireOwner(p.CompanyID)); err != nil {
			return err
		}
		if err := lockApplication(tx, p.ID, applicationID, &app); err != nil {
			return err
		}
		if err := lifecycle.CanAccept(&p, &app); err != nil {
			return err
		}

		now := s.Now()
		res := tx.Model(&models.Project{}).
			Where("id = ? AND status = ?", p.ID, models.ProjectOpen).
			Updates(map[string]any{"status": models.ProjectInProgress, "accepted_freelance_id": app.FreelanceID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState(apperr.ReasonProjectNotOpen, "Project is not open")
		}

		res = tx.Model(&models.ProjectApplication{}).
			Where("id = ? AND status = ?", app.ID, models.ApplicationPending).
			Updates(map[string]any{"status": models.ApplicationAccepted, "decided_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState(apperr.ReasonApplicationClosed, "Application is no longer pending")
		}
		app.Status = models.ApplicationAccepted
		app.DecidedAt = &now

		var siblings []models.ProjectApplication
		if err := tx.Where("project_id = ? AND id <> ? AND status = ?", p.ID, app.ID, models.ApplicationPending).
			Find(&siblings).Error; err != nil {
			return err
		}
		if len(siblings) > 0 {
			if err := tx.Model(&models.ProjectApplication{}).
				Where("project_id = ? AND id <> ? AND status = ?", p.ID, app.ID, models.ApplicationPending).
				Updates(map[string]any{"status": models.ApplicationRejected, "decided_at": now}).Error; err != nil {
				return err
			}
		}

		out, err := s.Notifier.Record(tx, notifications.Event{
			UserID:  app.FreelanceID,
			Type:    models.NotifApplicationAccepted,
			Title:   "Candidature acceptée",
			Message: fmt.Sprintf("Votre candidature pour \"%s\" a été acceptée.", p.Title),
			Data:    map[string]any{"project_id": p.ID, "application_id": app.ID},
		})
		if err != nil {
			return err
		}
		outs = append(outs, out)

		for _, sib := range siblings {
			out, err := s.recordRejected(tx, &p, &sib)
			if err != nil {
				return err
			}
			outs = append(outs, out)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.FromStore(err, "Project not found", apperr.Duplicate(apperr.ReasonProjectNotOpen, "Project already has an accepted application"))
	}

	metrics.ApplicationsAccepted.Inc()
	s.Notifier.Dispatch(ctx, outs...)
	return &app, nil
}

// Reject declines one pending application of an open project.
func (s *ProjectService) Reject(ctx context.Context, caller authz.Caller, projectID, applicationID uuid.UUID) (*models.ProjectApplication, error) {
	if err := authz.Authorize(caller, authz.RequireRole(models.RoleCompany)); err != nil {
		return nil, err
	}

	var (
		app models.ProjectApplication
		out *notifications.Outgoing
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := lockProject(tx, projectID, &p); err != nil {
			return err
		}
		if err := authz.Authorize(caller, authz.RequireOwner(p.CompanyID)); err != nil {
			return err
		}
		if err := lockApplication(tx, p.ID, applicationID, &app); err != nil {
			return err
		}
		if err := lifecycle.CanReject(&p, &app); err != nil {
			return err
		}

		now := s.Now()
		res := tx.Model(&models.ProjectApplication{}).
			Where("id = ? AND status = ?", app.ID, models.ApplicationPending).
			Updates(map[string]any{"status": models.ApplicationRejected, "decided_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState(apperr.ReasonApplicationClosed, "Application is no longer pending")
		}
		app.Status = models.ApplicationRejected
		app.DecidedAt = &now

		var err error
		out, err = s.recordRejected(tx, &p, &app)
		return err
	})
	if err != nil {
		return nil, apperr.FromStore(err, "Project not found", nil)
	}

	s.Notifier.Dispatch(ctx, out)
	return &app, nil
}

func (s *ProjectService) recordRejected(tx *gorm.DB, p *models.Project, a *models.ProjectApplication) (*notifications.Outgoing, error) {
	return s.Notifier.Record(tx, notifications.Event{
		UserID:  a.FreelanceID,
		Type:    models.NotifApplicationRejected,
		Title:   "Candidature non retenue",
		Message: fmt.Sprintf("Votre candidature pour \"%s\" n'a pas été retenue.", p.Title),
		Data:    map[string]any{"project_id": p.ID, "application_id": a.ID},
	})
}

// lockApplication loads an application of projectID FOR UPDATE. An
// application of another project reads as not found.
func lockApplication(tx *gorm.DB, projectID, id uuid.UUID, a *models.ProjectApplication) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(a, "id = ? AND project_id = ?", id, projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Application not found for this project")
	}
	return err
}
