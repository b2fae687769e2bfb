package reviews

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

type ReviewService struct {
	DB       *gorm.DB
	Notifier *notifications.NotificationService
}

func NewReviewService(db *gorm.DB, notifier *notifications.NotificationService) *ReviewService {
	return &ReviewService{DB: db, Notifier: notifier}
}

type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (in *ReviewInput) normalize() apperr.FieldErrors {
	in.Comment = strings.TrimSpace(in.Comment)

	fe := apperr.FieldErrors{}
	if in.Rating < 1 || in.Rating > 5 {
		fe.Add("rating", "Rating must be between 1 and 5")
	}
	if len(in.Comment) > 2000 {
		fe.Add("comment", "Comment must be at most 2000 characters")
	}
	return fe
}

// CanReview answers whether the caller may review the project. It never
// fails for a negative answer; only a missing project or a store error is
// returned as an error.
func (s *ReviewService) CanReview(ctx context.Context, caller authz.Caller, projectID uuid.UUID) (lifecycle.Eligibility, error) {
	db := s.DB.WithContext(ctx)

	var p models.Project
	if err := db.First(&p, "id = ?", projectID).Error; err != nil {
		return lifecycle.Eligibility{}, apperr.FromStore(err, "Project not found", nil)
	}
	reviewed, err := hasReview(db, p.ID)
	if err != nil {
		return lifecycle.Eligibility{}, apperr.Internal(err)
	}
	return lifecycle.CanReview(lifecycle.ReviewInput{Caller: caller, Project: &p, AlreadyReviewed: reviewed}), nil
}

// Create writes the single review of a completed project and refreshes
// the freelance's rating in the same transaction.
func (s *ReviewService) Create(ctx context.Context, caller authz.Caller, projectID uuid.UUID, in ReviewInput) (*models.Review, error) {
	if err := authz.Authorize(caller, authz.RequireRole(models.RoleCompany)); err != nil {
		return nil, err
	}
	if fe := in.normalize(); len(fe) > 0 {
		return nil, apperr.Validation(fe)
	}

	var (
		review models.Review
		out    *notifications.Outgoing
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", projectID).Error; err != nil {
			return apperr.FromStore(err, "Project not found", nil)
		}
		reviewed, err := hasReview(tx, p.ID)
		if err != nil {
			return err
		}
		if err := lifecycle.CanReview(lifecycle.ReviewInput{Caller: caller, Project: &p, AlreadyReviewed: reviewed}).Err(); err != nil {
			return err
		}
		if p.AcceptedFreelanceID == nil {
			return apperr.InvalidState(apperr.ReasonNotCompleted, "Project has no hired freelance")
		}

		review = models.Review{
			ProjectID:   p.ID,
			CompanyID:   p.CompanyID,
			FreelanceID: *p.AcceptedFreelanceID,
			Rating:      in.Rating,
			Comment:     in.Comment,
		}
		if err := tx.Create(&review).Error; err != nil {
			return err
		}
		if err := refreshRating(tx, review.FreelanceID); err != nil {
			return err
		}

		out, err = s.Notifier.Record(tx, notifications.Event{
			UserID:  review.FreelanceID,
			Type:    models.NotifReviewReceived,
			Title:   "Nouvel avis",
			Message: fmt.Sprintf("Vous avez reçu un avis %d/5 pour \"%s\".", review.Rating, p.Title),
			Data:    map[string]any{"project_id": p.ID, "review_id": review.ID},
		})
		return err
	})
	if err != nil {
		return nil, apperr.FromStore(err, "Project not found", apperr.Duplicate(apperr.ReasonAlreadyReviewed, "Project already reviewed"))
	}

	metrics.ReviewsCreated.Inc()
	s.Notifier.Dispatch(ctx, out)
	return &review, nil
}

// ListForFreelance is public.
func (s *ReviewService) ListForFreelance(ctx context.Context, freelanceID uuid.UUID, params pagination.Params) (pagination.Result[models.Review], error) {
	var empty pagination.Result[models.Review]
	base := s.DB.WithContext(ctx).Model(&models.Review{}).Where("freelance_id = ?", freelanceID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return empty, apperr.Internal(err)
	}
	var items []models.Review
	if err := base.Session(&gorm.Session{}).
		Preload("Project", func(db *gorm.DB) *gorm.DB { return db.Select("id", "title", "company_id") }).
		Order("created_at DESC").
		Scopes(params.Scope).
		Find(&items).Error; err != nil {
		return empty, apperr.Internal(err)
	}
	return pagination.NewResult(items, params, total), nil
}

func hasReview(db *gorm.DB, projectID uuid.UUID) (bool, error) {
	var r models.Review
	err := db.Select("id").Where("project_id = ?", projectID).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// refreshRating recomputes the average from the reviews table. A freelance
// without a profile has nothing to refresh.
func refreshRating(tx *gorm.DB, freelanceID uuid.UUID) error {
	var agg struct {
		Avg   float64
		Count int
	}
	if err := tx.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("freelance_id = ?", freelanceID).
		Scan(&agg).Error; err != nil {
		return err
	}
	return tx.Model(&models.FreelanceProfile{}).
		Where("user_id = ?", freelanceID).
		Updates(map[string]any{"rating": agg.Avg, "review_count": agg.Count}).Error
}
