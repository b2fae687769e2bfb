package favorites

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
)

type FavoriteService struct {
	DB *gorm.DB
}

func NewFavoriteService(db *gorm.DB) *FavoriteService {
	return &FavoriteService{DB: db}
}

func normalizePool(pool string) (string, apperr.FieldErrors) {
	pool = strings.TrimSpace(pool)
	if pool == "" {
		pool = models.DefaultPoolName
	}
	fe := apperr.FieldErrors{}
	if len(pool) > 80 {
		fe.Add("pool_name", "Pool name must be at most 80 characters")
	}
	return pool, fe
}

// Add bookmarks a freelance. Adding an existing pair returns the stored
// favorite untouched, including when a concurrent Add won the insert.
func (s *FavoriteService) Add(ctx context.Context, caller authz.Caller, freelanceID uuid.UUID, pool string) (*models.Favorite, error) {
	if err := authz.Authorize(caller, authz.RequireRole(models.RoleCompany)); err != nil {
		return nil, err
	}
	pool, fe := normalizePool(pool)
	if len(fe) > 0 {
		return nil, apperr.Validation(fe)
	}

	db := s.DB.WithContext(ctx)
	if err := ensureFreelance(db, freelanceID); err != nil {
		return nil, err
	}

	if fav, err := find(db, caller.UserID, freelanceID); err != nil || fav != nil {
		return fav, err
	}

	fav := models.Favorite{CompanyID: caller.UserID, FreelanceID: freelanceID, PoolName: pool}
	if err := db.Create(&fav).Error; err != nil {
		if !apperr.IsUniqueViolation(err) {
			return nil, apperr.Internal(err)
		}
		existing, err := find(db, caller.UserID, freelanceID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, apperr.Internal(errors.New("favorite vanished after unique violation"))
		}
		return existing, nil
	}
	return &fav, nil
}

// Remove deletes the pair if present and reports whether it existed.
func (s *FavoriteService) Remove(ctx context.Context, caller authz.Caller, freelanceID uuid.UUID) (bool, error) {
	if err := authz.Authorize(caller, authz.RequireRole(models.RoleCompany)); err != nil {
		return false, err
	}
	res := s.DB.WithContext(ctx).
		Where("company_id = ? AND freelance_id = ?", caller.UserID, freelanceID).
		Delete(&models.Favorite{})
	if res.Error != nil {
		return false, apperr.Internal(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Toggle flips the favorite state. It returns the stored favorite when the
// pair ends up favorited. Anonymous callers get a soft false.
func (s *FavoriteService) Toggle(ctx context.Context, caller authz.Caller, freelanceID uuid.UUID) (*models.Favorite, bool, error) {
	if !caller.IsAuthenticated() {
		return nil, false, nil
	}
	if err := authz.Authorize(caller, authz.RequireRole(models.RoleCompany)); err != nil {
		return nil, false, err
	}

	removed, err := s.Remove(ctx, caller, freelanceID)
	if err != nil || removed {
		return nil, false, err
	}
	fav, err := s.Add(ctx, caller, freelanceID, "")
	if err != nil {
		return nil, false, err
	}
	return fav, true, nil
}

// Check is soft: anyone who is not a company simply gets false.
func (s *FavoriteService) Check(ctx context.Context, caller authz.Caller, freelanceID uuid.UUID) (bool, error) {
	if !caller.Is(models.RoleCompany) {
		return false, nil
	}
	fav, err := find(s.DB.WithContext(ctx), caller.UserID, freelanceID)
	if err != nil {
		return false, err
	}
	return fav != nil, nil
}

// List returns the caller's favorites, optionally for a single pool.
func (s *FavoriteService) List(ctx context.Context, caller authz.Caller, pool string) ([]models.Favorite, error) {
	if err := authz.Authorize(caller, authz.RequireRole(models.RoleCompany)); err != nil {
		return nil, err
	}

	q := s.DB.WithContext(ctx).
		Where("company_id = ?", caller.UserID).
		Preload("Freelance.FreelanceProfile")
	if pool = strings.TrimSpace(pool); pool != "" {
		q = q.Where("pool_name = ?", pool)
	}
	var favs []models.Favorite
	if err := q.Order("created_at DESC").Find(&favs).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return favs, nil
}

func find(db *gorm.DB, companyID, freelanceID uuid.UUID) (*models.Favorite, error) {
	var fav models.Favorite
	err := db.Where("company_id = ? AND freelance_id = ?", companyID, freelanceID).Take(&fav).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &fav, nil
}

func ensureFreelance(db *gorm.DB, id uuid.UUID) error {
	var n int64
	if err := db.Model(&models.User{}).Where("id = ? AND role = ?", id, models.RoleFreelance).Count(&n).Error; err != nil {
		return apperr.Internal(err)
	}
	if n == 0 {
		return apperr.NotFound("Freelance not found")
	}
	return nil
}
