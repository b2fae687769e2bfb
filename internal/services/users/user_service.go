package users

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/logutils"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/tasks"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/utils"
)

const verifyTokenTTL = 48 * time.Hour

type UserService struct {
	DB          *gorm.DB
	JWTSecret   string
	ExpiresMin  int
	FrontendURL string
	Queue       tasks.Enqueuer
	Now         func() time.Time
}

func NewUserService(db *gorm.DB, jwtSecret string, expiresMin int, frontendURL string, queue tasks.Enqueuer) *UserService {
	return &UserService{
		DB:          db,
		JWTSecret:   jwtSecret,
		ExpiresMin:  expiresMin,
		FrontendURL: strings.TrimRight(frontendURL, "/"),
		Queue:       queue,
		Now:         time.Now,
	}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (in *RegisterInput) normalize() apperr.FieldErrors {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))

	fe := apperr.FieldErrors{}
	if in.Name == "" {
		fe.Add("name", "Name is required")
	}
	if in.Email == "" {
		fe.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(in.Email); err != nil {
		fe.Add("email", "Email format is invalid")
	}
	if in.Password == "" {
		fe.Add("password", "Password is required")
	} else if len(in.Password) < 8 {
		fe.Add("password", "Password must be at least 8 characters")
	}
	if !models.Role(in.Role).Valid() {
		fe.Add("role", "Role must be freelance or company")
	}
	return fe
}

// Register creates an unverified account and queues the confirmation email.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if fe := in.normalize(); len(fe) > 0 {
		return nil, apperr.Validation(fe)
	}

	db := s.DB.WithContext(ctx)
	var n int64
	if err := db.Model(&models.User{}).Where("email = ?", in.Email).Count(&n).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if n > 0 {
		return nil, apperr.Duplicate(apperr.ReasonEmailTaken, "Email is already registered")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	u := models.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: hash,
		Role:     models.Role(in.Role),
		IsActive: true,
	}
	if err := db.Create(&u).Error; err != nil {
		return nil, apperr.FromStore(err, "User not found", apperr.Duplicate(apperr.ReasonEmailTaken, "Email is already registered"))
	}

	if err := s.sendVerification(ctx, &u); err != nil {
		logutils.Log.WithFields(logutils.Fields{"user_id": u.ID, "error": err}).Warn("verification email not queued")
	}
	return &u, nil
}

// Login checks credentials. Unknown email and wrong password look the same.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	fe := apperr.FieldErrors{}
	if email == "" {
		fe.Add("email", "Email is required")
	}
	if password == "" {
		fe.Add("password", "Password is required")
	}
	if len(fe) > 0 {
		return nil, apperr.Validation(fe)
	}

	var u models.User
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.BadCredentials(apperr.ReasonBadCredentials, "Invalid email or password")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !utils.CheckPassword(u.Password, password) {
		return nil, apperr.BadCredentials(apperr.ReasonBadCredentials, "Invalid email or password")
	}
	if !u.IsActive {
		return nil, apperr.BadCredentials(apperr.ReasonAccountInactive, "Account is disabled")
	}
	return &u, nil
}

// IssueToken signs a session token for u.
func (s *UserService) IssueToken(u *models.User) (string, error) {
	return utils.SignJWT(s.JWTSecret, u.ID.String(), string(u.Role), s.ExpiresMin)
}

// GetMe loads the caller with whichever profile their role has.
func (s *UserService) GetMe(ctx context.Context, caller authz.Caller) (*models.User, error) {
	if err := authz.Authorize(caller); err != nil {
		return nil, err
	}
	var u models.User
	err := s.DB.WithContext(ctx).
		Preload("FreelanceProfile").
		Preload("CompanyProfile").
		First(&u, "id = ?", caller.UserID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// token outlived the account
			return nil, apperr.Unauthenticated()
		}
		return nil, apperr.Internal(err)
	}
	return &u, nil
}

// VerifyEmail flips is_verified once. Replaying a valid token is a no-op
// that keeps the original verified_at.
func (s *UserService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	claims, err := utils.ParseJWT(s.JWTSecret, strings.TrimSpace(token), utils.PurposeVerifyEmail)
	if err != nil {
		fe := apperr.FieldErrors{}
		fe.Add("token", "Verification link is invalid or expired")
		return nil, apperr.Validation(fe)
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		fe := apperr.FieldErrors{}
		fe.Add("token", "Verification link is invalid or expired")
		return nil, apperr.Validation(fe)
	}

	db := s.DB.WithContext(ctx)
	if err := db.Model(&models.User{}).
		Where("id = ? AND is_verified = ?", id, false).
		Updates(map[string]any{"is_verified": true, "verified_at": s.Now()}).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	var u models.User
	if err := db.First(&u, "id = ?", id).Error; err != nil {
		return nil, apperr.FromStore(err, "User not found", nil)
	}
	return &u, nil
}

func (s *UserService) ResendVerification(ctx context.Context, caller authz.Caller) error {
	if err := authz.Authorize(caller); err != nil {
		return err
	}
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, "id = ?", caller.UserID).Error; err != nil {
		return apperr.FromStore(err, "User not found", nil)
	}
	if u.IsVerified {
		return apperr.InvalidState(apperr.ReasonAlreadyVerified, "Email is already verified")
	}
	if err := s.sendVerification(ctx, &u); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *UserService) sendVerification(ctx context.Context, u *models.User) error {
	token, err := utils.SignVerifyToken(s.JWTSecret, u.ID.String(), verifyTokenTTL)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/verify-email?token=%s", s.FrontendURL, token)
	return tasks.EnqueueEmail(ctx, s.Queue, tasks.EmailPayload{
		To:      u.Email,
		Subject: "Confirmez votre adresse email",
		Body:    fmt.Sprintf("Bonjour %s,\n\nConfirmez votre compte en ouvrant ce lien :\n%s\n", u.Name, link),
	})
}

// FindOrCreateOAuthUser resolves a social login. An existing account keeps
// its role; a new one needs a valid role and starts verified.
func (s *UserService) FindOrCreateOAuthUser(ctx context.Context, email, name string, role models.Role) (*models.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		fe := apperr.FieldErrors{}
		fe.Add("email", "Provider did not return an email")
		return nil, false, apperr.Validation(fe)
	}

	db := s.DB.WithContext(ctx)
	var u models.User
	err := db.Where("email = ?", email).First(&u).Error
	if err == nil {
		if !u.IsActive {
			return nil, false, apperr.BadCredentials(apperr.ReasonAccountInactive, "Account is disabled")
		}
		return &u, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, apperr.Internal(err)
	}

	if !role.Valid() {
		fe := apperr.FieldErrors{}
		fe.Add("role", "Choose freelance or company to sign up")
		return nil, false, apperr.Validation(fe)
	}

	// social accounts never log in with a password; store an unguessable one
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, false, apperr.Internal(err)
	}
	hash, err := utils.HashPassword(hex.EncodeToString(buf))
	if err != nil {
		return nil, false, apperr.Internal(err)
	}

	now := s.Now()
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	u = models.User{
		Name:       name,
		Email:      email,
		Password:   hash,
		Role:       role,
		IsVerified: true,
		VerifiedAt: &now,
		IsActive:   true,
	}
	if err := db.Create(&u).Error; err != nil {
		if apperr.IsUniqueViolation(err) {
			// lost the race to a concurrent signup with the same email
			if err := db.Where("email = ?", email).First(&u).Error; err != nil {
				return nil, false, apperr.Internal(err)
			}
			return &u, false, nil
		}
		return nil, false, apperr.Internal(err)
	}
	return &u, true, nil
}
