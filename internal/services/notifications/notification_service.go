package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/logutils"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/pagination"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/tasks"
)

// Publisher pushes a realtime event to every live session of a user.
type Publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, event any) error
}

var knownTypes = []models.NotificationType{
	models.NotifApplicationReceived,
	models.NotifApplicationAccepted,
	models.NotifApplicationRejected,
	models.NotifProjectCompleted,
	models.NotifProjectCancelled,
	models.NotifReviewReceived,
	models.NotifNewMessage,
}

// Event describes a notification before preferences are applied.
type Event struct {
	UserID  uuid.UUID
	Type    models.NotificationType
	Title   string
	Message string
	Data    map[string]any
}

// Outgoing is a recorded event waiting for post-commit delivery.
type Outgoing struct {
	Notification models.Notification
	// Stored is false when the recipient disabled in-app notifications.
	Stored bool
	// EmailTo is set when the recipient wants this event by email.
	EmailTo string
}

type NotificationService struct {
	DB        *gorm.DB
	Publisher Publisher
	Queue     tasks.Enqueuer
	Now       func() time.Time
}

func NewNotificationService(db *gorm.DB, pub Publisher, queue tasks.Enqueuer) *NotificationService {
	return &NotificationService{DB: db, Publisher: pub, Queue: queue, Now: time.Now}
}

// Record stores ev using tx, honoring the recipient's preferences. It
// returns nil when the recipient muted the event entirely. Call Dispatch
// with the result once tx has committed.
func (s *NotificationService) Record(tx *gorm.DB, ev Event) (*Outgoing, error) {
	pref, err := loadPreference(tx, ev.UserID)
	if err != nil {
		return nil, err
	}
	if lo.Contains(pref.MutedTypes, ev.Type) || (!pref.InApp && !pref.Email) {
		return nil, nil
	}

	out := &Outgoing{
		Notification: models.Notification{
			UserID:  ev.UserID,
			Type:    ev.Type,
			Title:   ev.Title,
			Message: ev.Message,
		},
	}
	if len(ev.Data) > 0 {
		raw, err := json.Marshal(ev.Data)
		if err != nil {
			return nil, err
		}
		out.Notification.Data = raw
	}

	if pref.InApp {
		if err := tx.Create(&out.Notification).Error; err != nil {
			return nil, err
		}
		out.Stored = true
	}

	if pref.Email {
		var user models.User
		if err := tx.Select("id", "email").First(&user, "id = ?", ev.UserID).Error; err != nil {
			return nil, err
		}
		out.EmailTo = user.Email
	}
	return out, nil
}

// Dispatch delivers recorded notifications. Failures are logged; the
// stored record stays the source of truth.
func (s *NotificationService) Dispatch(ctx context.Context, outs ...*Outgoing) {
	for _, out := range outs {
		if out == nil {
			continue
		}
		n := out.Notification

		if out.Stored && s.Publisher != nil {
			event := map[string]any{"type": "notification", "notification": n}
			if err := s.Publisher.Publish(ctx, n.UserID, event); err != nil {
				logutils.Log.WithFields(logutils.Fields{"user_id": n.UserID, "error": err}).Warn("realtime publish failed")
			}
		}

		if out.EmailTo != "" {
			payload := tasks.EmailPayload{To: out.EmailTo, Subject: n.Title, Body: n.Message}
			if err := tasks.EnqueueEmail(ctx, s.Queue, payload); err != nil {
				logutils.Log.WithFields(logutils.Fields{"user_id": n.UserID, "error": err}).Warn("email enqueue failed")
			}
		}
	}
}

// Notify records and dispatches a single event outside any transaction.
func (s *NotificationService) Notify(ctx context.Context, ev Event) error {
	out, err := s.Record(s.DB.WithContext(ctx), ev)
	if err != nil {
		return apperr.Internal(err)
	}
	s.Dispatch(ctx, out)
	return nil
}

type ListQuery struct {
	UnreadOnly bool
	pagination.Params
}

// List returns only the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, caller authz.Caller, q ListQuery) (pagination.Result[models.Notification], error) {
	var empty pagination.Result[models.Notification]
	if err := authz.Authorize(caller); err != nil {
		return empty, err
	}

	base := s.DB.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", caller.UserID)
	if q.UnreadOnly {
		base = base.Where("read = ?", false)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return empty, apperr.Internal(err)
	}

	var items []models.Notification
	if err := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Scopes(q.Params.Scope).
		Find(&items).Error; err != nil {
		return empty, apperr.Internal(err)
	}
	return pagination.NewResult(items, q.Params, total), nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, caller authz.Caller) (int64, error) {
	if err := authz.Authorize(caller); err != nil {
		return 0, err
	}
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", caller.UserID, false).
		Count(&n).Error; err != nil {
		return 0, apperr.Internal(err)
	}
	return n, nil
}

// MarkRead flips read once. Marking an already read notification is a
// no-op that returns the unchanged record.
func (s *NotificationService) MarkRead(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.Notification, error) {
	if err := authz.Authorize(caller); err != nil {
		return nil, err
	}

	var n models.Notification
	if err := s.DB.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, apperr.FromStore(err, "Notification not found", nil)
	}
	if err := authz.Authorize(caller, authz.RequireOwner(n.UserID)); err != nil {
		return nil, err
	}
	if n.Read {
		return &n, nil
	}

	now := s.Now()
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND read = ?", n.ID, false).
		Updates(map[string]any{"read": true, "read_at": now})
	if res.Error != nil {
		return nil, apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		// someone else flipped it first; reload their read_at
		if err := s.DB.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
			return nil, apperr.Internal(err)
		}
		return &n, nil
	}
	n.Read = true
	n.ReadAt = &now
	return &n, nil
}

// MarkAllRead touches only the caller's unread notifications and returns
// how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, caller authz.Caller) (int64, error) {
	if err := authz.Authorize(caller); err != nil {
		return 0, err
	}
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", caller.UserID, false).
		Updates(map[string]any{"read": true, "read_at": s.Now()})
	if res.Error != nil {
		return 0, apperr.Internal(res.Error)
	}
	return res.RowsAffected, nil
}

// PurgeRead deletes read notifications older than the cutoff.
func (s *NotificationService) PurgeRead(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.Now().Add(-olderThan)
	res := s.DB.WithContext(ctx).
		Where("read = ? AND read_at < ?", true, cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

type Preferences struct {
	InApp      bool                      `json:"in_app"`
	Email      bool                      `json:"email"`
	MutedTypes []models.NotificationType `json:"muted_types"`
}

type PreferencesInput struct {
	InApp      *bool     `json:"in_app"`
	Email      *bool     `json:"email"`
	MutedTypes *[]string `json:"muted_types"`
}

func defaultPreferences() Preferences {
	return Preferences{InApp: true, Email: true, MutedTypes: []models.NotificationType{}}
}

func loadPreference(db *gorm.DB, userID uuid.UUID) (Preferences, error) {
	var row models.NotificationPreference
	err := db.Where("user_id = ?", userID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return defaultPreferences(), nil
	}
	if err != nil {
		return Preferences{}, err
	}

	p := Preferences{InApp: row.InApp, Email: row.Email, MutedTypes: []models.NotificationType{}}
	if len(row.MutedTypes) > 0 {
		if err := json.Unmarshal(row.MutedTypes, &p.MutedTypes); err != nil {
			return Preferences{}, err
		}
	}
	return p, nil
}

func (s *NotificationService) GetPreferences(ctx context.Context, caller authz.Caller) (Preferences, error) {
	if err := authz.Authorize(caller); err != nil {
		return Preferences{}, err
	}
	p, err := loadPreference(s.DB.WithContext(ctx), caller.UserID)
	if err != nil {
		return Preferences{}, apperr.Internal(err)
	}
	return p, nil
}

// UpdatePreferences applies the non-nil fields of in on top of the current
// preferences.
func (s *NotificationService) UpdatePreferences(ctx context.Context, caller authz.Caller, in PreferencesInput) (Preferences, error) {
	if err := authz.Authorize(caller); err != nil {
		return Preferences{}, err
	}
	fe := apperr.FieldErrors{}
	var muted []models.NotificationType
	if in.MutedTypes != nil {
		muted = lo.Uniq(lo.Map(*in.MutedTypes, func(t string, _ int) models.NotificationType {
			return models.NotificationType(t)
		}))
		for _, t := range muted {
			if !lo.Contains(knownTypes, t) {
				fe.Add("muted_types", "Unknown notification type: "+string(t))
			}
		}
	}
	if len(fe) > 0 {
		return Preferences{}, apperr.Validation(fe)
	}

	db := s.DB.WithContext(ctx)
	p, err := loadPreference(db, caller.UserID)
	if err != nil {
		return Preferences{}, apperr.Internal(err)
	}
	if in.InApp != nil {
		p.InApp = *in.InApp
	}
	if in.Email != nil {
		p.Email = *in.Email
	}
	if in.MutedTypes != nil {
		p.MutedTypes = muted
	}

	raw, err := json.Marshal(p.MutedTypes)
	if err != nil {
		return Preferences{}, apperr.Internal(err)
	}
	row := models.NotificationPreference{
		UserID:     caller.UserID,
		InApp:      p.InApp,
		Email:      p.Email,
		MutedTypes: raw,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"in_app", "email", "muted_types", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return Preferences{}, apperr.Internal(err)
	}
	return p, nil
}
