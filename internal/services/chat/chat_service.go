package chat

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/logutils"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/pagination"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/notifications"
)

const maxMessageLen = 5000

type ChatService struct {
	DB        *gorm.DB
	Publisher notifications.Publisher
	Notifier  *notifications.NotificationService
	Now       func() time.Time
}

func NewChatService(db *gorm.DB, pub notifications.Publisher, notifier *notifications.NotificationService) *ChatService {
	return &ChatService{DB: db, Publisher: pub, Notifier: notifier, Now: time.Now}
}

type Participant struct {
	ID   uuid.UUID   `json:"id"`
	Name string      `json:"name"`
	Role models.Role `json:"role"`
}

type ConversationSummary struct {
	ID            uuid.UUID       `json:"id"`
	Other         Participant     `json:"other"`
	LastMessage   *models.Message `json:"last_message,omitempty"`
	LastMessageAt time.Time       `json:"last_message_at"`
	UnreadCount   int             `json:"unread_count"`
}

// StartConversation returns the conversation between the caller and
// otherID, creating it on first contact. Concurrent starts for the same
// pair end up on one row.
func (s *ChatService) StartConversation(ctx context.Context, caller authz.Caller, otherID uuid.UUID) (*models.Conversation, bool, error) {
	if err := authz.Authorize(caller); err != nil {
		return nil, false, err
	}
	if otherID == caller.UserID || otherID == uuid.Nil {
		fe := apperr.FieldErrors{}
		fe.Add("user_id", "Pick another user to talk to")
		return nil, false, apperr.Validation(fe)
	}

	db := s.DB.WithContext(ctx)
	var n int64
	if err := db.Model(&models.User{}).Where("id = ? AND is_active = ?", otherID, true).Count(&n).Error; err != nil {
		return nil, false, apperr.Internal(err)
	}
	if n == 0 {
		return nil, false, apperr.NotFound("User not found")
	}

	low, high := models.OrderedPair(caller.UserID, otherID)
	if conv, err := findPair(db, low, high); err != nil || conv != nil {
		return conv, false, err
	}

	conv := models.Conversation{UserLowID: low, UserHighID: high, LastMessageAt: s.Now()}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		parts := []models.ConversationParticipant{
			{ConversationID: conv.ID, UserID: low},
			{ConversationID: conv.ID, UserID: high},
		}
		return tx.Create(&parts).Error
	})
	if err != nil {
		if !apperr.IsUniqueViolation(err) {
			return nil, false, apperr.Internal(err)
		}
		existing, ferr := findPair(db, low, high)
		if ferr != nil {
			return nil, false, ferr
		}
		if existing == nil {
			return nil, false, apperr.Internal(err)
		}
		return existing, false, nil
	}
	return &conv, true, nil
}

// SendMessage appends a message and bumps the recipient's unread counter
// in one transaction.
func (s *ChatService) SendMessage(ctx context.Context, caller authz.Caller, convID uuid.UUID, text string) (*models.Message, error) {
	if err := authz.Authorize(caller); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	fe := apperr.FieldErrors{}
	if text == "" {
		fe.Add("text", "Message cannot be empty")
	} else if utf8.RuneCountInString(text) > maxMessageLen {
		fe.Add("text", "Message is too long")
	}
	if len(fe) > 0 {
		return nil, apperr.Validation(fe)
	}

	var (
		msg  models.Message
		conv models.Conversation
		out  *notifications.Outgoing
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadForParticipant(tx, caller, convID, &conv); err != nil {
			return err
		}
		recipient := conv.Other(caller.UserID)

		msg = models.Message{ConversationID: conv.ID, SenderID: caller.UserID, Text: text}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			Update("last_message_at", msg.CreatedAt).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ?", conv.ID, recipient).
			Update("unread_count", gorm.Expr("unread_count + 1")).Error; err != nil {
			return err
		}

		var sender models.User
		if err := tx.Select("id", "name").First(&sender, "id = ?", caller.UserID).Error; err != nil {
			return err
		}
		var err error
		out, err = s.Notifier.Record(tx, notifications.Event{
			UserID:  recipient,
			Type:    models.NotifNewMessage,
			Title:   "Nouveau message de " + sender.Name,
			Message: preview(text),
			Data:    map[string]any{"conversation_id": conv.ID, "message_id": msg.ID},
		})
		return err
	})
	if err != nil {
		return nil, apperr.FromStore(err, "Conversation not found", nil)
	}

	event := map[string]any{"type": "new_message", "message": msg}
	for _, uid := range []uuid.UUID{conv.UserLowID, conv.UserHighID} {
		if err := s.Publisher.Publish(ctx, uid, event); err != nil {
			logutils.Log.WithFields(logutils.Fields{"user_id": uid, "error": err}).Warn("chat publish failed")
		}
	}
	s.Notifier.Dispatch(ctx, out)
	return &msg, nil
}

// ListConversations returns the caller's conversations, most recent first.
func (s *ChatService) ListConversations(ctx context.Context, caller authz.Caller) ([]ConversationSummary, error) {
	if err := authz.Authorize(caller); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	var convs []models.Conversation
	if err := db.Where("user_low_id = ? OR user_high_id = ?", caller.UserID, caller.UserID).
		Order("last_message_at DESC").
		Find(&convs).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if len(convs) == 0 {
		return []ConversationSummary{}, nil
	}
	convIDs := lo.Map(convs, func(c models.Conversation, _ int) uuid.UUID { return c.ID })

	var parts []models.ConversationParticipant
	if err := db.Where("conversation_id IN ? AND user_id = ?", convIDs, caller.UserID).Find(&parts).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	unread := lo.SliceToMap(parts, func(p models.ConversationParticipant) (uuid.UUID, int) {
		return p.ConversationID, p.UnreadCount
	})

	otherIDs := lo.Map(convs, func(c models.Conversation, _ int) uuid.UUID { return c.Other(caller.UserID) })
	var others []models.User
	if err := db.Select("id", "name", "role").Where("id IN ?", lo.Uniq(otherIDs)).Find(&others).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	byID := lo.KeyBy(others, func(u models.User) uuid.UUID { return u.ID })

	lastByConv, err := lastMessages(db, convIDs)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	out := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		other := byID[c.Other(caller.UserID)]
		sum := ConversationSummary{
			ID:            c.ID,
			Other:         Participant{ID: other.ID, Name: other.Name, Role: other.Role},
			LastMessageAt: c.LastMessageAt,
			UnreadCount:   unread[c.ID],
		}
		if last, ok := lastByConv[c.ID]; ok {
			sum.LastMessage = &last
		}
		out = append(out, sum)
	}
	return out, nil
}

// lastMessages loads the newest message of every conversation in one query.
func lastMessages(db *gorm.DB, convIDs []uuid.UUID) (map[uuid.UUID]models.Message, error) {
	latest := db.Table("messages AS latest").
		Select("MAX(latest.created_at)").
		Where("latest.conversation_id = messages.conversation_id")

	var msgs []models.Message
	if err := db.Where("conversation_id IN ?", convIDs).
		Where("created_at = (?)", latest).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	// on a timestamp tie the highest id wins
	return lo.KeyBy(msgs, func(m models.Message) uuid.UUID { return m.ConversationID }), nil
}

// ListMessages pages through a conversation oldest first.
func (s *ChatService) ListMessages(ctx context.Context, caller authz.Caller, convID uuid.UUID, params pagination.Params) (pagination.Result[models.Message], error) {
	var empty pagination.Result[models.Message]
	if err := authz.Authorize(caller); err != nil {
		return empty, err
	}
	db := s.DB.WithContext(ctx)

	var conv models.Conversation
	if err := loadForParticipant(db, caller, convID, &conv); err != nil {
		return empty, apperr.FromStore(err, "Conversation not found", nil)
	}

	base := db.Model(&models.Message{}).Where("conversation_id = ?", conv.ID)
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return empty, apperr.Internal(err)
	}
	var msgs []models.Message
	if err := base.Session(&gorm.Session{}).
		Order("created_at ASC").
		Scopes(params.Scope).
		Find(&msgs).Error; err != nil {
		return empty, apperr.Internal(err)
	}
	return pagination.NewResult(msgs, params, total), nil
}

// MarkConversationRead resets only the caller's counter.
func (s *ChatService) MarkConversationRead(ctx context.Context, caller authz.Caller, convID uuid.UUID) error {
	if err := authz.Authorize(caller); err != nil {
		return err
	}
	db := s.DB.WithContext(ctx)

	var conv models.Conversation
	if err := loadForParticipant(db, caller, convID, &conv); err != nil {
		return apperr.FromStore(err, "Conversation not found", nil)
	}
	if err := db.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conv.ID, caller.UserID).
		Updates(map[string]any{"unread_count": 0, "last_read_at": s.Now()}).Error; err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *ChatService) UnreadTotal(ctx context.Context, caller authz.Caller) (int64, error) {
	if err := authz.Authorize(caller); err != nil {
		return 0, err
	}
	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Select("COALESCE(SUM(unread_count), 0)").
		Where("user_id = ?", caller.UserID).
		Scan(&total).Error; err != nil {
		return 0, apperr.Internal(err)
	}
	return total, nil
}

func findPair(db *gorm.DB, low, high uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := db.Where("user_low_id = ? AND user_high_id = ?", low, high).Take(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &conv, nil
}

func loadForParticipant(db *gorm.DB, caller authz.Caller, convID uuid.UUID, conv *models.Conversation) error {
	if err := db.First(conv, "id = ?", convID).Error; err != nil {
		return err
	}
	if !conv.HasParticipant(caller.UserID) {
		return apperr.NotParticipant()
	}
	return nil
}

func preview(text string) string {
	const n = 120
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + "…"
}
