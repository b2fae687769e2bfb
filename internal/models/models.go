// Package models holds the gorm records persisted by the marketplace.
package models

// All lists every persisted record in migration order.
func All() []any {
	return []any{
		&User{},
		&FreelanceProfile{},
		&CompanyProfile{},
		&Project{},
		&ProjectApplication{},
		&Review{},
		&Favorite{},
		&Notification{},
		&NotificationPreference{},
		&Conversation{},
		&ConversationParticipant{},
		&Message{},
	}
}
