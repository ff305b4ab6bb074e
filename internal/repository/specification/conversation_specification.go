package specification

import "gorm.io/gorm"

// ByConversation scopes to one conversation of one user.
type ByConversation struct {
	UserID         string
	ConversationID string
}

func (s ByConversation) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ? AND conversation_id = ?", s.UserID, s.ConversationID)
}

// ByIntentLabel filters intent examples by their label.
type ByIntentLabel struct {
	Label string
}

func (s ByIntentLabel) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("label = ?", s.Label)
}
