package models

import "time"

// DefaultMessageMaxLength bounds message text when no limit is configured.
const DefaultMessageMaxLength = 140

// MaxTimelineLimit is the largest page any timeline or list query returns.
const MaxTimelineLimit = 100

// Message is a short post owned by exactly one user. It is never updated.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"not null" json:"text"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index:idx_messages_user_timestamp,priority:2" json:"timestamp"`
	UserID    uint      `gorm:"not null;index:idx_messages_user_timestamp,priority:1" json:"user_id"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}

// OwnedBy reports whether userID authored the message.
func (m *Message) OwnedBy(userID uint) bool {
	return m != nil && userID != 0 && m.UserID == userID
}
