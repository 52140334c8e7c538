package model

import (
	"time"

	"gorm.io/datatypes"
)

// MessageSender identifies who a message is presented as coming from.
// Operator replies keep SenderSebastian; IsAdminResponse records the real author.
type MessageSender string

const (
	SenderUser      MessageSender = "user"
	SenderSebastian MessageSender = "sebastian"
)

// MessageKind represents the payload type of a message
type MessageKind string

const (
	MessageKindText    MessageKind = "text"
	MessageKindImage   MessageKind = "image"
	MessageKindSticker MessageKind = "sticker"
)

// Chat represents the single conversation a user holds with Sebastian.
// The unique index on user_id enforces one chat per user at the storage layer.
type Chat struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Username      string    `gorm:"not null" json:"username"` // snapshot taken at creation
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
	AdminActive   bool      `gorm:"default:false" json:"admin_active"`

	// Relationships
	User     User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Messages []Message `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Chat
func (Chat) TableName() string {
	return "chats"
}

// Message is a single entry in a chat. Append-only; never updated or deleted.
type Message struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	ChatID          uint           `gorm:"not null;index" json:"chat_id"`
	Sender          MessageSender  `gorm:"type:varchar(20);not null" json:"sender"`
	Content         string         `gorm:"type:text;not null" json:"content"`
	Kind            MessageKind    `gorm:"type:varchar(20);default:'text'" json:"message_type"`
	MediaURL        string         `json:"image_url,omitempty"`
	Metadata        datatypes.JSON `json:"metadata,omitempty"` // upload details: original name, mime type, size
	Timestamp       time.Time      `gorm:"index" json:"timestamp"`
	IsAdminResponse bool           `gorm:"default:false" json:"is_admin_response"`

	// Relationships
	Chat Chat `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Message
func (Message) TableName() string {
	return "messages"
}
