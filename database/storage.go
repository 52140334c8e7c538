package database

import (
	"github.com/phantomhive/sebastian-api/model"
)

// Storage defines the interface that all database implementations must satisfy
type Storage interface {
	// Lifecycle methods
	Init() error
	Close() error
	HealthCheck() error

	// User methods
	CreateUser(user *model.User) error
	GetUserByUsername(username string) (*model.User, error)
	GetUserByID(id uint) (*model.User, error)

	// Chat methods
	GetChat(chatID uint) (*model.Chat, error)
	GetOrCreateChat(userID uint) (*model.Chat, error)
	ListChats() ([]model.Chat, error)
	SetHandoffActive(chatID uint, active bool) error

	// Message methods
	ListMessages(chatID uint) ([]model.Message, error)
	GetRecentMessages(chatID uint, n int) ([]model.Message, error)
	AppendMessage(msg *model.Message) error
	HasMessageWithMediaURL(mediaURL string) (bool, error)
}
