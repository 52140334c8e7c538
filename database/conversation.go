package database

import (
	"errors"
	"time"

	"github.com/phantomhive/sebastian-api/model"
	"gorm.io/gorm"
)

// listCap bounds admin chat listings and per-chat message retrieval.
const listCap = 1000

// CreateUser inserts a new user record
func (s *GORMStore) CreateUser(user *model.User) error {
	return s.db.Create(user).Error
}

// GetUserByUsername finds a user by their unique username
func (s *GORMStore) GetUserByUsername(username string) (*model.User, error) {
	var user model.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID finds a user by primary key
func (s *GORMStore) GetUserByID(id uint) (*model.User, error) {
	var user model.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetChat finds a chat by primary key
func (s *GORMStore) GetChat(chatID uint) (*model.Chat, error) {
	var chat model.Chat
	if err := s.db.First(&chat, chatID).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetOrCreateChat returns the user's chat, creating it on first access.
// The unique index on user_id turns the check-then-act race into a duplicate-key
// error, which is resolved by re-fetching the winner's row.
func (s *GORMStore) GetOrCreateChat(userID uint) (*model.Chat, error) {
	var chat model.Chat
	err := s.db.Where("user_id = ?", userID).First(&chat).Error
	if err == nil {
		return &chat, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	chat = model.Chat{
		UserID:        userID,
		Username:      user.Username,
		LastMessageAt: now,
	}
	if createErr := s.db.Create(&chat).Error; createErr != nil {
		// A concurrent request may have created the chat first
		var existing model.Chat
		if fetchErr := s.db.Where("user_id = ?", userID).First(&existing).Error; fetchErr == nil {
			return &existing, nil
		}
		return nil, createErr
	}
	return &chat, nil
}

// ListChats returns all chats ordered by most recent activity, capped at 1000
func (s *GORMStore) ListChats() ([]model.Chat, error) {
	var chats []model.Chat
	err := s.db.Order("last_message_at DESC").Limit(listCap).Find(&chats).Error
	return chats, err
}

// SetHandoffActive writes the admin takeover flag. Idempotent.
func (s *GORMStore) SetHandoffActive(chatID uint, active bool) error {
	result := s.db.Model(&model.Chat{}).Where("id = ?", chatID).
		Update("admin_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListMessages returns a chat's messages in ascending timestamp order, capped at 1000.
// The id tiebreak keeps retrieval deterministic when timestamps collide.
func (s *GORMStore) ListMessages(chatID uint) ([]model.Message, error) {
	var messages []model.Message
	err := s.db.Where("chat_id = ?", chatID).
		Order("timestamp ASC, id ASC").
		Limit(listCap).
		Find(&messages).Error
	return messages, err
}

// GetRecentMessages returns the n most recent messages of a chat in ascending
// order. Unlike ListMessages it pages from the newest end, so it stays correct
// for chats that have grown past the retrieval cap.
func (s *GORMStore) GetRecentMessages(chatID uint, n int) ([]model.Message, error) {
	var messages []model.Message
	err := s.db.Where("chat_id = ?", chatID).
		Order("timestamp DESC, id DESC").
		Limit(n).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// AppendMessage inserts a message and bumps the chat's last-message time
func (s *GORMStore) AppendMessage(msg *model.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if err := s.db.Create(msg).Error; err != nil {
		return err
	}
	return s.db.Model(&model.Chat{}).Where("id = ?", msg.ChatID).
		Update("last_message_at", msg.Timestamp).Error
}

// HasMessageWithMediaURL reports whether any message references the given media URL
func (s *GORMStore) HasMessageWithMediaURL(mediaURL string) (bool, error) {
	var count int64
	err := s.db.Model(&model.Message{}).Where("media_url = ?", mediaURL).Count(&count).Error
	return count > 0, err
}
