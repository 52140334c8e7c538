package model

import (
	"time"
)

// User represents a registered user in the system
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"` // Never expose password in JSON
	IsAdmin      bool      `gorm:"default:false" json:"is_admin"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}
