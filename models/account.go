package models

import "time"

// Account is a registered author. Passwords are stored and compared as given and never serialized.
type Account struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Avatar    string    `gorm:"size:512" json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
