package models

import "time"

// Comment represents a reply to a post.
type Comment struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	PostID    uint64    `gorm:"index;not null" json:"post_id"`
	Author    string    `gorm:"size:64;not null" json:"author"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
