package models

import "time"

// Like records that a user liked a post; a user likes a post at most once.
type Like struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	PostID    uint64    `gorm:"not null;uniqueIndex:idx_likes_post_user" json:"post_id"`
	Username  string    `gorm:"size:64;not null;uniqueIndex:idx_likes_post_user" json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// All lists every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{&Account{}, &Post{}, &Comment{}, &Like{}}
}
