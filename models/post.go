package models

import "time"

// DefaultCategory is used when a post is created without one.
const DefaultCategory = "Geral"

// Post is a blog entry. Author is a plain username and is not checked against accounts.
type Post struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	Author    string    `gorm:"size:64;index;not null" json:"author"`
	Category  string    `gorm:"size:64;not null;default:'Geral'" json:"category"`
	Likes     int       `gorm:"not null;default:0" json:"likes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Comments  []Comment `json:"comments"`
}
