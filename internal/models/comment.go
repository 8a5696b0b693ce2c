package models

import "time"

// AuthorSnapshot is the commenter's profile captured at write time.
// Later profile edits do not retroactively update old comments.
type AuthorSnapshot struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// CommentRecord is append-only: no update or delete path. The primary
// key is a generated UUID and the timestamp is assigned by the store.
type CommentRecord struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Kind         string    `gorm:"size:32;not null;index:idx_comment_post,priority:1" json:"kind"`
	ParentID     int       `gorm:"not null;index:idx_comment_post,priority:2" json:"parent_id"`
	PostID       int       `gorm:"not null;index:idx_comment_post,priority:3" json:"post_id"`
	AuthorID     int       `gorm:"not null" json:"author_id"`
	AuthorName   string    `json:"author_name"`
	AuthorAvatar string    `json:"author_avatar"`
	Content      string    `gorm:"not null" json:"content"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CommentRecord) TableName() string { return "comment_records" }

// Author returns the denormalized snapshot stored on the record.
func (c CommentRecord) Author() AuthorSnapshot {
	return AuthorSnapshot{ID: c.AuthorID, Name: c.AuthorName, AvatarURL: c.AuthorAvatar}
}

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}
