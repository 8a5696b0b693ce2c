package models

import "time"

// Vote values follow the -1/+1 convention used across the API.
type VoteValue int

const (
	VoteUp   VoteValue = 1
	VoteDown VoteValue = -1
)

func (v VoteValue) Valid() bool {
	return v == VoteUp || v == VoteDown
}

// VoteRecord - tracks one user's current vote on a post. Absence of a
// record means the user has not voted; submitting the same value twice
// deletes it.
type VoteRecord struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Kind      string    `gorm:"size:32;not null;uniqueIndex:idx_vote_post_user,priority:1" json:"kind"`
	ParentID  int       `gorm:"not null;uniqueIndex:idx_vote_post_user,priority:2" json:"parent_id"`
	PostID    int       `gorm:"not null;uniqueIndex:idx_vote_post_user,priority:3" json:"post_id"`
	UserID    int       `gorm:"not null;uniqueIndex:idx_vote_post_user,priority:4" json:"user_id"`
	Value     VoteValue `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (VoteRecord) TableName() string { return "vote_records" }
