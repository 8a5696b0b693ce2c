package models

import "time"

// AllowedEmojis is the fixed reaction set offered by the client.
var AllowedEmojis = []string{"✨", "🔥", "🎉", "👏", "❤️"}

func IsAllowedEmoji(emoji string) bool {
	for _, e := range AllowedEmojis {
		if e == emoji {
			return true
		}
	}
	return false
}

// ReactionRecord - one emoji slot per (post, user). Changing emoji moves
// the slot; submitting the same emoji twice deletes it.
type ReactionRecord struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Kind      string    `gorm:"size:32;not null;uniqueIndex:idx_reaction_post_user,priority:1" json:"kind"`
	ParentID  int       `gorm:"not null;uniqueIndex:idx_reaction_post_user,priority:2" json:"parent_id"`
	PostID    int       `gorm:"not null;uniqueIndex:idx_reaction_post_user,priority:3" json:"post_id"`
	UserID    int       `gorm:"not null;uniqueIndex:idx_reaction_post_user,priority:4" json:"user_id"`
	Emoji     string    `gorm:"size:16;not null" json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ReactionRecord) TableName() string { return "reaction_records" }
