package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Aggregate holds the denormalized tally fields for one post. Votes is
// derived from Upvotes and Downvotes and is recomputed on every mutation,
// never incremented on its own. Version is the optimistic-concurrency
// check: every commit must present the version it read.
type Aggregate struct {
	Kind           string         `gorm:"primaryKey;size:32" json:"kind"`
	ParentID       int            `gorm:"primaryKey" json:"parent_id"`
	PostID         int            `gorm:"primaryKey" json:"post_id"`
	Upvotes        int            `gorm:"not null;default:0" json:"upvotes"`
	Downvotes      int            `gorm:"not null;default:0" json:"downvotes"`
	Votes          int            `gorm:"not null;default:0" json:"votes"`
	ReactionCounts ReactionCounts `gorm:"type:jsonb" json:"reaction_counts"`
	CommentCount   int            `gorm:"not null;default:0" json:"comment_count"`
	Version        int64          `gorm:"not null;default:0" json:"version"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (Aggregate) TableName() string { return "interaction_aggregates" }

// Ref returns the composite path this aggregate belongs to.
func (a Aggregate) Ref() Ref {
	return Ref{Kind: a.Kind, ParentID: a.ParentID, PostID: a.PostID}
}

// ReactionCounts maps emoji to tally. Stored as jsonb.
type ReactionCounts map[string]int

func (rc ReactionCounts) Value() (driver.Value, error) {
	if rc == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(rc)
}

func (rc *ReactionCounts) Scan(value interface{}) error {
	if value == nil {
		*rc = ReactionCounts{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, rc)
	case string:
		return json.Unmarshal([]byte(v), rc)
	default:
		return fmt.Errorf("unsupported reaction counts type %T", value)
	}
}

// Clone returns a deep copy so callers can mutate tallies without
// aliasing the reaction map.
func (a Aggregate) Clone() Aggregate {
	out := a
	out.ReactionCounts = make(ReactionCounts, len(a.ReactionCounts))
	for emoji, n := range a.ReactionCounts {
		out.ReactionCounts[emoji] = n
	}
	return out
}
