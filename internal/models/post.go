package models

import "time"

// Challenge is a themed contest artisans submit work to.
type Challenge struct {
	ID          int       `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Submission is an artisan's entry in a challenge. Tallies live in the
// interaction aggregate, not here.
type Submission struct {
	ID          int       `gorm:"primaryKey" json:"id"`
	ChallengeID int       `gorm:"not null;index" json:"challenge_id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	AuthorID    int       `json:"author_id"`
	User        User      `gorm:"foreignKey:AuthorID" json:"user"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Story is a craft story shared by an artisan.
type Story struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Body      string    `json:"body"`
	Image     string    `json:"image"`
	AuthorID  int       `json:"author_id"`
	User      User      `gorm:"foreignKey:AuthorID" json:"user"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateSubmissionRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

type CreateStoryRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body"`
	Image string `json:"image"`
}
