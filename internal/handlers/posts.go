package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kalamitra/backend/internal/cache"
	"github.com/kalamitra/backend/internal/models"
	"github.com/kalamitra/backend/internal/store"
)

type PostHandler struct {
	db    *gorm.DB
	store store.Store
	cache *cache.AggregateCache
}

func NewPostHandler(db *gorm.DB, st store.Store, agCache *cache.AggregateCache) *PostHandler {
	return &PostHandler{db: db, store: st, cache: agCache}
}

// aggregateFor reads through the cache; transactions never come this way.
func (h *PostHandler) aggregateFor(ctx context.Context, ref models.Ref) models.Aggregate {
	if agg, ok := h.cache.Get(ctx, ref); ok {
		return *agg
	}
	agg, err := h.store.GetAggregate(ctx, ref)
	if err != nil {
		return models.Aggregate{Kind: ref.Kind, ParentID: ref.ParentID, PostID: ref.PostID, ReactionCounts: models.ReactionCounts{}}
	}
	h.cache.Set(ctx, ref, agg)
	return agg
}

// GetChallenges returns all challenges, newest first
func (h *PostHandler) GetChallenges(c *gin.Context) {
	var challenges []models.Challenge
	if err := h.db.Order("created_at desc").Find(&challenges).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch challenges"})
		return
	}
	if challenges == nil {
		challenges = []models.Challenge{}
	}
	c.JSON(http.StatusOK, challenges)
}

// CreateChallenge creates a new challenge (PROTECTED)
func (h *PostHandler) CreateChallenge(c *gin.Context) {
	var input struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	if _, ok := extractUserID(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	challenge := models.Challenge{Title: input.Title, Description: input.Description}
	if err := h.db.Create(&challenge).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusCreated, challenge)
}

// GetSubmissions returns a challenge's submissions with live tallies
func (h *PostHandler) GetSubmissions(c *gin.Context) {
	challengeID, ok := pathID(c, "challengeId")
	if !ok {
		return
	}

	var submissions []models.Submission
	if err := h.db.Preload("User").Where("challenge_id = ?", challengeID).Order("created_at desc").Find(&submissions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch submissions"})
		return
	}

	var responses []gin.H
	for _, sub := range submissions {
		agg := h.aggregateFor(c.Request.Context(), models.SubmissionRef(sub.ChallengeID, sub.ID))
		responses = append(responses, gin.H{
			"id":           sub.ID,
			"challenge_id": sub.ChallengeID,
			"title":        sub.Title,
			"description":  sub.Description,
			"image":        sub.Image,
			"author_id":    sub.AuthorID,
			"user":         sub.User,
			"upvotes":      agg.Upvotes,
			"downvotes":    agg.Downvotes,
			"votes":        agg.Votes,
			"comments":     agg.CommentCount,
			"created_at":   sub.CreatedAt,
			"updated_at":   sub.UpdatedAt,
		})
	}
	if responses == nil {
		responses = []gin.H{}
	}

	c.JSON(http.StatusOK, responses)
}

// CreateSubmission creates a challenge entry (PROTECTED)
func (h *PostHandler) CreateSubmission(c *gin.Context) {
	challengeID, ok := pathID(c, "challengeId")
	if !ok {
		return
	}

	var input models.CreateSubmissionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	authorID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var challenge models.Challenge
	if err := h.db.First(&challenge, challengeID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Challenge not found"})
		return
	}

	submission := models.Submission{
		ChallengeID: challenge.ID,
		Title:       input.Title,
		Description: input.Description,
		Image:       input.Image,
		AuthorID:    authorID,
	}
	if err := h.db.Create(&submission).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create submission"})
		return
	}

	if err := h.store.EnsureAggregate(c.Request.Context(), models.SubmissionRef(submission.ChallengeID, submission.ID)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initialize tallies"})
		return
	}

	h.db.Preload("User").First(&submission, submission.ID)
	c.JSON(http.StatusCreated, submission)
}

// GetStories returns all stories with reaction and comment tallies
func (h *PostHandler) GetStories(c *gin.Context) {
	var stories []models.Story
	if err := h.db.Preload("User").Order("created_at desc").Find(&stories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stories"})
		return
	}

	var responses []gin.H
	for _, story := range stories {
		agg := h.aggregateFor(c.Request.Context(), models.StoryRef(story.ID))
		responses = append(responses, gin.H{
			"id":              story.ID,
			"title":           story.Title,
			"body":            story.Body,
			"image":           story.Image,
			"author_id":       story.AuthorID,
			"user":            story.User,
			"reaction_counts": agg.ReactionCounts,
			"comments":        agg.CommentCount,
			"created_at":      story.CreatedAt,
			"updated_at":      story.UpdatedAt,
		})
	}
	if responses == nil {
		responses = []gin.H{}
	}

	c.JSON(http.StatusOK, responses)
}

// CreateStory publishes a new story (PROTECTED)
func (h *PostHandler) CreateStory(c *gin.Context) {
	var input models.CreateStoryRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	authorID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	story := models.Story{
		Title:    input.Title,
		Body:     input.Body,
		Image:    input.Image,
		AuthorID: authorID,
	}
	if err := h.db.Create(&story).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create story"})
		return
	}

	if err := h.store.EnsureAggregate(c.Request.Context(), models.StoryRef(story.ID)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initialize tallies"})
		return
	}

	h.db.Preload("User").First(&story, story.ID)
	c.JSON(http.StatusCreated, story)
}
