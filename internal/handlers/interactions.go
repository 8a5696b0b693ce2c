package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kalamitra/backend/internal/cache"
	"github.com/kalamitra/backend/internal/fanout"
	"github.com/kalamitra/backend/internal/interaction"
	"github.com/kalamitra/backend/internal/models"
	"github.com/kalamitra/backend/internal/store"
)

type InteractionHandler struct {
	db    *gorm.DB
	store store.Store
	coord *interaction.Coordinator
	hub   *fanout.Hub
	cache *cache.AggregateCache
}

func NewInteractionHandler(db *gorm.DB, st store.Store, coord *interaction.Coordinator, hub *fanout.Hub, agCache *cache.AggregateCache) *InteractionHandler {
	return &InteractionHandler{db: db, store: st, coord: coord, hub: hub, cache: agCache}
}

// extractUserID pulls the authenticated user's id out of the gin context.
// The JWT middleware stores it as a float64 after JSON decoding.
func extractUserID(c *gin.Context) (int, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case uint:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

func submissionRef(c *gin.Context) (models.Ref, bool) {
	challengeID, ok := pathID(c, "challengeId")
	if !ok {
		return models.Ref{}, false
	}
	submissionID, ok := pathID(c, "submissionId")
	if !ok {
		return models.Ref{}, false
	}
	return models.SubmissionRef(challengeID, submissionID), true
}

func storyRef(c *gin.Context) (models.Ref, bool) {
	storyID, ok := pathID(c, "storyId")
	if !ok {
		return models.Ref{}, false
	}
	return models.StoryRef(storyID), true
}

// respondInteractionError maps coordinator errors onto HTTP statuses.
// Authorization rejections already went out on the error channel, so the
// response stays generic and no second alert is raised here.
func respondInteractionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, interaction.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	case errors.Is(err, interaction.ErrInFlight):
		c.JSON(http.StatusOK, gin.H{"message": "Request already in progress"})
	case interaction.IsPermissionDenied(err):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed"})
	case errors.Is(err, interaction.ErrConflictExceeded):
		c.JSON(http.StatusConflict, gin.H{"error": "Too many concurrent updates, please try again"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}

// VoteSubmission casts, switches, or retracts the caller's vote (PROTECTED)
func (h *InteractionHandler) VoteSubmission(c *gin.Context) {
	ref, ok := submissionRef(c)
	if !ok {
		return
	}

	var input struct {
		VoteType int `json:"vote_type" binding:"required,oneof=-1 1"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vote_type must be 1 or -1"})
		return
	}

	userID, _ := extractUserID(c)
	if err := h.coord.CastVote(c.Request.Context(), ref, userID, models.VoteValue(input.VoteType)); err != nil {
		respondInteractionError(c, err)
		return
	}
	h.cache.Invalidate(c.Request.Context(), ref)

	agg, err := h.store.GetAggregate(c.Request.Context(), ref)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read tallies"})
		return
	}
	c.JSON(http.StatusOK, agg)
}

// ReactStory sets, moves, or retracts the caller's reaction slot (PROTECTED)
func (h *InteractionHandler) ReactStory(c *gin.Context) {
	ref, ok := storyRef(c)
	if !ok {
		return
	}

	var input struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Emoji is required"})
		return
	}
	if !models.IsAllowedEmoji(input.Emoji) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Emoji is not in the reaction set"})
		return
	}

	userID, _ := extractUserID(c)
	if err := h.coord.SetReaction(c.Request.Context(), ref, userID, input.Emoji); err != nil {
		respondInteractionError(c, err)
		return
	}
	h.cache.Invalidate(c.Request.Context(), ref)

	agg, err := h.store.GetAggregate(c.Request.Context(), ref)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read tallies"})
		return
	}
	c.JSON(http.StatusOK, agg)
}

// CommentSubmission appends a comment to a submission (PROTECTED)
func (h *InteractionHandler) CommentSubmission(c *gin.Context) {
	ref, ok := submissionRef(c)
	if !ok {
		return
	}
	h.addComment(c, ref)
}

// CommentStory appends a comment to a story (PROTECTED)
func (h *InteractionHandler) CommentStory(c *gin.Context) {
	ref, ok := storyRef(c)
	if !ok {
		return
	}
	h.addComment(c, ref)
}

func (h *InteractionHandler) addComment(c *gin.Context, ref models.Ref) {
	var input models.CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content is required"})
		return
	}

	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	rec, err := h.coord.AddComment(c.Request.Context(), ref, user.Snapshot(), input.Content)
	if err != nil {
		respondInteractionError(c, err)
		return
	}
	h.cache.Invalidate(c.Request.Context(), ref)

	c.JSON(http.StatusCreated, rec)
}

// GetSubmissionComments lists a submission's comments, newest first
func (h *InteractionHandler) GetSubmissionComments(c *gin.Context) {
	ref, ok := submissionRef(c)
	if !ok {
		return
	}
	h.listComments(c, ref)
}

// GetStoryComments lists a story's comments, newest first
func (h *InteractionHandler) GetStoryComments(c *gin.Context) {
	ref, ok := storyRef(c)
	if !ok {
		return
	}
	h.listComments(c, ref)
}

func (h *InteractionHandler) listComments(c *gin.Context, ref models.Ref) {
	comments, err := h.store.ListComments(c.Request.Context(), ref)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}
	if comments == nil {
		comments = []models.CommentRecord{}
	}
	c.JSON(http.StatusOK, comments)
}

// GetSubmissionAggregate returns a submission's tallies
func (h *InteractionHandler) GetSubmissionAggregate(c *gin.Context) {
	ref, ok := submissionRef(c)
	if !ok {
		return
	}
	h.getAggregate(c, ref)
}

// GetStoryAggregate returns a story's tallies
func (h *InteractionHandler) GetStoryAggregate(c *gin.Context) {
	ref, ok := storyRef(c)
	if !ok {
		return
	}
	h.getAggregate(c, ref)
}

func (h *InteractionHandler) getAggregate(c *gin.Context, ref models.Ref) {
	if agg, ok := h.cache.Get(c.Request.Context(), ref); ok {
		c.JSON(http.StatusOK, agg)
		return
	}
	agg, err := h.store.GetAggregate(c.Request.Context(), ref)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read tallies"})
		return
	}
	h.cache.Set(c.Request.Context(), ref, agg)
	c.JSON(http.StatusOK, agg)
}

// StreamSubmissionAggregate streams a submission's tallies over SSE
func (h *InteractionHandler) StreamSubmissionAggregate(c *gin.Context) {
	ref, ok := submissionRef(c)
	if !ok {
		return
	}
	h.streamAggregate(c, ref)
}

// StreamStoryAggregate streams a story's tallies over SSE
func (h *InteractionHandler) StreamStoryAggregate(c *gin.Context) {
	ref, ok := storyRef(c)
	if !ok {
		return
	}
	h.streamAggregate(c, ref)
}

// streamAggregate sends the current aggregate as a first event, then every
// committed state until the client disconnects. Subscription starts before
// the snapshot read so no commit can slip between them unobserved.
func (h *InteractionHandler) streamAggregate(c *gin.Context, ref models.Ref) {
	ctx := c.Request.Context()

	updates, err := h.hub.Subscribe(ctx, ref)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to subscribe"})
		return
	}

	snapshot, err := h.store.GetAggregate(ctx, ref)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read tallies"})
		return
	}

	c.SSEvent("aggregate", snapshot)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case agg, open := <-updates:
			if !open {
				return false
			}
			c.SSEvent("aggregate", agg)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
