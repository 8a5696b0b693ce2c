package handlers

import (
	"gorm.io/gorm"

	"github.com/kalamitra/backend/internal/cache"
	"github.com/kalamitra/backend/internal/fanout"
	"github.com/kalamitra/backend/internal/interaction"
	"github.com/kalamitra/backend/internal/store"
)

// Handler combines all handler types
type Handler struct {
	Auth        *AuthHandler
	Post        *PostHandler
	Interaction *InteractionHandler
	User        *UserHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(db *gorm.DB, st store.Store, coord *interaction.Coordinator, hub *fanout.Hub, agCache *cache.AggregateCache) *Handler {
	return &Handler{
		Auth:        NewAuthHandler(db),
		Post:        NewPostHandler(db, st, agCache),
		Interaction: NewInteractionHandler(db, st, coord, hub, agCache),
		User:        NewUserHandler(db),
	}
}
