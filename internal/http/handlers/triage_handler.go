// Triage HTTP handlers.
//
// This file exposes the swipe-triage workflow:
//   - GET  /triage/feed      (load a fresh session from the catalog)
//   - POST /triage/decide    (one swipe: accept or reject)
//   - GET  /triage/outcomes  (drain background write results)
//
// The session is in-memory and per-user; accepting a card returns before its
// create request completes, so clients poll /triage/outcomes for results.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/watchdex/go-watch-backend/internal/domain"
	"github.com/watchdex/go-watch-backend/internal/services"
)

// TriageService defines the swipe-session operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use.
type TriageService interface {
	// Load replaces the user's queue with the given cards.
	Load(userID string, cards []domain.Card) services.SessionState
	// Decide applies one swipe to the user's session.
	Decide(ctx context.Context, userID string, card domain.Card, dir services.Direction) (services.SessionState, error)
	// State returns the current session view.
	State(userID string) services.SessionState
	// DrainOutcomes returns and clears accumulated write outcomes.
	DrainOutcomes(userID string) []services.Outcome
	// EndSession discards the user's session.
	EndSession(userID string)
}

// CardFeed supplies the candidate cards a fresh triage session starts from.
type CardFeed interface {
	Cards(ctx context.Context) ([]domain.Card, error)
}

// DecideRequest is the JSON payload for one swipe.
type DecideRequest struct {
	// Card is the candidate being decided, echoed from the feed.
	Card domain.Card `json:"card" binding:"required"`
	// Direction is "accept" or "reject".
	Direction string `json:"direction" binding:"required" example:"accept"`
}

// TriageFeed godoc
// @ID          triageFeed
// @Summary     Load the triage feed
// @Description Replaces the caller's triage session with the catalog feed in order and returns the session state.
// @Tags        Triage
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
//
// @Success     200  {object} services.SessionState
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /triage/feed [get]
func (h *Handlers) TriageFeed(c *gin.Context) {
	uid, okAuth := requireUser(c)
	if !okAuth {
		return
	}
	cards, err := h.feed.Cards(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, h.triageSvc.Load(uid, cards))
}

// TriageDecide godoc
// @ID          triageDecide
// @Summary     Decide a card
// @Description Applies one accept/reject swipe. Accepts persist asynchronously; the returned state never waits for the write.
// @Tags        Triage
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       body           body    handlers.DecideRequest  true  "Swipe payload"
//
// @Success     200  {object} services.SessionState
// @Failure     400  {object} handlers.ErrorResponse "Bad direction or body"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /triage/decide [post]
func (h *Handlers) TriageDecide(c *gin.Context) {
	uid, okAuth := requireUser(c)
	if !okAuth {
		return
	}

	var req DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Card.ID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "card and direction required")
		return
	}
	dir, err := services.ParseDirection(req.Direction)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "direction must be accept or reject")
		return
	}

	state, err := h.triageSvc.Decide(c.Request.Context(), uid, req.Card, dir)
	if err != nil {
		if errors.Is(err, services.ErrNotAuthenticated) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, state)
}

// TriageOutcomes godoc
// @ID          triageOutcomes
// @Summary     Drain accept outcomes
// @Description Returns and clears the background write results accumulated since the last call, oldest first.
// @Tags        Triage
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
//
// @Success     200  {object} map[string][]services.Outcome
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Router      /triage/outcomes [get]
func (h *Handlers) TriageOutcomes(c *gin.Context) {
	uid, okAuth := requireUser(c)
	if !okAuth {
		return
	}
	ok(c, http.StatusOK, gin.H{"outcomes": h.triageSvc.DrainOutcomes(uid)})
}
