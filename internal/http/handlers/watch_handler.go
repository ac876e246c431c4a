// Watch HTTP handlers.
//
// This file exposes REST endpoints for watch resources:
//   - POST   /watches          (create, quota-gated)
//   - GET    /watches          (list, optional ?type= filter, ETag support)
//   - GET    /watches/summary  (collection aggregates)
//   - PUT    /watches/{id}     (full replacement)
//   - DELETE /watches/{id}     (remove)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/watchdex/go-watch-backend/internal/domain"
	"github.com/watchdex/go-watch-backend/internal/repo"
	"github.com/watchdex/go-watch-backend/internal/services"
	"github.com/watchdex/go-watch-backend/internal/stats"
	"github.com/watchdex/go-watch-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// WatchService defines watch lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type WatchService interface {
	// Add validates, quota-gates, and persists a new watch for userID.
	Add(ctx context.Context, userID string, in services.WatchInput) (*domain.Watch, error)
	// List returns the user's watches, optionally filtered by type.
	List(ctx context.Context, userID, typ string) ([]domain.Watch, error)
	// Summary derives the collection aggregates over the user's watches.
	Summary(ctx context.Context, userID string) (stats.Summary, error)
	// Replace overwrites the identified watch whole.
	Replace(ctx context.Context, userID, id string, in services.WatchInput) (*domain.Watch, error)
	// Delete removes a watch that belongs to userID.
	Delete(ctx context.Context, userID, id string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for auth, watches, uploads, triage, and
// entitlements. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	authSvc   AuthService
	watchSvc  WatchService
	triageSvc TriageService
	entSvc    EntitlementService
	feed      CardFeed
	images    ImageSaver
}

// New constructs and returns a Handlers instance bound to the given services.
func New(authSvc AuthService, watchSvc WatchService, triageSvc TriageService, entSvc EntitlementService, feed CardFeed, images ImageSaver) *Handlers {
	return &Handlers{
		authSvc:   authSvc,
		watchSvc:  watchSvc,
		triageSvc: triageSvc,
		entSvc:    entSvc,
		feed:      feed,
		images:    images,
	}
}

// userID extracts the authenticated user id from Gin context (set by the
// bearer-token middleware). If absent, it falls back to "X-User-ID" header
// (tests use it); an empty result means the request is unauthenticated and
// handlers respond 401. It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return ""
}

// requireUser resolves the authenticated user or aborts with 401.
func requireUser(c *gin.Context) (string, bool) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return "", false
	}
	return uid, true
}

//
// DTOs
//

// WatchRequest is the JSON payload for creating or replacing a watch.
//
// Value accepts either a JSON number or a numeric string (mobile clients
// submit form text). Unknown enrichment fields such as rarity_score are
// accepted and flattened away; only the canonical schema is stored.
type WatchRequest struct {
	Brand         string      `json:"brand" example:"Omega"`
	Model         string      `json:"model" example:"Speedmaster Professional"`
	Year          string      `json:"year" example:"1998"`
	Value         json.Number `json:"value" swaggertype:"number" example:"5200"`
	Movement      string      `json:"movement" example:"Manual"`
	Material      string      `json:"material" example:"Stainless Steel"`
	Style         string      `json:"style" example:"Chronograph"`
	Complications string      `json:"complications" example:"Chronograph"`
	Type          string      `json:"type" example:"Collection"`
	ImageURL      string      `json:"image_url" example:"/uploads/4f1c.jpg"`

	// RarityScore is accepted from enriched import payloads and discarded.
	RarityScore *float64 `json:"rarity_score,omitempty"`
}

// input flattens the request to the canonical submission shape.
func (r WatchRequest) input() services.WatchInput {
	return services.WatchInput{
		Brand:         r.Brand,
		Model:         r.Model,
		Year:          r.Year,
		Value:         r.Value.String(),
		Movement:      r.Movement,
		Material:      r.Material,
		Style:         r.Style,
		Complications: r.Complications,
		Type:          r.Type,
		ImageURL:      r.ImageURL,
	}
}

// ListWatchesResponse wraps the user's watches.
type ListWatchesResponse struct {
	Watches []domain.Watch `json:"watches"`
	Total   int            `json:"total"`
}

//
// Helpers
//

// failWatchErr maps service-level watch errors onto the error envelope.
func failWatchErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotAuthenticated):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeValidationFailed, "invalid watch payload")
	case errors.Is(err, services.ErrQuotaExceeded):
		fail(c, http.StatusForbidden, ErrCodeQuotaExceeded, "free watch limit reached")
	case errors.Is(err, services.ErrWatchNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "watch not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

//
// Handlers
//

// CreateWatch godoc
// @ID          createWatch
// @Summary     Add a watch
// @Description Creates a watch for the current user. Non-entitled users are limited to the free quota.
// @Tags        Watches
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       body           body    handlers.WatchRequest  true  "Watch payload"
//
// @Success     201  {object}  domain.Watch
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Quota exceeded"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /watches [post]
func (h *Handlers) CreateWatch(c *gin.Context) {
	uid, okAuth := requireUser(c)
	if !okAuth {
		return
	}

	var req WatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	w, err := h.watchSvc.Add(c.Request.Context(), uid, req.input())
	if err != nil {
		failWatchErr(c, err)
		return
	}
	ok(c, http.StatusCreated, w)
}

// ListWatches godoc
// @ID          listWatches
// @Summary     List watches
// @Description Returns the user's watches in datastore order. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Watches
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       type           query   string  false "Filter by list membership"   Enums(Collection, Wishlist)
// @Param       limit          query   int     false "Cap the number of items returned"  minimum(1)
//
// @Success     200  {object} handlers.ListWatchesResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /watches [get]
func (h *Handlers) ListWatches(c *gin.Context) {
	uid, okAuth := requireUser(c)
	if !okAuth {
		return
	}
	ctx := c.Request.Context()

	typ := strings.TrimSpace(c.Query("type"))
	if typ != "" {
		matched, valid := domain.InVocabulary(typ, domain.Types)
		if !valid {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "type must be Collection or Wishlist")
			return
		}
		typ = matched
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okSvc := h.watchSvc.(*services.WatchService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.WatchesStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"watches:%s:%s:%d:%d"`, uid, typ, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.watchSvc.List(ctx, uid, typ)
	if err != nil {
		failWatchErr(c, err)
		return
	}
	total := len(items)
	if limit := utils.AtoiDefault(c.Query("limit"), 0); limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	ok(c, http.StatusOK, ListWatchesResponse{Watches: items, Total: total})
}

// WatchSummary godoc
// @ID          watchSummary
// @Summary     Collection aggregates
// @Description Returns total value, most owned brand, and favorite style over the user's watches.
// @Tags        Watches
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
//
// @Success     200  {object} stats.Summary
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /watches/summary [get]
func (h *Handlers) WatchSummary(c *gin.Context) {
	uid, okAuth := requireUser(c)
	if !okAuth {
		return
	}
	sum, err := h.watchSvc.Summary(c.Request.Context(), uid)
	if err != nil {
		failWatchErr(c, err)
		return
	}
	ok(c, http.StatusOK, sum)
}

// ReplaceWatch godoc
// @ID          replaceWatch
// @Summary     Replace a watch
// @Description Overwrites every field of a watch owned by the current user. Partial updates are not supported.
// @Tags        Watches
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       id             path    string  true  "Watch ID (UUID)"  format(uuid)
// @Param       body           body    handlers.WatchRequest  true  "Replacement payload"
//
// @Success     200  {object} domain.Watch
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     404  {object} handlers.ErrorResponse "Watch not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /watches/{id} [put]
func (h *Handlers) ReplaceWatch(c *gin.Context) {
	uid, okAuth := requireUser(c)
	if !okAuth {
		return
	}
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "watch id must be a UUID")
		return
	}

	var req WatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	w, err := h.watchSvc.Replace(c.Request.Context(), uid, id, req.input())
	if err != nil {
		failWatchErr(c, err)
		return
	}
	ok(c, http.StatusOK, w)
}

// DeleteWatch godoc
// @ID          deleteWatch
// @Summary     Delete a watch
// @Description Removes a watch owned by the current user.
// @Tags        Watches
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       id             path    string  true  "Watch ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     404  {object} handlers.ErrorResponse "Watch not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /watches/{id} [delete]
func (h *Handlers) DeleteWatch(c *gin.Context) {
	uid, okAuth := requireUser(c)
	if !okAuth {
		return
	}
	if err := h.watchSvc.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		failWatchErr(c, err)
		return
	}
	noContent(c)
}
