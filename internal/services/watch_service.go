// Package services – WatchService
//
// This file implements the WatchService, which manages the lifecycle of watch
// records. It validates required fields and vocabulary terms, applies the
// blank-field fallback literals, enforces the free-tier quota gate on record
// creation, and coordinates repository operations for adding, listing,
// replacing (whole-record only), and deleting watches.
//
// Service-level errors (e.g. ErrValidation, ErrQuotaExceeded,
// ErrWatchNotFound) are returned for predictable cases so handlers can map
// them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/watchdex/go-watch-backend/internal/domain"
	"github.com/watchdex/go-watch-backend/internal/stats"
)

// WatchRepo defines the repository contract required by WatchService.
// Implementations are responsible for persistence of watch aggregates.
type WatchRepo interface {
	// CreateWatch inserts a new watch row.
	CreateWatch(ctx context.Context, db *gorm.DB, w *domain.Watch) error

	// ListWatches returns all watches belonging to the user.
	ListWatches(ctx context.Context, db *gorm.DB, userID string) ([]domain.Watch, error)

	// GetWatch fetches a watch by ID ensuring it belongs to the user.
	GetWatch(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Watch, error)

	// ReplaceWatch overwrites every mutable column of a watch row.
	ReplaceWatch(ctx context.Context, db *gorm.DB, w *domain.Watch) error

	// DeleteWatch removes a watch (only if it belongs to the user).
	DeleteWatch(ctx context.Context, db *gorm.DB, id, userID string) error

	// CountWatches returns the total number of watches for the quota gate.
	CountWatches(ctx context.Context, db *gorm.DB, userID string) (int64, error)
}

// EntitlementChecker reports whether a user holds the premium entitlement.
// Satisfied by *EntitlementService.
type EntitlementChecker interface {
	Status(ctx context.Context, userID string) (bool, error)
}

// WatchInput is the submitted form state for creating or replacing a watch.
// Value arrives as free text and must parse as a decimal; the enumerated
// fields are matched against their vocabularies after title-casing, with
// blank values falling back to "Unknown"/"None".
type WatchInput struct {
	Brand         string
	Model         string
	Year          string
	Value         string
	Movement      string
	Material      string
	Style         string
	Complications string
	Type          string
	ImageURL      string
}

// WatchService provides watch-record operations and owns the quota gate on
// the add path.
type WatchService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the watch repository used by this service.
	Repo WatchRepo
	// Entitlements resolves the premium entitlement for the quota gate.
	Entitlements EntitlementChecker
	// Quota is the shared free-tier policy.
	Quota QuotaPolicy
}

// NewWatchService constructs a WatchService with the given collaborators.
func NewWatchService(db *gorm.DB, r WatchRepo, ent EntitlementChecker, quota QuotaPolicy) *WatchService {
	return &WatchService{DB: db, Repo: r, Entitlements: ent, Quota: quota}
}

// Add validates the input, applies the quota gate, and persists a new watch
// under a fresh identifier. Returns ErrQuotaExceeded when a non-entitled
// user is at the free limit; the caller should redirect to the purchase flow.
func (s *WatchService) Add(ctx context.Context, userID string, in WatchInput) (*domain.Watch, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	w, err := s.build(in)
	if err != nil {
		return nil, err
	}
	if err := s.CheckQuota(ctx, userID); err != nil {
		return nil, err
	}

	w.ID = uuid.NewString()
	w.UserID = userID
	if err := s.Repo.CreateWatch(ctx, s.DB, w); err != nil {
		return nil, err
	}
	return w, nil
}

// AcceptCard copies a triage candidate into the user's collection under a
// new identifier, preserving every other field verbatim; a blank type
// defaults to "Collection". The quota gate applies only when the policy's
// EnforceOnSwipe flag is set.
func (s *WatchService) AcceptCard(ctx context.Context, userID string, c domain.Card) (*domain.Watch, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	if s.Quota.EnforceOnSwipe {
		if err := s.CheckQuota(ctx, userID); err != nil {
			return nil, err
		}
	}

	typ := c.Type
	if strings.TrimSpace(typ) == "" {
		typ = domain.TypeCollection
	}
	w := &domain.Watch{
		ID:            uuid.NewString(),
		UserID:        userID,
		Brand:         c.Brand,
		Model:         c.Model,
		Year:          c.Year,
		Value:         c.Value,
		Movement:      c.Movement,
		Material:      c.Material,
		Style:         c.Style,
		Complications: c.Complications,
		Type:          typ,
		ImageURL:      c.ImageURL,
	}
	if err := s.Repo.CreateWatch(ctx, s.DB, w); err != nil {
		return nil, err
	}
	return w, nil
}

// CheckQuota applies the shared free-tier policy: a user may create another
// record while ownedCount < freeQuota or the premium entitlement is active.
func (s *WatchService) CheckQuota(ctx context.Context, userID string) error {
	owned, err := s.Repo.CountWatches(ctx, s.DB, userID)
	if err != nil {
		return err
	}
	entitled, err := s.Entitlements.Status(ctx, userID)
	if err != nil {
		return err
	}
	if !s.Quota.Allow(owned, entitled) {
		return ErrQuotaExceeded
	}
	return nil
}

// List returns the user's watches in fetch order, optionally filtered by
// list membership ("Collection" or "Wishlist").
func (s *WatchService) List(ctx context.Context, userID, typ string) ([]domain.Watch, error) {
	ws, err := s.Repo.ListWatches(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if typ != "" {
		ws = stats.FilterByType(ws, typ)
	}
	return ws, nil
}

// Summary derives the collection aggregates over all of the user's watches.
func (s *WatchService) Summary(ctx context.Context, userID string) (stats.Summary, error) {
	ws, err := s.Repo.ListWatches(ctx, s.DB, userID)
	if err != nil {
		return stats.Summary{}, err
	}
	return stats.Summarize(ws), nil
}

// Replace validates the input and overwrites the identified watch whole.
// There is no partial-field update path. Identifier and owner never change.
func (s *WatchService) Replace(ctx context.Context, userID, id string, in WatchInput) (*domain.Watch, error) {
	w, err := s.build(in)
	if err != nil {
		return nil, err
	}
	w.ID = id
	w.UserID = userID
	if err := s.Repo.ReplaceWatch(ctx, s.DB, w); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWatchNotFound
		}
		return nil, err
	}
	return w, nil
}

// Delete removes the identified watch, ensuring it belongs to the user.
func (s *WatchService) Delete(ctx context.Context, userID, id string) error {
	if err := s.Repo.DeleteWatch(ctx, s.DB, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWatchNotFound
		}
		return err
	}
	return nil
}

// build validates and normalizes a submitted form into a Watch without
// identity fields.
func (s *WatchService) build(in WatchInput) (*domain.Watch, error) {
	brand := strings.TrimSpace(in.Brand)
	model := strings.TrimSpace(in.Model)
	year := strings.TrimSpace(in.Year)
	if brand == "" || model == "" || year == "" {
		return nil, ErrValidation
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(in.Value), 64)
	if err != nil {
		return nil, ErrValidation
	}

	movement, err := vocabOrFallback(in.Movement, domain.Movements, domain.FallbackUnknown)
	if err != nil {
		return nil, err
	}
	material, err := vocabOrFallback(in.Material, domain.Materials, domain.FallbackUnknown)
	if err != nil {
		return nil, err
	}
	style, err := vocabOrFallback(in.Style, domain.Styles, domain.FallbackUnknown)
	if err != nil {
		return nil, err
	}

	complications := strings.TrimSpace(in.Complications)
	if complications == "" {
		complications = domain.FallbackNone
	}

	typ := domain.TypeCollection
	if strings.TrimSpace(in.Type) != "" {
		matched, ok := domain.InVocabulary(in.Type, domain.Types)
		if !ok {
			return nil, ErrValidation
		}
		typ = matched
	}

	return &domain.Watch{
		Brand:         brand,
		Model:         model,
		Year:          year,
		Value:         value,
		Movement:      movement,
		Material:      material,
		Style:         style,
		Complications: complications,
		Type:          typ,
		ImageURL:      strings.TrimSpace(in.ImageURL),
	}, nil
}

// vocabOrFallback resolves an enumerated field: blank yields the fallback
// literal, anything else must match the vocabulary.
func vocabOrFallback(v string, allowed []string, fallback string) (string, error) {
	if strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	matched, ok := domain.InVocabulary(v, allowed)
	if !ok {
		return "", ErrValidation
	}
	return matched, nil
}
