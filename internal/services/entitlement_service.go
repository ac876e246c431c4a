// Package services – EntitlementService
//
// This file implements the EntitlementService, the local stand-in for the
// subscription billing provider. It reports whether the current user holds
// the premium entitlement and exposes the purchase/restore flows, both of
// which resolve to an updated boolean status.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/watchdex/go-watch-backend/internal/domain"
)

// PremiumProduct is the entitlement literal gating quota-limited actions.
const PremiumProduct = "premium"

// EntitlementRepo defines the repository contract required by
// EntitlementService.
type EntitlementRepo interface {
	// GetEntitlement fetches the (userID, product) row.
	GetEntitlement(ctx context.Context, db *gorm.DB, userID, product string) (*domain.Entitlement, error)

	// SetEntitlement upserts the (userID, product) row to the given state.
	SetEntitlement(ctx context.Context, db *gorm.DB, userID, product string, active bool) (*domain.Entitlement, error)
}

// EntitlementService reports and mutates a user's premium entitlement.
type EntitlementService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the entitlement repository used by this service.
	Repo EntitlementRepo
	// Product is the entitlement checked; defaults to PremiumProduct.
	Product string
}

// NewEntitlementService constructs an EntitlementService for the premium
// product.
func NewEntitlementService(db *gorm.DB, r EntitlementRepo) *EntitlementService {
	return &EntitlementService{DB: db, Repo: r, Product: PremiumProduct}
}

// Status reports whether userID currently holds an active entitlement.
// A user with no entitlement row is simply inactive.
func (s *EntitlementService) Status(ctx context.Context, userID string) (bool, error) {
	e, err := s.Repo.GetEntitlement(ctx, s.DB, userID, s.Product)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return e.Active, nil
}

// Purchase activates the entitlement for userID and returns the updated
// status.
func (s *EntitlementService) Purchase(ctx context.Context, userID string) (bool, error) {
	e, err := s.Repo.SetEntitlement(ctx, s.DB, userID, s.Product, true)
	if err != nil {
		return false, err
	}
	return e.Active, nil
}

// Restore re-reads the entitlement state and returns it, mirroring the
// billing provider's restore-purchases flow. Restoring never activates an
// entitlement that was not previously purchased.
func (s *EntitlementService) Restore(ctx context.Context, userID string) (bool, error) {
	return s.Status(ctx, userID)
}
