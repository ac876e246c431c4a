// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for Entitlement
// rows, the local stand-in for the billing provider's customer records.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/watchdex/go-watch-backend/internal/domain"
)

// GetEntitlement fetches the entitlement row for (userID, product).
// Returns ErrNotFound when the user has never interacted with the product.
func GetEntitlement(ctx context.Context, db *gorm.DB, userID, product string) (*domain.Entitlement, error) {
	var e domain.Entitlement
	err := db.WithContext(ctx).
		Where("user_id = ? AND product = ?", userID, product).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// SetEntitlement upserts the (userID, product) row to the given active state
// and returns the persisted record.
func SetEntitlement(ctx context.Context, db *gorm.DB, userID, product string, active bool) (*domain.Entitlement, error) {
	var out *domain.Entitlement
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e domain.Entitlement
		err := tx.Where("user_id = ? AND product = ?", userID, product).First(&e).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			e = domain.Entitlement{
				ID:        uuid.NewString(),
				UserID:    userID,
				Product:   product,
				Active:    active,
				CreatedAt: time.Now().UTC(),
			}
			if err := tx.Create(&e).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&e).Update("active", active).Error; err != nil {
				return err
			}
			e.Active = active
		}
		out = &e
		return nil
	})
	return out, err
}

// DeleteEntitlementsForUser soft-deletes every entitlement row for userID.
// Used by the account deletion path.
func DeleteEntitlementsForUser(ctx context.Context, db *gorm.DB, userID string) error {
	return db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.Entitlement{}).Error
}
