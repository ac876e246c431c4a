// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Watch model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a watch is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// This repository is designed to be wrapped by a higher-level service
// (see services.WatchService) which enforces validation, quota policy,
// and cross-aggregate behavior.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/watchdex/go-watch-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateWatch inserts a new Watch row. The caller supplies the fully
// validated record, including its identifier; CreatedAt is set to UTC.
func CreateWatch(ctx context.Context, db *gorm.DB, w *domain.Watch) error {
	w.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(w).Error
}

// ListWatches returns all watches belonging to userID, ordered by creation
// time descending (most recent first). It returns an empty slice if the user
// has no watches. On DB error, it returns the error.
func ListWatches(ctx context.Context, db *gorm.DB, userID string) ([]domain.Watch, error) {
	var out []domain.Watch
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountWatches returns the total number of watches owned by userID.
// On DB error, it returns the error.
func CountWatches(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Watch{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// GetWatch fetches a single watch by its ID and owner (userID). If the record
// does not exist, it returns ErrNotFound. On other DB errors, the raw error
// is returned.
func GetWatch(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Watch, error) {
	var w domain.Watch
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ReplaceWatch overwrites every mutable column of the watch identified by
// w.ID and owned by w.UserID. Identifier and ownership never change. If no
// rows are affected (watch missing or not owned), it returns ErrNotFound.
func ReplaceWatch(ctx context.Context, db *gorm.DB, w *domain.Watch) error {
	res := db.WithContext(ctx).
		Model(&domain.Watch{}).
		Where("id = ? AND user_id = ?", w.ID, w.UserID).
		Updates(map[string]interface{}{
			"brand":         w.Brand,
			"model":         w.Model,
			"year":          w.Year,
			"value":         w.Value,
			"movement":      w.Movement,
			"material":      w.Material,
			"style":         w.Style,
			"complications": w.Complications,
			"type":          w.Type,
			"image_url":     w.ImageURL,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteWatch soft-deletes the watch identified by id and owned by userID.
// If no rows are affected, it returns ErrNotFound.
func DeleteWatch(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Watch{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteWatchesForUser soft-deletes every watch owned by userID. Used by the
// account deletion path. Deleting zero rows is not an error.
func DeleteWatchesForUser(ctx context.Context, db *gorm.DB, userID string) error {
	return db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.Watch{}).Error
}
