// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the read path and startup seeding for
// the catalog feed surfaced in the triage workflow.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/watchdex/go-watch-backend/internal/domain"
)

// ListCatalog returns the full suggestion feed in stable feed order.
func ListCatalog(ctx context.Context, db *gorm.DB) ([]domain.CatalogWatch, error) {
	var out []domain.CatalogWatch
	err := db.WithContext(ctx).
		Order("position asc").
		Find(&out).Error
	return out, err
}

// defaultCatalog is the built-in suggestion feed inserted on first start.
var defaultCatalog = []domain.CatalogWatch{
	{Brand: "Rolex", Model: "Submariner", Year: "2020", Value: 10500, Movement: "Automatic", Material: "Stainless Steel", Style: "Dive", Complications: "Date", Type: domain.TypeCollection},
	{Brand: "Omega", Model: "Speedmaster Professional", Year: "1998", Value: 5200, Movement: "Manual", Material: "Stainless Steel", Style: "Chronograph", Complications: "Chronograph", Type: domain.TypeCollection},
	{Brand: "Seiko", Model: "SKX007", Year: "2015", Value: 350, Movement: "Automatic", Material: "Stainless Steel", Style: "Dive", Complications: "Date", Type: domain.TypeCollection},
	{Brand: "Cartier", Model: "Tank Must", Year: "2022", Value: 3100, Movement: "Quartz", Material: "Gold", Style: "Dress", Complications: "None", Type: domain.TypeWishlist},
	{Brand: "IWC", Model: "Big Pilot", Year: "2019", Value: 9800, Movement: "Automatic", Material: "Titanium", Style: "Pilot", Complications: "Power Reserve", Type: domain.TypeWishlist},
	{Brand: "Tudor", Model: "Black Bay 58", Year: "2021", Value: 3800, Movement: "Automatic", Material: "Stainless Steel", Style: "Dive", Complications: "None", Type: domain.TypeCollection},
	{Brand: "Grand Seiko", Model: "Snowflake SBGA211", Year: "2017", Value: 5800, Movement: "Automatic", Material: "Titanium", Style: "Dress", Complications: "Date", Type: domain.TypeWishlist},
	{Brand: "Breitling", Model: "Navitimer", Year: "2016", Value: 4500, Movement: "Automatic", Material: "Stainless Steel", Style: "Pilot", Complications: "Chronograph", Type: domain.TypeCollection},
}

// SeedCatalog inserts the built-in feed when the catalog table is empty.
// Existing rows are never modified, so operators can curate the feed.
func SeedCatalog(ctx context.Context, db *gorm.DB) error {
	var count int64
	if err := db.WithContext(ctx).Model(&domain.CatalogWatch{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	rows := make([]domain.CatalogWatch, len(defaultCatalog))
	copy(rows, defaultCatalog)
	now := time.Now().UTC()
	for i := range rows {
		rows[i].ID = uuid.NewString()
		rows[i].Position = i
		rows[i].CreatedAt = now
	}
	return db.WithContext(ctx).Create(&rows).Error
}
