// Package domain defines the persistence models for users, watches, catalog
// candidates, and entitlements. These types are mapped with GORM and form the
// core data layer of the watch collection backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Watch list membership literals. Every persisted watch belongs to exactly
// one of the two lists.
const (
	TypeCollection = "Collection"
	TypeWishlist   = "Wishlist"
)

// Fallback literals applied when an enumerated field is left blank at
// submission time.
const (
	FallbackUnknown = "Unknown"
	FallbackNone    = "None"
)

// User represents an account. Accounts are created via email/password sign-up
// or anonymously (Anonymous=true, no credentials). Email changes are staged in
// PendingEmail until the verification token is confirmed.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: unique sign-in address; empty for anonymous accounts.
//   - PasswordHash: bcrypt hash; empty for anonymous accounts.
//   - Anonymous: true for accounts created without credentials.
//   - PendingEmail / EmailChangeToken: staged email change awaiting confirmation.
//   - ResetToken: outstanding password-reset token, if any.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
type User struct {
	ID               string         `json:"id"    gorm:"type:char(36);primaryKey"`
	Email            string         `json:"email" gorm:"type:varchar(255);index"`
	PasswordHash     string         `json:"-"     gorm:"type:varchar(128)"`
	Anonymous        bool           `json:"anonymous"`
	PendingEmail     string         `json:"-" gorm:"type:varchar(255)"`
	EmailChangeToken string         `json:"-" gorm:"type:char(36)"`
	ResetToken       string         `json:"-" gorm:"type:char(36)"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Watch is the sole user-persisted catalog entity: one tracked watch in a
// user's collection or wishlist. Records are replaced whole on update; there
// is no partial-field update path.
//
// Fields:
//   - ID: opaque UUID primary key, assigned at creation, immutable.
//   - UserID: owner; records are scoped to exactly one user (indexed).
//   - Brand / Model: required free text.
//   - Year: required, stored as free text (not validated as a calendar year).
//   - Value: required decimal; non-negative expected but not enforced.
//   - Movement / Material / Style / Complications: enumerated vocabulary
//     strings; blank values fall back to "Unknown"/"None" at submission.
//   - Type: "Collection" or "Wishlist"; never empty.
//   - ImageURL: optional; only ever the return value of a completed upload.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
type Watch struct {
	ID            string         `json:"id"            gorm:"type:char(36);primaryKey"`
	UserID        string         `json:"user_id"       gorm:"type:char(36);not null;index:idx_user_watches"`
	Brand         string         `json:"brand"         gorm:"type:varchar(128);not null"`
	Model         string         `json:"model"         gorm:"type:varchar(128);not null"`
	Year          string         `json:"year"          gorm:"type:varchar(32);not null"`
	Value         float64        `json:"value"         gorm:"not null"`
	Movement      string         `json:"movement"      gorm:"type:varchar(32);not null"`
	Material      string         `json:"material"      gorm:"type:varchar(32);not null"`
	Style         string         `json:"style"         gorm:"type:varchar(32);not null"`
	Complications string         `json:"complications" gorm:"type:varchar(64);not null"`
	Type          string         `json:"type"          gorm:"type:varchar(16);not null;default:'Collection';check:type IN ('Collection','Wishlist')"`
	ImageURL      string         `json:"image_url,omitempty" gorm:"type:varchar(512)"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Watch.
func (Watch) TableName() string { return "watches" }

// CatalogWatch is a pre-seeded suggestion surfaced in the triage feed. It is
// never owned by a user; accepting one copies it into the user's collection
// under a fresh identifier.
type CatalogWatch struct {
	ID            string    `json:"id"            gorm:"type:char(36);primaryKey"`
	Brand         string    `json:"brand"         gorm:"type:varchar(128);not null"`
	Model         string    `json:"model"         gorm:"type:varchar(128);not null"`
	Year          string    `json:"year"          gorm:"type:varchar(32);not null"`
	Value         float64   `json:"value"         gorm:"not null"`
	Movement      string    `json:"movement"      gorm:"type:varchar(32);not null"`
	Material      string    `json:"material"      gorm:"type:varchar(32);not null"`
	Style         string    `json:"style"         gorm:"type:varchar(32);not null"`
	Complications string    `json:"complications" gorm:"type:varchar(64);not null"`
	Type          string    `json:"type"          gorm:"type:varchar(16);not null;default:'Collection'"`
	ImageURL      string    `json:"image_url,omitempty" gorm:"type:varchar(512)"`
	Position      int       `json:"-"             gorm:"not null;index"` // feed order
	CreatedAt     time.Time `json:"created_at"`
}

// TableName returns the database table name for CatalogWatch.
func (CatalogWatch) TableName() string { return "catalog_watches" }

// Entitlement records a user's premium subscription state. It stands in for
// the billing provider's customer record; Active mirrors whether the product
// entitlement is currently held.
//
// A user has at most one row per product (enforced by unique index).
type Entitlement struct {
	ID        string         `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id" gorm:"type:char(36);not null;uniqueIndex:ux_entitlement_user_product"`
	Product   string         `json:"product" gorm:"type:varchar(64);not null;uniqueIndex:ux_entitlement_user_product"`
	Active    bool           `json:"active"  gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Entitlement.
func (Entitlement) TableName() string { return "entitlements" }

// Card is a watch surfaced for accept/reject triage. Cards are ephemeral:
// they exist only inside an in-memory triage session queue and are never
// written back unless accepted (and then under a new identifier).
type Card struct {
	ID            string  `json:"id"`
	Brand         string  `json:"brand"`
	Model         string  `json:"model"`
	Year          string  `json:"year"`
	Value         float64 `json:"value"`
	Movement      string  `json:"movement"`
	Material      string  `json:"material"`
	Style         string  `json:"style"`
	Complications string  `json:"complications"`
	Type          string  `json:"type"`
	ImageURL      string  `json:"image_url,omitempty"`
}

// CardFromCatalog converts a seeded catalog row into a triage card.
func CardFromCatalog(c CatalogWatch) Card {
	return Card{
		ID:            c.ID,
		Brand:         c.Brand,
		Model:         c.Model,
		Year:          c.Year,
		Value:         c.Value,
		Movement:      c.Movement,
		Material:      c.Material,
		Style:         c.Style,
		Complications: c.Complications,
		Type:          c.Type,
		ImageURL:      c.ImageURL,
	}
}
