package models

import (
	"time"

	"github.com/google/uuid"
)

// Business represents a service business (salon) the scheduler operates for.
// Opening hours and the manual closed flag feed admission control; everything
// else is owner-managed catalog data.
type Business struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OwnerID   uuid.UUID `db:"owner_id" json:"owner_id"`
	Name      string    `db:"name" json:"name"`
	Slug      *string   `db:"slug" json:"slug,omitempty"`
	Address   *string   `db:"address" json:"address,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	OpenTime  string    `db:"open_time" json:"open_time"`   // "HH:mm"
	CloseTime string    `db:"close_time" json:"close_time"` // "HH:mm"
	IsClosed  bool      `db:"is_closed" json:"is_closed"`   // manual closed-today override
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Service represents a catalog service offered by a business.
// Price and duration are snapshotted into task rows at join time, so later
// catalog edits never change an in-flight visit.
type Service struct {
	ID              uuid.UUID `db:"id" json:"id"`
	BusinessID      uuid.UUID `db:"business_id" json:"business_id"`
	Name            string    `db:"name" json:"name"`
	Description     *string   `db:"description" json:"description,omitempty"`
	Price           float64   `db:"price" json:"price"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
