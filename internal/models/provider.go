package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// SERVICE PROVIDER (service_providers table)
// ============================================================================

// ServiceProvider represents a staff member who performs services
type ServiceProvider struct {
	ID         uuid.UUID `db:"id" json:"id"`
	BusinessID uuid.UUID `db:"business_id" json:"business_id"`
	Name       string    `db:"name" json:"name"`
	Phone      *string   `db:"phone" json:"phone,omitempty"`
	Role       *string   `db:"role" json:"role,omitempty"`
	Department *string   `db:"department" json:"department,omitempty"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`

	// Populated via the provider_services join relation
	ServiceIDs []uuid.UUID `db:"-" json:"service_ids,omitempty"`
}

// CanPerform reports whether the provider's capability set covers every
// required service.
func (p *ServiceProvider) CanPerform(required []uuid.UUID) bool {
	if len(required) == 0 {
		return true
	}
	capabilities := make(map[uuid.UUID]bool, len(p.ServiceIDs))
	for _, id := range p.ServiceIDs {
		capabilities[id] = true
	}
	for _, id := range required {
		if !capabilities[id] {
			return false
		}
	}
	return true
}

// ProviderLeave represents one leave interval (inclusive dates) for a provider
type ProviderLeave struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ProviderID uuid.UUID `db:"provider_id" json:"provider_id"`
	StartDate  string    `db:"start_date" json:"start_date"` // YYYY-MM-DD
	EndDate    string    `db:"end_date" json:"end_date"`     // YYYY-MM-DD
	Reason     *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Covers reports whether the given business day falls inside the interval.
// Dates compare lexicographically in YYYY-MM-DD form.
func (l *ProviderLeave) Covers(day string) bool {
	return l.StartDate <= day && day <= l.EndDate
}
