package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// QUEUE ENTRY (queue_entries table)
// ============================================================================

// EntryStatus represents the lifecycle status of a queue entry
type EntryStatus string

const (
	EntryStatusWaiting   EntryStatus = "waiting"
	EntryStatusServing   EntryStatus = "serving"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusCancelled EntryStatus = "cancelled"
	EntryStatusNoShow    EntryStatus = "no_show"
	EntryStatusSkipped   EntryStatus = "skipped"
)

// EntrySource records how the entry was created
type EntrySource string

const (
	EntrySourceOnline EntrySource = "online"
	EntrySourceWalkIn EntrySource = "walk-in"
)

// entryTransitions lists the allowed forward transitions per status.
// Skipped entries stay schedulable, so they may still move to serving.
var entryTransitions = map[EntryStatus][]EntryStatus{
	EntryStatusWaiting: {EntryStatusServing, EntryStatusCancelled, EntryStatusNoShow, EntryStatusSkipped},
	EntryStatusServing: {EntryStatusCompleted, EntryStatusCancelled, EntryStatusNoShow},
	EntryStatusSkipped: {EntryStatusServing, EntryStatusCancelled, EntryStatusNoShow},
}

// IsValid reports whether the status is a known entry status.
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusWaiting, EntryStatusServing, EntryStatusCompleted,
		EntryStatusCancelled, EntryStatusNoShow, EntryStatusSkipped:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends the entry's lifecycle.
// Skipped entries stay schedulable, but are terminal for provider-busy
// computation like the other closed states.
func (s EntryStatus) IsTerminal() bool {
	switch s {
	case EntryStatusCompleted, EntryStatusCancelled, EntryStatusNoShow:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is an allowed entry transition.
func (s EntryStatus) CanTransition(to EntryStatus) bool {
	for _, allowed := range entryTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// QueueEntry represents one customer's visit to a queue on a calendar day
type QueueEntry struct {
	ID                   uuid.UUID   `db:"id" json:"id"`
	QueueID              uuid.UUID   `db:"queue_id" json:"queue_id"`
	CustomerID           *uuid.UUID  `db:"customer_id" json:"customer_id,omitempty"`
	CustomerName         string      `db:"customer_name" json:"customer_name"`
	Phone                *string     `db:"phone" json:"phone,omitempty"`
	Status               EntryStatus `db:"status" json:"status"`
	Position             int         `db:"position" json:"position"`
	TicketNumber         string      `db:"ticket_number" json:"ticket_number"`
	EntryDate            string      `db:"entry_date" json:"entry_date"` // YYYY-MM-DD in IST
	StatusToken          uuid.UUID   `db:"status_token" json:"status_token"`
	EntrySource          EntrySource `db:"entry_source" json:"entry_source"`
	TotalDurationMinutes int         `db:"total_duration_minutes" json:"total_duration_minutes"`
	TotalPrice           float64     `db:"total_price" json:"total_price"`
	AssignedProviderID   *uuid.UUID  `db:"assigned_provider_id" json:"assigned_provider_id,omitempty"`
	AppointmentID        *uuid.UUID  `db:"appointment_id" json:"appointment_id,omitempty"`

	JoinedAt              time.Time  `db:"joined_at" json:"joined_at"`
	ServedAt              *time.Time `db:"served_at" json:"served_at,omitempty"`
	ServiceStartedAt      *time.Time `db:"service_started_at" json:"service_started_at,omitempty"`
	CompletedAt           *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	EstimatedEndAt        *time.Time `db:"estimated_end_at" json:"estimated_end_at,omitempty"`
	ActualDurationMinutes *int       `db:"actual_duration_minutes" json:"actual_duration_minutes,omitempty"`
	DelayMinutes          int        `db:"delay_minutes" json:"delay_minutes"`

	NotifiedJoin   bool `db:"notified_join" json:"notified_join"`
	NotifiedTop3   bool `db:"notified_top3" json:"notified_top3"`
	NotifiedNext   bool `db:"notified_next" json:"notified_next"`
	NotifiedNoShow bool `db:"notified_no_show" json:"notified_no_show"`
}

// Recipient returns the notification address for this entry: the phone number
// when present, otherwise a synthetic guest/user handle.
func (e *QueueEntry) Recipient() string {
	if e.Phone != nil && *e.Phone != "" {
		return *e.Phone
	}
	if e.CustomerID != nil {
		return "User-" + e.CustomerID.String()
	}
	return "Guest-" + e.CustomerName
}
