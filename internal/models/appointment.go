package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// APPOINTMENT (appointments table)
// ============================================================================

// AppointmentStatus represents the status of a pre-scheduled visit
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCheckedIn AppointmentStatus = "checked_in"
	AppointmentStatusInService AppointmentStatus = "in_service"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// appointmentTransitions lists allowed forward transitions. Terminal states
// (completed, cancelled, no_show) never transition further.
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusScheduled: {AppointmentStatusConfirmed, AppointmentStatusCheckedIn, AppointmentStatusCancelled, AppointmentStatusNoShow},
	AppointmentStatusConfirmed: {AppointmentStatusCheckedIn, AppointmentStatusCancelled, AppointmentStatusNoShow},
	AppointmentStatusCheckedIn: {AppointmentStatusInService, AppointmentStatusCancelled, AppointmentStatusNoShow},
	AppointmentStatusInService: {AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow},
}

// IsValid reports whether the status is a known appointment status.
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusConfirmed, AppointmentStatusCheckedIn,
		AppointmentStatusInService, AppointmentStatusCompleted, AppointmentStatusCancelled,
		AppointmentStatusNoShow:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends the appointment's lifecycle.
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is an allowed appointment transition.
func (s AppointmentStatus) CanTransition(to AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Appointment represents a pre-scheduled visit, keyed by a start time instead
// of a queue position. When the guest checks in, a queue entry is materialized
// and the appointment mirrors that entry's state from then on.
type Appointment struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	BusinessID      uuid.UUID         `db:"business_id" json:"business_id"`
	CustomerID      *uuid.UUID        `db:"customer_id" json:"customer_id,omitempty"`
	GuestName       *string           `db:"guest_name" json:"guest_name,omitempty"`
	Phone           *string           `db:"phone" json:"phone,omitempty"`
	ProviderID      *uuid.UUID        `db:"provider_id" json:"provider_id,omitempty"`
	Status          AppointmentStatus `db:"status" json:"status"`
	AppointmentDate string            `db:"appointment_date" json:"appointment_date"` // YYYY-MM-DD in IST
	StartTime       string            `db:"start_time" json:"start_time"`             // "HH:mm"
	EndTime         string            `db:"end_time" json:"end_time"`                 // "HH:mm"
	DurationMinutes int               `db:"duration_minutes" json:"duration_minutes"`
	TotalPrice      float64           `db:"total_price" json:"total_price"`
	PaymentStatus   string            `db:"payment_status" json:"payment_status"`

	CheckedInAt *time.Time `db:"checked_in_at" json:"checked_in_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`

	// Delay propagation fields
	DelayMinutes    int        `db:"delay_minutes" json:"delay_minutes"`
	ExpectedStartAt *time.Time `db:"expected_start_at" json:"expected_start_at,omitempty"`
	ExpectedEndAt   *time.Time `db:"expected_end_at" json:"expected_end_at,omitempty"`
	IsDelayed       bool       `db:"is_delayed" json:"is_delayed"`

	QueueEntryID *uuid.UUID `db:"queue_entry_id" json:"queue_entry_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`

	// Populated via JOINs
	Services []AppointmentService `db:"-" json:"services,omitempty"`
}

// AppointmentService is the service snapshot row for an appointment
type AppointmentService struct {
	ID              uuid.UUID `db:"id" json:"id"`
	AppointmentID   uuid.UUID `db:"appointment_id" json:"appointment_id"`
	ServiceID       uuid.UUID `db:"service_id" json:"service_id"`
	ServiceName     string    `db:"service_name" json:"service_name"`
	Price           float64   `db:"price" json:"price"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
}

// Recipient returns the notification address for this appointment.
func (a *Appointment) Recipient() string {
	if a.Phone != nil && *a.Phone != "" {
		return *a.Phone
	}
	if a.CustomerID != nil {
		return "User-" + a.CustomerID.String()
	}
	if a.GuestName != nil {
		return "Guest-" + *a.GuestName
	}
	return ""
}
