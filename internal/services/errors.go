package services

import "errors"

// Sentinel errors returned by services. Handlers map these onto HTTP statuses;
// the messages are customer-facing and rendered verbatim.
var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrValidation is returned for malformed or incomplete input
	ErrValidation = errors.New("invalid input")

	// ErrBusinessClosed is returned when the owner has manually closed for the day
	ErrBusinessClosed = errors.New("The business is currently closed by the owner.")

	// ErrQueueNotOpen is returned when the queue itself is closed or paused
	ErrQueueNotOpen = errors.New("the queue is not accepting new entries")

	// ErrFullyBooked is returned when the visit cannot finish before closing
	ErrFullyBooked = errors.New("We're fully booked for today. Please select a slot for tomorrow.")

	// ErrProviderBusy is returned when the chosen provider is mid-service
	ErrProviderBusy = errors.New("expert is currently attending to another guest")

	// ErrProviderOnLeave is returned when the chosen provider is on leave today
	ErrProviderOnLeave = errors.New("expert is on leave")

	// ErrNoEligibleProvider is returned when no provider can cover the services
	ErrNoEligibleProvider = errors.New("no available expert can perform the requested services")

	// ErrInvalidTransition is returned for a disallowed status change
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAlreadyCheckedIn is returned when an appointment already has a queue entry
	ErrAlreadyCheckedIn = errors.New("appointment has already been checked in")

	// ErrTerminalState is returned when mutating a finished record
	ErrTerminalState = errors.New("record is in a terminal state")
)

// HoursError carries the customer-facing opening-hours message ("not open
// yet", "closed for the day"). The message text depends on the business's
// configured hours, so it cannot be a fixed sentinel.
type HoursError struct {
	Message string
}

func (e *HoursError) Error() string {
	return e.Message
}
