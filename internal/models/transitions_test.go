package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEntryStatusTransitions(t *testing.T) {
	tests := []struct {
		from    EntryStatus
		to      EntryStatus
		allowed bool
	}{
		{EntryStatusWaiting, EntryStatusServing, true},
		{EntryStatusWaiting, EntryStatusSkipped, true},
		{EntryStatusWaiting, EntryStatusCancelled, true},
		{EntryStatusWaiting, EntryStatusNoShow, true},
		{EntryStatusWaiting, EntryStatusCompleted, false},
		{EntryStatusServing, EntryStatusCompleted, true},
		{EntryStatusServing, EntryStatusCancelled, true},
		{EntryStatusServing, EntryStatusNoShow, true},
		{EntryStatusServing, EntryStatusSkipped, false},
		{EntryStatusServing, EntryStatusWaiting, false},
		{EntryStatusCompleted, EntryStatusServing, false},
		{EntryStatusCancelled, EntryStatusWaiting, false},
		{EntryStatusNoShow, EntryStatusServing, false},
		{EntryStatusSkipped, EntryStatusServing, true},
		{EntryStatusSkipped, EntryStatusSkipped, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestEntryStatusTerminal(t *testing.T) {
	assert.True(t, EntryStatusCompleted.IsTerminal())
	assert.True(t, EntryStatusCancelled.IsTerminal())
	assert.True(t, EntryStatusNoShow.IsTerminal())
	assert.False(t, EntryStatusWaiting.IsTerminal())
	assert.False(t, EntryStatusServing.IsTerminal())
	// skipped entries remain schedulable
	assert.False(t, EntryStatusSkipped.IsTerminal())
}

func TestEntryStatusValid(t *testing.T) {
	assert.True(t, EntryStatusWaiting.IsValid())
	assert.True(t, EntryStatusSkipped.IsValid())
	assert.False(t, EntryStatus("held").IsValid())
	assert.False(t, EntryStatus("").IsValid())
}

func TestAppointmentStatusTransitions(t *testing.T) {
	tests := []struct {
		from    AppointmentStatus
		to      AppointmentStatus
		allowed bool
	}{
		{AppointmentStatusScheduled, AppointmentStatusConfirmed, true},
		{AppointmentStatusScheduled, AppointmentStatusCheckedIn, true},
		{AppointmentStatusScheduled, AppointmentStatusCancelled, true},
		{AppointmentStatusScheduled, AppointmentStatusNoShow, true},
		{AppointmentStatusScheduled, AppointmentStatusInService, false},
		{AppointmentStatusScheduled, AppointmentStatusCompleted, false},
		{AppointmentStatusConfirmed, AppointmentStatusCheckedIn, true},
		{AppointmentStatusConfirmed, AppointmentStatusInService, false},
		{AppointmentStatusCheckedIn, AppointmentStatusInService, true},
		{AppointmentStatusCheckedIn, AppointmentStatusCompleted, false},
		{AppointmentStatusInService, AppointmentStatusCompleted, true},
		// terminal states never transition further
		{AppointmentStatusCompleted, AppointmentStatusInService, false},
		{AppointmentStatusCancelled, AppointmentStatusScheduled, false},
		{AppointmentStatusNoShow, AppointmentStatusCheckedIn, false},
		{AppointmentStatusCompleted, AppointmentStatusCancelled, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestProviderCanPerform(t *testing.T) {
	cut := uuid.New()
	shave := uuid.New()
	color := uuid.New()

	provider := &ServiceProvider{ServiceIDs: []uuid.UUID{cut, shave}}

	assert.True(t, provider.CanPerform(nil))
	assert.True(t, provider.CanPerform([]uuid.UUID{cut}))
	assert.True(t, provider.CanPerform([]uuid.UUID{cut, shave}))
	assert.False(t, provider.CanPerform([]uuid.UUID{color}))
	assert.False(t, provider.CanPerform([]uuid.UUID{cut, color}))
}

func TestLeaveCovers(t *testing.T) {
	leave := &ProviderLeave{StartDate: "2025-03-10", EndDate: "2025-03-12"}
	assert.True(t, leave.Covers("2025-03-10"))
	assert.True(t, leave.Covers("2025-03-11"))
	assert.True(t, leave.Covers("2025-03-12"))
	assert.False(t, leave.Covers("2025-03-09"))
	assert.False(t, leave.Covers("2025-03-13"))
}
