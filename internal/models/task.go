package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// QUEUE ENTRY SERVICE / TASK (queue_entry_services table)
// ============================================================================

// TaskStatus represents the status of one service line within an entry
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// IsValid reports whether the status is a known task status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Task represents one service line item within a queue entry, independently
// timed and independently assignable to a provider.
type Task struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	EntryID            uuid.UUID  `db:"entry_id" json:"entry_id"`
	ServiceID          uuid.UUID  `db:"service_id" json:"service_id"`
	ServiceName        string     `db:"service_name" json:"service_name"`
	Price              float64    `db:"price" json:"price"`                       // snapshot at join time
	DurationMinutes    int        `db:"duration_minutes" json:"duration_minutes"` // snapshot at join time
	TaskStatus         TaskStatus `db:"task_status" json:"task_status"`
	AssignedProviderID *uuid.UUID `db:"assigned_provider_id" json:"assigned_provider_id,omitempty"`
	StartedAt          *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt        *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	EstimatedEndAt     *time.Time `db:"estimated_end_at" json:"estimated_end_at,omitempty"`
	ActualMinutes      *int       `db:"actual_minutes" json:"actual_minutes,omitempty"`
	DelayMinutes       int        `db:"delay_minutes" json:"delay_minutes"`
}
