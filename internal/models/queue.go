package models

import (
	"time"

	"github.com/google/uuid"
)

// QueueStatus represents the status of a queue
type QueueStatus string

const (
	QueueStatusOpen   QueueStatus = "open"
	QueueStatusClosed QueueStatus = "closed"
	QueueStatusPaused QueueStatus = "paused"
)

// Queue represents one walk-in service line of a business
type Queue struct {
	ID                     uuid.UUID   `db:"id" json:"id"`
	BusinessID             uuid.UUID   `db:"business_id" json:"business_id"`
	Name                   string      `db:"name" json:"name"`
	Description            *string     `db:"description" json:"description,omitempty"`
	Status                 QueueStatus `db:"status" json:"status"`
	CurrentWaitTimeMinutes int         `db:"current_wait_time_minutes" json:"current_wait_time_minutes"`
	CreatedAt              time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time   `db:"updated_at" json:"updated_at"`
}
