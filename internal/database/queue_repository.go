package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/models"
)

// QueueRepository handles queue database operations
type QueueRepository struct {
	db DB
}

// NewQueueRepository creates a new queue repository
func NewQueueRepository(db DB) *QueueRepository {
	return &QueueRepository{db: db}
}

const queueColumns = `id, business_id, name, description, status, current_wait_time_minutes, created_at, updated_at`

func scanQueue(row rowScanner) (*models.Queue, error) {
	var q models.Queue
	var description sql.NullString

	err := row.Scan(&q.ID, &q.BusinessID, &q.Name, &description, &q.Status,
		&q.CurrentWaitTimeMinutes, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		q.Description = &description.String
	}
	return &q, nil
}

// Create inserts a new queue
func (r *QueueRepository) Create(q *models.Queue) error {
	query := `
		INSERT INTO queues (id, business_id, name, description, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`
	err := r.db.QueryRow(query, q.ID, q.BusinessID, q.Name, nullableString(q.Description), q.Status).
		Scan(&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create queue: %w", err)
	}
	return nil
}

// GetByID retrieves a queue by id
func (r *QueueRepository) GetByID(id uuid.UUID) (*models.Queue, error) {
	query := `SELECT ` + queueColumns + ` FROM queues WHERE id = $1`
	queue, err := scanQueue(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}
	return queue, nil
}

// ListByBusiness returns all queues of a business
func (r *QueueRepository) ListByBusiness(businessID uuid.UUID) ([]models.Queue, error) {
	query := `SELECT ` + queueColumns + ` FROM queues WHERE business_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.Query(query, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list queues: %w", err)
	}
	defer rows.Close()

	var queues []models.Queue
	for rows.Next() {
		queue, err := scanQueue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue: %w", err)
		}
		queues = append(queues, *queue)
	}
	return queues, rows.Err()
}

// UpdateStatus sets the queue open/closed/paused state
func (r *QueueRepository) UpdateStatus(id uuid.UUID, status models.QueueStatus) error {
	result, err := r.db.Exec(`UPDATE queues SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update queue status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update queue status: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateWaitTime refreshes the cached aggregate wait estimate shown on the
// public display.
func (r *QueueRepository) UpdateWaitTime(id uuid.UUID, minutes int) error {
	_, err := r.db.Exec(`UPDATE queues SET current_wait_time_minutes = $2, updated_at = NOW() WHERE id = $1`, id, minutes)
	if err != nil {
		return fmt.Errorf("failed to update queue wait time: %w", err)
	}
	return nil
}
