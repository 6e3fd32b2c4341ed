package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/models"
)

// TaskRepository handles per-service task rows within queue entries
type TaskRepository struct {
	db DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, entry_id, service_id, service_name, price, duration_minutes,
	task_status, assigned_provider_id, started_at, completed_at, estimated_end_at,
	actual_minutes, delay_minutes`

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var providerID uuid.NullUUID
	var startedAt, completedAt, estimatedEndAt sql.NullTime
	var actualMinutes sql.NullInt64

	err := row.Scan(
		&t.ID, &t.EntryID, &t.ServiceID, &t.ServiceName, &t.Price, &t.DurationMinutes,
		&t.TaskStatus, &providerID, &startedAt, &completedAt, &estimatedEndAt,
		&actualMinutes, &t.DelayMinutes,
	)
	if err != nil {
		return nil, err
	}

	if providerID.Valid {
		t.AssignedProviderID = &providerID.UUID
	}
	if startedAt.Valid {
		t.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if estimatedEndAt.Valid {
		t.EstimatedEndAt = &estimatedEndAt.Time
	}
	if actualMinutes.Valid {
		val := int(actualMinutes.Int64)
		t.ActualMinutes = &val
	}

	return &t, nil
}

// InsertForEntry creates one task row per service, skipping any service that
// already has a row for the entry so a retried join stays idempotent.
func (r *TaskRepository) InsertForEntry(entryID uuid.UUID, services []models.Service) error {
	query := `
		INSERT INTO queue_entry_services (id, entry_id, service_id, service_name, price, duration_minutes, task_status)
		SELECT $1, $2, $3, $4, $5, $6, 'pending'
		WHERE NOT EXISTS (
			SELECT 1 FROM queue_entry_services WHERE entry_id = $2 AND service_id = $3
		)`
	for _, svc := range services {
		if _, err := r.db.Exec(query, uuid.New(), entryID, svc.ID, svc.Name, svc.Price, svc.DurationMinutes); err != nil {
			return fmt.Errorf("failed to insert entry service: %w", err)
		}
	}
	return nil
}

// GetByID retrieves a task by id
func (r *TaskRepository) GetByID(id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM queue_entry_services WHERE id = $1`
	task, err := scanTask(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListByEntry returns all tasks of an entry in insertion order
func (r *TaskRepository) ListByEntry(entryID uuid.UUID) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM queue_entry_services WHERE entry_id = $1 ORDER BY service_name ASC`
	rows, err := r.db.Query(query, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entry tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// ClaimStart moves a task from pending to in_progress only if the provider is
// not currently busy elsewhere. The conditional UPDATE is the lock: a
// concurrent start on the same provider matches zero rows and surfaces
// ErrProviderLocked instead of double-booking. The busy check is scoped to
// the given business day so a stale in_progress row from an earlier day
// cannot hold the provider.
func (r *TaskRepository) ClaimStart(taskID, providerID uuid.UUID, day string, startedAt, estimatedEndAt time.Time) error {
	query := `
		UPDATE queue_entry_services
		SET task_status = 'in_progress', assigned_provider_id = $2, started_at = $4, estimated_end_at = $5
		WHERE id = $1
		  AND task_status = 'pending'
		  AND NOT EXISTS (
			SELECT 1 FROM queue_entry_services busy
			JOIN queue_entries be ON be.id = busy.entry_id
			WHERE busy.assigned_provider_id = $2
			  AND busy.task_status = 'in_progress'
			  AND busy.id <> $1
			  AND be.entry_date = $3
		  )`
	result, err := r.db.Exec(query, taskID, providerID, day, startedAt, estimatedEndAt)
	if err != nil {
		return fmt.Errorf("failed to start task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to start task: %w", err)
	}
	if affected == 0 {
		return ErrProviderLocked
	}
	return nil
}

// MarkDone completes a task with its measured timings.
func (r *TaskRepository) MarkDone(id uuid.UUID, completedAt time.Time, actualMinutes, delayMinutes int) error {
	query := `
		UPDATE queue_entry_services
		SET task_status = 'done', completed_at = $2, actual_minutes = $3, delay_minutes = $4
		WHERE id = $1 AND task_status = 'in_progress'`
	result, err := r.db.Exec(query, id, completedAt, actualMinutes, delayMinutes)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignProvider pre-binds a provider to a pending task without starting it.
func (r *TaskRepository) AssignProvider(id uuid.UUID, providerID *uuid.UUID) error {
	query := `UPDATE queue_entry_services SET assigned_provider_id = $2 WHERE id = $1 AND task_status <> 'done'`
	result, err := r.db.Exec(query, id, nullableUUID(providerID))
	if err != nil {
		return fmt.Errorf("failed to assign provider: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to assign provider: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountUnfinished returns how many tasks of an entry are not yet done.
func (r *TaskRepository) CountUnfinished(entryID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM queue_entry_services WHERE entry_id = $1 AND task_status <> 'done'`
	var count int
	if err := r.db.QueryRow(query, entryID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unfinished tasks: %w", err)
	}
	return count, nil
}

// AnyStarted reports whether any task of the entry has left pending.
func (r *TaskRepository) AnyStarted(entryID uuid.UUID) (bool, error) {
	query := `SELECT COUNT(*) FROM queue_entry_services WHERE entry_id = $1 AND task_status <> 'pending'`
	var count int
	if err := r.db.QueryRow(query, entryID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check started tasks: %w", err)
	}
	return count > 0, nil
}
