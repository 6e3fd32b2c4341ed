package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/models"
)

// EntryRepository handles queue entry database operations
type EntryRepository struct {
	db DB
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(db DB) *EntryRepository {
	return &EntryRepository{db: db}
}

const entryColumns = `id, queue_id, customer_id, customer_name, phone, status, position,
	ticket_number, entry_date, status_token, entry_source, total_duration_minutes,
	total_price, assigned_provider_id, appointment_id, joined_at, served_at,
	service_started_at, completed_at, estimated_end_at, actual_duration_minutes,
	delay_minutes, notified_join, notified_top3, notified_next, notified_no_show`

// insertRetries bounds how often position allocation retries after losing the
// per-(queue, day) race to a concurrent join.
const insertRetries = 3

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*models.QueueEntry, error) {
	var e models.QueueEntry
	var customerID, providerID, appointmentID uuid.NullUUID
	var phone sql.NullString
	var servedAt, serviceStartedAt, completedAt, estimatedEndAt sql.NullTime
	var actualMinutes sql.NullInt64

	err := row.Scan(
		&e.ID, &e.QueueID, &customerID, &e.CustomerName, &phone, &e.Status, &e.Position,
		&e.TicketNumber, &e.EntryDate, &e.StatusToken, &e.EntrySource, &e.TotalDurationMinutes,
		&e.TotalPrice, &providerID, &appointmentID, &e.JoinedAt, &servedAt,
		&serviceStartedAt, &completedAt, &estimatedEndAt, &actualMinutes,
		&e.DelayMinutes, &e.NotifiedJoin, &e.NotifiedTop3, &e.NotifiedNext, &e.NotifiedNoShow,
	)
	if err != nil {
		return nil, err
	}

	if customerID.Valid {
		e.CustomerID = &customerID.UUID
	}
	if providerID.Valid {
		e.AssignedProviderID = &providerID.UUID
	}
	if appointmentID.Valid {
		e.AppointmentID = &appointmentID.UUID
	}
	if phone.Valid {
		e.Phone = &phone.String
	}
	if servedAt.Valid {
		e.ServedAt = &servedAt.Time
	}
	if serviceStartedAt.Valid {
		e.ServiceStartedAt = &serviceStartedAt.Time
	}
	if completedAt.Valid {
		e.CompletedAt = &completedAt.Time
	}
	if estimatedEndAt.Valid {
		e.EstimatedEndAt = &estimatedEndAt.Time
	}
	if actualMinutes.Valid {
		val := int(actualMinutes.Int64)
		e.ActualDurationMinutes = &val
	}

	return &e, nil
}

// InsertWithNextPosition creates a new entry with the next sequential position
// for its (queue, entry_date) pair. The position is allocated inside a single
// INSERT ... SELECT statement so two concurrent joins can never read the same
// stale maximum; the unique index on (queue_id, entry_date, position) catches
// the remaining window and the insert is retried.
//
// The ticket number is derived in-statement from the allocated position using
// the given prefix ("Q-" for queue joins, "A-" for appointment check-ins).
func (r *EntryRepository) InsertWithNextPosition(entry *models.QueueEntry, ticketPrefix string) error {
	query := `
		WITH next AS (
			SELECT COALESCE(MAX(position), 0) + 1 AS pos
			FROM queue_entries
			WHERE queue_id = $1 AND entry_date = $2
		)
		INSERT INTO queue_entries (
			id, queue_id, customer_id, customer_name, phone, status, position,
			ticket_number, entry_date, status_token, entry_source,
			total_duration_minutes, total_price, appointment_id, joined_at
		)
		SELECT $3, $1, $4, $5, $6, 'waiting', next.pos, $7::text || next.pos, $2, $8, $9, $10, $11, $12, NOW()
		FROM next
		RETURNING position, ticket_number, joined_at`

	var lastErr error
	for attempt := 0; attempt < insertRetries; attempt++ {
		err := r.db.QueryRow(query,
			entry.QueueID, entry.EntryDate, entry.ID, nullableUUID(entry.CustomerID),
			entry.CustomerName, nullableString(entry.Phone), ticketPrefix,
			entry.StatusToken, entry.EntrySource, entry.TotalDurationMinutes,
			entry.TotalPrice, nullableUUID(entry.AppointmentID),
		).Scan(&entry.Position, &entry.TicketNumber, &entry.JoinedAt)
		if err == nil {
			entry.Status = models.EntryStatusWaiting
			return nil
		}
		if !isUniqueViolation(err) {
			return fmt.Errorf("failed to insert queue entry: %w", err)
		}
		lastErr = err
	}

	return fmt.Errorf("%w: %v", ErrPositionConflict, lastErr)
}

// GetByID retrieves an entry by id
func (r *EntryRepository) GetByID(id uuid.UUID) (*models.QueueEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM queue_entries WHERE id = $1`
	entry, err := scanEntry(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}
	return entry, nil
}

// GetByToken retrieves an entry by its public status token
func (r *EntryRepository) GetByToken(token uuid.UUID) (*models.QueueEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM queue_entries WHERE status_token = $1`
	entry, err := scanEntry(r.db.QueryRow(query, token))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entry by token: %w", err)
	}
	return entry, nil
}

// GetByAppointment retrieves the entry materialized from an appointment, if any
func (r *EntryRepository) GetByAppointment(appointmentID uuid.UUID) (*models.QueueEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM queue_entries WHERE appointment_id = $1`
	entry, err := scanEntry(r.db.QueryRow(query, appointmentID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entry by appointment: %w", err)
	}
	return entry, nil
}

// ListForDay returns entries for a queue and day filtered to the given
// statuses, ordered by position.
func (r *EntryRepository) ListForDay(queueID uuid.UUID, day string, statuses ...models.EntryStatus) ([]models.QueueEntry, error) {
	query := `SELECT ` + entryColumns + `
		FROM queue_entries
		WHERE queue_id = $1 AND entry_date = $2 AND status = ANY($3)
		ORDER BY position ASC`

	filter := make([]string, 0, len(statuses))
	for _, s := range statuses {
		filter = append(filter, string(s))
	}

	rows, err := r.db.Query(query, queueID, day, pqStringArray(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to list queue entries: %w", err)
	}
	defer rows.Close()

	var entries []models.QueueEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// NextWaitingAfter returns the waiting entry with the lowest position strictly
// greater than the given one, or ErrNotFound.
func (r *EntryRepository) NextWaitingAfter(queueID uuid.UUID, day string, position int) (*models.QueueEntry, error) {
	query := `SELECT ` + entryColumns + `
		FROM queue_entries
		WHERE queue_id = $1 AND entry_date = $2 AND status = 'waiting' AND position > $3
		ORDER BY position ASC
		LIMIT 1`
	entry, err := scanEntry(r.db.QueryRow(query, queueID, day, position))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next waiting entry: %w", err)
	}
	return entry, nil
}

// SwapPositions exchanges the position values of two entries in one statement.
func (r *EntryRepository) SwapPositions(aID uuid.UUID, aPos int, bID uuid.UUID, bPos int) error {
	query := `
		UPDATE queue_entries
		SET position = CASE id WHEN $1 THEN $4 WHEN $3 THEN $2 END
		WHERE id IN ($1, $3)`
	result, err := r.db.Exec(query, aID, aPos, bID, bPos)
	if err != nil {
		return fmt.Errorf("failed to swap positions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to swap positions: %w", err)
	}
	if affected != 2 {
		return fmt.Errorf("position swap touched %d rows, expected 2", affected)
	}
	return nil
}

// SumRemainingDurations returns the total minutes of work still queued for
// today. Skipped entries remain schedulable, so they count too.
func (r *EntryRepository) SumRemainingDurations(queueID uuid.UUID, day string) (int, error) {
	query := `
		SELECT COALESCE(SUM(total_duration_minutes), 0)
		FROM queue_entries
		WHERE queue_id = $1 AND entry_date = $2 AND status IN ('waiting', 'serving', 'skipped')`
	var total int
	if err := r.db.QueryRow(query, queueID, day).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum remaining durations: %w", err)
	}
	return total, nil
}

// CountWaitingAhead returns how many waiting entries sit before the given position.
func (r *EntryRepository) CountWaitingAhead(queueID uuid.UUID, day string, position int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM queue_entries
		WHERE queue_id = $1 AND entry_date = $2 AND status = 'waiting' AND position < $3`
	var count int
	if err := r.db.QueryRow(query, queueID, day, position).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count waiting entries: %w", err)
	}
	return count, nil
}

// CurrentServingTicket returns the ticket number currently being served, or ""
func (r *EntryRepository) CurrentServingTicket(queueID uuid.UUID, day string) (string, error) {
	query := `
		SELECT ticket_number
		FROM queue_entries
		WHERE queue_id = $1 AND entry_date = $2 AND status = 'serving'
		ORDER BY served_at DESC
		LIMIT 1`
	var ticket string
	err := r.db.QueryRow(query, queueID, day).Scan(&ticket)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get serving ticket: %w", err)
	}
	return ticket, nil
}

// MarkServing transitions an entry to serving, binding the provider and
// stamping served_at / estimated_end_at.
func (r *EntryRepository) MarkServing(id, providerID uuid.UUID, servedAt, estimatedEndAt time.Time) error {
	query := `
		UPDATE queue_entries
		SET status = 'serving', assigned_provider_id = $2, served_at = $3, estimated_end_at = $4
		WHERE id = $1`
	return r.exec(query, id, providerID, servedAt, estimatedEndAt)
}

// MarkCompleted transitions an entry to completed with its final timings.
func (r *EntryRepository) MarkCompleted(id uuid.UUID, completedAt time.Time, actualMinutes, delayMinutes int) error {
	query := `
		UPDATE queue_entries
		SET status = 'completed', completed_at = $2, actual_duration_minutes = $3, delay_minutes = $4
		WHERE id = $1`
	return r.exec(query, id, completedAt, actualMinutes, delayMinutes)
}

// UpdateStatus sets a bare status value (skip, cancel bookkeeping done by caller)
func (r *EntryRepository) UpdateStatus(id uuid.UUID, status models.EntryStatus) error {
	return r.exec(`UPDATE queue_entries SET status = $2 WHERE id = $1`, id, status)
}

// ReleaseProvider clears the provider binding on an entry and all its tasks so
// the provider becomes available again.
func (r *EntryRepository) ReleaseProvider(id uuid.UUID) error {
	if err := r.exec(`UPDATE queue_entries SET assigned_provider_id = NULL WHERE id = $1`, id); err != nil {
		return err
	}
	_, err := r.db.Exec(`UPDATE queue_entry_services SET assigned_provider_id = NULL WHERE entry_id = $1 AND task_status <> 'done'`, id)
	if err != nil {
		return fmt.Errorf("failed to release provider from tasks: %w", err)
	}
	return nil
}

// SetServiceStarted stamps the moment the first task of the entry began.
// Zero affected rows means the stamp is already set, which is not an error.
func (r *EntryRepository) SetServiceStarted(id uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(`UPDATE queue_entries SET service_started_at = $2 WHERE id = $1 AND service_started_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("failed to set service start: %w", err)
	}
	return nil
}

// AssignProvider binds a provider at the entry level.
func (r *EntryRepository) AssignProvider(id uuid.UUID, providerID *uuid.UUID) error {
	return r.exec(`UPDATE queue_entries SET assigned_provider_id = $2 WHERE id = $1`, id, nullableUUID(providerID))
}

// NotificationKind names a customer-facing notification flag on an entry.
type NotificationKind string

const (
	NotifiedJoin   NotificationKind = "join"
	NotifiedTop3   NotificationKind = "top3"
	NotifiedNext   NotificationKind = "next"
	NotifiedNoShow NotificationKind = "no_show"
)

// MarkNotified sets a notification flag so the trigger policy never re-sends.
func (r *EntryRepository) MarkNotified(id uuid.UUID, kind NotificationKind) error {
	var query string
	switch kind {
	case NotifiedJoin:
		query = `UPDATE queue_entries SET notified_join = TRUE WHERE id = $1`
	case NotifiedTop3:
		query = `UPDATE queue_entries SET notified_top3 = TRUE WHERE id = $1`
	case NotifiedNext:
		query = `UPDATE queue_entries SET notified_next = TRUE WHERE id = $1`
	case NotifiedNoShow:
		query = `UPDATE queue_entries SET notified_no_show = TRUE WHERE id = $1`
	default:
		return fmt.Errorf("unknown notification kind: %s", kind)
	}
	return r.exec(query, id)
}

// DeleteForDay removes all entries of a queue for one calendar day (daily reset).
func (r *EntryRepository) DeleteForDay(queueID uuid.UUID, day string) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM queue_entries WHERE queue_id = $1 AND entry_date = $2`, queueID, day)
	if err != nil {
		return 0, fmt.Errorf("failed to reset queue entries: %w", err)
	}
	return result.RowsAffected()
}

func (r *EntryRepository) exec(query string, args ...interface{}) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update queue entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update queue entry: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
