package database

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/salonflow/queue-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(queueID uuid.UUID) *models.QueueEntry {
	return &models.QueueEntry{
		ID:                   uuid.New(),
		QueueID:              queueID,
		CustomerName:         "Asha",
		EntryDate:            "2026-08-31",
		StatusToken:          uuid.New(),
		EntrySource:          models.EntrySourceWalkIn,
		TotalDurationMinutes: 45,
		TotalPrice:           1200,
	}
}

func TestInsertWithNextPosition(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewEntryRepository(mockDB)
	queueID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		entry := newEntry(queueID)
		now := time.Now()

		mock.ExpectQuery(`WITH next AS`).
			WillReturnRows(sqlmock.NewRows([]string{"position", "ticket_number", "joined_at"}).
				AddRow(4, "Q-4", now))

		err := repo.InsertWithNextPosition(entry, "Q-")
		require.NoError(t, err)
		assert.Equal(t, 4, entry.Position)
		assert.Equal(t, "Q-4", entry.TicketNumber)
		assert.Equal(t, models.EntryStatusWaiting, entry.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Retries after unique violation", func(t *testing.T) {
		entry := newEntry(queueID)
		now := time.Now()

		mock.ExpectQuery(`WITH next AS`).
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectQuery(`WITH next AS`).
			WillReturnRows(sqlmock.NewRows([]string{"position", "ticket_number", "joined_at"}).
				AddRow(5, "Q-5", now))

		err := repo.InsertWithNextPosition(entry, "Q-")
		require.NoError(t, err)
		assert.Equal(t, 5, entry.Position)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Exhausted retries surface a position conflict", func(t *testing.T) {
		entry := newEntry(queueID)

		for i := 0; i < insertRetries; i++ {
			mock.ExpectQuery(`WITH next AS`).
				WillReturnError(&pq.Error{Code: "23505"})
		}

		err := repo.InsertWithNextPosition(entry, "Q-")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPositionConflict)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Non-retryable error fails immediately", func(t *testing.T) {
		entry := newEntry(queueID)

		mock.ExpectQuery(`WITH next AS`).
			WillReturnError(fmt.Errorf("connection refused"))

		err := repo.InsertWithNextPosition(entry, "Q-")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrPositionConflict)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetByToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewEntryRepository(mockDB)

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM queue_entries WHERE status_token`).
			WillReturnError(sql.ErrNoRows)

		entry, err := repo.GetByToken(uuid.New())
		assert.Nil(t, entry)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSwapPositions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewEntryRepository(mockDB)

	aID, bID := uuid.New(), uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE queue_entries`).
			WillReturnResult(sqlmock.NewResult(0, 2))

		err := repo.SwapPositions(aID, 1, bID, 2)
		assert.NoError(t, err)
	})

	t.Run("Partial swap is an error", func(t *testing.T) {
		mock.ExpectExec(`UPDATE queue_entries`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SwapPositions(aID, 1, bID, 2)
		assert.Error(t, err)
	})
}

func TestMarkNotified(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewEntryRepository(mockDB)
	entryID := uuid.New()

	t.Run("Known kind", func(t *testing.T) {
		mock.ExpectExec(`UPDATE queue_entries SET notified_next`).
			WithArgs(entryID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.MarkNotified(entryID, NotifiedNext)
		assert.NoError(t, err)
	})

	t.Run("Unknown kind", func(t *testing.T) {
		err := repo.MarkNotified(entryID, NotificationKind("bogus"))
		assert.Error(t, err)
	})
}

func TestSetServiceStarted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewEntryRepository(mockDB)
	entryID := uuid.New()
	now := time.Now()

	t.Run("First stamp", func(t *testing.T) {
		mock.ExpectExec(`UPDATE queue_entries SET service_started_at`).
			WithArgs(entryID, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SetServiceStarted(entryID, now))
	})

	t.Run("Already stamped is not an error", func(t *testing.T) {
		mock.ExpectExec(`UPDATE queue_entries SET service_started_at`).
			WithArgs(entryID, now).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, repo.SetServiceStarted(entryID, now))
	})
}

func TestSumRemainingDurations(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewEntryRepository(mockDB)
	queueID := uuid.New()

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(total_duration_minutes\), 0\)`).
		WithArgs(queueID, "2026-08-31").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(95))

	total, err := repo.SumRemainingDurations(queueID, "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, 95, total)
}

type mockDatabase struct {
	db *sql.DB
}

func (m *mockDatabase) Get(dest interface{}, query string, args ...interface{}) error {
	return fmt.Errorf("Get not implemented in mock")
}

func (m *mockDatabase) Select(dest interface{}, query string, args ...interface{}) error {
	return fmt.Errorf("Select not implemented in mock")
}

func (m *mockDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return m.db.Query(query, args...)
}

func (m *mockDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return m.db.QueryRow(query, args...)
}

func (m *mockDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return m.db.Exec(query, args...)
}

func (m *mockDatabase) Close() error {
	return m.db.Close()
}

func (m *mockDatabase) Ping() error {
	return m.db.Ping()
}
