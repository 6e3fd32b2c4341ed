package services

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/config"
	"github.com/salonflow/queue-backend/internal/database"
	"github.com/salonflow/queue-backend/internal/models"
	"github.com/salonflow/queue-backend/pkg/notify"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entryTestColumns = []string{
	"id", "queue_id", "customer_id", "customer_name", "phone", "status", "position",
	"ticket_number", "entry_date", "status_token", "entry_source", "total_duration_minutes",
	"total_price", "assigned_provider_id", "appointment_id", "joined_at", "served_at",
	"service_started_at", "completed_at", "estimated_end_at", "actual_duration_minutes",
	"delay_minutes", "notified_join", "notified_top3", "notified_next", "notified_no_show",
}

func entryRow(id, queueID uuid.UUID, status string, position int, ticket string) []driver.Value {
	return []driver.Value{
		id.String(), queueID.String(), nil, "Asha", nil, status, position,
		ticket, "2026-08-31", uuid.New().String(), "walk-in", 30,
		800.0, nil, nil, time.Now(), nil,
		nil, nil, nil, nil,
		0, false, false, false, false,
	}
}

func newTestQueueService(t *testing.T) (*QueueService, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	mockDB := &serviceMockDatabase{db: db}
	entryRepo := database.NewEntryRepository(mockDB)
	queueRepo := database.NewQueueRepository(mockDB)
	taskRepo := database.NewTaskRepository(mockDB)
	businessRepo := database.NewBusinessRepository(mockDB)
	providerRepo := database.NewProviderRepository(mockDB)

	dispatcher := notify.NewDispatcher(notify.NewConsoleGateway(logger), logger, 8)
	matcher := NewMatcherService(providerRepo, logger)
	policy := NewNotificationPolicy(entryRepo, dispatcher, logger)

	svc := NewQueueService(queueRepo, entryRepo, taskRepo, businessRepo, matcher, policy,
		config.ScheduleConfig{ClosingBufferMinutes: 10, DelayThresholdMins: 10}, logger)

	cleanup := func() {
		dispatcher.Close()
		db.Close()
	}
	return svc, mock, cleanup
}

func TestSkip(t *testing.T) {
	svc, mock, cleanup := newTestQueueService(t)
	defer cleanup()

	queueID := uuid.New()
	first := uuid.New()
	second := uuid.New()

	t.Run("Swaps with the next waiting entry", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM queue_entries WHERE id`).
			WithArgs(first).
			WillReturnRows(sqlmock.NewRows(entryTestColumns).
				AddRow(entryRow(first, queueID, "waiting", 1, "Q-1")...))

		mock.ExpectQuery(`SELECT .+ FROM queue_entries`).
			WillReturnRows(sqlmock.NewRows(entryTestColumns).
				AddRow(entryRow(second, queueID, "waiting", 2, "Q-2")...))

		mock.ExpectExec(`UPDATE queue_entries`).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`UPDATE queue_entries SET status`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		// Policy refresh reads an empty waiting list
		mock.ExpectQuery(`SELECT .+ FROM queue_entries`).
			WillReturnRows(sqlmock.NewRows(entryTestColumns))

		err := svc.Skip(first)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Only waiting entries may be skipped", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM queue_entries WHERE id`).
			WithArgs(first).
			WillReturnRows(sqlmock.NewRows(entryTestColumns).
				AddRow(entryRow(first, queueID, "serving", 1, "Q-1")...))

		err := svc.Skip(first)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("Last in line is skipped without a swap", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM queue_entries WHERE id`).
			WithArgs(first).
			WillReturnRows(sqlmock.NewRows(entryTestColumns).
				AddRow(entryRow(first, queueID, "waiting", 3, "Q-3")...))

		mock.ExpectQuery(`SELECT .+ FROM queue_entries`).
			WillReturnError(sql.ErrNoRows)

		mock.ExpectExec(`UPDATE queue_entries SET status`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery(`SELECT .+ FROM queue_entries`).
			WillReturnRows(sqlmock.NewRows(entryTestColumns))

		err := svc.Skip(first)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransitionGuards(t *testing.T) {
	svc, mock, cleanup := newTestQueueService(t)
	defer cleanup()

	queueID := uuid.New()
	entryID := uuid.New()

	t.Run("Terminal entry is frozen", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM queue_entries WHERE id`).
			WithArgs(entryID).
			WillReturnRows(sqlmock.NewRows(entryTestColumns).
				AddRow(entryRow(entryID, queueID, "completed", 1, "Q-1")...))

		_, err := svc.Transition(entryID, models.EntryStatusCancelled, nil)
		assert.ErrorIs(t, err, ErrTerminalState)
	})

	t.Run("Disallowed transition is rejected", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM queue_entries WHERE id`).
			WithArgs(entryID).
			WillReturnRows(sqlmock.NewRows(entryTestColumns).
				AddRow(entryRow(entryID, queueID, "waiting", 1, "Q-1")...))

		_, err := svc.Transition(entryID, models.EntryStatusCompleted, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("Unknown status is a validation error", func(t *testing.T) {
		_, err := svc.Transition(entryID, models.EntryStatus("vanished"), nil)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Unknown entry", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM queue_entries WHERE id`).
			WithArgs(entryID).
			WillReturnError(sql.ErrNoRows)

		_, err := svc.Transition(entryID, models.EntryStatusServing, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

type serviceMockDatabase struct {
	db *sql.DB
}

func (m *serviceMockDatabase) Get(dest interface{}, query string, args ...interface{}) error {
	return fmt.Errorf("Get not implemented in mock")
}

func (m *serviceMockDatabase) Select(dest interface{}, query string, args ...interface{}) error {
	return fmt.Errorf("Select not implemented in mock")
}

func (m *serviceMockDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return m.db.Query(query, args...)
}

func (m *serviceMockDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return m.db.QueryRow(query, args...)
}

func (m *serviceMockDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return m.db.Exec(query, args...)
}

func (m *serviceMockDatabase) Close() error {
	return m.db.Close()
}

func (m *serviceMockDatabase) Ping() error {
	return m.db.Ping()
}
