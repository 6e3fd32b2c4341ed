package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimStart(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewTaskRepository(mockDB)

	taskID, providerID := uuid.New(), uuid.New()
	day := "2026-08-31"
	now := time.Now()
	end := now.Add(30 * time.Minute)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE queue_entry_services`).
			WithArgs(taskID, providerID, day, now, end).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.ClaimStart(taskID, providerID, day, now, end)
		assert.NoError(t, err)
	})

	t.Run("Provider already busy", func(t *testing.T) {
		// Zero affected rows means the conditional update lost: either the
		// task left pending or the provider holds another in_progress task
		// for the same business day.
		mock.ExpectExec(`UPDATE queue_entry_services`).
			WithArgs(taskID, providerID, day, now, end).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.ClaimStart(taskID, providerID, day, now, end)
		assert.ErrorIs(t, err, ErrProviderLocked)
	})

	t.Run("Busy check is scoped to the business day", func(t *testing.T) {
		mock.ExpectExec(`entry_date`).
			WithArgs(taskID, providerID, day, now, end).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.ClaimStart(taskID, providerID, day, now, end)
		assert.NoError(t, err)
	})
}

func TestMarkDone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewTaskRepository(mockDB)
	taskID := uuid.New()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE queue_entry_services`).
			WithArgs(taskID, now, 35, 5).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.MarkDone(taskID, now, 35, 5)
		assert.NoError(t, err)
	})

	t.Run("Already done is rejected", func(t *testing.T) {
		mock.ExpectExec(`UPDATE queue_entry_services`).
			WithArgs(taskID, now, 35, 5).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.MarkDone(taskID, now, 35, 5)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestInsertForEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewTaskRepository(mockDB)
	entryID := uuid.New()

	services := []models.Service{
		{ID: uuid.New(), Name: "Haircut", Price: 800, DurationMinutes: 30},
		{ID: uuid.New(), Name: "Beard Trim", Price: 400, DurationMinutes: 15},
	}

	// Second insert matches zero rows: the row already exists from an earlier
	// attempt and must not be duplicated.
	mock.ExpectExec(`INSERT INTO queue_entry_services`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO queue_entry_services`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.InsertForEntry(entryID, services)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
