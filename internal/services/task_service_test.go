package services

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/config"
	"github.com/salonflow/queue-backend/internal/database"
	"github.com/salonflow/queue-backend/internal/models"
	"github.com/salonflow/queue-backend/pkg/notify"
	"github.com/salonflow/queue-backend/pkg/timeutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskTestColumns = []string{
	"id", "entry_id", "service_id", "service_name", "price", "duration_minutes",
	"task_status", "assigned_provider_id", "started_at", "completed_at", "estimated_end_at",
	"actual_minutes", "delay_minutes",
}

func taskRow(id, entryID uuid.UUID, status string, providerID *uuid.UUID, startedAt *time.Time) []driver.Value {
	var provider, started driver.Value
	if providerID != nil {
		provider = providerID.String()
	}
	if startedAt != nil {
		started = *startedAt
	}
	return []driver.Value{
		id.String(), entryID.String(), uuid.New().String(), "Haircut", 800.0, 30,
		status, provider, started, nil, nil,
		nil, 0,
	}
}

// mirrorRecorder captures the appointment-side projections an entry change
// would trigger.
type mirrorRecorder struct {
	statuses []models.AppointmentStatus
}

func (m *mirrorRecorder) MirrorEntryStatus(appointmentID uuid.UUID, status models.AppointmentStatus) {
	m.statuses = append(m.statuses, status)
}

func newTestTaskService(t *testing.T) (*TaskService, sqlmock.Sqlmock, *mirrorRecorder, func()) {
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
	appointmentRepo := database.NewAppointmentRepository(mockDB)

	dispatcher := notify.NewDispatcher(notify.NewConsoleGateway(logger), logger, 8)
	matcher := NewMatcherService(providerRepo, logger)
	policy := NewNotificationPolicy(entryRepo, dispatcher, logger)
	delays := NewDelayService(appointmentRepo, dispatcher, logger, 10)
	schedule := config.ScheduleConfig{ClosingBufferMinutes: 10, DelayThresholdMins: 10}

	queues := NewQueueService(queueRepo, entryRepo, taskRepo, businessRepo, matcher, policy, schedule, logger)
	mirror := &mirrorRecorder{}
	queues.SetAppointmentMirror(mirror)

	svc := NewTaskService(taskRepo, entryRepo, queueRepo, matcher, policy, delays, queues, logger)

	cleanup := func() {
		dispatcher.Close()
		db.Close()
	}
	return svc, mock, mirror, cleanup
}

func TestTaskStart(t *testing.T) {
	taskID := uuid.New()
	entryID := uuid.New()
	queueID := uuid.New()
	providerID := uuid.New()
	apptID := uuid.New()

	t.Run("Busy provider surfaces a conflict", func(t *testing.T) {
		svc, mock, _, cleanup := newTestTaskService(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT .+ FROM queue_entry_services WHERE id`).
			WithArgs(taskID).
			WillReturnRows(sqlmock.NewRows(taskTestColumns).
				AddRow(taskRow(taskID, entryID, "pending", &providerID, nil)...))

		mock.ExpectQuery(`SELECT .+ FROM queue_entries WHERE id`).
			WithArgs(entryID).
			WillReturnRows(sqlmock.NewRows(entryTestColumns).
				AddRow(entryRow(entryID, queueID, "serving", 1, "Q-1")...))

		// One task of the entry already left pending
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM queue_entry_services`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		// The conditional claim loses: the provider holds another task
		mock.ExpectExec(`task_status = 'in_progress'`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := svc.Start(taskID)
		assert.ErrorIs(t, err, ErrProviderBusy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("First start pulls the entry into serving and mirrors it", func(t *testing.T) {
		svc, mock, mirror, cleanup := newTestTaskService(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT .+ FROM queue_entry_services WHERE id`).
			WithArgs(taskID).
			WillReturnRows(sqlmock.NewRows(taskTestColumns).
				AddRow(taskRow(taskID, entryID, "pending", &providerID, nil)...))

		waiting := entryRow(entryID, queueID, "waiting", 1, "A-1")
		waiting[14] = apptID.String() // appointment_id
		mock.ExpectQuery(`SELECT .+ FROM queue_entries WHERE id`).
			WithArgs(entryID).
			WillReturnRows(sqlmock.NewRows(entryTestColumns).AddRow(waiting...))

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM queue_entry_services`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		mock.ExpectExec(`task_status = 'in_progress'`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE queue_entries SET service_started_at`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`SET status = 'serving'`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		// Notification refresh over the remaining waiting list
		mock.ExpectQuery(`SELECT .+ FROM queue_entries`).
			WillReturnRows(sqlmock.NewRows(entryTestColumns))

		// Delay recompute walks the provider's upcoming appointments
		mock.ExpectQuery(`SELECT .+ FROM appointments`).
			WillReturnRows(sqlmock.NewRows(appointmentTestColumns))

		startedAt := timeutil.NowIST()
		mock.ExpectQuery(`SELECT .+ FROM queue_entry_services WHERE id`).
			WillReturnRows(sqlmock.NewRows(taskTestColumns).
				AddRow(taskRow(taskID, entryID, "in_progress", &providerID, &startedAt)...))

		task, err := svc.Start(taskID)
		require.NoError(t, err)
		assert.Equal(t, models.TaskStatusInProgress, task.TaskStatus)
		assert.Equal(t, []models.AppointmentStatus{models.AppointmentStatusInService}, mirror.statuses)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unassigned task cannot start", func(t *testing.T) {
		svc, mock, _, cleanup := newTestTaskService(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT .+ FROM queue_entry_services WHERE id`).
			WithArgs(taskID).
			WillReturnRows(sqlmock.NewRows(taskTestColumns).
				AddRow(taskRow(taskID, entryID, "pending", nil, nil)...))

		_, err := svc.Start(taskID)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestTaskComplete(t *testing.T) {
	taskID := uuid.New()
	entryID := uuid.New()
	queueID := uuid.New()
	providerID := uuid.New()
	apptID := uuid.New()

	t.Run("Completing twice is rejected", func(t *testing.T) {
		svc, mock, _, cleanup := newTestTaskService(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT .+ FROM queue_entry_services WHERE id`).
			WithArgs(taskID).
			WillReturnRows(sqlmock.NewRows(taskTestColumns).
				AddRow(taskRow(taskID, entryID, "done", &providerID, nil)...))

		_, err := svc.Complete(taskID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("Last task done auto-completes the entry", func(t *testing.T) {
		svc, mock, mirror, cleanup := newTestTaskService(t)
		defer cleanup()

		startedAt := timeutil.NowIST().Add(-35 * time.Minute)
		mock.ExpectQuery(`SELECT .+ FROM queue_entry_services WHERE id`).
			WithArgs(taskID).
			WillReturnRows(sqlmock.NewRows(taskTestColumns).
				AddRow(taskRow(taskID, entryID, "in_progress", &providerID, &startedAt)...))

		mock.ExpectExec(`task_status = 'done'`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM queue_entry_services`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		serving := entryRow(entryID, queueID, "serving", 1, "A-1")
		serving[14] = apptID.String()  // appointment_id
		serving[17] = startedAt        // service_started_at
		mock.ExpectQuery(`SELECT .+ FROM queue_entries WHERE id`).
			WithArgs(entryID).
			WillReturnRows(sqlmock.NewRows(entryTestColumns).AddRow(serving...))

		mock.ExpectExec(`SET status = 'completed'`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE queue_entries SET assigned_provider_id = NULL`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE queue_entry_services SET assigned_provider_id`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(total_duration_minutes\), 0\)`).
			WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(0))
		mock.ExpectExec(`UPDATE queues SET current_wait_time_minutes`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT .+ FROM queue_entries`).
			WillReturnRows(sqlmock.NewRows(entryTestColumns))

		completed := entryRow(entryID, queueID, "completed", 1, "A-1")
		completed[17] = startedAt
		mock.ExpectQuery(`SELECT .+ FROM queue_entries WHERE id`).
			WillReturnRows(sqlmock.NewRows(entryTestColumns).AddRow(completed...))

		mock.ExpectQuery(`SELECT .+ FROM appointments`).
			WillReturnRows(sqlmock.NewRows(appointmentTestColumns))

		completedAt := timeutil.NowIST()
		mock.ExpectQuery(`SELECT .+ FROM queue_entry_services WHERE id`).
			WillReturnRows(sqlmock.NewRows(taskTestColumns).
				AddRow(taskRow(taskID, entryID, "done", &providerID, &completedAt)...))

		task, err := svc.Complete(taskID)
		require.NoError(t, err)
		assert.Equal(t, models.TaskStatusDone, task.TaskStatus)
		assert.Equal(t, []models.AppointmentStatus{models.AppointmentStatusCompleted}, mirror.statuses)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
