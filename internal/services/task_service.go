package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/database"
	"github.com/salonflow/queue-backend/internal/models"
	"github.com/salonflow/queue-backend/pkg/timeutil"
	"github.com/sirupsen/logrus"
)

// TaskService drives the per-service task state machine inside an entry.
// Task starts and completions are the events that move providers' schedules,
// so both feed the delay propagation engine.
type TaskService struct {
	taskRepo  *database.TaskRepository
	entryRepo *database.EntryRepository
	queueRepo *database.QueueRepository
	matcher   *MatcherService
	policy    *NotificationPolicy
	delays    *DelayService
	queues    *QueueService
	logger    *logrus.Logger

	now func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo *database.TaskRepository,
	entryRepo *database.EntryRepository,
	queueRepo *database.QueueRepository,
	matcher *MatcherService,
	policy *NotificationPolicy,
	delays *DelayService,
	queues *QueueService,
	logger *logrus.Logger,
) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		entryRepo: entryRepo,
		queueRepo: queueRepo,
		matcher:   matcher,
		policy:    policy,
		delays:    delays,
		queues:    queues,
		logger:    logger,
		now:       timeutil.NowIST,
	}
}

// Assign binds a provider to a task, auto-selecting when providerID is nil.
// Allowed any time before the task is done.
func (s *TaskService) Assign(taskID uuid.UUID, providerID *uuid.UUID) (*models.Task, error) {
	task, err := s.taskRepo.GetByID(taskID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if task.TaskStatus == models.TaskStatusDone {
		return nil, ErrTerminalState
	}

	entry, err := s.entryRepo.GetByID(task.EntryID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	queue, err := s.queueRepo.GetByID(entry.QueueID)
	if err != nil {
		return nil, translateNotFound(err)
	}

	var provider *models.ServiceProvider
	if providerID != nil {
		provider, err = s.matcher.providerRepo.GetByID(*providerID)
		if err != nil {
			return nil, translateNotFound(err)
		}
		if err := s.matcher.CheckAvailability(provider, []uuid.UUID{task.ServiceID}); err != nil {
			return nil, err
		}
	} else {
		provider, err = s.matcher.Select(queue.BusinessID, []uuid.UUID{task.ServiceID})
		if err != nil {
			return nil, err
		}
	}

	if err := s.taskRepo.AssignProvider(task.ID, &provider.ID); err != nil {
		return nil, err
	}
	return s.taskRepo.GetByID(task.ID)
}

// Start moves a task from pending to in_progress. The conditional update in
// the repository enforces the one-task-per-provider lock; losing that race
// surfaces as a provider-busy conflict. The first task to start also drives
// the parent entry to serving.
func (s *TaskService) Start(taskID uuid.UUID) (*models.Task, error) {
	task, err := s.taskRepo.GetByID(taskID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if task.TaskStatus != models.TaskStatusPending {
		return nil, ErrInvalidTransition
	}
	if task.AssignedProviderID == nil {
		return nil, ErrValidation
	}

	entry, err := s.entryRepo.GetByID(task.EntryID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if entry.Status.IsTerminal() {
		return nil, ErrTerminalState
	}

	firstStart, err := s.taskRepo.AnyStarted(entry.ID)
	if err != nil {
		return nil, err
	}
	firstStart = !firstStart

	now := s.now()
	estimatedEnd := now.Add(time.Duration(task.DurationMinutes) * time.Minute)

	if err := s.taskRepo.ClaimStart(task.ID, *task.AssignedProviderID, entry.EntryDate, now, estimatedEnd); err != nil {
		if err == database.ErrProviderLocked {
			return nil, ErrProviderBusy
		}
		return nil, err
	}

	if err := s.entryRepo.SetServiceStarted(entry.ID, now); err != nil {
		s.logger.WithError(err).Warn("Failed to stamp service start on entry")
	}

	// First task to start pulls the whole entry into serving
	if firstStart && entry.Status != models.EntryStatusServing {
		entryEnd := now.Add(time.Duration(entry.TotalDurationMinutes) * time.Minute)
		if err := s.entryRepo.MarkServing(entry.ID, *task.AssignedProviderID, now, entryEnd); err != nil {
			s.logger.WithError(err).Warn("Failed to move entry to serving")
		} else {
			s.policy.NotifyServing(entry)
			s.policy.Refresh(entry.QueueID, entry.EntryDate)
			s.queues.mirrorStatus(entry, models.AppointmentStatusInService)
		}
	}

	// The provider's free-at estimate just moved
	s.delays.Recompute(*task.AssignedProviderID, estimatedEnd)

	s.logger.WithFields(logrus.Fields{
		"task_id":     task.ID,
		"entry_id":    entry.ID,
		"provider_id": *task.AssignedProviderID,
	}).Info("Task started")

	return s.taskRepo.GetByID(task.ID)
}

// Complete moves a task from in_progress to done. When it was the entry's
// last unfinished task, the parent entry auto-completes.
func (s *TaskService) Complete(taskID uuid.UUID) (*models.Task, error) {
	task, err := s.taskRepo.GetByID(taskID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if task.TaskStatus == models.TaskStatusDone {
		return nil, ErrInvalidTransition
	}
	if task.TaskStatus != models.TaskStatusInProgress || task.StartedAt == nil {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	actual := int(now.Sub(*task.StartedAt) / time.Minute)
	delay := 0
	if actual > task.DurationMinutes {
		delay = actual - task.DurationMinutes
	}

	if err := s.taskRepo.MarkDone(task.ID, now, actual, delay); err != nil {
		return nil, err
	}

	// Last task done finishes the whole entry
	unfinished, err := s.taskRepo.CountUnfinished(task.EntryID)
	if err != nil {
		return nil, err
	}
	if unfinished == 0 {
		entry, err := s.entryRepo.GetByID(task.EntryID)
		if err == nil && entry.Status == models.EntryStatusServing {
			if _, err := s.queues.complete(entry); err != nil {
				s.logger.WithFields(logrus.Fields{
					"entry_id": entry.ID,
					"error":    err.Error(),
				}).Warn("Failed to auto-complete entry")
			}
		}
	}

	// The provider is free from this task as of now
	if task.AssignedProviderID != nil {
		s.delays.Recompute(*task.AssignedProviderID, now)
	}

	s.logger.WithFields(logrus.Fields{
		"task_id":        task.ID,
		"actual_minutes": actual,
		"delay_minutes":  delay,
	}).Info("Task completed")

	return s.taskRepo.GetByID(task.ID)
}

// ListByEntry returns the tasks of one entry.
func (s *TaskService) ListByEntry(entryID uuid.UUID) ([]models.Task, error) {
	if _, err := s.entryRepo.GetByID(entryID); err != nil {
		return nil, translateNotFound(err)
	}
	return s.taskRepo.ListByEntry(entryID)
}
