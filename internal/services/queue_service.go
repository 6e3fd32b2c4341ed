package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/config"
	"github.com/salonflow/queue-backend/internal/database"
	"github.com/salonflow/queue-backend/internal/models"
	"github.com/salonflow/queue-backend/pkg/timeutil"
	"github.com/sirupsen/logrus"
)

// appointmentMirror pushes an entry's state change into its originating
// appointment. Implemented by AppointmentService; wired after construction
// because the two services reference each other.
type appointmentMirror interface {
	MirrorEntryStatus(appointmentID uuid.UUID, status models.AppointmentStatus)
}

// QueueService handles the walk-in queue lifecycle: joining, serving,
// skipping and the daily reset.
type QueueService struct {
	queueRepo    *database.QueueRepository
	entryRepo    *database.EntryRepository
	taskRepo     *database.TaskRepository
	businessRepo *database.BusinessRepository
	matcher      *MatcherService
	policy       *NotificationPolicy
	mirror       appointmentMirror
	schedule     config.ScheduleConfig
	logger       *logrus.Logger

	// now is swappable in tests
	now func() time.Time
}

// NewQueueService creates a new QueueService
func NewQueueService(
	queueRepo *database.QueueRepository,
	entryRepo *database.EntryRepository,
	taskRepo *database.TaskRepository,
	businessRepo *database.BusinessRepository,
	matcher *MatcherService,
	policy *NotificationPolicy,
	schedule config.ScheduleConfig,
	logger *logrus.Logger,
) *QueueService {
	return &QueueService{
		queueRepo:    queueRepo,
		entryRepo:    entryRepo,
		taskRepo:     taskRepo,
		businessRepo: businessRepo,
		matcher:      matcher,
		policy:       policy,
		schedule:     schedule,
		logger:       logger,
		now:          timeutil.NowIST,
	}
}

// SetAppointmentMirror wires the appointment-side mirror after construction.
func (s *QueueService) SetAppointmentMirror(m appointmentMirror) {
	s.mirror = m
}

// JoinInput contains the data needed to join a queue
type JoinInput struct {
	QueueID      uuid.UUID          `json:"queue_id"`
	CustomerID   *uuid.UUID         `json:"customer_id,omitempty"`
	CustomerName string             `json:"customer_name"`
	Phone        *string            `json:"phone,omitempty"`
	ServiceIDs   []uuid.UUID        `json:"service_ids"`
	Source       models.EntrySource `json:"entry_source"`
}

// JoinResult contains the created entry and its wait estimate
type JoinResult struct {
	Entry                *models.QueueEntry `json:"entry"`
	EstimatedWaitMinutes int                `json:"estimated_wait_minutes"`
}

// Join admits a customer into a queue: checks opening hours and closing-time
// feasibility, allocates the next position and ticket, snapshots the chosen
// services into task rows and fires the join notification.
func (s *QueueService) Join(input *JoinInput) (*JoinResult, error) {
	if input.CustomerName == "" && input.CustomerID == nil {
		return nil, ErrValidation
	}
	if len(input.ServiceIDs) == 0 {
		return nil, ErrValidation
	}

	// 1. The queue itself must be accepting entries
	queue, err := s.queueRepo.GetByID(input.QueueID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if queue.Status != models.QueueStatusOpen {
		return nil, ErrQueueNotOpen
	}

	// 2. Opening-hours check, manual closed flag first
	business, err := s.businessRepo.GetByID(queue.BusinessID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	now := s.now()
	if check := timeutil.IsOpen(business.OpenTime, business.CloseTime, business.IsClosed, now); !check.Open {
		if business.IsClosed {
			return nil, ErrBusinessClosed
		}
		return nil, &HoursError{Message: check.Message}
	}

	// 3. Resolve and snapshot the requested services
	services, err := s.businessRepo.GetServicesByIDs(business.ID, input.ServiceIDs)
	if err != nil {
		return nil, err
	}
	if len(services) != len(input.ServiceIDs) {
		return nil, ErrValidation
	}
	totalDuration := 0
	totalPrice := 0.0
	for _, svc := range services {
		totalDuration += svc.DurationMinutes
		totalPrice += svc.Price
	}

	// 4. Closing-time admission control
	day := timeutil.BusinessDay(now)
	waitAhead, err := s.entryRepo.SumRemainingDurations(queue.ID, day)
	if err != nil {
		return nil, err
	}
	admission := timeutil.CanFinishBeforeClose(business.CloseTime, timeutil.MinutesOfDay(now),
		waitAhead, totalDuration, s.schedule.ClosingBufferMinutes)
	if !admission.CanJoin {
		return nil, ErrFullyBooked
	}

	// 5. Allocate position and ticket atomically
	source := input.Source
	if source == "" {
		source = models.EntrySourceWalkIn
	}
	entry := &models.QueueEntry{
		ID:                   uuid.New(),
		QueueID:              queue.ID,
		CustomerID:           input.CustomerID,
		CustomerName:         input.CustomerName,
		Phone:                input.Phone,
		EntryDate:            day,
		StatusToken:          uuid.New(),
		EntrySource:          source,
		TotalDurationMinutes: totalDuration,
		TotalPrice:           totalPrice,
	}
	if err := s.entryRepo.InsertWithNextPosition(entry, "Q-"); err != nil {
		return nil, err
	}

	// 6. Task rows, idempotent if a retry re-runs this step
	if err := s.taskRepo.InsertForEntry(entry.ID, services); err != nil {
		s.logger.WithFields(logrus.Fields{
			"entry_id": entry.ID,
			"error":    err.Error(),
		}).Error("Failed to create task rows for entry")
		return nil, err
	}

	s.refreshWaitTime(queue.ID, day)
	s.policy.NotifyJoined(entry, waitAhead)
	s.policy.Refresh(queue.ID, day)

	s.logger.WithFields(logrus.Fields{
		"queue_id": queue.ID,
		"entry_id": entry.ID,
		"ticket":   entry.TicketNumber,
		"position": entry.Position,
	}).Info("Customer joined queue")

	return &JoinResult{Entry: entry, EstimatedWaitMinutes: waitAhead}, nil
}

// Transition drives the entry state machine. Provider binding on serving is
// auto-selected when providerID is nil.
func (s *QueueService) Transition(entryID uuid.UUID, target models.EntryStatus, providerID *uuid.UUID) (*models.QueueEntry, error) {
	if !target.IsValid() {
		return nil, ErrValidation
	}

	entry, err := s.entryRepo.GetByID(entryID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if entry.Status.IsTerminal() {
		return nil, ErrTerminalState
	}
	if !entry.Status.CanTransition(target) {
		return nil, ErrInvalidTransition
	}

	switch target {
	case models.EntryStatusServing:
		return s.startServing(entry, providerID)
	case models.EntryStatusCompleted:
		return s.complete(entry)
	case models.EntryStatusCancelled, models.EntryStatusNoShow:
		return s.close(entry, target)
	case models.EntryStatusSkipped:
		if err := s.Skip(entry.ID); err != nil {
			return nil, err
		}
		return s.entryRepo.GetByID(entry.ID)
	default:
		return nil, ErrInvalidTransition
	}
}

// startServing binds a provider and calls the entry to the chair.
func (s *QueueService) startServing(entry *models.QueueEntry, providerID *uuid.UUID) (*models.QueueEntry, error) {
	now := s.now()

	// Serving is only valid for today's ticket
	if entry.EntryDate != timeutil.BusinessDay(now) {
		return nil, ErrValidation
	}

	queue, err := s.queueRepo.GetByID(entry.QueueID)
	if err != nil {
		return nil, translateNotFound(err)
	}

	tasks, err := s.taskRepo.ListByEntry(entry.ID)
	if err != nil {
		return nil, err
	}
	serviceIDs := make([]uuid.UUID, 0, len(tasks))
	for _, t := range tasks {
		serviceIDs = append(serviceIDs, t.ServiceID)
	}

	// Provider lock check happens before any timestamp writes
	var provider *models.ServiceProvider
	if providerID != nil {
		provider, err = s.matcher.providerRepo.GetByID(*providerID)
		if err != nil {
			return nil, translateNotFound(err)
		}
		if err := s.matcher.CheckAvailability(provider, serviceIDs); err != nil {
			return nil, err
		}
	} else {
		provider, err = s.matcher.Select(queue.BusinessID, serviceIDs)
		if err != nil {
			return nil, err
		}
	}

	estimatedEnd := now.Add(time.Duration(entry.TotalDurationMinutes) * time.Minute)
	if err := s.entryRepo.MarkServing(entry.ID, provider.ID, now, estimatedEnd); err != nil {
		return nil, err
	}

	updated, err := s.entryRepo.GetByID(entry.ID)
	if err != nil {
		return nil, err
	}

	s.policy.NotifyServing(updated)
	s.policy.Refresh(entry.QueueID, entry.EntryDate)
	s.mirrorStatus(updated, models.AppointmentStatusInService)

	s.logger.WithFields(logrus.Fields{
		"entry_id":    entry.ID,
		"provider_id": provider.ID,
		"ticket":      entry.TicketNumber,
	}).Info("Entry moved to serving")

	return updated, nil
}

// complete finishes an entry that is mid-service.
func (s *QueueService) complete(entry *models.QueueEntry) (*models.QueueEntry, error) {
	// At least one task must have actually started
	if entry.ServiceStartedAt == nil {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	actual := int(now.Sub(*entry.ServiceStartedAt) / time.Minute)
	delay := 0
	if entry.EstimatedEndAt != nil && now.After(*entry.EstimatedEndAt) {
		delay = int(now.Sub(*entry.EstimatedEndAt) / time.Minute)
	}

	if err := s.entryRepo.MarkCompleted(entry.ID, now, actual, delay); err != nil {
		return nil, err
	}
	if err := s.entryRepo.ReleaseProvider(entry.ID); err != nil {
		s.logger.WithError(err).Warn("Failed to release provider on completion")
	}

	s.refreshWaitTime(entry.QueueID, entry.EntryDate)
	s.policy.Refresh(entry.QueueID, entry.EntryDate)
	s.mirrorStatus(entry, models.AppointmentStatusCompleted)

	return s.entryRepo.GetByID(entry.ID)
}

// close handles cancellation and no-show, releasing the provider lock.
func (s *QueueService) close(entry *models.QueueEntry, target models.EntryStatus) (*models.QueueEntry, error) {
	if err := s.entryRepo.UpdateStatus(entry.ID, target); err != nil {
		return nil, err
	}
	if err := s.entryRepo.ReleaseProvider(entry.ID); err != nil {
		s.logger.WithError(err).Warn("Failed to release provider")
	}

	if target == models.EntryStatusNoShow {
		s.policy.NotifyNoShow(entry)
		s.mirrorStatus(entry, models.AppointmentStatusNoShow)
	} else {
		s.mirrorStatus(entry, models.AppointmentStatusCancelled)
	}

	s.refreshWaitTime(entry.QueueID, entry.EntryDate)
	s.policy.Refresh(entry.QueueID, entry.EntryDate)

	return s.entryRepo.GetByID(entry.ID)
}

// Skip marks a waiting entry as skipped, swapping positions with the next
// waiting entry behind it when there is one.
func (s *QueueService) Skip(entryID uuid.UUID) error {
	entry, err := s.entryRepo.GetByID(entryID)
	if err != nil {
		return translateNotFound(err)
	}
	if entry.Status != models.EntryStatusWaiting {
		return ErrInvalidTransition
	}

	fields := logrus.Fields{"entry_id": entry.ID}

	// The last entry in line has nobody to swap with but still steps aside.
	next, err := s.entryRepo.NextWaitingAfter(entry.QueueID, entry.EntryDate, entry.Position)
	switch {
	case err == database.ErrNotFound:
	case err != nil:
		return err
	default:
		if err := s.entryRepo.SwapPositions(entry.ID, entry.Position, next.ID, next.Position); err != nil {
			return err
		}
		fields["swapped_with"] = next.ID
	}

	if err := s.entryRepo.UpdateStatus(entry.ID, models.EntryStatusSkipped); err != nil {
		return err
	}

	s.policy.Refresh(entry.QueueID, entry.EntryDate)
	s.logger.WithFields(fields).Info("Entry skipped")

	return nil
}

// MarkNoShow marks a non-terminal entry as a no-show.
func (s *QueueService) MarkNoShow(entryID uuid.UUID) (*models.QueueEntry, error) {
	entry, err := s.entryRepo.GetByID(entryID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if entry.Status.IsTerminal() {
		return nil, ErrTerminalState
	}
	return s.close(entry, models.EntryStatusNoShow)
}

// ResetDay wipes all entries of a queue for one calendar day.
func (s *QueueService) ResetDay(queueID uuid.UUID, day string) (int64, error) {
	if _, err := s.queueRepo.GetByID(queueID); err != nil {
		return 0, translateNotFound(err)
	}
	deleted, err := s.entryRepo.DeleteForDay(queueID, day)
	if err != nil {
		return 0, err
	}
	s.refreshWaitTime(queueID, day)
	s.logger.WithFields(logrus.Fields{
		"queue_id": queueID,
		"day":      day,
		"deleted":  deleted,
	}).Info("Queue reset for day")
	return deleted, nil
}

// PublicStatusResult is the unauthenticated view of one entry's progress
type PublicStatusResult struct {
	Status               models.EntryStatus `json:"status"`
	TicketNumber         string             `json:"ticket_number"`
	PositionAhead        int                `json:"position_ahead"`
	CurrentServingTicket string             `json:"current_serving_ticket"`
	EstimatedWaitMinutes int                `json:"estimated_wait_minutes"`
}

// PublicStatus resolves a status token to the guest-facing queue view.
func (s *QueueService) PublicStatus(token uuid.UUID) (*PublicStatusResult, error) {
	entry, err := s.entryRepo.GetByToken(token)
	if err != nil {
		return nil, translateNotFound(err)
	}

	result := &PublicStatusResult{
		Status:       entry.Status,
		TicketNumber: entry.TicketNumber,
	}

	serving, err := s.entryRepo.CurrentServingTicket(entry.QueueID, entry.EntryDate)
	if err != nil {
		return nil, err
	}
	result.CurrentServingTicket = serving

	if entry.Status == models.EntryStatusWaiting || entry.Status == models.EntryStatusSkipped {
		ahead, err := s.entryRepo.CountWaitingAhead(entry.QueueID, entry.EntryDate, entry.Position)
		if err != nil {
			return nil, err
		}
		result.PositionAhead = ahead

		waiting, err := s.entryRepo.ListForDay(entry.QueueID, entry.EntryDate,
			models.EntryStatusWaiting, models.EntryStatusServing, models.EntryStatusSkipped)
		if err != nil {
			return nil, err
		}
		wait := 0
		for i := range waiting {
			if waiting[i].Position < entry.Position {
				wait += waiting[i].TotalDurationMinutes
			}
		}
		result.EstimatedWaitMinutes = wait
	}

	return result, nil
}

// ListForDay returns the owner's view of a queue for one day.
func (s *QueueService) ListForDay(queueID uuid.UUID, day string, statuses ...models.EntryStatus) ([]models.QueueEntry, error) {
	if len(statuses) == 0 {
		statuses = []models.EntryStatus{
			models.EntryStatusWaiting, models.EntryStatusServing, models.EntryStatusSkipped,
			models.EntryStatusCompleted, models.EntryStatusCancelled, models.EntryStatusNoShow,
		}
	}
	return s.entryRepo.ListForDay(queueID, day, statuses...)
}

// refreshWaitTime recalculates the queue's cached wait estimate. Failures are
// logged only; the cache is advisory.
func (s *QueueService) refreshWaitTime(queueID uuid.UUID, day string) {
	total, err := s.entryRepo.SumRemainingDurations(queueID, day)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to recompute queue wait time")
		return
	}
	if err := s.queueRepo.UpdateWaitTime(queueID, total); err != nil {
		s.logger.WithError(err).Warn("Failed to store queue wait time")
	}
}

// mirrorStatus pushes the entry's state into its originating appointment.
// Mirror failures never fail the entry-side request.
func (s *QueueService) mirrorStatus(entry *models.QueueEntry, status models.AppointmentStatus) {
	if s.mirror == nil || entry.AppointmentID == nil {
		return
	}
	s.mirror.MirrorEntryStatus(*entry.AppointmentID, status)
}

// translateNotFound maps the repository sentinel onto the service taxonomy.
func translateNotFound(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
