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

// AppointmentService handles pre-scheduled visits and the check-in bridge
// that materializes a queue entry from an appointment.
type AppointmentService struct {
	appointmentRepo *database.AppointmentRepository
	entryRepo       *database.EntryRepository
	taskRepo        *database.TaskRepository
	queueRepo       *database.QueueRepository
	businessRepo    *database.BusinessRepository
	queues          *QueueService
	policy          *NotificationPolicy
	schedule        config.ScheduleConfig
	logger          *logrus.Logger

	now func() time.Time
}

// NewAppointmentService creates a new AppointmentService
func NewAppointmentService(
	appointmentRepo *database.AppointmentRepository,
	entryRepo *database.EntryRepository,
	taskRepo *database.TaskRepository,
	queueRepo *database.QueueRepository,
	businessRepo *database.BusinessRepository,
	queues *QueueService,
	policy *NotificationPolicy,
	schedule config.ScheduleConfig,
	logger *logrus.Logger,
) *AppointmentService {
	return &AppointmentService{
		appointmentRepo: appointmentRepo,
		entryRepo:       entryRepo,
		taskRepo:        taskRepo,
		queueRepo:       queueRepo,
		businessRepo:    businessRepo,
		queues:          queues,
		policy:          policy,
		schedule:        schedule,
		logger:          logger,
		now:             timeutil.NowIST,
	}
}

// BookInput contains the data needed to book an appointment
type BookInput struct {
	BusinessID      uuid.UUID   `json:"business_id"`
	CustomerID      *uuid.UUID  `json:"customer_id,omitempty"`
	GuestName       *string     `json:"guest_name,omitempty"`
	Phone           *string     `json:"phone,omitempty"`
	ProviderID      *uuid.UUID  `json:"provider_id,omitempty"`
	AppointmentDate string      `json:"appointment_date"` // YYYY-MM-DD
	StartTime       string      `json:"start_time"`       // "HH:mm"
	ServiceIDs      []uuid.UUID `json:"service_ids"`
}

// Book creates an appointment after the same closing-time admission check
// used at queue join, with a fresh slot's wait-ahead of zero.
func (s *AppointmentService) Book(input *BookInput) (*models.Appointment, error) {
	if input.CustomerID == nil && (input.GuestName == nil || *input.GuestName == "") {
		return nil, ErrValidation
	}
	if len(input.ServiceIDs) == 0 || input.AppointmentDate == "" {
		return nil, ErrValidation
	}
	startMins, err := timeutil.ParseClock(input.StartTime)
	if err != nil {
		return nil, ErrValidation
	}

	business, err := s.businessRepo.GetByID(input.BusinessID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if business.IsClosed && input.AppointmentDate == timeutil.BusinessDay(s.now()) {
		return nil, ErrBusinessClosed
	}

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

	// A fresh slot has no queue ahead of it, so wait-ahead is zero
	admission := timeutil.CanFinishBeforeClose(business.CloseTime, startMins, 0, totalDuration, s.schedule.ClosingBufferMinutes)
	if !admission.CanJoin {
		return nil, ErrFullyBooked
	}

	appointment := &models.Appointment{
		ID:              uuid.New(),
		BusinessID:      business.ID,
		CustomerID:      input.CustomerID,
		GuestName:       input.GuestName,
		Phone:           input.Phone,
		ProviderID:      input.ProviderID,
		Status:          models.AppointmentStatusScheduled,
		AppointmentDate: input.AppointmentDate,
		StartTime:       input.StartTime,
		EndTime:         timeutil.FormatMinutes(startMins + totalDuration),
		DurationMinutes: totalDuration,
		TotalPrice:      totalPrice,
		PaymentStatus:   "unpaid",
	}
	if err := s.appointmentRepo.Create(appointment, services); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"appointment_id": appointment.ID,
		"business_id":    business.ID,
		"date":           appointment.AppointmentDate,
		"start":          appointment.StartTime,
	}).Info("Appointment booked")

	return appointment, nil
}

// GetByID returns one appointment with its services
func (s *AppointmentService) GetByID(id uuid.UUID) (*models.Appointment, error) {
	appointment, err := s.appointmentRepo.GetByID(id)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return appointment, nil
}

// ListForDay returns a business's appointments for one day
func (s *AppointmentService) ListForDay(businessID uuid.UUID, day string) ([]models.Appointment, error) {
	return s.appointmentRepo.ListForDay(businessID, day)
}

// UpdateStatus drives the appointment state machine. Terminal states freeze
// the record; checked_in materializes a queue entry at most once.
func (s *AppointmentService) UpdateStatus(id uuid.UUID, target models.AppointmentStatus) (*models.Appointment, error) {
	if !target.IsValid() {
		return nil, ErrValidation
	}

	appointment, err := s.appointmentRepo.GetByID(id)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if appointment.Status.IsTerminal() {
		return nil, ErrTerminalState
	}
	if !appointment.Status.CanTransition(target) {
		return nil, ErrInvalidTransition
	}

	if target == models.AppointmentStatusCheckedIn {
		if err := s.checkIn(appointment); err != nil {
			return nil, err
		}
	}

	if err := s.appointmentRepo.UpdateStatus(id, target, s.now()); err != nil {
		return nil, err
	}

	// Terminal changes on the appointment close the linked entry too. The
	// appointment row is already stamped, so the entry-side mirror sees a
	// terminal appointment and stays quiet.
	if target.IsTerminal() && appointment.QueueEntryID != nil {
		s.closeLinkedEntry(*appointment.QueueEntryID, target)
	}

	return s.appointmentRepo.GetByID(id)
}

// closeLinkedEntry drives the materialized queue entry to the state matching
// a terminal appointment transition. Best effort: the appointment change has
// already committed, so failures here only log.
func (s *AppointmentService) closeLinkedEntry(entryID uuid.UUID, target models.AppointmentStatus) {
	entry, err := s.entryRepo.GetByID(entryID)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load linked entry for close")
		return
	}
	if entry.Status.IsTerminal() {
		return
	}

	switch target {
	case models.AppointmentStatusCompleted:
		_, err = s.queues.complete(entry)
	case models.AppointmentStatusNoShow:
		_, err = s.queues.close(entry, models.EntryStatusNoShow)
	default:
		_, err = s.queues.close(entry, models.EntryStatusCancelled)
	}
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"entry_id": entryID,
			"status":   target,
			"error":    err.Error(),
		}).Warn("Failed to close linked entry")
	}
}

// checkIn materializes the appointment into today's queue with an "A-"
// ticket. LinkQueueEntry's conditional update guarantees at most one entry
// per appointment even under concurrent check-ins.
func (s *AppointmentService) checkIn(appointment *models.Appointment) error {
	if appointment.QueueEntryID != nil {
		return ErrAlreadyCheckedIn
	}

	queues, err := s.queueRepo.ListByBusiness(appointment.BusinessID)
	if err != nil {
		return err
	}
	if len(queues) == 0 {
		return ErrNotFound
	}
	queue := queues[0]

	name := ""
	if appointment.GuestName != nil {
		name = *appointment.GuestName
	}
	now := s.now()
	entry := &models.QueueEntry{
		ID:                   uuid.New(),
		QueueID:              queue.ID,
		CustomerID:           appointment.CustomerID,
		CustomerName:         name,
		Phone:                appointment.Phone,
		EntryDate:            timeutil.BusinessDay(now),
		StatusToken:          uuid.New(),
		EntrySource:          models.EntrySourceOnline,
		TotalDurationMinutes: appointment.DurationMinutes,
		TotalPrice:           appointment.TotalPrice,
		AppointmentID:        &appointment.ID,
		AssignedProviderID:   appointment.ProviderID,
	}
	if err := s.entryRepo.InsertWithNextPosition(entry, "A-"); err != nil {
		return err
	}

	if err := s.appointmentRepo.LinkQueueEntry(appointment.ID, entry.ID); err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			return err
		}
		// Another check-in won the race; this entry must not survive
		s.logger.WithFields(logrus.Fields{
			"appointment_id": appointment.ID,
			"entry_id":       entry.ID,
		}).Warn("Appointment already linked to a queue entry")
		if err := s.entryRepo.UpdateStatus(entry.ID, models.EntryStatusCancelled); err != nil {
			s.logger.WithError(err).Warn("Failed to cancel duplicate check-in entry")
		}
		return ErrAlreadyCheckedIn
	}

	services := make([]models.Service, 0, len(appointment.Services))
	for _, snap := range appointment.Services {
		services = append(services, models.Service{
			ID:              snap.ServiceID,
			Name:            snap.ServiceName,
			Price:           snap.Price,
			DurationMinutes: snap.DurationMinutes,
		})
	}
	if err := s.taskRepo.InsertForEntry(entry.ID, services); err != nil {
		return err
	}

	if appointment.ProviderID != nil {
		if err := s.entryRepo.AssignProvider(entry.ID, appointment.ProviderID); err != nil {
			s.logger.WithError(err).Warn("Failed to pre-assign provider on check-in")
		}
	}

	s.policy.Refresh(queue.ID, entry.EntryDate)

	s.logger.WithFields(logrus.Fields{
		"appointment_id": appointment.ID,
		"entry_id":       entry.ID,
		"ticket":         entry.TicketNumber,
	}).Info("Appointment checked in")

	return nil
}

// MirrorEntryStatus projects a queue-entry state change onto the originating
// appointment. The projection is idempotent and best effort: disallowed or
// redundant transitions are skipped silently, and failures only log.
func (s *AppointmentService) MirrorEntryStatus(appointmentID uuid.UUID, status models.AppointmentStatus) {
	appointment, err := s.appointmentRepo.GetByID(appointmentID)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load appointment for mirror")
		return
	}
	if appointment.Status == status || appointment.Status.IsTerminal() {
		return
	}
	if !appointment.Status.CanTransition(status) {
		return
	}
	if err := s.appointmentRepo.UpdateStatus(appointmentID, status, s.now()); err != nil {
		s.logger.WithFields(logrus.Fields{
			"appointment_id": appointmentID,
			"status":         status,
			"error":          err.Error(),
		}).Warn("Failed to mirror entry status onto appointment")
	}
}
