package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/database"
	"github.com/salonflow/queue-backend/internal/models"
	"github.com/salonflow/queue-backend/pkg/notify"
	"github.com/salonflow/queue-backend/pkg/timeutil"
	"github.com/sirupsen/logrus"
)

// DelayService cascades a provider's running late-ness through their
// remaining appointments for the day.
type DelayService struct {
	appointmentRepo *database.AppointmentRepository
	dispatcher      *notify.Dispatcher
	logger          *logrus.Logger
	thresholdMins   int
}

// NewDelayService creates a new DelayService
func NewDelayService(appointmentRepo *database.AppointmentRepository, dispatcher *notify.Dispatcher, logger *logrus.Logger, thresholdMins int) *DelayService {
	return &DelayService{
		appointmentRepo: appointmentRepo,
		dispatcher:      dispatcher,
		logger:          logger,
		thresholdMins:   thresholdMins,
	}
}

// delayUpdate is the recomputed projection for one appointment
type delayUpdate struct {
	appointment   *models.Appointment
	delayMinutes  int
	expectedStart time.Time
	expectedEnd   time.Time
	isDelayed     bool
	notify        bool
}

// scheduledStart resolves an appointment's date and start time to an IST instant.
func scheduledStart(a *models.Appointment) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", a.AppointmentDate, timeutil.IST)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid appointment date %s: %w", a.AppointmentDate, err)
	}
	mins, err := timeutil.ParseClock(a.StartTime)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(mins) * time.Minute), nil
}

// propagate walks appointments in start-time order maintaining a rolling
// "provider free at" timestamp. Delay cascades forward: each appointment's
// expected end feeds the next one's earliest possible start. A notification
// is due only on the edge into the delayed state, never on recomputations
// that keep an appointment delayed.
func propagate(appointments []models.Appointment, freeAt time.Time, thresholdMins int) ([]delayUpdate, error) {
	rolling := freeAt
	updates := make([]delayUpdate, 0, len(appointments))

	for i := range appointments {
		a := &appointments[i]
		start, err := scheduledStart(a)
		if err != nil {
			return nil, err
		}

		delay := 0
		if rolling.After(start) {
			delay = int(rolling.Sub(start) / time.Minute)
		}
		expectedStart := start.Add(time.Duration(delay) * time.Minute)
		expectedEnd := expectedStart.Add(time.Duration(a.DurationMinutes) * time.Minute)
		isDelayed := delay >= thresholdMins

		updates = append(updates, delayUpdate{
			appointment:   a,
			delayMinutes:  delay,
			expectedStart: expectedStart,
			expectedEnd:   expectedEnd,
			isDelayed:     isDelayed,
			notify:        isDelayed && !a.IsDelayed,
		})

		rolling = expectedEnd
	}
	return updates, nil
}

// Recompute refreshes the delay projection of a provider's remaining
// appointments after an event moved the provider's estimated free-at time.
// Persistence failures on individual appointments are logged and skipped;
// the cascade itself never fails the triggering request.
func (s *DelayService) Recompute(providerID uuid.UUID, freeAt time.Time) {
	day := timeutil.BusinessDay(freeAt)

	appointments, err := s.appointmentRepo.ListUpcomingForProvider(providerID, day)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load appointments for delay recompute")
		return
	}
	if len(appointments) == 0 {
		return
	}

	updates, err := propagate(appointments, freeAt, s.thresholdMins)
	if err != nil {
		s.logger.WithError(err).Error("Failed to propagate delays")
		return
	}

	for _, u := range updates {
		err := s.appointmentRepo.UpdateDelay(u.appointment.ID, u.delayMinutes, u.expectedStart, u.expectedEnd, u.isDelayed)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"appointment_id": u.appointment.ID,
				"error":          err.Error(),
			}).Warn("Failed to persist delay update")
			continue
		}
		if u.notify {
			recipient := u.appointment.Recipient()
			if recipient == "" {
				continue
			}
			body := fmt.Sprintf("Your appointment is running about %d minutes late. New expected start: %s. Sorry for the wait!",
				u.delayMinutes, u.expectedStart.In(timeutil.IST).Format("3:04 PM"))
			s.dispatcher.Enqueue(recipient, body)
		}
	}
}
