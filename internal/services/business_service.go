package services

import (
	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/database"
	"github.com/salonflow/queue-backend/internal/models"
	"github.com/salonflow/queue-backend/pkg/timeutil"
	"github.com/sirupsen/logrus"
)

// BusinessService handles opening hours and the public business display
type BusinessService struct {
	businessRepo *database.BusinessRepository
	queueRepo    *database.QueueRepository
	logger       *logrus.Logger
}

// NewBusinessService creates a new BusinessService
func NewBusinessService(businessRepo *database.BusinessRepository, queueRepo *database.QueueRepository, logger *logrus.Logger) *BusinessService {
	return &BusinessService{businessRepo: businessRepo, queueRepo: queueRepo, logger: logger}
}

// Display is the public storefront view of a business
type Display struct {
	Business *models.Business `json:"business"`
	Open     bool             `json:"open"`
	Message  string           `json:"message,omitempty"`
	Queues   []models.Queue   `json:"queues"`
}

// GetDisplay returns the public view: hours state plus queues with their
// current wait estimates.
func (s *BusinessService) GetDisplay(businessID uuid.UUID) (*Display, error) {
	business, err := s.businessRepo.GetByID(businessID)
	if err != nil {
		return nil, translateNotFound(err)
	}

	check := timeutil.IsOpen(business.OpenTime, business.CloseTime, business.IsClosed, timeutil.NowIST())

	queues, err := s.queueRepo.ListByBusiness(businessID)
	if err != nil {
		return nil, err
	}

	return &Display{
		Business: business,
		Open:     check.Open,
		Message:  check.Message,
		Queues:   queues,
	}, nil
}

// HoursInput contains the opening-hours fields an owner can set
type HoursInput struct {
	OpenTime  string `json:"open_time"`  // "HH:mm"
	CloseTime string `json:"close_time"` // "HH:mm"
	IsClosed  bool   `json:"is_closed"`
}

// UpdateHours sets the business's opening hours and manual closed flag
func (s *BusinessService) UpdateHours(businessID uuid.UUID, input *HoursInput) (*models.Business, error) {
	if _, err := timeutil.ParseClock(input.OpenTime); err != nil {
		return nil, ErrValidation
	}
	if _, err := timeutil.ParseClock(input.CloseTime); err != nil {
		return nil, ErrValidation
	}

	if err := s.businessRepo.UpdateHours(businessID, input.OpenTime, input.CloseTime, input.IsClosed); err != nil {
		return nil, translateNotFound(err)
	}

	s.logger.WithFields(logrus.Fields{
		"business_id": businessID,
		"open":        input.OpenTime,
		"close":       input.CloseTime,
		"is_closed":   input.IsClosed,
	}).Info("Business hours updated")

	return s.businessRepo.GetByID(businessID)
}
