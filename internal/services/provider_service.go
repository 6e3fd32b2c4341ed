package services

import (
	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/database"
	"github.com/salonflow/queue-backend/internal/models"
	"github.com/salonflow/queue-backend/pkg/timeutil"
	"github.com/sirupsen/logrus"
)

// ProviderService handles the provider roster, capability sets and leave
type ProviderService struct {
	providerRepo *database.ProviderRepository
	logger       *logrus.Logger
}

// NewProviderService creates a new ProviderService
func NewProviderService(providerRepo *database.ProviderRepository, logger *logrus.Logger) *ProviderService {
	return &ProviderService{providerRepo: providerRepo, logger: logger}
}

// CreateInput contains the data needed to add a provider
type CreateInput struct {
	BusinessID uuid.UUID   `json:"business_id"`
	Name       string      `json:"name"`
	Phone      *string     `json:"phone,omitempty"`
	Role       *string     `json:"role,omitempty"`
	Department *string     `json:"department,omitempty"`
	ServiceIDs []uuid.UUID `json:"service_ids,omitempty"`
}

// Create adds a provider to the roster with an optional capability set
func (s *ProviderService) Create(input *CreateInput) (*models.ServiceProvider, error) {
	if input.Name == "" {
		return nil, ErrValidation
	}

	provider := &models.ServiceProvider{
		ID:         uuid.New(),
		BusinessID: input.BusinessID,
		Name:       input.Name,
		Phone:      input.Phone,
		Role:       input.Role,
		Department: input.Department,
		IsActive:   true,
	}
	if err := s.providerRepo.Create(provider); err != nil {
		return nil, err
	}

	if len(input.ServiceIDs) > 0 {
		if err := s.providerRepo.ReplaceCapabilities(provider.ID, input.ServiceIDs); err != nil {
			return nil, err
		}
		provider.ServiceIDs = input.ServiceIDs
	}

	s.logger.WithFields(logrus.Fields{
		"provider_id": provider.ID,
		"business_id": provider.BusinessID,
	}).Info("Provider created")

	return provider, nil
}

// GetByID returns one provider with capabilities
func (s *ProviderService) GetByID(id uuid.UUID) (*models.ServiceProvider, error) {
	provider, err := s.providerRepo.GetByID(id)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return provider, nil
}

// ListByBusiness returns the roster of a business
func (s *ProviderService) ListByBusiness(businessID uuid.UUID) ([]models.ServiceProvider, error) {
	return s.providerRepo.ListByBusiness(businessID)
}

// UpdateInput contains the editable provider fields
type UpdateInput struct {
	Name       string  `json:"name"`
	Phone      *string `json:"phone,omitempty"`
	Role       *string `json:"role,omitempty"`
	Department *string `json:"department,omitempty"`
	IsActive   bool    `json:"is_active"`
}

// Update edits a provider's details
func (s *ProviderService) Update(id uuid.UUID, input *UpdateInput) (*models.ServiceProvider, error) {
	provider, err := s.providerRepo.GetByID(id)
	if err != nil {
		return nil, translateNotFound(err)
	}

	provider.Name = input.Name
	provider.Phone = input.Phone
	provider.Role = input.Role
	provider.Department = input.Department
	provider.IsActive = input.IsActive
	if provider.Name == "" {
		return nil, ErrValidation
	}

	if err := s.providerRepo.Update(provider); err != nil {
		return nil, translateNotFound(err)
	}
	return s.providerRepo.GetByID(id)
}

// Delete removes a provider from the roster
func (s *ProviderService) Delete(id uuid.UUID) error {
	return translateNotFound(s.providerRepo.Delete(id))
}

// SetCapabilities replaces the provider's capability set
func (s *ProviderService) SetCapabilities(id uuid.UUID, serviceIDs []uuid.UUID) (*models.ServiceProvider, error) {
	if _, err := s.providerRepo.GetByID(id); err != nil {
		return nil, translateNotFound(err)
	}
	if err := s.providerRepo.ReplaceCapabilities(id, serviceIDs); err != nil {
		return nil, err
	}
	return s.providerRepo.GetByID(id)
}

// LeaveInput contains the data for a leave range
type LeaveInput struct {
	StartDate string  `json:"start_date"` // YYYY-MM-DD
	EndDate   string  `json:"end_date"`   // YYYY-MM-DD
	Reason    *string `json:"reason,omitempty"`
}

// AddLeave records a leave range for a provider
func (s *ProviderService) AddLeave(providerID uuid.UUID, input *LeaveInput) (*models.ProviderLeave, error) {
	if input.StartDate == "" || input.EndDate == "" || input.EndDate < input.StartDate {
		return nil, ErrValidation
	}
	if _, err := s.providerRepo.GetByID(providerID); err != nil {
		return nil, translateNotFound(err)
	}

	leave := &models.ProviderLeave{
		ID:         uuid.New(),
		ProviderID: providerID,
		StartDate:  input.StartDate,
		EndDate:    input.EndDate,
		Reason:     input.Reason,
	}
	if err := s.providerRepo.AddLeave(leave); err != nil {
		return nil, err
	}
	return leave, nil
}

// ListLeaves returns a provider's leave history
func (s *ProviderService) ListLeaves(providerID uuid.UUID) ([]models.ProviderLeave, error) {
	if _, err := s.providerRepo.GetByID(providerID); err != nil {
		return nil, translateNotFound(err)
	}
	return s.providerRepo.ListLeaves(providerID)
}

// RemoveLeave deletes one leave record
func (s *ProviderService) RemoveLeave(leaveID uuid.UUID) error {
	return translateNotFound(s.providerRepo.RemoveLeave(leaveID))
}

// Availability summarizes whether a provider can take work today
type Availability struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Busy       bool      `json:"busy"`
	OnLeave    bool      `json:"on_leave"`
	Available  bool      `json:"available"`
}

// AvailabilityToday reports each roster member's current availability
func (s *ProviderService) AvailabilityToday(businessID uuid.UUID) ([]Availability, error) {
	day := timeutil.BusinessDay(timeutil.NowIST())

	providers, err := s.providerRepo.ListByBusiness(businessID)
	if err != nil {
		return nil, err
	}
	busy, err := s.providerRepo.BusyProviderIDs(businessID, day)
	if err != nil {
		return nil, err
	}
	onLeave, err := s.providerRepo.OnLeaveProviderIDs(businessID, day)
	if err != nil {
		return nil, err
	}

	result := make([]Availability, 0, len(providers))
	for _, p := range providers {
		a := Availability{
			ProviderID: p.ID,
			Busy:       busy[p.ID],
			OnLeave:    onLeave[p.ID],
		}
		a.Available = p.IsActive && !a.Busy && !a.OnLeave
		result = append(result, a)
	}
	return result, nil
}
