package services

import (
	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/database"
	"github.com/salonflow/queue-backend/internal/models"
	"github.com/salonflow/queue-backend/pkg/timeutil"
	"github.com/sirupsen/logrus"
)

// MatcherService selects a provider for a set of services, filtering the
// roster by capability, leave and current load.
type MatcherService struct {
	providerRepo *database.ProviderRepository
	logger       *logrus.Logger
}

// NewMatcherService creates a new MatcherService
func NewMatcherService(providerRepo *database.ProviderRepository, logger *logrus.Logger) *MatcherService {
	return &MatcherService{providerRepo: providerRepo, logger: logger}
}

// matchProvider returns the first candidate that is active, covers every
// required service, is not on leave and is not busy. Candidates arrive in
// roster order (name ascending), which makes selection deterministic.
func matchProvider(candidates []models.ServiceProvider, required []uuid.UUID, busy, onLeave map[uuid.UUID]bool) *models.ServiceProvider {
	for i := range candidates {
		p := &candidates[i]
		if !p.IsActive {
			continue
		}
		if onLeave[p.ID] || busy[p.ID] {
			continue
		}
		if !p.CanPerform(required) {
			continue
		}
		return p
	}
	return nil
}

// Select picks an available provider for the given services, or returns
// ErrNoEligibleProvider when the whole roster is ruled out.
func (s *MatcherService) Select(businessID uuid.UUID, serviceIDs []uuid.UUID) (*models.ServiceProvider, error) {
	day := timeutil.BusinessDay(timeutil.NowIST())

	candidates, err := s.providerRepo.ListByBusiness(businessID)
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

	provider := matchProvider(candidates, serviceIDs, busy, onLeave)
	if provider == nil {
		s.logger.WithFields(logrus.Fields{
			"business_id":   businessID,
			"service_count": len(serviceIDs),
		}).Warn("No eligible provider for requested services")
		return nil, ErrNoEligibleProvider
	}
	return provider, nil
}

// CheckAvailability verifies an explicitly chosen provider can take the work
// right now. The distinction between busy and on leave matters to the guest,
// so each case keeps its own error.
func (s *MatcherService) CheckAvailability(provider *models.ServiceProvider, serviceIDs []uuid.UUID) error {
	day := timeutil.BusinessDay(timeutil.NowIST())

	if !provider.IsActive {
		return ErrNoEligibleProvider
	}
	if !provider.CanPerform(serviceIDs) {
		return ErrNoEligibleProvider
	}

	onLeave, err := s.providerRepo.OnLeaveProviderIDs(provider.BusinessID, day)
	if err != nil {
		return err
	}
	if onLeave[provider.ID] {
		return ErrProviderOnLeave
	}

	busy, err := s.providerRepo.BusyProviderIDs(provider.BusinessID, day)
	if err != nil {
		return err
	}
	if busy[provider.ID] {
		return ErrProviderBusy
	}
	return nil
}
