package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/services"
)

// ProviderHandler handles provider roster requests
type ProviderHandler struct {
	providerService *services.ProviderService
	delayService    *services.DelayService
}

// NewProviderHandler creates a new ProviderHandler
func NewProviderHandler(providerService *services.ProviderService, delayService *services.DelayService) *ProviderHandler {
	return &ProviderHandler{providerService: providerService, delayService: delayService}
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid " + name,
		})
		return uuid.Nil, false
	}
	return id, true
}

// CreateProviderRequest represents the request body for adding a provider
type CreateProviderRequest struct {
	BusinessID string   `json:"business_id" binding:"required"`
	Name       string   `json:"name" binding:"required"`
	Phone      *string  `json:"phone,omitempty"`
	Role       *string  `json:"role,omitempty"`
	Department *string  `json:"department,omitempty"`
	ServiceIDs []string `json:"service_ids,omitempty"`
}

// Create adds a provider to the roster
// POST /api/v1/providers
func (h *ProviderHandler) Create(c *gin.Context) {
	var req CreateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid business id",
		})
		return
	}

	input := &services.CreateInput{
		BusinessID: businessID,
		Name:       req.Name,
		Phone:      req.Phone,
		Role:       req.Role,
		Department: req.Department,
	}
	for _, raw := range req.ServiceIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_error",
				"message": "Invalid service id: " + raw,
			})
			return
		}
		input.ServiceIDs = append(input.ServiceIDs, id)
	}

	provider, err := h.providerService.Create(input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"provider": provider})
}

// Get returns one provider
// GET /api/v1/providers/:id
func (h *ProviderHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	provider, err := h.providerService.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"provider": provider})
}

// ListByBusiness returns the roster of a business
// GET /api/v1/businesses/:id/providers
func (h *ProviderHandler) ListByBusiness(c *gin.Context) {
	businessID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	providers, err := h.providerService.ListByBusiness(businessID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"providers": providers,
		"count":     len(providers),
	})
}

// UpdateProviderRequest represents the request body for editing a provider
type UpdateProviderRequest struct {
	Name       string  `json:"name" binding:"required"`
	Phone      *string `json:"phone,omitempty"`
	Role       *string `json:"role,omitempty"`
	Department *string `json:"department,omitempty"`
	IsActive   bool    `json:"is_active"`
}

// Update edits a provider's details
// PUT /api/v1/providers/:id
func (h *ProviderHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	provider, err := h.providerService.Update(id, &services.UpdateInput{
		Name:       req.Name,
		Phone:      req.Phone,
		Role:       req.Role,
		Department: req.Department,
		IsActive:   req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"provider": provider})
}

// Delete removes a provider
// DELETE /api/v1/providers/:id
func (h *ProviderHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.providerService.Delete(id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Provider removed"})
}

// CapabilitiesRequest represents the request body for setting capabilities
type CapabilitiesRequest struct {
	ServiceIDs []string `json:"service_ids" binding:"required"`
}

// SetCapabilities replaces a provider's capability set
// PUT /api/v1/providers/:id/capabilities
func (h *ProviderHandler) SetCapabilities(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CapabilitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	serviceIDs := make([]uuid.UUID, 0, len(req.ServiceIDs))
	for _, raw := range req.ServiceIDs {
		sid, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_error",
				"message": "Invalid service id: " + raw,
			})
			return
		}
		serviceIDs = append(serviceIDs, sid)
	}

	provider, err := h.providerService.SetCapabilities(id, serviceIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"provider": provider})
}

// LeaveRequest represents the request body for recording leave
type LeaveRequest struct {
	StartDate string  `json:"start_date" binding:"required"`
	EndDate   string  `json:"end_date" binding:"required"`
	Reason    *string `json:"reason,omitempty"`
}

// AddLeave records a leave range
// POST /api/v1/providers/:id/leaves
func (h *ProviderHandler) AddLeave(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req LeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	leave, err := h.providerService.AddLeave(id, &services.LeaveInput{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reason:    req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"leave": leave})
}

// ListLeaves returns a provider's leave history
// GET /api/v1/providers/:id/leaves
func (h *ProviderHandler) ListLeaves(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	leaves, err := h.providerService.ListLeaves(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaves": leaves,
		"count":  len(leaves),
	})
}

// RemoveLeave deletes one leave record
// DELETE /api/v1/providers/:id/leaves/:leaveId
func (h *ProviderHandler) RemoveLeave(c *gin.Context) {
	leaveID, ok := parseIDParam(c, "leaveId")
	if !ok {
		return
	}

	if err := h.providerService.RemoveLeave(leaveID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Leave removed"})
}

// Availability reports each roster member's current availability
// GET /api/v1/businesses/:id/providers/availability
func (h *ProviderHandler) Availability(c *gin.Context) {
	businessID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	availability, err := h.providerService.AvailabilityToday(businessID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"availability": availability})
}

// RecomputeDelaysRequest represents the request body for a manual recompute
type RecomputeDelaysRequest struct {
	FreeAt time.Time `json:"free_at" binding:"required"`
}

// RecomputeDelays re-runs delay propagation for a provider's day
// POST /api/v1/providers/:id/delays/recompute
func (h *ProviderHandler) RecomputeDelays(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req RecomputeDelaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	h.delayService.Recompute(id, req.FreeAt)
	c.JSON(http.StatusOK, gin.H{"message": "Delay recomputation triggered"})
}
