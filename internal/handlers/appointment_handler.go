package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/models"
	"github.com/salonflow/queue-backend/internal/services"
	"github.com/salonflow/queue-backend/pkg/timeutil"
)

// AppointmentHandler handles appointment requests
type AppointmentHandler struct {
	appointmentService *services.AppointmentService
}

// NewAppointmentHandler creates a new AppointmentHandler
func NewAppointmentHandler(appointmentService *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointmentService: appointmentService}
}

// BookRequest represents the request body for booking an appointment
type BookRequest struct {
	BusinessID      string   `json:"business_id" binding:"required"`
	CustomerID      *string  `json:"customer_id,omitempty"`
	GuestName       *string  `json:"guest_name,omitempty"`
	Phone           *string  `json:"phone,omitempty"`
	ProviderID      *string  `json:"provider_id,omitempty"`
	AppointmentDate string   `json:"appointment_date" binding:"required"`
	StartTime       string   `json:"start_time" binding:"required"`
	ServiceIDs      []string `json:"service_ids" binding:"required,min=1"`
}

// Book creates an appointment
// POST /api/v1/appointments
func (h *AppointmentHandler) Book(c *gin.Context) {
	var req BookRequest
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

	input := &services.BookInput{
		BusinessID:      businessID,
		GuestName:       req.GuestName,
		Phone:           req.Phone,
		AppointmentDate: req.AppointmentDate,
		StartTime:       req.StartTime,
	}
	if req.CustomerID != nil {
		id, err := uuid.Parse(*req.CustomerID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_error",
				"message": "Invalid customer id",
			})
			return
		}
		input.CustomerID = &id
	}
	if req.ProviderID != nil {
		id, err := uuid.Parse(*req.ProviderID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_error",
				"message": "Invalid provider id",
			})
			return
		}
		input.ProviderID = &id
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

	appointment, err := h.appointmentService.Book(input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"appointment": appointment})
}

// Get returns one appointment
// GET /api/v1/appointments/:id
func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	appointment, err := h.appointmentService.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"appointment": appointment})
}

// ListForDay returns a business's appointments for a day
// GET /api/v1/businesses/:id/appointments?day=YYYY-MM-DD
func (h *AppointmentHandler) ListForDay(c *gin.Context) {
	businessID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	day := c.Query("day")
	if day == "" {
		day = timeutil.BusinessDay(timeutil.NowIST())
	}

	appointments, err := h.appointmentService.ListForDay(businessID, day)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"day":          day,
		"appointments": appointments,
		"count":        len(appointments),
	})
}

// AppointmentStatusRequest represents the request body for a status change
type AppointmentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus drives the appointment state machine (check-in included)
// PATCH /api/v1/appointments/:id/status
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	appointment, err := h.appointmentService.UpdateStatus(id, models.AppointmentStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"appointment": appointment})
}
