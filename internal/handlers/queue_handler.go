package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/models"
	"github.com/salonflow/queue-backend/internal/services"
	"github.com/salonflow/queue-backend/pkg/timeutil"
)

// QueueHandler handles owner-side queue management requests
type QueueHandler struct {
	queueService    *services.QueueService
	businessService *services.BusinessService
}

// NewQueueHandler creates a new QueueHandler
func NewQueueHandler(queueService *services.QueueService, businessService *services.BusinessService) *QueueHandler {
	return &QueueHandler{queueService: queueService, businessService: businessService}
}

// ListEntries returns the queue's entries for a day
// GET /api/v1/queues/:id/entries?day=YYYY-MM-DD&status=waiting
func (h *QueueHandler) ListEntries(c *gin.Context) {
	queueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid queue id",
		})
		return
	}

	day := c.Query("day")
	if day == "" {
		day = timeutil.BusinessDay(timeutil.NowIST())
	}

	var statuses []models.EntryStatus
	if raw := c.Query("status"); raw != "" {
		status := models.EntryStatus(raw)
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_error",
				"message": "Invalid status filter: " + raw,
			})
			return
		}
		statuses = append(statuses, status)
	}

	entries, err := h.queueService.ListForDay(queueID, day, statuses...)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"day":     day,
		"entries": entries,
		"count":   len(entries),
	})
}

// TransitionRequest represents the request body for an entry transition
type TransitionRequest struct {
	Status     string  `json:"status" binding:"required"`
	ProviderID *string `json:"provider_id,omitempty"`
}

// TransitionEntry drives the entry state machine
// PATCH /api/v1/entries/:id/status
func (h *QueueHandler) TransitionEntry(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid entry id",
		})
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	var providerID *uuid.UUID
	if req.ProviderID != nil {
		id, err := uuid.Parse(*req.ProviderID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_error",
				"message": "Invalid provider id",
			})
			return
		}
		providerID = &id
	}

	entry, err := h.queueService.Transition(entryID, models.EntryStatus(req.Status), providerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// SkipEntry swaps a waiting entry with the next one behind it
// POST /api/v1/entries/:id/skip
func (h *QueueHandler) SkipEntry(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid entry id",
		})
		return
	}

	if err := h.queueService.Skip(entryID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Entry skipped"})
}

// MarkNoShow marks an entry as a no-show
// POST /api/v1/entries/:id/no-show
func (h *QueueHandler) MarkNoShow(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid entry id",
		})
		return
	}

	entry, err := h.queueService.MarkNoShow(entryID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// ResetDay wipes a queue's entries for one day
// POST /api/v1/queues/:id/reset?day=YYYY-MM-DD
func (h *QueueHandler) ResetDay(c *gin.Context) {
	queueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid queue id",
		})
		return
	}

	day := c.Query("day")
	if day == "" {
		day = timeutil.BusinessDay(timeutil.NowIST())
	}

	deleted, err := h.queueService.ResetDay(queueID, day)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Queue reset",
		"day":     day,
		"deleted": deleted,
	})
}

// HoursRequest represents the request body for updating business hours
type HoursRequest struct {
	OpenTime  string `json:"open_time" binding:"required"`
	CloseTime string `json:"close_time" binding:"required"`
	IsClosed  bool   `json:"is_closed"`
}

// UpdateBusinessHours sets opening hours and the manual closed flag
// PUT /api/v1/businesses/:id/hours
func (h *QueueHandler) UpdateBusinessHours(c *gin.Context) {
	businessID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid business id",
		})
		return
	}

	var req HoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	business, err := h.businessService.UpdateHours(businessID, &services.HoursInput{
		OpenTime:  req.OpenTime,
		CloseTime: req.CloseTime,
		IsClosed:  req.IsClosed,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"business": business})
}
