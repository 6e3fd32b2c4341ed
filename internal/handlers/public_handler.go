package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/models"
	"github.com/salonflow/queue-backend/internal/services"
)

// PublicHandler handles unauthenticated customer-facing requests
type PublicHandler struct {
	queueService    *services.QueueService
	businessService *services.BusinessService
}

// NewPublicHandler creates a new PublicHandler
func NewPublicHandler(queueService *services.QueueService, businessService *services.BusinessService) *PublicHandler {
	return &PublicHandler{queueService: queueService, businessService: businessService}
}

// JoinQueueRequest represents the request body for joining a queue
type JoinQueueRequest struct {
	CustomerName string   `json:"customer_name"`
	CustomerID   *string  `json:"customer_id,omitempty"`
	Phone        *string  `json:"phone,omitempty"`
	ServiceIDs   []string `json:"service_ids" binding:"required,min=1"`
	Source       string   `json:"entry_source,omitempty"`
}

// JoinQueue admits a customer into a queue
// POST /api/v1/public/queues/:id/join
func (h *PublicHandler) JoinQueue(c *gin.Context) {
	queueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid queue id",
		})
		return
	}

	var req JoinQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	input := &services.JoinInput{
		QueueID:      queueID,
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		Source:       models.EntrySource(req.Source),
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

	result, err := h.queueService.Join(input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":                "You've joined the queue",
		"entry":                  result.Entry,
		"estimated_wait_minutes": result.EstimatedWaitMinutes,
	})
}

// GetStatus resolves a public status token to the guest's queue view
// GET /api/v1/public/status/:token
func (h *PublicHandler) GetStatus(c *gin.Context) {
	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid status token",
		})
		return
	}

	status, err := h.queueService.PublicStatus(token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetBusinessDisplay returns the public storefront view of a business
// GET /api/v1/public/businesses/:id
func (h *PublicHandler) GetBusinessDisplay(c *gin.Context) {
	businessID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid business id",
		})
		return
	}

	display, err := h.businessService.GetDisplay(businessID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, display)
}
