package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/salonflow/queue-backend/internal/database"
	"github.com/salonflow/queue-backend/internal/services"
)

// respondError maps a service error onto an HTTP status and error code.
// Unrecognized errors become a 500 with a generic message.
func respondError(c *gin.Context, err error) {
	var hoursErr *services.HoursError
	if errors.As(err, &hoursErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "business_closed",
			"message": hoursErr.Message,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrBusinessClosed):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "business_closed",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrQueueNotOpen):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "queue_not_open",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrFullyBooked):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "fully_booked",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrProviderBusy):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "provider_busy",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrProviderOnLeave):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "provider_on_leave",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrNoEligibleProvider):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "no_eligible_provider",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "invalid_transition",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrTerminalState):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "terminal_state",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrAlreadyCheckedIn):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "already_checked_in",
			"message": err.Error(),
		})
	case errors.Is(err, database.ErrPositionConflict):
		// Retryable: the caller lost the position allocation race
		c.JSON(http.StatusConflict, gin.H{
			"error":   "position_conflict",
			"message": "The queue is busy right now, please try again",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Something went wrong. Please try again later.",
		})
	}
}
