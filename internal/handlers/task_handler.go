package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/services"
)

// TaskHandler handles per-service task requests
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// AssignRequest represents the request body for assigning a provider
type AssignRequest struct {
	ProviderID *string `json:"provider_id,omitempty"`
}

// AssignProvider binds a provider to a task, auto-selecting when omitted
// POST /api/v1/tasks/:id/assign
func (h *TaskHandler) AssignProvider(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid task id",
		})
		return
	}

	var req AssignRequest
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

	task, err := h.taskService.Assign(taskID, providerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": task})
}

// StartTask moves a task to in_progress
// POST /api/v1/tasks/:id/start
func (h *TaskHandler) StartTask(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid task id",
		})
		return
	}

	task, err := h.taskService.Start(taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": task})
}

// CompleteTask moves a task to done
// POST /api/v1/tasks/:id/complete
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid task id",
		})
		return
	}

	task, err := h.taskService.Complete(taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": task})
}

// ListByEntry returns the tasks of one entry
// GET /api/v1/entries/:id/tasks
func (h *TaskHandler) ListByEntry(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid entry id",
		})
		return
	}

	tasks, err := h.taskService.ListByEntry(entryID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks),
	})
}
