package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/claudechat/models"
	"github.com/xiaoyuanzhu-com/claudechat/tasks"
)

// ListTasks handles GET /api/sessions/:id/tasks
func (h *Handlers) ListTasks(c *gin.Context) {
	items, err := h.app().Registry.Tasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err, "failed to load tasks")
		return
	}
	RespondList(c, items, nil)
}

// CreateTask handles POST /api/sessions/:id/tasks
func (h *Handlers) CreateTask(c *gin.Context) {
	var body struct {
		Content  string `json:"content" binding:"required"`
		Priority string `json:"priority"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}
	if body.Priority != "" && !models.ValidPriority(body.Priority) {
		RespondValidationError(c, "invalid task", fieldError("priority", "must be low, medium or high"))
		return
	}

	task, err := h.app().Registry.AddTask(c.Request.Context(), c.Param("id"), body.Content, body.Priority)
	if err != nil {
		respondErr(c, err, "failed to add task")
		return
	}
	h.notify().NotifyTasksChanged(c.Param("id"))
	RespondCreated(c, task, "")
}

// UpdateTask handles PATCH /api/sessions/:id/tasks/:taskId
func (h *Handlers) UpdateTask(c *gin.Context) {
	var patch tasks.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		RespondBadRequest(c, "Invalid request body")
		return
	}
	var details []ErrorDetail
	if patch.Content != nil && strings.TrimSpace(*patch.Content) == "" {
		details = append(details, ErrorDetail{Field: "content", Message: "must not be blank"})
	}
	if patch.Status != nil && !models.ValidStatus(*patch.Status) {
		details = append(details, ErrorDetail{Field: "status", Message: "must be pending, in_progress or completed"})
	}
	if patch.Priority != nil && !models.ValidPriority(*patch.Priority) {
		details = append(details, ErrorDetail{Field: "priority", Message: "must be low, medium or high"})
	}
	if len(details) > 0 {
		RespondValidationError(c, "invalid task", details)
		return
	}

	task, err := h.app().Registry.UpdateTask(c.Request.Context(), c.Param("id"), c.Param("taskId"), patch)
	if err != nil {
		respondErr(c, err, "failed to update task")
		return
	}
	h.notify().NotifyTasksChanged(c.Param("id"))
	RespondData(c, task)
}

// DeleteTask handles DELETE /api/sessions/:id/tasks/:taskId
func (h *Handlers) DeleteTask(c *gin.Context) {
	if err := h.app().Registry.RemoveTask(c.Request.Context(), c.Param("id"), c.Param("taskId")); err != nil {
		respondErr(c, err, "failed to delete task")
		return
	}
	h.notify().NotifyTasksChanged(c.Param("id"))
	RespondNoContent(c)
}
