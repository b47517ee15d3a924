package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *Handlers) {
	api := r.Group("/api")

	// Sessions
	api.GET("/sessions", h.ListSessions)
	api.POST("/sessions", h.CreateSession)
	api.POST("/sessions/sync", h.SyncSessions)
	api.GET("/sessions/groups", h.ListSessionGroups)
	api.GET("/sessions/:id", h.GetSession)
	api.PATCH("/sessions/:id", h.RenameSession)
	api.DELETE("/sessions/:id", h.DeleteSession)
	api.GET("/sessions/:id/messages", h.GetSessionMessages)
	api.POST("/sessions/:id/messages", h.AddSessionMessage)
	api.GET("/sessions/:id/export", h.ExportSession)

	// Tasks
	api.GET("/sessions/:id/tasks", h.ListTasks)
	api.POST("/sessions/:id/tasks", h.CreateTask)
	api.PATCH("/sessions/:id/tasks/:taskId", h.UpdateTask)
	api.DELETE("/sessions/:id/tasks/:taskId", h.DeleteTask)

	// Feature config
	api.GET("/sessions/:id/flags", h.GetSessionFlags)
	api.GET("/snapshots", h.ListSnapshots)
	api.DELETE("/snapshots", h.ClearSnapshots)
	api.DELETE("/snapshots/:name", h.DeleteSnapshot)

	// Chat
	api.POST("/chat", h.SendChat)
	api.POST("/chat/stream", h.StreamChat)

	// User memory
	api.GET("/user", h.GetUserInfo)
	api.PUT("/user", h.UpdateUserInfo)

	// Change notifications
	api.GET("/notifications/stream", h.NotificationStream)

	// Backup
	api.GET("/export", h.ExportAll)
}
