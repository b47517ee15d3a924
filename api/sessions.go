package api

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/claudechat/history"
	"github.com/xiaoyuanzhu-com/claudechat/notifications"
)

// sessionSummary is a conversation without its messages
type sessionSummary struct {
	ID           int    `json:"id"`
	SessionID    string `json:"session_id,omitempty"`
	Title        string `json:"title"`
	Timestamp    string `json:"timestamp"`
	LastUpdated  string `json:"last_updated"`
	ProjectGroup string `json:"project_group,omitempty"`
	MessageCount int    `json:"message_count"`
}

func summarize(c history.Conversation) sessionSummary {
	return sessionSummary{
		ID:           c.ID,
		SessionID:    c.SessionID,
		Title:        c.Title,
		Timestamp:    c.Timestamp,
		LastUpdated:  c.LastUpdated,
		ProjectGroup: c.ProjectGroup,
		MessageCount: c.MessageCount,
	}
}

// ListSessions handles GET /api/sessions?limit=&offset=
func (h *Handlers) ListSessions(c *gin.Context) {
	convs, err := h.app().Registry.Conversations(c.Request.Context())
	if err != nil {
		respondErr(c, err, "failed to list sessions")
		return
	}

	limit, offset, ok := parsePage(c)
	if !ok {
		return
	}
	window, page := paginate(convs, limit, offset)
	summaries := make([]sessionSummary, 0, len(window))
	for _, conv := range window {
		summaries = append(summaries, summarize(conv))
	}
	RespondList(c, summaries, page)
}

func parsePage(c *gin.Context) (limit, offset int, ok bool) {
	var err error
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			RespondValidationError(c, "invalid pagination", fieldError("limit", "must be a non-negative integer"))
			return 0, 0, false
		}
	}
	if v := c.Query("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			RespondValidationError(c, "invalid pagination", fieldError("offset", "must be a non-negative integer"))
			return 0, 0, false
		}
	}
	return limit, offset, true
}

// ListSessionGroups handles GET /api/sessions/groups
func (h *Handlers) ListSessionGroups(c *gin.Context) {
	groups, err := h.app().Registry.Groups(c.Request.Context())
	if err != nil {
		respondErr(c, err, "failed to group sessions")
		return
	}
	RespondList(c, groups, nil)
}

// SyncSessions handles POST /api/sessions/sync
func (h *Handlers) SyncSessions(c *gin.Context) {
	doc, err := h.app().Registry.Sync(c.Request.Context())
	if err != nil {
		respondErr(c, err, "failed to sync sessions")
		return
	}
	RespondData(c, gin.H{"conversations": len(doc.Conversations)})
}

// CreateSession handles POST /api/sessions
func (h *Handlers) CreateSession(c *gin.Context) {
	var body struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	id, err := h.app().Registry.CreateSession(ctx, body.Title)
	if err != nil {
		respondErr(c, err, "failed to create session")
		return
	}
	conv, err := h.app().Registry.Conversation(ctx, id)
	if err != nil {
		respondErr(c, err, "failed to load created session")
		return
	}
	h.notify().NotifySessionChanged(id, notifications.OpCreated)
	RespondCreated(c, conv, "/api/sessions/"+id)
}

// GetSession handles GET /api/sessions/:id
func (h *Handlers) GetSession(c *gin.Context) {
	conv, err := h.app().Registry.Conversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err, "failed to load session")
		return
	}
	RespondData(c, conv)
}

// RenameSession handles PATCH /api/sessions/:id
func (h *Handlers) RenameSession(c *gin.Context) {
	var body struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	key := c.Param("id")
	if err := h.app().Registry.RenameSession(ctx, key, body.Title); err != nil {
		respondErr(c, err, "failed to rename session")
		return
	}
	conv, err := h.app().Registry.Conversation(ctx, key)
	if err != nil {
		respondErr(c, err, "failed to load session")
		return
	}
	h.notify().NotifySessionChanged(conv.SessionID, notifications.OpRenamed)
	RespondData(c, summarize(conv))
}

// DeleteSession handles DELETE /api/sessions/:id
func (h *Handlers) DeleteSession(c *gin.Context) {
	key := c.Param("id")
	if err := h.app().Registry.DeleteSession(c.Request.Context(), key); err != nil {
		respondErr(c, err, "failed to delete session")
		return
	}
	h.notify().NotifySessionChanged(key, notifications.OpDeleted)
	RespondNoContent(c)
}

// GetSessionMessages handles GET /api/sessions/:id/messages
func (h *Handlers) GetSessionMessages(c *gin.Context) {
	messages, err := h.app().Registry.Messages(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err, "failed to read session messages")
		return
	}
	RespondList(c, messages, nil)
}

// AddSessionMessage handles POST /api/sessions/:id/messages.
// It records a message without calling Claude.
func (h *Handlers) AddSessionMessage(c *gin.Context) {
	var body struct {
		Role    string `json:"role" binding:"required"`
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	key := c.Param("id")
	if err := h.app().Registry.AddMessage(c.Request.Context(), key, body.Role, body.Content); err != nil {
		respondErr(c, err, "failed to add message")
		return
	}
	h.notify().NotifySessionChanged(key, notifications.OpMessage)
	RespondCreated(c, gin.H{"session_id": key, "role": body.Role}, fmt.Sprintf("/api/sessions/%s/messages", key))
}
