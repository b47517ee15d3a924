package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/claudechat/chat"
	"github.com/xiaoyuanzhu-com/claudechat/notifications"
)

// chatRequest carries the caller's session context. The API keeps no
// per-client state: each request names the session and CLI conversation
// it continues, and the response returns the updated values.
type chatRequest struct {
	Message        string `json:"message" binding:"required"`
	SessionID      string `json:"session_id"`
	ConversationID string `json:"conversation_id"`
}

type chatResponse struct {
	chat.Result
	Persisted    bool   `json:"persisted"`
	PersistError string `json:"persist_error,omitempty"`
}

func newChatResponse(res chat.Result) chatResponse {
	resp := chatResponse{Result: res, Persisted: res.PersistError == nil}
	if res.PersistError != nil {
		resp.PersistError = res.PersistError.Error()
	}
	return resp
}

// SendChat handles POST /api/chat
func (h *Handlers) SendChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	sc := chat.SessionContext{SessionID: req.SessionID, ConversationID: req.ConversationID}
	res, err := h.app().Chat.Send(c.Request.Context(), &sc, req.Message, nil)
	if err != nil {
		respondErr(c, err, "failed to send message")
		return
	}
	h.notifyTurn(res)
	RespondData(c, newChatResponse(res))
}

// notifyTurn announces a saved turn
func (h *Handlers) notifyTurn(res chat.Result) {
	if res.PersistError != nil {
		return
	}
	op := notifications.OpMessage
	if res.Created {
		op = notifications.OpCreated
	}
	h.notify().NotifySessionChanged(res.SessionID, op)
}

// streamEvent is one server-sent event of a streamed reply
type streamEvent struct {
	Type   string        `json:"type"` // "chunk", "done" or "error"
	Text   string        `json:"text,omitempty"`
	Result *chatResponse `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// StreamChat handles POST /api/chat/stream (SSE). Reply lines are sent as
// they arrive, followed by a final "done" or "error" event.
func (h *Handlers) StreamChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering

	start := time.Now()
	sc := chat.SessionContext{SessionID: req.SessionID, ConversationID: req.ConversationID}
	res, err := h.app().Chat.Send(c.Request.Context(), &sc, req.Message, func(chunk string) {
		sendSSEEvent(c, streamEvent{Type: "chunk", Text: chunk})
	})
	if err != nil {
		apiLogger.Warn().Err(err).Str("sessionId", req.SessionID).Msg("streamed chat failed")
		sendSSEEvent(c, streamEvent{Type: "error", Error: err.Error()})
		return
	}

	h.notifyTurn(res)
	resp := newChatResponse(res)
	sendSSEEvent(c, streamEvent{Type: "done", Result: &resp})
	apiLogger.Debug().Str("sessionId", res.SessionID).Dur("elapsed", time.Since(start)).Msg("chat stream complete")
}

func sendSSEEvent(c *gin.Context, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		apiLogger.Error().Err(err).Msg("failed to marshal event")
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
	c.Writer.Flush()
}
