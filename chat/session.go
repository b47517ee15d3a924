package chat

import "github.com/xiaoyuanzhu-com/claudechat/models"

// SessionContext is the caller's view of the active conversation. It is
// owned by whoever drives the chat (a CLI invocation, an HTTP request) and
// passed explicitly to Service.Send. An empty SessionID means "new chat".
type SessionContext struct {
	SessionID      string           `json:"session_id,omitempty"`
	ConversationID string           `json:"conversation_id,omitempty"`
	Messages       []models.Message `json:"messages,omitempty"`
}

// Reset points the context at a new, unsaved conversation.
func (s *SessionContext) Reset() {
	s.SessionID = ""
	s.ConversationID = ""
	s.Messages = nil
}

// Forget resets the context if it points at sessionID. Call it after
// deleting a session.
func (s *SessionContext) Forget(sessionID string) bool {
	if s.SessionID == "" || s.SessionID != sessionID {
		return false
	}
	s.Reset()
	return true
}

// Select points the context at an existing session.
func (s *SessionContext) Select(sessionID string, messages []models.Message) {
	s.SessionID = sessionID
	s.ConversationID = ""
	s.Messages = messages
}

// Continuing reports whether the next message continues a CLI conversation.
func (s *SessionContext) Continuing() bool {
	return s.ConversationID != ""
}
