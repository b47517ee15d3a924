package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ClaudeMessage is the message payload of a user or assistant record.
// Content is either a plain string or a list of content blocks.
type ClaudeMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content,omitempty"`
	Model   string          `json:"model,omitempty"`
}

// Record is one line of a session transcript.
type Record struct {
	BaseMessage
	EnvelopeFields
	Message     *ClaudeMessage `json:"message,omitempty"`
	CustomTitle string         `json:"customTitle,omitempty"`
}

// Role returns message.role, falling back to the top-level type.
func (r *Record) Role() string {
	if r.Message != nil && r.Message.Role != "" {
		return r.Message.Role
	}
	return r.Type
}

// Text returns the record's text content: the string itself, or the
// in-order concatenation of every text block. Other blocks are ignored.
func (r *Record) Text() string {
	if r.Message == nil || len(r.Message.Content) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(r.Message.Content, &s); err == nil {
		return s
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(r.Message.Content, &blocks); err != nil {
		return ""
	}
	var b strings.Builder
	for _, block := range blocks {
		if block.Type == BlockTypeText {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// ContentIsString reports whether message.content is a plain string.
func (r *Record) ContentIsString() bool {
	if r.Message == nil {
		return false
	}
	var s string
	return json.Unmarshal(r.Message.Content, &s) == nil
}

// Time parses the record timestamp. ok is false when it is missing or malformed.
func (r *Record) Time() (time.Time, bool) {
	if r.Timestamp == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, string(r.Timestamp))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NewTextMessage builds a message payload with string content.
func NewTextMessage(role, text string) *ClaudeMessage {
	raw, _ := json.Marshal(text)
	return &ClaudeMessage{Role: role, Content: raw}
}
