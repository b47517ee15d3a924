package models

import "time"

// Conversational roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ValidRole reports whether role is one of the conversational roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

// Message is one normalized conversational turn.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// SessionMeta is the summary of one transcript produced by discovery.
type SessionMeta struct {
	SessionID        string    `json:"session_id"`
	Title            string    `json:"title"`
	CreatedAt        time.Time `json:"created_at"`
	LastUpdated      time.Time `json:"last_updated"`
	MessageCount     int       `json:"message_count"`
	HasTodos         bool      `json:"has_todos"`
	FeatureConfigRef string    `json:"feature_config_ref,omitempty"`
	ProjectGroup     string    `json:"project_group"`
	Path             string    `json:"path"`
}

// UserInfo is the remembered user memory stored next to the conversations.
type UserInfo struct {
	UserName    *string           `json:"user_name"`
	Preferences map[string]string `json:"preferences"`
	Context     map[string]any    `json:"context"`
}

// Name returns the remembered user name or "".
func (u UserInfo) Name() string {
	if u.UserName == nil {
		return ""
	}
	return *u.UserName
}

// NewUserInfo returns an empty memory with non-nil maps.
func NewUserInfo() UserInfo {
	return UserInfo{
		Preferences: map[string]string{},
		Context:     map[string]any{},
	}
}
