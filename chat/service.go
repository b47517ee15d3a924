package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xiaoyuanzhu-com/claudechat/claude"
	"github.com/xiaoyuanzhu-com/claudechat/history"
	"github.com/xiaoyuanzhu-com/claudechat/log"
	"github.com/xiaoyuanzhu-com/claudechat/memory"
	"github.com/xiaoyuanzhu-com/claudechat/models"
)

var logger = log.GetLogger("Chat")

// Assistant produces replies. *claude.Client implements it.
type Assistant interface {
	Stream(ctx context.Context, prompt string, continuing bool, onChunk func(string)) (claude.Reply, error)
}

// Sessions is the part of the registry a chat turn needs.
type Sessions interface {
	CreateSession(ctx context.Context, title string) (string, error)
	AddMessage(ctx context.Context, sessionID, role, content string) error
	Messages(ctx context.Context, key string) ([]models.Message, error)
	Conversation(ctx context.Context, key string) (history.Conversation, error)
	UserInfo(ctx context.Context) (models.UserInfo, error)
	UpdateUserInfo(ctx context.Context, fn func(*models.UserInfo) bool) (models.UserInfo, error)
}

// Result is the outcome of one successful turn.
type Result struct {
	Reply          string `json:"reply"`
	SessionID      string `json:"session_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	Created        bool   `json:"created"`

	// PersistError is set when the reply was produced but could not be saved.
	// The turn is still in SessionContext.Messages.
	PersistError error `json:"-"`
}

// Service runs chat turns against the assistant and records them.
type Service struct {
	assistant Assistant
	sessions  Sessions
	extractor memory.Extractor
	now       func() time.Time
}

// NewService creates a chat service.
func NewService(assistant Assistant, sessions Sessions, extractor memory.Extractor) *Service {
	return &Service{
		assistant: assistant,
		sessions:  sessions,
		extractor: extractor,
		now:       time.Now,
	}
}

// Open loads an existing session into sc.
func (s *Service) Open(ctx context.Context, sc *SessionContext, key string) error {
	conv, err := s.sessions.Conversation(ctx, key)
	if err != nil {
		return err
	}
	// Numeric cache ids resolve to the session id so Forget matches later
	sessionID := conv.SessionID
	if sessionID == "" {
		sessionID = key
	}
	messages, err := s.sessions.Messages(ctx, sessionID)
	if err != nil {
		return err
	}
	sc.Select(sessionID, messages)
	return nil
}

// Send runs one turn. The prompt sent to the assistant carries whatever the
// user memory knows, including facts learned from text itself. Nothing is
// stored unless the assistant replies: a failed call leaves every store and
// sc as they were.
func (s *Service) Send(ctx context.Context, sc *SessionContext, text string, onChunk func(string)) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, fmt.Errorf("message is empty")
	}

	info, err := s.sessions.UserInfo(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load user memory: %w", err)
	}
	learned := memory.Apply(s.extractor, &info, text)
	prompt := s.extractor.WrapPrompt(s.extractor.BuildContext(info), text)

	reply, err := s.assistant.Stream(ctx, prompt, sc.Continuing(), onChunk)
	if err != nil {
		logger.Error().Err(err).Str("sessionId", sc.SessionID).Msg("assistant call failed")
		return Result{}, err
	}

	if learned {
		if _, err := s.sessions.UpdateUserInfo(ctx, func(u *models.UserInfo) bool {
			return memory.Apply(s.extractor, u, text)
		}); err != nil {
			logger.Warn().Err(err).Msg("failed to save user memory")
		}
	}

	if sc.ConversationID == "" && reply.ConversationID != "" {
		sc.ConversationID = reply.ConversationID
	}

	stamp := s.now().UTC().Format(time.RFC3339Nano)
	sc.Messages = append(sc.Messages,
		models.Message{Role: models.RoleUser, Content: text, Timestamp: stamp},
		models.Message{Role: models.RoleAssistant, Content: reply.Text, Timestamp: stamp},
	)

	result := Result{Reply: reply.Text, ConversationID: sc.ConversationID}
	result.Created, result.PersistError = s.persist(ctx, sc, text, reply.Text)
	result.SessionID = sc.SessionID
	if result.PersistError != nil {
		logger.Warn().Err(result.PersistError).Str("sessionId", sc.SessionID).Msg("turn not persisted")
	}
	return result, nil
}

// persist records the turn. A new chat becomes a session whose first
// record is the user's message.
func (s *Service) persist(ctx context.Context, sc *SessionContext, text, reply string) (bool, error) {
	created := false
	if sc.SessionID == "" {
		id, err := s.sessions.CreateSession(ctx, text)
		if err != nil {
			return false, err
		}
		sc.SessionID = id
		created = true
	} else if err := s.sessions.AddMessage(ctx, sc.SessionID, models.RoleUser, text); err != nil {
		return false, err
	}

	if err := s.sessions.AddMessage(ctx, sc.SessionID, models.RoleAssistant, reply); err != nil {
		return created, err
	}
	return created, nil
}
