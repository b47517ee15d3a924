package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xiaoyuanzhu-com/claudechat/featureconfig"
	"github.com/xiaoyuanzhu-com/claudechat/history"
	"github.com/xiaoyuanzhu-com/claudechat/log"
	"github.com/xiaoyuanzhu-com/claudechat/models"
	"github.com/xiaoyuanzhu-com/claudechat/tasks"
	"github.com/xiaoyuanzhu-com/claudechat/transcript"
)

var (
	// ErrSessionNotFound is returned when a key resolves to no transcript and no cache entry
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidRole is returned by AddMessage for roles other than user and assistant
	ErrInvalidRole = errors.New("invalid role")

	// ErrEmptyTitle is returned when renaming to a blank title
	ErrEmptyTitle = errors.New("title cannot be empty")
)

// Registry is the single source of truth for which sessions exist. Every
// mutation goes through it: the transcript or task store is changed first,
// then the history cache is re-synced from disk.
type Registry struct {
	transcripts *transcript.Store
	tasks       *tasks.Store
	flags       *featureconfig.Store
	history     *history.Store

	newID func() string

	mu sync.Mutex // serializes mutations and syncs
}

// New creates a registry over the given stores. flags may be nil.
func New(transcripts *transcript.Store, taskStore *tasks.Store, flags *featureconfig.Store, historyStore *history.Store) *Registry {
	return &Registry{
		transcripts: transcripts,
		tasks:       taskStore,
		flags:       flags,
		history:     historyStore,
		newID:       uuid.NewString,
	}
}

// Sync discovers every transcript and reconciles the history cache with it.
func (r *Registry) Sync(ctx context.Context) (*history.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sync(ctx)
}

func (r *Registry) sync(ctx context.Context) (*history.Document, error) {
	start := time.Now()
	found, err := r.discoverWithMessages(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := r.history.Update(func(doc *history.Document) error {
		*doc = *Reconcile(doc, found)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save history: %w", err)
	}

	log.Debug().
		Int("sessions", len(found)).
		Int("conversations", len(doc.Conversations)).
		Dur("elapsed", time.Since(start)).
		Msg("history synced")
	return doc, nil
}

// CreateSession starts a new session whose first user message is title,
// with an empty task list, and returns its id.
func (r *Registry) CreateSession(ctx context.Context, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = transcript.UntitledTitle
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	if _, err := r.transcripts.Create(id, title); err != nil {
		return "", fmt.Errorf("failed to create transcript: %w", err)
	}
	if err := r.tasks.Save(id, []models.Task{}); err != nil {
		r.discard(id)
		return "", fmt.Errorf("failed to create task list: %w", err)
	}
	// The cache is written atomically, so a failed sync leaves it as it was
	if _, err := r.sync(ctx); err != nil {
		r.discard(id)
		return "", err
	}

	log.Info().Str("sessionId", id).Str("title", title).Msg("session created")
	return id, nil
}

// discard removes the files of a session whose creation failed.
func (r *Registry) discard(id string) {
	if err := r.transcripts.Delete(id); err != nil {
		log.Error().Err(err).Str("sessionId", id).Msg("failed to remove transcript of aborted session")
	}
	if err := r.tasks.Delete(id); err != nil {
		log.Error().Err(err).Str("sessionId", id).Msg("failed to remove task list of aborted session")
	}
}

// DeleteSession removes a session's transcript, task list and cache entry.
// key is a session id or, for entries that predate session ids, the numeric
// cache id. Callers holding this session as their active one must reset it.
func (r *Registry) DeleteSession(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.history.Load()
	if err != nil {
		return err
	}
	sessionID := resolve(doc, key)

	found := false
	if sessionID != "" && transcript.ValidSessionID(sessionID) {
		if _, err := r.transcripts.Locate(sessionID); err == nil {
			found = true
		}
		if err := r.transcripts.Delete(sessionID); err != nil {
			return err
		}
		if err := r.tasks.Delete(sessionID); err != nil {
			return err
		}
	}

	_, err = r.history.Update(func(doc *history.Document) error {
		if _, ok := doc.Remove(key); ok {
			found = true
		}
		if sessionID != "" && sessionID != key {
			if _, ok := doc.Remove(sessionID); ok {
				found = true
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, key)
	}

	log.Info().Str("sessionId", sessionID).Str("key", key).Msg("session deleted")
	return nil
}

// AddMessage appends a message to an existing session and re-syncs.
func (r *Registry) AddMessage(ctx context.Context, key, role, content string) error {
	if !models.ValidRole(role) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sessionID, err := r.locate(key)
	if err != nil {
		return err
	}
	if err := r.transcripts.Append(sessionID, role, content); err != nil {
		return err
	}
	_, err = r.sync(ctx)
	return err
}

// RenameSession records an explicit title. Entries without a transcript
// are renamed in the cache only.
func (r *Registry) RenameSession(ctx context.Context, key, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sessionID, err := r.locate(key)
	if err == nil {
		if err := r.transcripts.AppendTitle(sessionID, title); err != nil {
			return fmt.Errorf("failed to rename session: %w", err)
		}
		_, err = r.sync(ctx)
		return err
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return err
	}

	_, err = r.history.Update(func(doc *history.Document) error {
		i := doc.Find(key)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, key)
		}
		doc.Conversations[i].Title = title
		return nil
	})
	return err
}

// Conversations returns the cached conversations, newest first.
func (r *Registry) Conversations(ctx context.Context) ([]history.Conversation, error) {
	doc, err := r.history.Load()
	if err != nil {
		return nil, err
	}
	return doc.Conversations, nil
}

// Conversation returns one cached conversation by session id or numeric id.
func (r *Registry) Conversation(ctx context.Context, key string) (history.Conversation, error) {
	doc, err := r.history.Load()
	if err != nil {
		return history.Conversation{}, err
	}
	c, ok := doc.Get(key)
	if !ok {
		return history.Conversation{}, fmt.Errorf("%w: %s", ErrSessionNotFound, key)
	}
	return c, nil
}

// Group is the conversations living under one bucket.
type Group struct {
	Name          string                 `json:"name"`
	Conversations []history.Conversation `json:"conversations"`
}

// Groups returns conversations grouped by project bucket, in bucket search
// order. Conversations with any other group, legacy ones included, follow
// in order of first appearance.
func (r *Registry) Groups(ctx context.Context) ([]Group, error) {
	convs, err := r.Conversations(ctx)
	if err != nil {
		return nil, err
	}

	var groups []Group
	index := make(map[string]int)
	for _, b := range r.transcripts.Buckets() {
		index[b.Name] = len(groups)
		groups = append(groups, Group{Name: b.Name})
	}
	for _, c := range convs {
		i, ok := index[c.ProjectGroup]
		if !ok {
			i = len(groups)
			index[c.ProjectGroup] = i
			groups = append(groups, Group{Name: c.ProjectGroup})
		}
		groups[i].Conversations = append(groups[i].Conversations, c)
	}

	nonEmpty := groups[:0]
	for _, g := range groups {
		if len(g.Conversations) > 0 {
			nonEmpty = append(nonEmpty, g)
		}
	}
	return nonEmpty, nil
}

// Messages returns a session's messages read from its transcript, falling
// back to the cached copy for entries without one.
func (r *Registry) Messages(ctx context.Context, key string) ([]models.Message, error) {
	sessionID, err := r.locate(key)
	if err == nil {
		return r.transcripts.Messages(sessionID)
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}
	c, cerr := r.Conversation(ctx, key)
	if cerr != nil {
		return nil, cerr
	}
	return c.Messages, nil
}

// FeatureFlags returns a client over the session's feature-config snapshot.
func (r *Registry) FeatureFlags(ctx context.Context, key string) (*featureconfig.Client, error) {
	if r.flags == nil {
		return featureconfig.NewClient(nil), nil
	}
	doc, err := r.history.Load()
	if err != nil {
		return nil, err
	}
	return r.flags.Client(ctx, resolve(doc, key))
}

// locate resolves key to a session id that has a transcript.
func (r *Registry) locate(key string) (string, error) {
	sessionID := key
	if !transcript.ValidSessionID(key) || isNumeric(key) {
		doc, err := r.history.Load()
		if err != nil {
			return "", err
		}
		sessionID = resolve(doc, key)
	}
	if _, err := r.transcripts.Locate(sessionID); err != nil {
		if errors.Is(err, transcript.ErrNotFound) || errors.Is(err, transcript.ErrInvalidSessionID) {
			return "", fmt.Errorf("%w: %s", ErrSessionNotFound, key)
		}
		return "", err
	}
	return sessionID, nil
}

// resolve maps a cache key to a session id. Keys that match no cache entry
// are assumed to be session ids already; legacy entries resolve to "".
func resolve(doc *history.Document, key string) string {
	if c, ok := doc.Get(key); ok {
		return c.SessionID
	}
	return key
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
