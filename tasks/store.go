package tasks

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/xiaoyuanzhu-com/claudechat/config"
	"github.com/xiaoyuanzhu-com/claudechat/log"
	"github.com/xiaoyuanzhu-com/claudechat/models"
	"github.com/xiaoyuanzhu-com/claudechat/utils"
)

var (
	// ErrTaskNotFound is returned when a task id is not in the session's list.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidTask is returned for blank content or an unknown status or priority.
	ErrInvalidTask = errors.New("invalid task")
)

// Store keeps one JSON array of tasks per session under the todos directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a task store rooted at cfg.TodosDir.
func NewStore(cfg *config.Config) *Store {
	return &Store{dir: cfg.TodosDir}
}

// Dir returns the todos directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the task file for a session.
func (s *Store) Path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

// Exists reports whether the session has a task file.
func (s *Store) Exists(sessionID string) bool {
	return utils.FileExists(s.Path(sessionID))
}

// Load returns the session's tasks. A missing file is an empty list.
func (s *Store) Load(sessionID string) ([]models.Task, error) {
	if err := checkID(sessionID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(sessionID)
}

// Save replaces the session's task list atomically.
func (s *Store) Save(sessionID string, items []models.Task) error {
	if err := checkID(sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(sessionID, items)
}

// Delete removes the session's task file. A missing file is not an error.
func (s *Store) Delete(sessionID string) error {
	if err := checkID(sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := utils.RemoveIfExists(s.Path(sessionID)); err != nil {
		return fmt.Errorf("failed to delete tasks: %w", err)
	}
	return nil
}

// Add appends a new pending-by-default task and returns it.
func (s *Store) Add(sessionID, content, priority string) (models.Task, error) {
	if strings.TrimSpace(content) == "" {
		return models.Task{}, fmt.Errorf("%w: content is empty", ErrInvalidTask)
	}
	if err := checkID(sessionID); err != nil {
		return models.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(sessionID)
	if err != nil {
		return models.Task{}, err
	}
	task := models.Task{
		ID:       strconv.Itoa(models.NextTaskID(items)),
		Content:  content,
		Status:   models.StatusPending,
		Priority: priority,
	}
	items = append(items, task)
	if err := s.save(sessionID, items); err != nil {
		return models.Task{}, err
	}
	return models.NormalizeTasks([]models.Task{task})[0], nil
}

// Patch holds the fields an update may change. Nil fields are left alone.
type Patch struct {
	Content  *string `json:"content,omitempty"`
	Status   *string `json:"status,omitempty"`
	Priority *string `json:"priority,omitempty"`
}

// Update edits a task in place.
func (s *Store) Update(sessionID, taskID string, p Patch) (models.Task, error) {
	if p.Content != nil && strings.TrimSpace(*p.Content) == "" {
		return models.Task{}, fmt.Errorf("%w: content is empty", ErrInvalidTask)
	}
	if p.Status != nil && !models.ValidStatus(*p.Status) {
		return models.Task{}, fmt.Errorf("%w: status %q", ErrInvalidTask, *p.Status)
	}
	if p.Priority != nil && !models.ValidPriority(*p.Priority) {
		return models.Task{}, fmt.Errorf("%w: priority %q", ErrInvalidTask, *p.Priority)
	}
	if err := checkID(sessionID); err != nil {
		return models.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(sessionID)
	if err != nil {
		return models.Task{}, err
	}
	for i := range items {
		if items[i].ID != taskID {
			continue
		}
		if p.Content != nil {
			items[i].Content = *p.Content
		}
		if p.Status != nil {
			items[i].Status = *p.Status
		}
		if p.Priority != nil {
			items[i].Priority = *p.Priority
		}
		updated := items[i]
		if err := s.save(sessionID, items); err != nil {
			return models.Task{}, err
		}
		return models.NormalizeTasks([]models.Task{updated})[0], nil
	}
	return models.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
}

// Remove deletes one task by id.
func (s *Store) Remove(sessionID, taskID string) error {
	if err := checkID(sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(sessionID)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, item := range items {
		if item.ID != taskID {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return s.save(sessionID, kept)
}

func (s *Store) load(sessionID string) ([]models.Task, error) {
	var items []models.Task
	found, err := utils.ReadJSONFile(s.Path(sessionID), &items)
	if err != nil {
		return nil, err
	}
	if !found || items == nil {
		return []models.Task{}, nil
	}
	return items, nil
}

func (s *Store) save(sessionID string, items []models.Task) error {
	normalized := models.NormalizeTasks(items)
	if err := utils.WriteJSONAtomic(s.Path(sessionID), normalized); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to save tasks")
		return err
	}
	return nil
}

func checkID(sessionID string) error {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) || strings.HasPrefix(sessionID, ".") {
		return fmt.Errorf("invalid session id %q", sessionID)
	}
	return nil
}
