package registry

import (
	"context"

	"github.com/xiaoyuanzhu-com/claudechat/models"
	"github.com/xiaoyuanzhu-com/claudechat/tasks"
)

// Tasks returns the session's task list.
func (r *Registry) Tasks(ctx context.Context, key string) ([]models.Task, error) {
	sessionID, err := r.taskSession(key)
	if err != nil {
		return nil, err
	}
	return r.tasks.Load(sessionID)
}

// AddTask appends a task to an existing session.
func (r *Registry) AddTask(ctx context.Context, key, content, priority string) (models.Task, error) {
	sessionID, err := r.taskSession(key)
	if err != nil {
		return models.Task{}, err
	}
	return r.tasks.Add(sessionID, content, priority)
}

// UpdateTask edits one task in place.
func (r *Registry) UpdateTask(ctx context.Context, key, taskID string, p tasks.Patch) (models.Task, error) {
	sessionID, err := r.taskSession(key)
	if err != nil {
		return models.Task{}, err
	}
	return r.tasks.Update(sessionID, taskID, p)
}

// RemoveTask deletes one task.
func (r *Registry) RemoveTask(ctx context.Context, key, taskID string) error {
	sessionID, err := r.taskSession(key)
	if err != nil {
		return err
	}
	return r.tasks.Remove(sessionID, taskID)
}

// taskSession resolves key to a session that still has a transcript.
func (r *Registry) taskSession(key string) (string, error) {
	return r.locate(key)
}
