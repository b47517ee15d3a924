package models

import (
	"strconv"
	"strings"
)

// Task statuses
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Task priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task is one entry of a session's task list.
// ActiveForm is written by the external tool and preserved when present.
type Task struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	Status     string `json:"status"`
	Priority   string `json:"priority"`
	ActiveForm string `json:"activeForm,omitempty"`
}

// ValidStatus reports whether s is a known task status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known task priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// NormalizeTasks trims content, drops empty tasks, lowercases status and
// priority falling back to pending/medium, and assigns numeric ids to tasks
// that have none. The input slice is not modified.
func NormalizeTasks(items []Task) []Task {
	normalized := make([]Task, 0, len(items))
	next := NextTaskID(items)
	for _, item := range items {
		content := strings.TrimSpace(item.Content)
		if content == "" {
			continue
		}
		if strings.TrimSpace(item.ID) == "" {
			item.ID = strconv.Itoa(next)
			next++
		}
		status := strings.ToLower(strings.TrimSpace(item.Status))
		if !ValidStatus(status) {
			status = StatusPending
		}
		priority := strings.ToLower(strings.TrimSpace(item.Priority))
		if !ValidPriority(priority) {
			priority = PriorityMedium
		}
		item.Content = content
		item.Status = status
		item.Priority = priority
		normalized = append(normalized, item)
	}
	return normalized
}

// NextTaskID returns one more than the largest numeric id in items.
// Non-numeric ids are ignored; an empty list starts at 1.
func NextTaskID(items []Task) int {
	max := 0
	for _, item := range items {
		if n, err := strconv.Atoi(item.ID); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}
