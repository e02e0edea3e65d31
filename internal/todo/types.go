// Package todo defines tasks and their persisted list encoding.
package todo

import (
	"errors"
	"fmt"
	"strings"
)

// Task represents a single to-do item.
//
// Tasks are treated as values: edits and toggles produce a new Task that
// replaces the old one in the list.
type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// IsZero returns true if the task is empty (has no ID).
func (t Task) IsZero() bool {
	return t.ID == ""
}

// WithText returns a copy of t with its text replaced.
func (t Task) WithText(text string) Task {
	t.Text = text
	return t
}

// Toggled returns a copy of t with the completed flag flipped.
func (t Task) Toggled() Task {
	t.Completed = !t.Completed
	return t
}

// ErrEmptyText is returned when task text is empty or whitespace only.
var ErrEmptyText = errors.New("text must not be empty")

// ValidationError represents rejected user input with context.
type ValidationError struct {
	Field string // Input that failed validation ("text")
	Err   error  // Underlying error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateText trims text and rejects it if nothing remains. Invalid UTF-8
// sequences are replaced with U+FFFD, as the JSON encoding would store them.
func ValidateText(text string) (string, error) {
	trimmed := strings.TrimSpace(strings.ToValidUTF8(text, "\uFFFD"))
	if trimmed == "" {
		return "", &ValidationError{Field: "text", Err: ErrEmptyText}
	}
	return trimmed, nil
}

// Index returns the position of the task with id, or -1.
func Index(tasks []Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the task with id and whether it exists.
func Find(tasks []Task, id string) (Task, bool) {
	if i := Index(tasks, id); i >= 0 {
		return tasks[i], true
	}
	return Task{}, false
}

// Clone returns a copy of tasks that shares no backing array.
// A nil input yields an empty, non-nil slice.
func Clone(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}

// Replace returns a new list where the task with id is passed through fn.
// The second result reports whether a task matched.
func Replace(tasks []Task, id string, fn func(Task) Task) ([]Task, bool) {
	out := Clone(tasks)
	i := Index(out, id)
	if i < 0 {
		return out, false
	}
	out[i] = fn(out[i])
	return out, true
}

// Remove returns a new list without the task with id.
// The second result reports whether a task was removed.
func Remove(tasks []Task, id string) ([]Task, bool) {
	out := make([]Task, 0, len(tasks))
	removed := false
	for _, t := range tasks {
		if t.ID == id {
			removed = true
			continue
		}
		out = append(out, t)
	}
	return out, removed
}

// DuplicateIDError lists ids that appear more than once in a task list.
type DuplicateIDError struct {
	IDs []string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate task ids: %s", strings.Join(e.IDs, ", "))
}

// CheckUnique returns a *DuplicateIDError if any id repeats.
func CheckUnique(tasks []Task) error {
	seen := make(map[string]int, len(tasks))
	var dups []string
	for _, t := range tasks {
		seen[t.ID]++
		if seen[t.ID] == 2 {
			dups = append(dups, t.ID)
		}
	}
	if len(dups) > 0 {
		return &DuplicateIDError{IDs: dups}
	}
	return nil
}

// CountCompleted returns how many tasks are completed.
func CountCompleted(tasks []Task) int {
	n := 0
	for _, t := range tasks {
		if t.Completed {
			n++
		}
	}
	return n
}
