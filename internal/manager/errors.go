package manager

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nibzard/tasklist-go/internal/todo"
)

// Persistence operations.
const (
	OpLoad = "load"
	OpSave = "save"
)

// ErrClosed is returned for saves issued after Close.
var ErrClosed = errors.New("manager is closed")

// PersistenceError reports a failed store read, store write, or a stored
// value that could not be decoded.
type PersistenceError struct {
	Op  string // OpLoad or OpSave
	Key string // Store key
	Err error  // Underlying error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ValidationError is re-exported so callers of the manager need not import
// the todo package to match it with errors.As.
type ValidationError = todo.ValidationError

// NoticeLevel is the severity of a user-facing notice.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

// Notice is a user-facing notification.
type Notice struct {
	Level   NoticeLevel
	Title   string
	Message string
	Err     error
}

// String renders the notice on one line.
func (n Notice) String() string {
	var b strings.Builder
	if n.Title != "" {
		b.WriteString(n.Title)
		b.WriteString(": ")
	}
	b.WriteString(n.Message)
	if n.Err != nil {
		b.WriteString(" (")
		b.WriteString(n.Err.Error())
		b.WriteString(")")
	}
	return b.String()
}

// Notifier receives notices. Implementations must be safe for concurrent
// use: save failures are reported from the goroutine running the save.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) {
	f(n)
}

type discardNotifier struct{}

func (discardNotifier) Notify(Notice) {}

func validationNotice(err error, message string) Notice {
	return Notice{Level: NoticeWarn, Title: "Invalid task", Message: message, Err: err}
}

func persistenceNotice(err *PersistenceError) Notice {
	message := "Could not save tasks."
	if err.Op == OpLoad {
		message = "Could not load tasks."
	}
	return Notice{Level: NoticeError, Title: "Storage error", Message: message, Err: err}
}
