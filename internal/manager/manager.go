// Package manager owns the task list state and keeps the stored copy in
// sync with it.
//
// A Manager is driven from a single goroutine (the UI event loop) and does
// not lock its state. Every mutation is followed by a save of the whole list
// that runs in the background; the returned *Pending reports its outcome.
// Failures are also delivered to the configured Notifier.
//
// Editing is a small state machine:
//
//	Idle --BeginEdit--> Editing --CommitEdit/CancelEdit--> Idle
//	Editing --BeginEdit--> Editing (new target, previous edit dropped)
//	Editing --Delete(edited id)--> Idle
package manager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/nibzard/tasklist-go/internal/kvstore"
	"github.com/nibzard/tasklist-go/internal/logging"
	"github.com/nibzard/tasklist-go/internal/todo"
)

// DefaultKey is the store key holding the task list.
const DefaultKey = "tasks"

// State is an immutable snapshot of the manager's application state.
type State struct {
	Tasks     []todo.Task
	Editing   *todo.Task // nil when no task is being edited
	AddDraft  string
	EditDraft string
}

// IsEditing reports whether a task is being edited.
func (s State) IsEditing() bool {
	return s.Editing != nil
}

// Options configures a Manager.
type Options struct {
	Key      string           // Store key; DefaultKey if empty
	SaveMode SaveMode         // SaveConcurrent if empty
	NewID    todo.IDGenerator // UUIDv7 if nil
	Notifier Notifier         // Discards notices if nil
	Logger   *log.Logger      // Discards logs if nil
}

// Manager holds the task list, the editing sub-state and the two input
// drafts.
type Manager struct {
	store    kvstore.Store
	key      string
	mode     SaveMode
	newID    todo.IDGenerator
	notifier Notifier
	logger   *log.Logger
	saveCtx  context.Context

	tasks     []todo.Task
	editing   *todo.Task
	addDraft  string
	editDraft string

	subs    map[int]func(State)
	nextSub int

	seq      atomic.Uint64
	inflight tracker
	lastMu   sync.Mutex
	last     *Pending
	queue    *writeQueue
	closed   atomic.Bool
}

// New returns a manager with an empty list. Saves run under a context
// derived from ctx that is never canceled, so an issued save always runs to
// completion.
func New(ctx context.Context, store kvstore.Store, opts Options) (*Manager, error) {
	if store == nil {
		return nil, errors.New("manager: store is nil")
	}
	key := opts.Key
	if key == "" {
		key = DefaultKey
	}
	if err := kvstore.ValidateKey(key); err != nil {
		return nil, err
	}
	mode := opts.SaveMode
	if mode == "" {
		mode = SaveConcurrent
	}
	if _, err := ParseSaveMode(string(mode)); err != nil {
		return nil, err
	}
	newID := opts.NewID
	if newID == nil {
		newID = todo.NewUUIDGenerator()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = discardNotifier{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	m := &Manager{
		store:    store,
		key:      key,
		mode:     mode,
		newID:    newID,
		notifier: notifier,
		logger:   logger,
		saveCtx:  context.WithoutCancel(ctx),
		tasks:    []todo.Task{},
		subs:     make(map[int]func(State)),
	}
	if mode == SaveQueued {
		m.queue = newWriteQueue(m.write, m.abandon)
	}
	return m, nil
}

// Key returns the store key the manager reads and writes.
func (m *Manager) Key() string {
	return m.key
}

// Mode returns the save mode.
func (m *Manager) Mode() SaveMode {
	return m.mode
}

// Load replaces the in-memory list with the stored one. An absent key
// leaves the list empty. On a read or decode failure the list is emptied,
// the user is notified, and a *PersistenceError is returned.
func (m *Manager) Load(ctx context.Context) error {
	m.editing = nil
	m.editDraft = ""

	data, ok, err := m.store.Get(ctx, m.key)
	if err != nil {
		return m.loadFailed(err)
	}
	if !ok {
		m.tasks = []todo.Task{}
		m.logger.Info("no stored tasks", "key", m.key)
		m.emit()
		return nil
	}

	tasks, err := todo.Decode(data)
	if err != nil {
		return m.loadFailed(err)
	}
	if err := todo.CheckUnique(tasks); err != nil {
		m.logger.Warn("stored tasks have duplicate ids", "key", m.key, "err", err)
	}

	m.tasks = tasks
	m.logger.Info("loaded tasks", "key", m.key, "count", len(tasks))
	m.emit()
	return nil
}

func (m *Manager) loadFailed(err error) error {
	perr := &PersistenceError{Op: OpLoad, Key: m.key, Err: err}
	m.tasks = []todo.Task{}
	m.logger.Error("load tasks failed", "key", m.key, "err", err)
	m.notifier.Notify(persistenceNotice(perr))
	m.emit()
	return perr
}

// Save writes a snapshot of the current list in the background.
func (m *Manager) Save() *Pending {
	snapshot := todo.Clone(m.tasks)
	p := newPending(m.seq.Add(1), len(snapshot))

	m.lastMu.Lock()
	m.last = p
	m.lastMu.Unlock()

	if m.closed.Load() {
		m.fail(p, ErrClosed)
		return p
	}

	data, err := todo.Encode(snapshot)
	if err != nil {
		m.fail(p, err)
		return p
	}

	m.inflight.add()
	req := writeRequest{pending: p, data: data}
	m.logger.Debug("saving tasks", "key", m.key, "seq", p.seq, "count", p.count, "mode", m.mode)
	if m.queue != nil {
		m.queue.push(req)
		return p
	}
	go m.write(req)
	return p
}

func (m *Manager) write(req writeRequest) {
	defer m.inflight.done()
	if err := m.store.Set(m.saveCtx, m.key, req.data); err != nil {
		m.fail(req.pending, err)
		return
	}
	m.logger.Debug("saved tasks", "key", m.key, "seq", req.pending.seq, "count", req.pending.count)
	req.pending.finish(nil)
}

func (m *Manager) abandon(req writeRequest) {
	defer m.inflight.done()
	m.fail(req.pending, ErrClosed)
}

func (m *Manager) fail(p *Pending, err error) {
	perr := &PersistenceError{Op: OpSave, Key: m.key, Err: err}
	m.logger.Error("save tasks failed", "key", m.key, "seq", p.seq, "err", err)
	m.notifier.Notify(persistenceNotice(perr))
	p.finish(perr)
}

// Add appends a task with the trimmed text and clears the add draft.
// Empty text is rejected with a *ValidationError and nothing changes.
func (m *Manager) Add(text string) (todo.Task, *Pending, error) {
	trimmed, err := todo.ValidateText(text)
	if err != nil {
		m.notifier.Notify(validationNotice(err, "Please enter a task."))
		return todo.Task{}, nil, err
	}

	task := todo.Task{ID: m.newID(), Text: trimmed}
	tasks := make([]todo.Task, len(m.tasks), len(m.tasks)+1)
	copy(tasks, m.tasks)
	m.tasks = append(tasks, task)
	m.addDraft = ""
	m.logger.Debug("added task", "id", task.ID)

	p := m.Save()
	m.emit()
	return task, p, nil
}

// SetAddDraft replaces the add-input draft.
func (m *Manager) SetAddDraft(text string) {
	m.addDraft = text
	m.emit()
}

// SetEditDraft replaces the edit-input draft.
func (m *Manager) SetEditDraft(text string) {
	m.editDraft = text
	m.emit()
}

// BeginEdit selects task for editing and seeds the edit draft with its
// text. Any edit already in progress is dropped.
func (m *Manager) BeginEdit(task todo.Task) {
	t := task
	m.editing = &t
	m.editDraft = task.Text
	m.emit()
}

// CommitEdit writes the trimmed edit draft into the edited task. An empty
// draft is rejected with a *ValidationError and the edit stays open. With
// no edit in progress it does nothing and returns a nil *Pending.
func (m *Manager) CommitEdit() (*Pending, error) {
	trimmed, err := todo.ValidateText(m.editDraft)
	if err != nil {
		m.notifier.Notify(validationNotice(err, "Please enter a valid task."))
		return nil, err
	}
	if m.editing == nil {
		return nil, nil
	}

	id := m.editing.ID
	m.tasks, _ = todo.Replace(m.tasks, id, func(t todo.Task) todo.Task {
		return t.WithText(trimmed)
	})
	m.editing = nil
	m.editDraft = ""
	m.logger.Debug("edited task", "id", id)

	p := m.Save()
	m.emit()
	return p, nil
}

// CancelEdit drops the edit in progress without touching the list.
func (m *Manager) CancelEdit() {
	m.editing = nil
	m.editDraft = ""
	m.emit()
}

// Delete removes the task with id. An unknown id leaves the list as it is.
// Deleting the task under edit cancels the edit.
func (m *Manager) Delete(id string) *Pending {
	var removed bool
	m.tasks, removed = todo.Remove(m.tasks, id)
	if m.editing != nil && m.editing.ID == id {
		m.editing = nil
		m.editDraft = ""
	}
	if removed {
		m.logger.Debug("deleted task", "id", id)
	}

	p := m.Save()
	m.emit()
	return p
}

// ToggleCompleted flips the completed flag of the task with id. An unknown
// id leaves the list as it is.
func (m *Manager) ToggleCompleted(id string) *Pending {
	var toggled bool
	m.tasks, toggled = todo.Replace(m.tasks, id, todo.Task.Toggled)
	if toggled {
		m.logger.Debug("toggled task", "id", id)
	}

	p := m.Save()
	m.emit()
	return p
}

// Tasks returns a copy of the current list.
func (m *Manager) Tasks() []todo.Task {
	return todo.Clone(m.tasks)
}

// Find returns the task with id.
func (m *Manager) Find(id string) (todo.Task, bool) {
	return todo.Find(m.tasks, id)
}

// Editing returns the task under edit.
func (m *Manager) Editing() (todo.Task, bool) {
	if m.editing == nil {
		return todo.Task{}, false
	}
	return *m.editing, true
}

// AddDraft returns the add-input draft.
func (m *Manager) AddDraft() string {
	return m.addDraft
}

// EditDraft returns the edit-input draft.
func (m *Manager) EditDraft() string {
	return m.editDraft
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() State {
	s := State{
		Tasks:     todo.Clone(m.tasks),
		AddDraft:  m.addDraft,
		EditDraft: m.editDraft,
	}
	if m.editing != nil {
		t := *m.editing
		s.Editing = &t
	}
	return s
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that made the change. The returned function
// removes the subscription.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		delete(m.subs, id)
	}
}

func (m *Manager) emit() {
	if len(m.subs) == 0 {
		return
	}
	s := m.Snapshot()
	for _, fn := range m.subs {
		fn(s)
	}
}

// Flush waits for every save issued so far and returns the result of the
// most recently issued one only. Each save writes the whole list, so an
// earlier failure followed by a later success leaves the store current;
// earlier failures are reported through the Notifier and their Pending.
func (m *Manager) Flush(ctx context.Context) error {
	select {
	case <-m.inflight.wait():
	case <-ctx.Done():
		return ctx.Err()
	}

	m.lastMu.Lock()
	last := m.last
	m.lastMu.Unlock()
	if last == nil {
		return nil
	}
	return last.Err()
}

// Close flushes pending saves and stops the writer. Saves issued after
// Close fail with ErrClosed. Close returns ctx.Err() once ctx is done, even
// if a write is still running. The store is not closed.
func (m *Manager) Close(ctx context.Context) error {
	err := m.Flush(ctx)
	if m.closed.Swap(true) {
		return err
	}
	if m.queue != nil {
		if qerr := m.queue.close(ctx); err == nil {
			err = qerr
		}
	}
	return err
}
