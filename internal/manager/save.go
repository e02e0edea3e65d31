package manager

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// SaveMode controls how overlapping saves reach the store.
type SaveMode string

const (
	// SaveConcurrent runs every save on its own goroutine. Overlapping
	// writes are not ordered and the last one to finish wins.
	SaveConcurrent SaveMode = "concurrent"
	// SaveQueued hands saves to a single writer in issue order, so the
	// store always ends at the newest snapshot.
	SaveQueued SaveMode = "queued"
)

// ParseSaveMode parses a save mode name. Empty selects concurrent.
func ParseSaveMode(s string) (SaveMode, error) {
	switch SaveMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SaveConcurrent:
		return SaveConcurrent, nil
	case SaveQueued:
		return SaveQueued, nil
	default:
		return "", fmt.Errorf("unknown save mode %q (want concurrent or queued)", s)
	}
}

// Pending is the future for one issued save.
type Pending struct {
	seq   uint64
	count int
	done  chan struct{}
	err   error
}

func newPending(seq uint64, count int) *Pending {
	return &Pending{seq: seq, count: count, done: make(chan struct{})}
}

// Seq returns the save's issue order, starting at 1.
func (p *Pending) Seq() uint64 {
	return p.seq
}

// Count returns how many tasks the saved snapshot held.
func (p *Pending) Count() int {
	return p.count
}

// Done is closed when the save has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Err returns the save's result, or nil while it is still running.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the save finishes or ctx is done. Abandoning the wait
// does not cancel the save.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pending) finish(err error) {
	p.err = err
	close(p.done)
}

type writeRequest struct {
	pending *Pending
	data    []byte
}

// writeQueue feeds write requests to one goroutine in FIFO order. It never
// blocks the producer.
type writeQueue struct {
	mu    sync.Mutex
	items []writeRequest
	wake  chan struct{}
	stop  chan struct{}
	done  chan struct{}
}

func newWriteQueue(write func(writeRequest), abandon func(writeRequest)) *writeQueue {
	q := &writeQueue{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go q.run(write, abandon)
	return q
}

func (q *writeQueue) push(r writeRequest) {
	q.mu.Lock()
	q.items = append(q.items, r)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *writeQueue) next() (writeRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return writeRequest{}, false
	}
	r := q.items[0]
	q.items[0] = writeRequest{}
	q.items = q.items[1:]
	return r, true
}

func (q *writeQueue) run(write func(writeRequest), abandon func(writeRequest)) {
	defer close(q.done)
	for {
		if r, ok := q.next(); ok {
			write(r)
			continue
		}
		select {
		case <-q.wake:
		case <-q.stop:
			for {
				r, ok := q.next()
				if !ok {
					return
				}
				abandon(r)
			}
		}
	}
}

// close stops the writer and waits for it to drain, or until ctx is done.
// A write still running when ctx expires finishes in the background.
func (q *writeQueue) close(ctx context.Context) error {
	close(q.stop)
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tracker counts saves that have been issued but not finished.
type tracker struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func (t *tracker) add() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.n == 0 {
		t.idle = make(chan struct{})
	}
	t.n++
}

func (t *tracker) done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n--
	if t.n == 0 {
		close(t.idle)
	}
}

// wait returns a channel that is closed once no saves are in flight.
func (t *tracker) wait() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.n == 0 {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return t.idle
}
