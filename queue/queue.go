package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/xmr-keys/errors"
)

// Config holds configuration for queue creation
type Config struct {
	// Name identifies the queue in log output.
	Name string

	// Logger overrides the package logger for this queue.
	Logger *zap.Logger

	// FaultTimeout bounds how long a completion-signaled unit that panicked
	// keeps the worker waiting for its completion. Zero waits until it fires.
	FaultTimeout time.Duration
}

// Queue runs submitted units of work one at a time, in submission order.
//
// A single worker goroutine drains the pending list. A unit holds the
// worker until it finishes; for completion-signaled units that means until
// the completion callback fires, not when the submitted function returns.
// A completion-signaled unit that panics may already have handed its
// callback to other work, so it keeps the worker until the callback fires.
type Queue struct {
	log          *zap.Logger
	wake         chan struct{}
	stopped      chan struct{}
	name         string
	pending      []*unit
	seq          uint64
	faultTimeout time.Duration
	mu           sync.Mutex
	busy         atomic.Bool
	closed       bool
}

type unit struct {
	ctx   context.Context
	run   func(ctx context.Context, finish func())
	fail  func(err error)
	op    string
	seq   uint64
	async bool
}

// New creates a queue and starts its worker.
func New(cfg *Config) *Queue {
	q := &Queue{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		pending: make([]*unit, 0, 16),
	}
	if cfg != nil {
		q.name = cfg.Name
		q.log = cfg.Logger
		q.faultTimeout = cfg.FaultTimeout
	}
	if q.log == nil {
		q.log = Logger()
	}
	if q.name != "" {
		q.log = q.log.With(zap.String("queue", q.name))
	}

	go q.loop()
	return q
}

// Name returns the queue name given at construction.
func (q *Queue) Name() string {
	return q.name
}

// Len returns the number of units waiting to run, excluding the running one.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Busy reports whether a unit is currently executing.
func (q *Queue) Busy() bool {
	return q.busy.Load()
}

// Closed reports whether the queue stopped accepting work.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops accepting work and waits until every already submitted unit
// has run. It returns ctx.Err() if ctx ends first; the worker keeps draining
// in the background.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.signal()
	}
	q.mu.Unlock()

	select {
	case <-q.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue appends u to the pending list. It never blocks on the worker.
func (q *Queue) enqueue(u *unit) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return errors.QueueClosed(u.op)
	}
	q.seq++
	u.seq = q.seq
	q.pending = append(q.pending, u)
	q.signal()
	return nil
}

// signal wakes the worker. Must be called with q.mu held.
func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) next() (*unit, bool) {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			u := q.pending[0]
			q.pending[0] = nil
			q.pending = q.pending[1:]
			q.mu.Unlock()
			return u, true
		}
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		q.mu.Unlock()
		<-q.wake
	}
}

func (q *Queue) loop() {
	defer close(q.stopped)
	for {
		u, ok := q.next()
		if !ok {
			q.log.Debug("queue drained and stopped")
			return
		}
		q.execute(u)
	}
}

func (q *Queue) execute(u *unit) {
	q.busy.Store(true)
	defer q.busy.Store(false)

	start := time.Now()
	finished := make(chan struct{})
	var once sync.Once
	finish := func() {
		once.Do(func() { close(finished) })
	}

	q.log.Debug("task started", zap.String("op", u.op), zap.Uint64("seq", u.seq))

	faulted := false

	func() {
		defer func() {
			if r := recover(); r != nil {
				q.log.Error("task panicked",
					zap.String("op", u.op),
					zap.Uint64("seq", u.seq),
					zap.Any("panic", r))
				u.fail(errors.Panic(u.op, r))
				if !u.async {
					finish()
					return
				}
				faulted = true
			}
		}()
		u.run(u.ctx, finish)
	}()

	if faulted {
		q.awaitFaulted(u, finished)
	} else {
		<-finished
	}
	q.log.Debug("task finished",
		zap.String("op", u.op),
		zap.Uint64("seq", u.seq),
		zap.Duration("elapsed", time.Since(start)))
}

// awaitFaulted holds the worker for a panicked completion-signaled unit
// until its completion fires or the fault timeout passes.
func (q *Queue) awaitFaulted(u *unit, finished <-chan struct{}) {
	select {
	case <-finished:
		return
	default:
	}

	q.log.Warn("task panicked before completion, holding queue",
		zap.String("op", u.op),
		zap.Uint64("seq", u.seq))

	if q.faultTimeout <= 0 {
		<-finished
		return
	}

	timer := time.NewTimer(q.faultTimeout)
	defer timer.Stop()
	select {
	case <-finished:
	case <-timer.C:
		q.log.Error("completion never signaled after panic, releasing queue",
			zap.String("op", u.op),
			zap.Uint64("seq", u.seq),
			zap.Duration("timeout", q.faultTimeout))
	}
}
