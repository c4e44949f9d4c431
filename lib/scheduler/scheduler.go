// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/switchboard/lib/clock"
	"github.com/bureau-foundation/switchboard/lib/events"
)

// Built-in event names.
const (
	EventRun   = "run"
	EventError = "error"
)

// DefaultInterval is the tick interval used when Options.Interval is
// zero.
const DefaultInterval = time.Second

var (
	// ErrClosed is returned by Add and Start after Close.
	ErrClosed = errors.New("scheduler closed")

	// ErrStarted is returned by a second Start.
	ErrStarted = errors.New("scheduler already started")
)

// Options configures a Scheduler.
type Options struct {
	// Clock drives ticks and due-time checks. Defaults to
	// clock.Real().
	Clock clock.Clock

	// Interval is the tick period used by Start. Defaults to
	// DefaultInterval.
	Interval time.Duration

	Logger *slog.Logger
}

// Event is delivered to observers.
type Event struct {
	Scheduler *Scheduler

	// Task is set for "run" and "error" events.
	Task *Task

	// Err is a *TaskError for "error" events.
	Err error

	// Data is the payload passed to Emit for domain events.
	Data any
}

// Scheduler owns a set of active tasks and runs the due ones on each
// tick.
type Scheduler struct {
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger
	events   *events.Bus[Event]

	// tickMu serializes ticks.
	tickMu sync.Mutex

	mu      sync.Mutex
	tasks   []*Task
	closed  bool
	started bool
	ticker  *clock.Ticker
	stop    chan struct{}
}

// New returns an idle Scheduler. Call Start to tick on the clock, or
// call Tick directly.
func New(options Options) *Scheduler {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Interval <= 0 {
		options.Interval = DefaultInterval
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	s := &Scheduler{
		clock:    options.Clock,
		interval: options.Interval,
		logger:   options.Logger,
		stop:     make(chan struct{}),
	}
	s.events = events.New[Event](func(name string, err error) {
		s.logger.Error("scheduler observer panicked", "event", name, "error", err)
	})
	return s
}

// CreateTask returns a new Scheduled task with a fresh id. It is not
// active until passed to Add.
func (s *Scheduler) CreateTask() *Task {
	return &Task{ID: uuid.NewString(), state: Scheduled}
}

// Add puts task into the active set. Adding a task that is already
// active is a no-op. Safe to call from within a task's Func.
func (s *Scheduler) Add(task *Task) error {
	if task == nil || task.Func == nil {
		return errors.New("scheduler: task has no Func")
	}

	task.mu.Lock()
	if task.state == Completed {
		task.mu.Unlock()
		return fmt.Errorf("scheduler: task %s already completed", task.label())
	}
	if task.Schedule != nil {
		next, err := task.Schedule.Next(s.clock.Now())
		if err != nil {
			task.mu.Unlock()
			return fmt.Errorf("scheduler: task %s: %w", task.label(), err)
		}
		task.next = next
	}
	task.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if slices.Contains(s.tasks, task) {
		return nil
	}
	s.tasks = append(s.tasks, task)
	s.logger.Debug("task added", "task", task.label(), "repeat", task.Repeat)
	return nil
}

// Remove takes task out of the active set without completing it.
// Returns false if it was not active.
func (s *Scheduler) Remove(task *Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := slices.Index(s.tasks, task)
	if index < 0 {
		return false
	}
	s.tasks = slices.Delete(s.tasks, index, index+1)
	return true
}

// Active returns the active tasks in insertion order.
func (s *Scheduler) Active() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tasks)
}

// On subscribes observer to the named event: "run", "error", or any
// domain event name.
func (s *Scheduler) On(name string, observer events.Observer[Event]) (unsubscribe func()) {
	return s.events.Subscribe(name, observer)
}

// Emit forwards a domain event to observers of name and returns the
// number notified.
func (s *Scheduler) Emit(name string, data any) int {
	return s.events.Publish(name, Event{Scheduler: s, Data: data})
}

// Tick runs every due task once, in insertion order. Task funcs run
// without scheduler locks held. A due task removed by an earlier task
// in the same tick is skipped.
func (s *Scheduler) Tick() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	now := s.clock.Now()
	for _, task := range s.due(now) {
		if s.isClosed() {
			return
		}
		if !s.isActive(task) {
			continue
		}
		s.execute(task, now)
	}
}

func (s *Scheduler) due(now time.Time) []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*Task
	for _, task := range s.tasks {
		task.mu.Lock()
		if task.state == Scheduled && task.dueLocked(now) {
			due = append(due, task)
		}
		task.mu.Unlock()
	}
	return due
}

func (s *Scheduler) execute(task *Task, now time.Time) {
	task.mu.Lock()
	task.state = Running
	task.mu.Unlock()

	err := s.call(task)

	task.mu.Lock()
	task.executed++
	task.lastRun = now
	budget := task.budget()
	exhausted := budget >= 0 && task.executed >= budget
	if exhausted {
		task.state = Completed
	} else {
		task.state = Scheduled
		if task.Schedule != nil {
			next, scheduleErr := task.Schedule.Next(now)
			if scheduleErr != nil {
				// No further occurrence: nothing left to run.
				task.state = Completed
				exhausted = true
			}
			task.next = next
		}
	}
	executed := task.executed
	task.mu.Unlock()

	if err != nil {
		s.logger.Warn("task failed", "task", task.label(), "executed", executed, "error", err)
		s.events.Publish(EventError, Event{Scheduler: s, Task: task, Err: err})
	}
	s.events.Publish(EventRun, Event{Scheduler: s, Task: task})

	if exhausted {
		s.Remove(task)
		s.logger.Debug("task completed", "task", task.label(), "executed", executed)
	}
}

// call runs task.Func, converting a returned error or a panic into a
// *TaskError.
func (s *Scheduler) call(task *Task) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = &TaskError{
				TaskID: task.ID,
				Name:   task.Name,
				Err:    fmt.Errorf("panic: %v", recovered),
				Panic:  recovered,
			}
		}
	}()
	if funcErr := task.Func(s); funcErr != nil {
		return &TaskError{TaskID: task.ID, Name: task.Name, Err: funcErr}
	}
	return nil
}

// Start begins ticking every Options.Interval until ctx is done or
// Close is called. Returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.started {
		return ErrStarted
	}
	s.started = true
	s.ticker = s.clock.NewTicker(s.interval)

	go s.loop(ctx, s.ticker)
	s.logger.Info("scheduler started", "interval", s.interval)
	return nil
}

func (s *Scheduler) loop(ctx context.Context, ticker *clock.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

func (s *Scheduler) isActive(task *Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.tasks, task)
}

func (s *Scheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops the ticker and discards the active set. A tick already
// in progress finishes its current task and runs no more. Safe to
// call more than once and from within a task.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.tasks = nil
	close(s.stop)
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.logger.Info("scheduler closed")
	return nil
}
