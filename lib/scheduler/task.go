// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"fmt"
	"sync"
	"time"
)

// Forever is a Repeat value for tasks that run until removed or until
// the scheduler closes.
const Forever = -1

// State is a task's position in its lifecycle.
type State int

const (
	// Scheduled tasks wait for their next due tick.
	Scheduled State = iota
	// Running tasks are executing their Func.
	Running
	// Completed tasks have spent their repeat budget and have left the
	// active set.
	Completed
)

func (s State) String() string {
	switch s {
	case Scheduled:
		return "scheduled"
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Func is a task body. It receives the scheduler so that it can Emit
// domain events or Add further tasks.
type Func func(s *Scheduler) error

// Task is a unit of recurring work. Create tasks with
// Scheduler.CreateTask, set the exported fields, then Add. The
// exported fields must not change after Add.
type Task struct {
	ID   string
	Name string
	Func Func

	// Repeat is the number of executions: positive for exactly that
	// many, zero for one, Forever for no limit.
	Repeat int

	// Interval, when positive, spaces executions by at least this much
	// clock time.
	Interval time.Duration

	// Schedule, when set, makes the task due at each of its
	// occurrences. It takes precedence over Interval.
	Schedule *Schedule

	mu       sync.Mutex
	state    State
	executed int
	lastRun  time.Time
	next     time.Time
}

// State returns the task's current state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Executed returns the number of completed executions.
func (t *Task) Executed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.executed
}

// LastRun returns the clock time of the most recent execution, or the
// zero time if the task has not run.
func (t *Task) LastRun() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRun
}

// Next returns the next cron occurrence for scheduled tasks, or the
// zero time for tasks without a Schedule.
func (t *Task) Next() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.next
}

func (t *Task) label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// budget returns the total number of executions allowed, or -1 for no
// limit.
func (t *Task) budget() int {
	switch {
	case t.Repeat < 0:
		return -1
	case t.Repeat == 0:
		return 1
	default:
		return t.Repeat
	}
}

func (t *Task) dueLocked(now time.Time) bool {
	switch {
	case t.Schedule != nil:
		return !now.Before(t.next)
	case t.Interval > 0:
		return t.lastRun.IsZero() || !now.Before(t.lastRun.Add(t.Interval))
	default:
		return true
	}
}

// TaskError reports a task execution that returned an error or
// panicked.
type TaskError struct {
	TaskID string
	Name   string

	// Err is the returned error, or a description of the panic.
	Err error

	// Panic holds the recovered value when the task panicked.
	Panic any
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s (%s): %v", e.Name, e.TaskID, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }
