// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package scheduler runs recurring tasks on a clock and publishes
// their lifecycle to observers.
//
// A Task moves through Scheduled, Running, and back to Scheduled until
// its repeat budget is spent, at which point it becomes Completed and
// leaves the active set. On every tick each due task runs once, in the
// order tasks were added. A task that returns an error or panics is
// reported through an "error" event and otherwise treated like any
// other run: it does not stop the tick, other tasks, or later ticks.
//
// Events:
//
//   - "run" after every execution, carrying the task.
//   - "error" before "run" when the execution failed, carrying a
//     *TaskError.
//   - any other name a task raises with Emit, carrying its data. The
//     scheduler forwards these without interpreting them.
//
// By default a task is due on every tick. Setting Task.Interval makes
// it due once that much clock time has passed since its last run;
// setting Task.Schedule makes it due at each occurrence of a cron
// expression (see ParseSchedule).
//
// Tests drive the scheduler deterministically with clock.Fake and
// either Tick or Start plus FakeClock.Advance.
package scheduler
