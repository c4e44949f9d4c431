// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets time-driven components such as the task
// scheduler run against either the wall clock or a test-controlled
// fake.
//
// Components hold a Clock field. Binaries pass Real(); tests pass a
// FakeClock and move time forward explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	s := scheduler.New(scheduler.Options{Clock: c, Interval: time.Second})
//	s.Start(ctx)
//	c.WaitForTickers(1)
//	c.Advance(time.Second)
package clock
