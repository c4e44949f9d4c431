// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schedule is a parsed five-field cron expression
// (minute hour day-of-month month day-of-week), evaluated in UTC.
//
// Fields accept "*", values, ranges ("1-5"), lists ("1,3,5"), and
// steps ("*/15", "10-40/10", "5/20"). The macros @hourly, @daily,
// @midnight, @weekly, @monthly, @yearly, and @annually are accepted in
// place of the five fields. Day-of-month and day-of-week must both
// match.
type Schedule struct {
	expression string
	fields     [fieldCount]uint64
}

const (
	minuteField = iota
	hourField
	dayOfMonthField
	monthField
	dayOfWeekField
	fieldCount
)

var fieldBounds = [fieldCount]struct {
	name     string
	min, max int
}{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 6},
}

var macros = map[string]string{
	"@hourly":   "0 * * * *",
	"@daily":    "0 0 * * *",
	"@midnight": "0 0 * * *",
	"@weekly":   "0 0 * * 0",
	"@monthly":  "0 0 1 * *",
	"@yearly":   "0 0 1 1 *",
	"@annually": "0 0 1 1 *",
}

// searchHorizon bounds Next so that impossible schedules such as
// February 30 fail instead of looping.
const searchHorizon = 4 // years

// ParseSchedule parses a cron expression.
func ParseSchedule(expression string) (*Schedule, error) {
	trimmed := strings.TrimSpace(expression)
	if expanded, ok := macros[trimmed]; ok {
		trimmed = expanded
	}
	parts := strings.Fields(trimmed)
	if len(parts) != fieldCount {
		return nil, fmt.Errorf("schedule %q: want %d fields, have %d", expression, fieldCount, len(parts))
	}

	schedule := &Schedule{expression: expression}
	for i, part := range parts {
		bounds := fieldBounds[i]
		set, err := parseCronField(part, bounds.min, bounds.max)
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %s: %w", expression, bounds.name, err)
		}
		schedule.fields[i] = set
	}
	return schedule, nil
}

// MustParseSchedule is ParseSchedule for expressions known to be
// valid. Panics on error.
func MustParseSchedule(expression string) *Schedule {
	schedule, err := ParseSchedule(expression)
	if err != nil {
		panic(err)
	}
	return schedule
}

// String returns the expression the schedule was parsed from.
func (s *Schedule) String() string { return s.expression }

func (s *Schedule) has(field, value int) bool {
	return s.fields[field]&(1<<uint(value)) != 0
}

// Next returns the first whole minute strictly after after that
// matches the schedule.
func (s *Schedule) Next(after time.Time) (time.Time, error) {
	t := after.UTC().Truncate(time.Minute).Add(time.Minute)
	horizon := t.AddDate(searchHorizon, 0, 0)

	for t.Before(horizon) {
		switch {
		case !s.has(monthField, int(t.Month())):
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
		case !s.has(dayOfMonthField, t.Day()) || !s.has(dayOfWeekField, int(t.Weekday())):
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
		case !s.has(hourField, t.Hour()):
			t = t.Truncate(time.Hour).Add(time.Hour)
		case !s.has(minuteField, t.Minute()):
			t = t.Add(time.Minute)
		default:
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("schedule %q: no occurrence within %d years of %s",
		s.expression, searchHorizon, after.UTC().Format(time.RFC3339))
}

func parseCronField(field string, min, max int) (uint64, error) {
	var set uint64
	for _, term := range strings.Split(field, ",") {
		low, high, step, err := parseCronTerm(term, min, max)
		if err != nil {
			return 0, err
		}
		for value := low; value <= high; value += step {
			set |= 1 << uint(value)
		}
	}
	return set, nil
}

// parseCronTerm returns the inclusive range and step of one list
// element.
func parseCronTerm(term string, min, max int) (low, high, step int, err error) {
	base, stepText, stepped := strings.Cut(term, "/")
	step = 1
	if stepped {
		step, err = strconv.Atoi(stepText)
		if err != nil || step <= 0 {
			return 0, 0, 0, fmt.Errorf("bad step %q", stepText)
		}
	}

	switch {
	case base == "*":
		low, high = min, max
	case strings.Contains(base, "-"):
		lowText, highText, _ := strings.Cut(base, "-")
		if low, err = strconv.Atoi(lowText); err != nil {
			return 0, 0, 0, fmt.Errorf("bad range start %q", lowText)
		}
		if high, err = strconv.Atoi(highText); err != nil {
			return 0, 0, 0, fmt.Errorf("bad range end %q", highText)
		}
		if low > high {
			return 0, 0, 0, fmt.Errorf("range %q is backwards", base)
		}
	default:
		if low, err = strconv.Atoi(base); err != nil {
			return 0, 0, 0, fmt.Errorf("bad value %q", base)
		}
		high = low
		if stepped {
			high = max
		}
	}

	if low < min || high > max {
		return 0, 0, 0, fmt.Errorf("%q outside %d-%d", term, min, max)
	}
	return low, high, step, nil
}
