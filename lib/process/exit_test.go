// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"testing"
)

func TestReport(t *testing.T) {
	var buffer bytes.Buffer
	report(&buffer, errors.New("listening on :8080: address in use"))
	if got, want := buffer.String(), "error: listening on :8080: address in use\n"; got != want {
		t.Errorf("report wrote %q, want %q", got, want)
	}
}

func TestFatalExitsWithStatusOne(t *testing.T) {
	var status int
	exit = func(code int) { status = code }
	defer func() { exit = osExit }()

	Fatal(errors.New("boom"))
	if status != 1 {
		t.Errorf("exit status = %d, want 1", status)
	}
}
