// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/coder/websocket"
)

func TestIsExpectedCloseError(t *testing.T) {
	for _, test := range []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", io.EOF, true},
		{"wrapped eof", fmt.Errorf("reading frame: %w", io.EOF), true},
		{"closed", net.ErrClosed, true},
		{"canceled", context.Canceled, true},
		{"epipe", syscall.EPIPE, true},
		{"reset", fmt.Errorf("write: %w", syscall.ECONNRESET), true},
		{"normal closure", websocket.CloseError{Code: websocket.StatusNormalClosure}, true},
		{"going away", fmt.Errorf("read: %w", websocket.CloseError{Code: websocket.StatusGoingAway}), true},
		{"policy violation", websocket.CloseError{Code: websocket.StatusPolicyViolation}, false},
		{"other errno", syscall.ENOENT, false},
		{"plain", errors.New("boom"), false},
	} {
		t.Run(test.name, func(t *testing.T) {
			if got := IsExpectedCloseError(test.err); got != test.want {
				t.Errorf("IsExpectedCloseError(%v) = %v, want %v", test.err, got, test.want)
			}
		})
	}
}
