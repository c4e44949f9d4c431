// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/switchboard/lib/clock"
	"github.com/bureau-foundation/switchboard/lib/config"
	"github.com/bureau-foundation/switchboard/lib/gateway"
	"github.com/bureau-foundation/switchboard/lib/scheduler"
	"github.com/bureau-foundation/switchboard/lib/testutil"
)

func TestServeEndToEnd(t *testing.T) {
	cfg := config.Default()
	cfg.Scheduler.Stats = ""
	srv, err := newServer(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx, listener) }()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	client, err := gateway.Dial(dialCtx, "ws://"+listener.Addr().String()+"/socket", gateway.ClientOptions{})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	var pong string
	if err := client.Invoke(dialCtx, &pong, "echo", "ping"); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if pong != "pong" {
		t.Errorf("ping = %q, want pong", pong)
	}

	var echoed string
	if err := client.Invoke(dialCtx, &echoed, "echo", "ping", "hello"); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if echoed != "hello" {
		t.Errorf("ping hello = %q, want hello", echoed)
	}

	var whoami map[string]string
	if err := client.Invoke(dialCtx, &whoami, "echo", "whoami"); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if whoami["channel"] != "[/]socket" {
		t.Errorf("channel = %q, want [/]socket", whoami["channel"])
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestStatsTask(t *testing.T) {
	gw := gateway.New(gateway.Options{})
	defer gw.Close()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 30, 0, time.UTC))
	sched := scheduler.New(scheduler.Options{Clock: fake})
	stats := make(chan any, 1)
	sched.On(statsEvent, func(_ string, event scheduler.Event) { stats <- event.Data })

	if err := sched.Add(statsTask(sched, gw, scheduler.MustParseSchedule("* * * * *"), logger)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	fake.Advance(30 * time.Second)
	sched.Tick()

	if got := testutil.RequireReceive(t, stats, time.Second, "stats event"); got != 0 {
		t.Errorf("stats = %v, want 0", got)
	}
	if !strings.Contains(logs.String(), "connections=0") {
		t.Errorf("log = %q, want the connection count", logs.String())
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.HTTP.Listen != config.Default().HTTP.Listen {
		t.Errorf("listen = %q, want the default", cfg.HTTP.Listen)
	}

	path := filepath.Join(t.TempDir(), "switchboard.yaml")
	if err := os.WriteFile(path, []byte("http:\n  listen: 127.0.0.1:7000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvironmentVariable, path)
	cfg, err = loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.HTTP.Listen != "127.0.0.1:7000" {
		t.Errorf("listen = %q, want the value from SWITCHBOARD_CONFIG", cfg.HTTP.Listen)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	err := run([]string{"--listen", ""})
	if err == nil || !strings.Contains(err.Error(), "http.listen") {
		t.Errorf("run = %v, want an http.listen validation error", err)
	}
}
