// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/bureau-foundation/switchboard/lib/config"
	"github.com/bureau-foundation/switchboard/lib/echo"
	"github.com/bureau-foundation/switchboard/lib/gateway"
	"github.com/bureau-foundation/switchboard/lib/httpfront"
	"github.com/bureau-foundation/switchboard/lib/scheduler"
)

// statsEvent is the domain event the stats task raises.
const statsEvent = "stats"

type server struct {
	cfg       *config.Config
	logger    *slog.Logger
	gateway   *gateway.Gateway
	scheduler *scheduler.Scheduler
	handler   http.Handler
}

func newServer(cfg *config.Config, logger *slog.Logger) (*server, error) {
	gw := gateway.New(gateway.Options{
		Channel:        cfg.Gateway.Prefix,
		ReadLimit:      cfg.Gateway.ReadLimit,
		WriteTimeout:   cfg.Gateway.WriteTimeout.Std(),
		CallTimeout:    cfg.Gateway.CallTimeout.Std(),
		MaxInFlight:    cfg.Gateway.MaxInFlight,
		OriginPatterns: cfg.Gateway.OriginPatterns,
		Logger:         logger.With("component", "gateway"),
	})
	if err := gw.AddService(echo.New()); err != nil {
		return nil, fmt.Errorf("registering echo service: %w", err)
	}
	gw.On(gateway.EventError, func(_ string, event gateway.Event) {
		logger.Warn("socket error", "connection", event.Conn.ID(), "error", event.Err)
	})

	sched := scheduler.New(scheduler.Options{
		Interval: cfg.Scheduler.Interval.Std(),
		Logger:   logger.With("component", "scheduler"),
	})
	sched.On(scheduler.EventRun, func(_ string, event scheduler.Event) {
		logger.Debug("task ran", "task", event.Task.Name, "executed", event.Task.Executed())
	})
	if cfg.Scheduler.Stats != "" {
		schedule, err := scheduler.ParseSchedule(cfg.Scheduler.Stats)
		if err != nil {
			return nil, fmt.Errorf("scheduler.stats: %w", err)
		}
		if err := sched.Add(statsTask(sched, gw, schedule, logger)); err != nil {
			return nil, fmt.Errorf("adding stats task: %w", err)
		}
	}

	handler := httpfront.NewRouter(httpfront.Options{
		Gateway:   gw,
		Prefix:    cfg.Gateway.Prefix,
		Htdocs:    cfg.HTTP.Htdocs,
		Redirects: cfg.HTTP.Redirects,
		Debug:     cfg.Debug,
		Logger:    logger.With("component", "http"),
	})

	return &server{
		cfg:       cfg,
		logger:    logger,
		gateway:   gw,
		scheduler: sched,
		handler:   handler,
	}, nil
}

// statsTask logs the live connection count and raises a "stats" event
// carrying it.
func statsTask(sched *scheduler.Scheduler, gw *gateway.Gateway, schedule *scheduler.Schedule, logger *slog.Logger) *scheduler.Task {
	task := sched.CreateTask()
	task.Name = "stats"
	task.Repeat = scheduler.Forever
	task.Schedule = schedule
	task.Func = func(s *scheduler.Scheduler) error {
		connections := gw.Connections("")
		logger.Info("connection stats", "connections", connections)
		s.Emit(statsEvent, connections)
		return nil
	}
	return task
}

// serve runs until ctx ends, then stops the scheduler and closes every
// connection.
func (s *server) serve(ctx context.Context, listener net.Listener) error {
	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer s.scheduler.Close()
	defer s.gateway.Close()

	err := httpfront.Serve(ctx, listener, s.handler, httpfront.ServerOptions{
		ReadHeaderTimeout: s.cfg.HTTP.ReadHeaderTimeout.Std(),
		ShutdownTimeout:   s.cfg.HTTP.ShutdownTimeout.Std(),
		Logger:            s.logger.With("component", "http"),
	})
	s.logger.Info("shutting down")
	return err
}
