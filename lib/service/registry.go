// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrDuplicateService is returned by AddService when the channel
	// already holds a different service with the same name.
	ErrDuplicateService = errors.New("duplicate service")

	// ErrServiceNotFound reports a lookup that matched nothing.
	ErrServiceNotFound = errors.New("service not found")
)

// registryKey scopes a service name to its channel.
type registryKey struct {
	channel string
	name    string
}

// Registry maps (channel, name) to Service. Each gateway owns one.
// Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	services map[registryKey]*Service
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[registryKey]*Service)}
}

// GetOrCreateService returns the service registered as name in
// channel, installing an empty one if there is none. Repeated calls
// return the same instance.
func (r *Registry) GetOrCreateService(channel, name string) *Service {
	key := registryKey{channel: channel, name: name}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.services[key]; ok {
		return existing
	}
	created := NewService(name)
	r.services[key] = created
	return created
}

// AddService installs svc under its own name in channel. Adding the
// instance that is already installed is a no-op; adding a different
// instance under a used name fails with ErrDuplicateService.
func (r *Registry) AddService(channel string, svc *Service) error {
	if svc == nil {
		return errors.New("registry: nil service")
	}
	if svc.Name() == "" {
		return errors.New("registry: service has no name")
	}
	key := registryKey{channel: channel, name: svc.Name()}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.services[key]; ok {
		if existing == svc {
			return nil
		}
		return fmt.Errorf("%w: %q in channel %q", ErrDuplicateService, svc.Name(), channel)
	}
	r.services[key] = svc
	return nil
}

// GetService returns the service registered as name in channel, or
// nil.
func (r *Registry) GetService(channel, name string) *Service {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.services[registryKey{channel: channel, name: name}]
}

// Lookup is GetService with an error for the missing case.
func (r *Registry) Lookup(channel, name string) (*Service, error) {
	if svc := r.GetService(channel, name); svc != nil {
		return svc, nil
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrServiceNotFound, channel, name)
}

// RemoveService unregisters name from channel and reports whether it
// was present.
func (r *Registry) RemoveService(channel, name string) bool {
	key := registryKey{channel: channel, name: name}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[key]; !ok {
		return false
	}
	delete(r.services, key)
	return true
}

// Services returns the names registered in channel, sorted.
func (r *Registry) Services(channel string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for key := range r.services {
		if key.channel == channel {
			names = append(names, key.name)
		}
	}
	sort.Strings(names)
	return names
}

// Channels returns every channel with at least one service, sorted.
func (r *Registry) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for key := range r.services {
		seen[key.channel] = struct{}{}
	}
	channels := make([]string, 0, len(seen))
	for channel := range seen {
		channels = append(channels, channel)
	}
	sort.Strings(channels)
	return channels
}
