// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pool tracks which connections are alive. It records
// membership only; per-connection state belongs to the connection.
package pool

import "sync"

// Member is anything with a stable identity.
type Member interface {
	ID() string
}

// Pool is a set of live members keyed by ID. Safe for concurrent use.
type Pool[M Member] struct {
	mu      sync.RWMutex
	members map[string]M
	order   []string
}

// New returns an empty Pool.
func New[M Member]() *Pool[M] {
	return &Pool[M]{members: make(map[string]M)}
}

// Add inserts member. Returns false if a member with the same ID is
// already present.
func (p *Pool[M]) Add(member M) bool {
	id := member.ID()

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.members[id]; exists {
		return false
	}
	p.members[id] = member
	p.order = append(p.order, id)
	return true
}

// Remove deletes member and reports whether it was present. Removing
// an absent member is a no-op.
func (p *Pool[M]) Remove(member M) bool {
	id := member.ID()

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.members[id]; !exists {
		return false
	}
	delete(p.members, id)
	for i, existing := range p.order {
		if existing == id {
			p.order = append(p.order[:i:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the member with id.
func (p *Pool[M]) Get(id string) (M, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	member, ok := p.members[id]
	return member, ok
}

// Size returns the number of members.
func (p *Pool[M]) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.members)
}

// ForEach calls visit for each member in insertion order until visit
// returns false. It iterates over a snapshot, so visit may add or
// remove members.
func (p *Pool[M]) ForEach(visit func(M) bool) {
	for _, member := range p.Snapshot() {
		if !visit(member) {
			return
		}
	}
}

// Snapshot returns the current members in insertion order.
func (p *Pool[M]) Snapshot() []M {
	p.mu.RLock()
	defer p.mu.RUnlock()
	members := make([]M, 0, len(p.order))
	for _, id := range p.order {
		members = append(members, p.members[id])
	}
	return members
}
