// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"fmt"
	"sync"
)

// Observer receives one published event.
type Observer[T any] func(name string, event T)

// Bus fans published events out to observers. The zero value is not
// usable; create one with New.
type Bus[T any] struct {
	mu        sync.RWMutex
	nextID    uint64
	observers map[string][]subscription[T]
	wildcard  []subscription[T]
	onPanic   func(name string, err error)
}

type subscription[T any] struct {
	id       uint64
	observer Observer[T]
}

// New returns an empty Bus. onPanic, if non-nil, is told about
// observers that panic, with the recovered value wrapped in a
// *PanicError.
func New[T any](onPanic func(name string, err error)) *Bus[T] {
	return &Bus[T]{
		observers: make(map[string][]subscription[T]),
		onPanic:   onPanic,
	}
}

// Subscribe registers observer for events published under name. The
// returned function removes the subscription; calling it more than
// once is harmless.
func (b *Bus[T]) Subscribe(name string, observer Observer[T]) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.observers[name] = append(b.observers[name], subscription[T]{id: id, observer: observer})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.observers[name] = without(b.observers[name], id)
		if len(b.observers[name]) == 0 {
			delete(b.observers, name)
		}
	}
}

// SubscribeAll registers observer for every event name.
func (b *Bus[T]) SubscribeAll(observer Observer[T]) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.wildcard = append(b.wildcard, subscription[T]{id: id, observer: observer})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.wildcard = without(b.wildcard, id)
	}
}

// Publish delivers event to the observers of name, then to wildcard
// observers. Returns the number of observers that were called.
func (b *Bus[T]) Publish(name string, event T) int {
	b.mu.RLock()
	targets := make([]Observer[T], 0, len(b.observers[name])+len(b.wildcard))
	for _, sub := range b.observers[name] {
		targets = append(targets, sub.observer)
	}
	for _, sub := range b.wildcard {
		targets = append(targets, sub.observer)
	}
	b.mu.RUnlock()

	for _, observer := range targets {
		b.deliver(observer, name, event)
	}
	return len(targets)
}

// Count returns the number of observers that a Publish under name
// would reach.
func (b *Bus[T]) Count(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers[name]) + len(b.wildcard)
}

func (b *Bus[T]) deliver(observer Observer[T], name string, event T) {
	defer func() {
		if recovered := recover(); recovered != nil && b.onPanic != nil {
			b.onPanic(name, &PanicError{Value: recovered})
		}
	}()
	observer(name, event)
}

func without[T any](subs []subscription[T], id uint64) []subscription[T] {
	for i, sub := range subs {
		if sub.id == id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}

// PanicError wraps a value recovered from a panicking observer or
// callback.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
