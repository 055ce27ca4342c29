// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tracking

import "sync"

// Store holds a State and applies actions to it one at a time. Listeners see
// every resulting state in dispatch order.
type Store struct {
	// dispatchMu orders reduce+notify; mu guards the fields below.
	dispatchMu sync.Mutex

	mu        sync.RWMutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

func NewStore() *Store {
	return &Store{listeners: make(map[int]func(State))}
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch applies a and returns the new state. Listeners run on the
// caller's goroutine and must not dispatch.
func (s *Store) Dispatch(a Action) State {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	s.state = Reduce(s.state, a)
	st := s.state
	listeners := make([]func(State), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(st)
	}
	return st
}

// Subscribe registers fn for state changes and returns a function that
// removes it.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
