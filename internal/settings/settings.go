// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package settings keeps the user's unit and theme preferences in memory and
// mirrors them to a key-value store.
package settings

import (
	"context"
	"log"
	"sync"

	"github.com/relabs-tech/spdalt/internal/units"
)

// Settings is the preference controller. Changes are visible in memory
// before they are written; writes are serialised and each one carries the
// full latest record.
type Settings struct {
	adapter *Adapter

	writeMu sync.Mutex

	mu        sync.RWMutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

func New(adapter *Adapter) *Settings {
	return &Settings{
		adapter:   adapter,
		state:     Defaults(),
		listeners: make(map[int]func(State)),
	}
}

func (s *Settings) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Load reads stored preferences. It never fails; see Adapter.Load.
func (s *Settings) Load(ctx context.Context) State {
	s.set(func(st *State) { st.IsLoading = true })
	loaded := s.adapter.Load(ctx)
	return s.set(func(st *State) {
		st.Unit = loaded.Unit
		st.Theme = loaded.Theme
		st.IsLoading = false
	})
}

func (s *Settings) SetUnit(ctx context.Context, u units.Unit) error {
	return s.Update(ctx, Partial{Unit: &u})
}

func (s *Settings) SetTheme(ctx context.Context, t Theme) error {
	return s.Update(ctx, Partial{Theme: &t})
}

// Update applies p in memory, then persists. A failed write is logged and
// returned; the in-memory value is kept.
func (s *Settings) Update(ctx context.Context, p Partial) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.set(func(st *State) { *st = st.Merge(p) })

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.adapter.Save(ctx, s.State(), p); err != nil {
		log.Printf("settings: %v", err)
		return err
	}
	return nil
}

// ConvertSpeed converts a speed in m/s to the current display unit.
func (s *Settings) ConvertSpeed(speedMps float64) units.Reading {
	return units.Convert(speedMps, s.State().Unit)
}

// Subscribe registers fn for preference changes and returns a function that
// removes it.
func (s *Settings) Subscribe(fn func(State)) (unsubscribe func()) {
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

func (s *Settings) set(change func(*State)) State {
	s.mu.Lock()
	change(&s.state)
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
