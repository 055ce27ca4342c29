// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"sync"

	"github.com/relabs-tech/spdalt/internal/settings"
	"github.com/relabs-tech/spdalt/internal/tracking"
)

// ViewSource combines the tracking store and the preferences into Views and
// tells subscribers whenever either changes.
type ViewSource struct {
	store *tracking.Store
	prefs *settings.Settings

	// mu makes "build from current state, then fan out" atomic, so the
	// last view any subscriber receives is never older than the last change.
	mu        sync.Mutex
	listeners map[int]func(View)
	nextID    int

	unsubStore func()
	unsubPrefs func()
}

func NewViewSource(store *tracking.Store, prefs *settings.Settings) *ViewSource {
	v := &ViewSource{
		store:     store,
		prefs:     prefs,
		listeners: make(map[int]func(View)),
	}
	v.unsubStore = store.Subscribe(func(tracking.State) { v.notify() })
	v.unsubPrefs = prefs.Subscribe(func(settings.State) { v.notify() })
	return v
}

func (v *ViewSource) View() View {
	return NewView(v.store.State(), v.prefs.State())
}

// Subscribe registers fn for view changes. fn runs on the goroutine that
// made the change and must not block.
func (v *ViewSource) Subscribe(fn func(View)) (unsubscribe func()) {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.listeners[id] = fn
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.listeners, id)
		v.mu.Unlock()
	}
}

func (v *ViewSource) Close() {
	v.unsubStore()
	v.unsubPrefs()
}

func (v *ViewSource) notify() {
	v.mu.Lock()
	defer v.mu.Unlock()
	view := v.View()
	for _, l := range v.listeners {
		l(view)
	}
}

// mailbox holds only the newest view. Slow consumers skip intermediate
// views instead of blocking the producer.
type mailbox struct {
	ch chan View
}

func newMailbox() *mailbox {
	return &mailbox{ch: make(chan View, 1)}
}

func (m *mailbox) put(v View) {
	for {
		select {
		case m.ch <- v:
			return
		default:
		}
		select {
		case <-m.ch:
		default:
		}
	}
}
