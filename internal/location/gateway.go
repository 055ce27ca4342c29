// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package location is the only place that talks to the platform location
// provider. It negotiates permission, owns the single active watch and
// fetches one-shot fixes.
package location

import (
	"context"
	"log"
	"sync"

	"github.com/relabs-tech/spdalt/internal/gps"
)

// Watch is the handle of a running position watch. Only the Gateway that
// returned it may cancel it.
type Watch struct {
	id gps.WatchID

	mu        sync.Mutex
	stopped   bool
	unhookCtx func() bool
}

// Active reports whether the watch is still registered.
func (w *Watch) Active() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.stopped
}

// Gateway wraps a gps.Provider.
type Gateway struct {
	provider  gps.Provider
	watchOpts gps.WatchOptions
	fixOpts   gps.WatchOptions

	mu     sync.Mutex
	active *Watch
}

func NewGateway(provider gps.Provider, watchOpts, fixOpts gps.WatchOptions) *Gateway {
	return &Gateway{provider: provider, watchOpts: watchOpts, fixOpts: fixOpts}
}

// RequestPermission asks the platform for location access. Denial and
// provider failures both resolve to false.
func (g *Gateway) RequestPermission(ctx context.Context) bool {
	granted, err := g.provider.RequestAuthorization(ctx)
	if err != nil {
		log.Printf("gateway: error requesting location permission: %v", err)
		return false
	}
	return granted
}

// StartWatch requests permission and registers a continuous watch. Any
// watch already running is stopped first. Provider errors are passed to
// onError and do not end the watch.
//
// No callback starts after StopWatch returns; one that was already running
// may still finish. The watch is stopped when ctx ends.
func (g *Gateway) StartWatch(ctx context.Context, onUpdate func(gps.Sample), onError func(*gps.ErrorInfo)) (*Watch, error) {
	if !g.RequestPermission(ctx) {
		return nil, gps.PermissionDenied("location permissions not granted")
	}

	g.mu.Lock()
	prev := g.active
	g.active = nil
	g.mu.Unlock()
	if prev != nil {
		log.Printf("gateway: replacing active watch %d", prev.id)
		g.StopWatch(prev)
	}

	w := &Watch{}
	id, err := g.provider.WatchPosition(
		func(s gps.Sample) {
			if w.Active() {
				onUpdate(s)
			}
		},
		func(e *gps.ErrorInfo) {
			log.Printf("gateway: location tracking error: %v", e)
			if w.Active() {
				onError(e)
			}
		},
		g.watchOpts,
	)
	if err != nil {
		log.Printf("gateway: error starting location tracking: %v", err)
		return nil, gps.AsErrorInfo(err)
	}

	w.mu.Lock()
	w.id = id
	w.unhookCtx = context.AfterFunc(ctx, func() { g.StopWatch(w) })
	w.mu.Unlock()

	g.mu.Lock()
	if w.Active() {
		g.active = w
	}
	g.mu.Unlock()
	return w, nil
}

// StopWatch cancels the watch. Stopping a nil, foreign or already stopped
// handle does nothing.
func (g *Gateway) StopWatch(w *Watch) {
	if w == nil {
		return
	}
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	id := w.id
	unhook := w.unhookCtx
	w.mu.Unlock()

	if unhook != nil {
		unhook()
	}
	g.provider.ClearWatch(id)

	g.mu.Lock()
	if g.active == w {
		g.active = nil
	}
	g.mu.Unlock()
}

// Active returns the running watch, if any.
func (g *Gateway) Active() *Watch {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// GetCurrentFix fetches a single fix with the one-shot options.
func (g *Gateway) GetCurrentFix(ctx context.Context) (gps.Sample, error) {
	s, err := g.provider.GetCurrentPosition(ctx, g.fixOpts)
	if err != nil {
		return gps.Sample{}, gps.AsErrorInfo(err)
	}
	return s, nil
}

// Close releases the active watch.
func (g *Gateway) Close() {
	g.mu.Lock()
	w := g.active
	g.mu.Unlock()
	g.StopWatch(w)
}
