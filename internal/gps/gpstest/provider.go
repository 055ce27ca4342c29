// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gpstest provides a scriptable gps.Provider for tests.
package gpstest

import (
	"context"
	"sync"

	"github.com/relabs-tech/spdalt/internal/gps"
)

type watch struct {
	onPosition func(gps.Sample)
	onError    func(*gps.ErrorInfo)
	cleared    bool
}

// Provider records every call and lets a test push samples and errors into
// registered watches by hand.
type Provider struct {
	mu sync.Mutex

	grant    bool
	authErr  error
	watchErr error
	fix      gps.Sample
	fixErr   error

	nextID    gps.WatchID
	watches   map[gps.WatchID]*watch
	authCalls int
	lastOpts  gps.WatchOptions
}

func NewProvider(grant bool) *Provider {
	return &Provider{grant: grant, watches: make(map[gps.WatchID]*watch)}
}

func (p *Provider) SetGrant(grant bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grant, p.authErr = grant, err
}

func (p *Provider) SetWatchError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watchErr = err
}

func (p *Provider) SetFix(s gps.Sample, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fix, p.fixErr = s, err
}

func (p *Provider) RequestAuthorization(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authCalls++
	return p.grant, p.authErr
}

func (p *Provider) WatchPosition(onPosition func(gps.Sample), onError func(*gps.ErrorInfo), opts gps.WatchOptions) (gps.WatchID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastOpts = opts
	if p.watchErr != nil {
		return 0, p.watchErr
	}
	p.nextID++
	p.watches[p.nextID] = &watch{onPosition: onPosition, onError: onError}
	return p.nextID, nil
}

func (p *Provider) ClearWatch(id gps.WatchID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.watches[id]; ok {
		w.cleared = true
	}
}

func (p *Provider) GetCurrentPosition(ctx context.Context, opts gps.WatchOptions) (gps.Sample, error) {
	p.mu.Lock()
	p.lastOpts = opts
	fix, err := p.fix, p.fixErr
	p.mu.Unlock()
	if cerr := ctx.Err(); cerr != nil {
		return gps.Sample{}, cerr
	}
	return fix, err
}

// Emit delivers s to every watch that has not been cleared and returns how
// many received it.
func (p *Provider) Emit(s gps.Sample) int {
	n := 0
	for _, w := range p.live() {
		w.onPosition(s)
		n++
	}
	return n
}

// Fail delivers e to every watch that has not been cleared.
func (p *Provider) Fail(e *gps.ErrorInfo) int {
	n := 0
	for _, w := range p.live() {
		w.onError(e)
		n++
	}
	return n
}

// Callbacks returns the callbacks registered for id even after it was
// cleared, so a test can play a callback that was already in flight.
func (p *Provider) Callbacks(id gps.WatchID) (func(gps.Sample), func(*gps.ErrorInfo)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.watches[id]
	if !ok {
		return nil, nil
	}
	return w.onPosition, w.onError
}

// LastWatchID is the id handed out most recently.
func (p *Provider) LastWatchID() gps.WatchID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextID
}

// Active counts registered, uncleared watches.
func (p *Provider) Active() int {
	return len(p.live())
}

func (p *Provider) Cleared(id gps.WatchID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.watches[id]
	return ok && w.cleared
}

func (p *Provider) AuthCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.authCalls
}

func (p *Provider) LastOptions() gps.WatchOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastOpts
}

func (p *Provider) live() []*watch {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*watch
	for _, w := range p.watches {
		if !w.cleared {
			out = append(out, w)
		}
	}
	return out
}
