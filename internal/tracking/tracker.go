// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tracking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/relabs-tech/spdalt/internal/gps"
	"github.com/relabs-tech/spdalt/internal/location"
)

// Gateway is what the tracker needs from location.Gateway.
type Gateway interface {
	RequestPermission(ctx context.Context) bool
	StartWatch(ctx context.Context, onUpdate func(gps.Sample), onError func(*gps.ErrorInfo)) (*location.Watch, error)
	StopWatch(w *location.Watch)
	GetCurrentFix(ctx context.Context) (gps.Sample, error)
}

type Options struct {
	// AbandonOnError stops tracking when the watch reports an error.
	// By default an error is shown while tracking continues, so the
	// provider can recover and resume delivering fixes.
	AbandonOnError bool
}

// Tracker drives the store through the permission, start and stop
// sequences.
//
// Each started watch gets a generation number. Watch callbacks apply their
// action only while their generation is current, under the same lock Stop
// uses to advance it, so nothing from a stopped watch lands in the store
// once Stop returns.
type Tracker struct {
	gateway Gateway
	store   *Store
	opts    Options

	// startMu serialises Start; mu guards the fields below it.
	startMu sync.Mutex

	mu        sync.Mutex
	gen       uint64
	handle    *location.Watch
	unhookCtx func() bool
}

func NewTracker(gateway Gateway, store *Store, opts Options) *Tracker {
	return &Tracker{gateway: gateway, store: store, opts: opts}
}

func (t *Tracker) Store() *Store { return t.store }

func (t *Tracker) State() State { return t.store.State() }

// RequestPermissions asks for location access with the loading flag raised.
func (t *Tracker) RequestPermissions(ctx context.Context) bool {
	t.store.Dispatch(SetLoading{Loading: true})
	granted := t.gateway.RequestPermission(ctx)
	t.store.Dispatch(SetLoading{Loading: false})
	return granted
}

// Start begins tracking, replacing any watch this tracker already runs.
// On denial the store shows "permission denied" and the user has to retry.
// The watch lives until Stop, Close or the end of ctx; when ctx ends the
// tracking flag is cleared. Concurrent calls run one after another.
func (t *Tracker) Start(ctx context.Context) error {
	t.startMu.Lock()
	defer t.startMu.Unlock()

	t.store.Dispatch(SetLoading{Loading: true})

	t.mu.Lock()
	prev := t.handle
	unhook := t.unhookCtx
	t.handle = nil
	t.unhookCtx = nil
	t.gen++
	gen := t.gen
	if prev != nil {
		t.store.Dispatch(SetTracking{Tracking: false})
	}
	t.mu.Unlock()
	if unhook != nil {
		unhook()
	}
	t.gateway.StopWatch(prev)

	h, err := t.gateway.StartWatch(ctx,
		func(s gps.Sample) { t.apply(gen, UpdateLocation{Sample: s}) },
		func(e *gps.ErrorInfo) { t.onWatchError(gen, e) },
	)
	if err != nil {
		if errors.Is(err, gps.ErrPermissionDenied) {
			t.store.Dispatch(SetError{Err: gps.PermissionDenied("permission denied")})
		} else {
			log.Printf("tracker: start failed: %v", err)
			t.store.Dispatch(SetError{Err: gps.Unavailable("failed to start tracking")})
		}
		t.store.Dispatch(SetTracking{Tracking: false})
		return err
	}

	t.mu.Lock()
	if t.gen != gen || !h.Active() || ctx.Err() != nil {
		// Stopped while the watch was being set up, or ctx already ended.
		t.mu.Unlock()
		t.gateway.StopWatch(h)
		t.store.Dispatch(SetLoading{Loading: false})
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("start tracking: %w", err)
		}
		return nil
	}
	t.handle = h
	t.store.Dispatch(SetTracking{Tracking: true})
	t.unhookCtx = context.AfterFunc(ctx, func() { t.release(gen) })
	t.mu.Unlock()
	return nil
}

// Stop cancels the watch, clears the tracking flag and drops the last fix.
// The last error is kept.
func (t *Tracker) Stop() {
	t.detach()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handle != nil {
		// A Start that began after the release owns the flag now.
		return
	}
	t.store.Dispatch(SetTracking{Tracking: false})
	t.store.Dispatch(ResetData{})
}

// CurrentFix fetches a single fix and stores it, or stores the error.
func (t *Tracker) CurrentFix(ctx context.Context) (gps.Sample, error) {
	t.store.Dispatch(SetLoading{Loading: true})
	s, err := t.gateway.GetCurrentFix(ctx)
	if err != nil {
		t.store.Dispatch(SetError{Err: gps.AsErrorInfo(err)})
		return gps.Sample{}, err
	}
	t.store.Dispatch(UpdateLocation{Sample: s})
	return s, nil
}

// UpdateLocation stores a sample obtained outside the watch.
func (t *Tracker) UpdateLocation(s gps.Sample) {
	t.store.Dispatch(UpdateLocation{Sample: s})
}

// Close releases the watch without touching the store.
func (t *Tracker) Close() {
	t.detach()
}

// detach invalidates the current generation and releases its watch.
func (t *Tracker) detach() {
	t.mu.Lock()
	t.gen++
	h := t.handle
	unhook := t.unhookCtx
	t.handle = nil
	t.unhookCtx = nil
	t.mu.Unlock()
	if unhook != nil {
		unhook()
	}
	t.gateway.StopWatch(h)
}

// release runs when the context a watch was started with ends. The gateway
// stops the watch itself; the store only has to stop showing tracking.
func (t *Tracker) release(gen uint64) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.gen++
	h := t.handle
	t.handle = nil
	t.unhookCtx = nil
	t.store.Dispatch(SetTracking{Tracking: false})
	t.mu.Unlock()
	t.gateway.StopWatch(h)
}

func (t *Tracker) apply(gen uint64, a Action) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return false
	}
	t.store.Dispatch(a)
	return true
}

func (t *Tracker) onWatchError(gen uint64, e *gps.ErrorInfo) {
	msg := "location tracking error"
	if e != nil && e.Message != "" {
		msg = e.Message
	}
	info := &gps.ErrorInfo{Code: gps.CodePositionUnavailable, Message: msg}
	if e != nil && e.Code != 0 {
		info.Code = e.Code
	}

	if !t.opts.AbandonOnError {
		t.apply(gen, SetError{Err: info})
		return
	}

	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.store.Dispatch(SetError{Err: info})
	t.store.Dispatch(SetTracking{Tracking: false})
	t.gen++
	h := t.handle
	unhook := t.unhookCtx
	t.handle = nil
	t.unhookCtx = nil
	t.mu.Unlock()
	if unhook != nil {
		unhook()
	}

	log.Printf("tracker: abandoning tracking after error: %s", msg)
	t.gateway.StopWatch(h)
}
