// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"context"
	"time"
)

// WatchOptions configures both continuous watches and one-shot fetches.
// Providers own the timers; callers only choose the values.
type WatchOptions struct {
	HighAccuracy      bool
	Timeout           time.Duration
	MaxCacheAge       time.Duration
	MinDistanceMeters float64 // 0 disables the distance filter
	MinInterval       time.Duration
}

// DefaultWatchOptions is tuned for a speedometer: very sensitive movement
// detection and one update per second.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		HighAccuracy:      true,
		Timeout:           8 * time.Second,
		MaxCacheAge:       3 * time.Second,
		MinDistanceMeters: 0.5,
		MinInterval:       time.Second,
	}
}

// DefaultFixOptions is used for one-shot fetches: no distance or interval
// filtering.
func DefaultFixOptions() WatchOptions {
	return WatchOptions{
		HighAccuracy: true,
		Timeout:      8 * time.Second,
		MaxCacheAge:  3 * time.Second,
	}
}

// WatchID identifies a registration inside a Provider.
type WatchID int64

// Provider is the platform location service.
//
// Callbacks of a watch may be invoked from any goroutine, and may keep
// arriving briefly after ClearWatch returns; the location gateway filters
// those out. An error callback never ends a watch by itself.
type Provider interface {
	// RequestAuthorization resolves true when the platform grants access.
	RequestAuthorization(ctx context.Context) (bool, error)
	WatchPosition(onPosition func(Sample), onError func(*ErrorInfo), opts WatchOptions) (WatchID, error)
	ClearWatch(id WatchID)
	GetCurrentPosition(ctx context.Context, opts WatchOptions) (Sample, error)
}
