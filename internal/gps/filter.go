// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"math"
	"time"
)

const earthRadiusM = 6371008.8

// DistanceMeters is the great-circle (haversine) distance between two points.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Filter drops samples that arrive too soon or moved too little since the
// last accepted one. The first sample always passes. Not safe for concurrent
// use; each watch owns one.
type Filter struct {
	minDistance float64
	minInterval time.Duration

	last     Sample
	lastTime time.Time
	haveLast bool
}

func NewFilter(opts WatchOptions) *Filter {
	return &Filter{minDistance: opts.MinDistanceMeters, minInterval: opts.MinInterval}
}

// Accept reports whether s should be delivered, and records it if so.
// now is the arrival time, used when the sample carries no timestamp.
func (f *Filter) Accept(s Sample, now time.Time) bool {
	t := s.Time()
	if s.TimestampMs == nil {
		t = now
	}
	if !f.haveLast {
		f.remember(s, t)
		return true
	}

	// A tenth of the interval absorbs timer jitter and millisecond
	// timestamps, so a source ticking at exactly the interval is not
	// thinned out.
	if f.minInterval > 0 && t.Sub(f.lastTime) < f.minInterval-f.minInterval/10 {
		return false
	}
	if f.minDistance > 0 && s.HasPosition() && f.last.HasPosition() {
		d := DistanceMeters(*f.last.Latitude, *f.last.Longitude, *s.Latitude, *s.Longitude)
		if d < f.minDistance {
			return false
		}
	}
	f.remember(s, t)
	return true
}

func (f *Filter) remember(s Sample, t time.Time) {
	f.last = s
	f.lastTime = t
	f.haveLast = true
}
