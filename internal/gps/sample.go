// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import "time"

// Sample is a single location fix suitable for JSON and MQTT.
//
// Every field is a pointer: a provider may not know a value (no altitude
// without a 3D fix, no speed before the second position), and the zero
// Sample is the "no fix yet" value the tracking store resets to.
// A Sample is never mutated once produced.
type Sample struct {
	Latitude    *float64 `json:"lat"`          // decimal degrees
	Longitude   *float64 `json:"lon"`          // decimal degrees
	Speed       *float64 `json:"speed_mps"`    // speed over ground, m/s
	Altitude    *float64 `json:"altitude_m"`   // metres above MSL
	Accuracy    *float64 `json:"accuracy_m"`   // horizontal, metres
	TimestampMs *int64   `json:"timestamp_ms"` // unix milliseconds
}

// NewSample builds a fully populated sample.
func NewSample(lat, lon, speedMps, altitudeM, accuracyM float64, ts time.Time) Sample {
	return Sample{
		Latitude:    Float(lat),
		Longitude:   Float(lon),
		Speed:       Float(speedMps),
		Altitude:    Float(altitudeM),
		Accuracy:    Float(accuracyM),
		TimestampMs: Millis(ts),
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Millis returns a pointer to the unix millisecond value of t.
func Millis(t time.Time) *int64 {
	ms := t.UnixMilli()
	return &ms
}

// IsEmpty reports whether no field is set.
func (s Sample) IsEmpty() bool {
	return s.Latitude == nil && s.Longitude == nil && s.Speed == nil &&
		s.Altitude == nil && s.Accuracy == nil && s.TimestampMs == nil
}

// HasPosition reports whether both coordinates are known.
func (s Sample) HasPosition() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Time returns the fix time, or the zero time when unknown.
func (s Sample) Time() time.Time {
	if s.TimestampMs == nil {
		return time.Time{}
	}
	return time.UnixMilli(*s.TimestampMs)
}

// Age returns how old the fix is at now. Samples without a timestamp are
// treated as infinitely old.
func (s Sample) Age(now time.Time) time.Duration {
	if s.TimestampMs == nil {
		return time.Duration(1<<63 - 1)
	}
	return now.Sub(s.Time())
}
