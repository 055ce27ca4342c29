// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"

	"github.com/relabs-tech/spdalt/internal/gps"
	"github.com/relabs-tech/spdalt/internal/settings"
	"github.com/relabs-tech/spdalt/internal/tracking"
	"github.com/relabs-tech/spdalt/internal/units"
)

const placeholder = "--"

// View is what every outer surface (MQTT, HTTP, websocket, console) shows:
// the tracking state, the preferences and ready-made display strings.
type View struct {
	Tracking tracking.State `json:"tracking"`
	Unit     units.Unit     `json:"unit"`
	Theme    settings.Theme `json:"theme"`
	Speed    *units.Reading `json:"speed"`
	Display  DisplayStrings `json:"display"`
}

type DisplayStrings struct {
	Speed     string `json:"speed"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Altitude  string `json:"altitude"`
	Accuracy  string `json:"accuracy"`
	Error     string `json:"error,omitempty"`
}

func NewView(ts tracking.State, ps settings.State) View {
	v := View{
		Tracking: ts,
		Unit:     ps.Unit,
		Theme:    ps.Theme,
		Display: DisplayStrings{
			Speed:     formatSpeed(ts.Sample.Speed, ps.Unit),
			Latitude:  formatCoord(ts.Sample.Latitude),
			Longitude: formatCoord(ts.Sample.Longitude),
			Altitude:  formatAltitude(ts.Sample.Altitude),
			Accuracy:  formatAccuracy(ts.Sample.Accuracy),
		},
	}
	if ts.Sample.Speed != nil {
		r := units.Convert(*ts.Sample.Speed, ps.Unit)
		v.Speed = &r
	}
	if ts.Error != nil {
		v.Display.Error = ts.Error.Message
	}
	return v
}

func formatSpeed(mps *float64, unit units.Unit) string {
	if mps == nil {
		return placeholder
	}
	r := units.Convert(*mps, unit)
	return fmt.Sprintf("%.1f %s", r.Value, r.Label)
}

func formatCoord(deg *float64) string {
	if deg == nil {
		return placeholder
	}
	return fmt.Sprintf("%.6f°", *deg)
}

func formatAccuracy(m *float64) string {
	if m == nil {
		return placeholder
	}
	return fmt.Sprintf("±%.0fm", *m)
}

func formatAltitude(m *float64) string {
	if m == nil {
		return placeholder
	}
	return fmt.Sprintf("%.1fm", *m)
}

// summary is the one-line console rendering of a view.
func summary(v View) string {
	s := v.Tracking.Sample
	line := fmt.Sprintf("[SPD ] %s  lat=%s lon=%s alt=%s acc=%s tracking=%v",
		v.Display.Speed, v.Display.Latitude, v.Display.Longitude,
		v.Display.Altitude, v.Display.Accuracy, v.Tracking.IsTracking)
	if ts := s.Time(); !ts.IsZero() {
		line += " at " + ts.Format("15:04:05")
	}
	if v.Display.Error != "" {
		line += " error=" + v.Display.Error
	}
	return line
}

// sampleSummary renders a raw sample as published by a producer.
func sampleSummary(s gps.Sample) string {
	return fmt.Sprintf("[GPS ] lat=%s lon=%s speed=%s alt=%s acc=%s",
		formatCoord(s.Latitude), formatCoord(s.Longitude),
		formatSpeed(s.Speed, units.KMH), formatAltitude(s.Altitude), formatAccuracy(s.Accuracy))
}
