// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package units

import "fmt"

// Unit is a display unit for speed, serialised as "kmh" or "mph".
type Unit string

const (
	KMH Unit = "kmh"
	MPH Unit = "mph"
)

const (
	mpsToKMH = 3.6
	mpsToMPH = 2.23694
)

// Reading is a converted speed ready for display. Value is not rounded.
type Reading struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// Convert turns metres per second into the given unit. Anything other than
// MPH is treated as km/h, the default unit.
func Convert(speedMps float64, unit Unit) Reading {
	if unit == MPH {
		return Reading{Value: speedMps * mpsToMPH, Label: "mph"}
	}
	return Reading{Value: speedMps * mpsToKMH, Label: "km/h"}
}

// ParseUnit accepts the serialised form of a unit.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case KMH, MPH:
		return Unit(s), nil
	}
	return "", fmt.Errorf("unknown speed unit %q", s)
}

func (u Unit) Valid() bool {
	return u == KMH || u == MPH
}
