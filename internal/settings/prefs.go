// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package settings

import (
	"fmt"

	"github.com/relabs-tech/spdalt/internal/units"
)

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeLight, ThemeDark, ThemeSystem:
		return Theme(s), nil
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeSystem
}

// ResolveTheme returns the light or dark theme to draw with, following the
// platform scheme when the preference is "system".
func ResolveTheme(pref Theme, systemDark bool) Theme {
	switch pref {
	case ThemeLight, ThemeDark:
		return pref
	}
	if systemDark {
		return ThemeDark
	}
	return ThemeLight
}

// State holds the user's display preferences.
type State struct {
	Unit      units.Unit `json:"unit"`
	Theme     Theme      `json:"theme"`
	IsLoading bool       `json:"is_loading"`
}

func Defaults() State {
	return State{Unit: units.KMH, Theme: ThemeSystem}
}

// Partial is a preference change; nil fields are left as they are.
type Partial struct {
	Unit  *units.Unit `json:"unit,omitempty"`
	Theme *Theme      `json:"theme,omitempty"`
}

// Validate rejects values outside the known units and themes.
func (p Partial) Validate() error {
	if p.Unit != nil && !p.Unit.Valid() {
		return fmt.Errorf("unknown speed unit %q", *p.Unit)
	}
	if p.Theme != nil && !p.Theme.Valid() {
		return fmt.Errorf("unknown theme %q", *p.Theme)
	}
	return nil
}

// Merge returns s with the fields set in p applied.
func (s State) Merge(p Partial) State {
	if p.Unit != nil {
		s.Unit = *p.Unit
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	return s
}
