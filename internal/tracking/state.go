// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tracking

import "github.com/relabs-tech/spdalt/internal/gps"

// State is the single source of truth the presentation layer reads.
type State struct {
	Sample     gps.Sample     `json:"sample"`
	IsLoading  bool           `json:"is_loading"`
	Error      *gps.ErrorInfo `json:"error"`
	IsTracking bool           `json:"is_tracking"`
}

// Action is one of SetLoading, SetError, UpdateLocation, SetTracking or
// ResetData.
type Action interface {
	isAction()
}

type SetLoading struct{ Loading bool }

type SetError struct{ Err *gps.ErrorInfo }

type UpdateLocation struct{ Sample gps.Sample }

type SetTracking struct{ Tracking bool }

type ResetData struct{}

func (SetLoading) isAction()     {}
func (SetError) isAction()       {}
func (UpdateLocation) isAction() {}
func (SetTracking) isAction()    {}
func (ResetData) isAction()      {}

// Reduce returns the state after applying a. The input is not modified.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetLoading:
		s.IsLoading = a.Loading
	case SetError:
		// A terminal error ends whatever request was loading.
		s.Error = a.Err
		s.IsLoading = false
	case UpdateLocation:
		s.Sample = a.Sample
		s.Error = nil
		s.IsLoading = false
	case SetTracking:
		s.IsTracking = a.Tracking
	case ResetData:
		s.Sample = gps.Sample{}
	}
	return s
}
