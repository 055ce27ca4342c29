// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied   = errors.New("location permission denied")
	ErrAcquisitionTimeout = errors.New("location request timed out")
	ErrAcquisitionError   = errors.New("location unavailable")
)

// ErrorCode follows the geolocation error numbering used by mobile platforms.
type ErrorCode int

const (
	CodePermissionDenied    ErrorCode = 1
	CodePositionUnavailable ErrorCode = 2
	CodeTimeout             ErrorCode = 3
)

func (c ErrorCode) String() string {
	switch c {
	case CodePermissionDenied:
		return "permission_denied"
	case CodePositionUnavailable:
		return "position_unavailable"
	case CodeTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("code_%d", int(c))
	}
}

// ErrorInfo is what providers report through watch error callbacks and what
// the tracking store keeps as its last error.
type ErrorInfo struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *ErrorInfo) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Message
}

// Is lets errors.Is match an ErrorInfo against the package sentinels.
func (e *ErrorInfo) Is(target error) bool {
	switch target {
	case ErrPermissionDenied:
		return e.Code == CodePermissionDenied
	case ErrAcquisitionTimeout:
		return e.Code == CodeTimeout
	case ErrAcquisitionError:
		return e.Code == CodePositionUnavailable
	}
	return false
}

func PermissionDenied(msg string) *ErrorInfo {
	return &ErrorInfo{Code: CodePermissionDenied, Message: msg}
}

func Timeout(msg string) *ErrorInfo {
	return &ErrorInfo{Code: CodeTimeout, Message: msg}
}

func Unavailable(msg string) *ErrorInfo {
	return &ErrorInfo{Code: CodePositionUnavailable, Message: msg}
}

// AsErrorInfo converts any error coming out of a provider into an ErrorInfo.
// Context deadlines become timeouts; anything unrecognised is reported as an
// acquisition error.
func AsErrorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	var info *ErrorInfo
	if errors.As(err, &info) {
		return info
	}
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return PermissionDenied(err.Error())
	case errors.Is(err, ErrAcquisitionTimeout), errors.Is(err, context.DeadlineExceeded):
		return Timeout(err.Error())
	default:
		return Unavailable(err.Error())
	}
}
