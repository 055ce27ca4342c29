package gps

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorInfo_IsSentinels(t *testing.T) {
	var err error = PermissionDenied("nope")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied")
	}
	if errors.Is(err, ErrAcquisitionTimeout) {
		t.Fatalf("permission error must not match timeout")
	}
	wrapped := fmt.Errorf("start: %w", Timeout("slow"))
	if !errors.Is(wrapped, ErrAcquisitionTimeout) {
		t.Fatalf("expected wrapped timeout to match")
	}
	if !errors.Is(Unavailable("x"), ErrAcquisitionError) {
		t.Fatalf("expected unavailable to match acquisition error")
	}
}

func TestAsErrorInfo(t *testing.T) {
	if AsErrorInfo(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
	if got := AsErrorInfo(context.DeadlineExceeded); got.Code != CodeTimeout {
		t.Fatalf("expected timeout code, got %v", got.Code)
	}
	if got := AsErrorInfo(errors.New("boom")); got.Code != CodePositionUnavailable || got.Message != "boom" {
		t.Fatalf("unexpected conversion: %+v", got)
	}
	orig := PermissionDenied("denied")
	if got := AsErrorInfo(fmt.Errorf("wrap: %w", orig)); got != orig {
		t.Fatalf("expected the wrapped ErrorInfo to be returned as-is")
	}
}
