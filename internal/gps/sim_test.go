package gps

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

func TestSimProvider_NextStaysNearCentre(t *testing.T) {
	p := NewSimProvider(SimConfig{CenterLat: 37.7749, CenterLon: -122.4194, BaseSpeedMps: 10, AltitudeM: 10})
	base := p.start
	for i := 0; i < 20; i++ {
		at := base.Add(time.Duration(i) * 3 * time.Second)
		p.now = func() time.Time { return at }
		s := p.Next()
		d := DistanceMeters(37.7749, -122.4194, *s.Latitude, *s.Longitude)
		if math.Abs(d-200) > 2 {
			t.Fatalf("expected ~200m from centre, got %.2f", d)
		}
		if *s.Speed < 7 || *s.Speed > 13 {
			t.Fatalf("speed out of range: %.2f", *s.Speed)
		}
		if *s.TimestampMs != at.UnixMilli() {
			t.Fatalf("unexpected timestamp")
		}
	}
}

func TestSimProvider_Deny(t *testing.T) {
	p := NewSimProvider(SimConfig{Deny: true})
	ok, err := p.RequestAuthorization(context.Background())
	if ok || err != nil {
		t.Fatalf("expected denial, got %v %v", ok, err)
	}
	if _, err := p.GetCurrentPosition(context.Background(), DefaultFixOptions()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestSimProvider_WatchTicks(t *testing.T) {
	p := NewSimProvider(SimConfig{BaseSpeedMps: 10})
	defer p.Close()

	got := make(chan Sample, 8)
	opts := DefaultWatchOptions()
	opts.MinInterval = 10 * time.Millisecond
	id, err := p.WatchPosition(func(s Sample) {
		select {
		case got <- s:
		default:
		}
	}, func(*ErrorInfo) {}, opts)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatalf("expected a simulated fix")
	}
	p.ClearWatch(id)
}

func TestSimProvider_WatchDeliversEveryTick(t *testing.T) {
	p := NewSimProvider(SimConfig{BaseSpeedMps: 10})
	defer p.Close()

	var (
		mu        sync.Mutex
		delivered int
	)
	opts := DefaultWatchOptions()
	opts.MinInterval = 20 * time.Millisecond
	opts.MinDistanceMeters = 0
	id, err := p.WatchPosition(func(Sample) {
		mu.Lock()
		delivered++
		mu.Unlock()
	}, func(*ErrorInfo) {}, opts)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	time.Sleep(500 * time.Millisecond)
	p.ClearWatch(id)

	mu.Lock()
	defer mu.Unlock()
	// ~25 ticks; the filter must not drop ticks that arrive on schedule.
	if delivered < 15 {
		t.Fatalf("expected most of ~25 ticks delivered, got %d", delivered)
	}
}
