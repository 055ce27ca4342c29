package app

import (
	"testing"
	"time"

	"github.com/relabs-tech/spdalt/internal/gps"
	"github.com/relabs-tech/spdalt/internal/settings"
	"github.com/relabs-tech/spdalt/internal/tracking"
	"github.com/relabs-tech/spdalt/internal/units"
)

func TestNewView_Placeholders(t *testing.T) {
	v := NewView(tracking.State{}, settings.Defaults())
	d := v.Display
	for name, got := range map[string]string{
		"speed": d.Speed, "latitude": d.Latitude, "longitude": d.Longitude,
		"altitude": d.Altitude, "accuracy": d.Accuracy,
	} {
		if got != "--" {
			t.Fatalf("%s: expected placeholder, got %q", name, got)
		}
	}
	if v.Speed != nil {
		t.Fatalf("expected no converted speed, got %+v", v.Speed)
	}
}

func TestNewView_Formatting(t *testing.T) {
	ts := tracking.State{
		Sample:     gps.NewSample(37.7749, -122.4194, 10, 15.26, 4.6, time.Now()),
		IsTracking: true,
	}
	v := NewView(ts, settings.State{Unit: units.KMH, Theme: settings.ThemeDark})

	want := DisplayStrings{
		Speed:     "36.0 km/h",
		Latitude:  "37.774900°",
		Longitude: "-122.419400°",
		Altitude:  "15.3m",
		Accuracy:  "±5m",
	}
	if v.Display != want {
		t.Fatalf("expected %+v, got %+v", want, v.Display)
	}
	if v.Speed == nil || v.Speed.Label != "km/h" {
		t.Fatalf("unexpected reading: %+v", v.Speed)
	}
	if v.Theme != settings.ThemeDark {
		t.Fatalf("expected theme carried, got %s", v.Theme)
	}
}

func TestNewView_MPHAndError(t *testing.T) {
	ts := tracking.State{
		Sample: gps.NewSample(0, 0, 10, 0, 0, time.Now()),
		Error:  gps.Timeout("no fix"),
	}
	v := NewView(ts, settings.State{Unit: units.MPH})
	if v.Display.Speed != "22.4 mph" {
		t.Fatalf("expected mph display, got %q", v.Display.Speed)
	}
	if v.Display.Error != "no fix" {
		t.Fatalf("expected error message, got %q", v.Display.Error)
	}
}

func TestMailbox_KeepsNewest(t *testing.T) {
	m := newMailbox()
	for i := 0; i < 5; i++ {
		m.put(View{Unit: units.Unit(string(rune('a' + i)))})
	}
	if got := (<-m.ch).Unit; got != "e" {
		t.Fatalf("expected newest view, got %q", got)
	}
	select {
	case v := <-m.ch:
		t.Fatalf("expected empty mailbox, got %+v", v)
	default:
	}
}
