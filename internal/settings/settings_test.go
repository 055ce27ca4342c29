package settings

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/relabs-tech/spdalt/internal/units"
)

type fakeKV struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
	setErr error
	writes []string
}

func newFakeKV() *fakeKV { return &fakeKV{data: make(map[string]string)} }

func (f *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	f.writes = append(f.writes, value)
	return nil
}

func TestLoad_MissingKeyGivesDefaults(t *testing.T) {
	s := New(NewAdapter(newFakeKV(), ""))
	st := s.Load(context.Background())
	if st.Unit != units.KMH || st.Theme != ThemeSystem || st.IsLoading {
		t.Fatalf("expected defaults, got %+v", st)
	}
}

func TestLoad_StoredRecord(t *testing.T) {
	kv := newFakeKV()
	kv.data[DefaultKey] = `{"unit":"mph","theme":"dark"}`
	st := New(NewAdapter(kv, "")).Load(context.Background())
	if st.Unit != units.MPH || st.Theme != ThemeDark {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestLoad_ReadErrorFailsOpen(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("disk gone")
	st := New(NewAdapter(kv, "")).Load(context.Background())
	if st != Defaults() {
		t.Fatalf("expected defaults on read error, got %+v", st)
	}
}

func TestLoad_MalformedRecord(t *testing.T) {
	kv := newFakeKV()
	kv.data[DefaultKey] = `{not json`
	st := New(NewAdapter(kv, "")).Load(context.Background())
	if st != Defaults() {
		t.Fatalf("expected defaults, got %+v", st)
	}
}

func TestLoad_UnknownFieldValueResetsOnlyThatField(t *testing.T) {
	kv := newFakeKV()
	kv.data[DefaultKey] = `{"unit":"knots","theme":"dark"}`
	st := New(NewAdapter(kv, "")).Load(context.Background())
	if st.Unit != units.KMH || st.Theme != ThemeDark {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestLoad_TogglesLoading(t *testing.T) {
	s := New(NewAdapter(newFakeKV(), ""))
	var loading []bool
	s.Subscribe(func(st State) { loading = append(loading, st.IsLoading) })
	s.Load(context.Background())
	if len(loading) != 2 || !loading[0] || loading[1] {
		t.Fatalf("expected loading true then false, got %v", loading)
	}
}

func TestSetUnit_KeepsThemeAcrossReload(t *testing.T) {
	kv := newFakeKV()
	kv.data[DefaultKey] = `{"unit":"kmh","theme":"light"}`
	s := New(NewAdapter(kv, ""))
	s.Load(context.Background())

	if err := s.SetUnit(context.Background(), units.MPH); err != nil {
		t.Fatalf("set unit: %v", err)
	}

	reloaded := New(NewAdapter(kv, "")).Load(context.Background())
	if reloaded.Unit != units.MPH || reloaded.Theme != ThemeLight {
		t.Fatalf("expected mph with light theme, got %+v", reloaded)
	}
}

func TestUpdate_WriteFailureKeepsMemory(t *testing.T) {
	kv := newFakeKV()
	kv.setErr = errors.New("read-only")
	s := New(NewAdapter(kv, ""))

	err := s.SetTheme(context.Background(), ThemeDark)
	if !errors.Is(err, ErrPersistenceWrite) {
		t.Fatalf("expected write error, got %v", err)
	}
	if s.State().Theme != ThemeDark {
		t.Fatalf("in-memory theme must stay changed")
	}
}

func TestUpdate_RejectsUnknownValues(t *testing.T) {
	kv := newFakeKV()
	s := New(NewAdapter(kv, ""))
	bad := units.Unit("knots")
	if err := s.Update(context.Background(), Partial{Unit: &bad}); err == nil {
		t.Fatalf("expected error")
	}
	if s.State().Unit != units.KMH || len(kv.writes) != 0 {
		t.Fatalf("invalid update must not change anything")
	}
}

func TestUpdate_ConcurrentWritesEndWithLatest(t *testing.T) {
	kv := newFakeKV()
	s := New(NewAdapter(kv, ""))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u := units.KMH
			if i%2 == 0 {
				u = units.MPH
			}
			_ = s.SetUnit(context.Background(), u)
		}(i)
	}
	wg.Wait()
	_ = s.SetTheme(context.Background(), ThemeDark)

	st := New(NewAdapter(kv, "")).Load(context.Background())
	if st.Unit != s.State().Unit || st.Theme != ThemeDark {
		t.Fatalf("stored %+v does not match memory %+v", st, s.State())
	}
}

func TestConvertSpeed_FollowsUnit(t *testing.T) {
	s := New(NewAdapter(newFakeKV(), ""))
	if r := s.ConvertSpeed(10); r.Label != "km/h" || math.Abs(r.Value-36) > 1e-9 {
		t.Fatalf("unexpected reading: %+v", r)
	}
	_ = s.SetUnit(context.Background(), units.MPH)
	if r := s.ConvertSpeed(10); r.Label != "mph" {
		t.Fatalf("unexpected reading: %+v", r)
	}
}

func TestResolveTheme(t *testing.T) {
	cases := []struct {
		pref Theme
		dark bool
		want Theme
	}{
		{ThemeLight, true, ThemeLight},
		{ThemeDark, false, ThemeDark},
		{ThemeSystem, true, ThemeDark},
		{ThemeSystem, false, ThemeLight},
	}
	for _, c := range cases {
		if got := ResolveTheme(c.pref, c.dark); got != c.want {
			t.Fatalf("ResolveTheme(%s, %v): expected %s, got %s", c.pref, c.dark, c.want, got)
		}
	}
}
