// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/relabs-tech/spdalt/internal/units"
)

// DefaultKey is where preferences live in the key-value store.
const DefaultKey = "@SpdAlt_settings"

var (
	ErrPersistenceRead  = errors.New("failed to load settings")
	ErrPersistenceWrite = errors.New("failed to save settings")
)

// KVStore is the external persistent key-value store.
type KVStore interface {
	// Get returns ok=false when the key does not exist.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// record is the stored JSON object.
type record struct {
	Unit  units.Unit `json:"unit"`
	Theme Theme      `json:"theme"`
}

// Adapter reads and writes the preference record.
type Adapter struct {
	kv  KVStore
	key string
}

func NewAdapter(kv KVStore, key string) *Adapter {
	if key == "" {
		key = DefaultKey
	}
	return &Adapter{kv: kv, key: key}
}

// Load returns the stored preferences. Preferences are not critical: a
// missing key, a read failure or a malformed record all yield defaults,
// and an unknown value only resets that one field.
func (a *Adapter) Load(ctx context.Context) State {
	st := Defaults()

	raw, ok, err := a.kv.Get(ctx, a.key)
	if err != nil {
		log.Printf("settings: %v", fmt.Errorf("%w: %v", ErrPersistenceRead, err))
		return st
	}
	if !ok || raw == "" {
		return st
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		log.Printf("settings: %v: malformed record: %v", ErrPersistenceRead, err)
		return st
	}
	if rec.Unit.Valid() {
		st.Unit = rec.Unit
	} else if rec.Unit != "" {
		log.Printf("settings: ignoring stored unit %q", rec.Unit)
	}
	if rec.Theme.Valid() {
		st.Theme = rec.Theme
	} else if rec.Theme != "" {
		log.Printf("settings: ignoring stored theme %q", rec.Theme)
	}
	return st
}

// Save merges p into current and writes the full record.
func (a *Adapter) Save(ctx context.Context, current State, p Partial) error {
	merged := current.Merge(p)
	b, err := json.Marshal(record{Unit: merged.Unit, Theme: merged.Theme})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceWrite, err)
	}
	if err := a.kv.Set(ctx, a.key, string(b)); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceWrite, err)
	}
	return nil
}
