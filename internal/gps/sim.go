// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"context"
	"math"
	"sync"
	"time"
)

const metersPerDegLat = 111320.0

type SimConfig struct {
	CenterLat    float64
	CenterLon    float64
	BaseSpeedMps float64
	AltitudeM    float64
	RadiusM      float64

	// Deny makes the simulator refuse authorization.
	Deny bool
}

// SimProvider generates smoothly changing fixes while driving a circle
// around a centre point. Handy on a desk without a receiver.
type SimProvider struct {
	cfg   SimConfig
	start time.Time
	now   func() time.Time

	mu      sync.Mutex
	nextID  WatchID
	watches map[WatchID]context.CancelFunc
	wg      sync.WaitGroup
}

func NewSimProvider(cfg SimConfig) *SimProvider {
	if cfg.RadiusM <= 0 {
		cfg.RadiusM = 200
	}
	return &SimProvider{
		cfg:     cfg,
		start:   time.Now(),
		now:     time.Now,
		watches: make(map[WatchID]context.CancelFunc),
	}
}

// Next returns the simulated fix for the current time.
func (p *SimProvider) Next() Sample {
	return p.NextAt(p.now())
}

// NextAt returns the simulated fix for the given time.
func (p *SimProvider) NextAt(now time.Time) Sample {
	elapsed := now.Sub(p.start).Seconds()

	speed := p.cfg.BaseSpeedMps * (1 + 0.3*math.Sin(elapsed/5))
	angle := p.cfg.BaseSpeedMps * elapsed / p.cfg.RadiusM

	lat := p.cfg.CenterLat + p.cfg.RadiusM*math.Cos(angle)/metersPerDegLat
	lon := p.cfg.CenterLon + p.cfg.RadiusM*math.Sin(angle)/(metersPerDegLat*math.Cos(p.cfg.CenterLat*math.Pi/180))

	return NewSample(
		lat,
		lon,
		speed,
		p.cfg.AltitudeM+5*math.Cos(elapsed*0.7),
		3+math.Abs(math.Sin(elapsed/11)),
		now,
	)
}

func (p *SimProvider) RequestAuthorization(ctx context.Context) (bool, error) {
	return !p.cfg.Deny, nil
}

func (p *SimProvider) WatchPosition(onPosition func(Sample), onError func(*ErrorInfo), opts WatchOptions) (WatchID, error) {
	if p.cfg.Deny {
		return 0, PermissionDenied("simulator: permission denied")
	}
	interval := opts.MinInterval
	if interval <= 0 {
		interval = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.watches[id] = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		filter := NewFilter(opts)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case tick := <-ticker.C:
				s := p.NextAt(tick)
				if filter.Accept(s, tick) {
					onPosition(s)
				}
			}
		}
	}()
	return id, nil
}

func (p *SimProvider) ClearWatch(id WatchID) {
	p.mu.Lock()
	cancel, ok := p.watches[id]
	delete(p.watches, id)
	p.mu.Unlock()
	if ok {
		cancel()
	}
}

func (p *SimProvider) GetCurrentPosition(ctx context.Context, opts WatchOptions) (Sample, error) {
	if p.cfg.Deny {
		return Sample{}, PermissionDenied("simulator: permission denied")
	}
	if err := ctx.Err(); err != nil {
		return Sample{}, AsErrorInfo(err)
	}
	return p.Next(), nil
}

// Close stops all running watches.
func (p *SimProvider) Close() {
	p.mu.Lock()
	for id, cancel := range p.watches {
		cancel()
		delete(p.watches, id)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
