// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const mqttOpTimeout = 5 * time.Second

// Subscriber is the part of an MQTT client the provider uses.
type Subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// MQTTProvider consumes samples that a producer (see RunGPSProducer)
// publishes as JSON on a topic. Producers publish retained, so a fresh
// subscription may first see a cached fix; MaxCacheAge decides whether it
// is still usable.
//
// A single topic subscription is shared by the (at most one) watch and any
// pending one-shot fetches.
type MQTTProvider struct {
	client Subscriber
	topic  string
	now    func() time.Time

	mu      sync.Mutex
	nextID  WatchID
	watch   *mqttWatch
	waiters map[chan Sample]time.Duration

	subMu      sync.Mutex
	subscribed bool
}

type mqttWatch struct {
	id         WatchID
	onPosition func(Sample)
	onError    func(*ErrorInfo)
	maxAge     time.Duration

	mu     sync.Mutex
	filter *Filter
}

func NewMQTTProvider(client Subscriber, topic string) *MQTTProvider {
	return &MQTTProvider{
		client:  client,
		topic:   topic,
		now:     time.Now,
		waiters: make(map[chan Sample]time.Duration),
	}
}

func (p *MQTTProvider) RequestAuthorization(ctx context.Context) (bool, error) {
	return p.client != nil, nil
}

// WatchPosition replaces any previous watch of this provider.
func (p *MQTTProvider) WatchPosition(onPosition func(Sample), onError func(*ErrorInfo), opts WatchOptions) (WatchID, error) {
	p.mu.Lock()
	p.nextID++
	w := &mqttWatch{
		id:         p.nextID,
		onPosition: onPosition,
		onError:    onError,
		maxAge:     opts.MaxCacheAge,
		filter:     NewFilter(opts),
	}
	p.watch = w
	p.mu.Unlock()

	if err := p.sync(); err != nil {
		p.ClearWatch(w.id)
		return 0, Unavailable(fmt.Sprintf("gps mqtt: %v", err))
	}
	return w.id, nil
}

func (p *MQTTProvider) ClearWatch(id WatchID) {
	p.mu.Lock()
	if p.watch == nil || p.watch.id != id {
		p.mu.Unlock()
		return
	}
	p.watch = nil
	p.mu.Unlock()

	// The broker may already be gone; nothing reaches a cleared watch
	// either way.
	_ = p.sync()
}

func (p *MQTTProvider) GetCurrentPosition(ctx context.Context, opts WatchOptions) (Sample, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	ch := make(chan Sample, 1)
	p.mu.Lock()
	p.waiters[ch] = opts.MaxCacheAge
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.waiters, ch)
		p.mu.Unlock()
		_ = p.sync()
	}()

	if err := p.sync(); err != nil {
		return Sample{}, Unavailable(fmt.Sprintf("gps mqtt: %v", err))
	}

	select {
	case s := <-ch:
		return s, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Sample{}, Timeout(fmt.Sprintf("gps mqtt: no fix on %s within %s", p.topic, opts.Timeout))
		}
		return Sample{}, AsErrorInfo(ctx.Err())
	}
}

// sync subscribes while anyone is listening and unsubscribes otherwise.
func (p *MQTTProvider) sync() error {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	p.mu.Lock()
	need := p.watch != nil || len(p.waiters) > 0
	p.mu.Unlock()

	if p.client == nil {
		return errors.New("no mqtt client")
	}

	switch {
	case need && !p.subscribed:
		if err := waitToken(p.client.Subscribe(p.topic, 0, p.handle)); err != nil {
			return fmt.Errorf("subscribe %s: %w", p.topic, err)
		}
		p.subscribed = true
	case !need && p.subscribed:
		p.subscribed = false
		// Not waited on: ClearWatch may run inside a message handler, where
		// blocking on a token stalls the client.
		token := p.client.Unsubscribe(p.topic)
		topic := p.topic
		go func() {
			if err := waitToken(token); err != nil {
				log.Printf("gps mqtt: unsubscribe %s: %v", topic, err)
			}
		}()
	}
	return nil
}

func (p *MQTTProvider) handle(_ mqtt.Client, msg mqtt.Message) {
	var s Sample
	perr := json.Unmarshal(msg.Payload(), &s)

	p.mu.Lock()
	w := p.watch
	waiters := make(map[chan Sample]time.Duration, len(p.waiters))
	for ch, maxAge := range p.waiters {
		waiters[ch] = maxAge
	}
	p.mu.Unlock()

	if perr != nil {
		if w != nil {
			w.onError(Unavailable(fmt.Sprintf("gps mqtt: bad sample on %s: %v", msg.Topic(), perr)))
		}
		return
	}

	now := p.now()
	stale := func(maxAge time.Duration) bool {
		return msg.Retained() && maxAge > 0 && s.Age(now) > maxAge
	}

	for ch, maxAge := range waiters {
		if stale(maxAge) {
			continue
		}
		select {
		case ch <- s:
		default:
		}
	}

	if w == nil || stale(w.maxAge) {
		return
	}
	w.mu.Lock()
	ok := w.filter.Accept(s, now)
	w.mu.Unlock()
	if ok {
		w.onPosition(s)
	}
}

func waitToken(token mqtt.Token) error {
	if !token.WaitTimeout(mqttOpTimeout) {
		return fmt.Errorf("timed out after %s", mqttOpTimeout)
	}
	return token.Error()
}
