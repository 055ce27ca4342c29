package gps

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type testMessage struct {
	topic    string
	payload  []byte
	retained bool
}

func (m testMessage) Duplicate() bool   { return false }
func (m testMessage) Qos() byte         { return 0 }
func (m testMessage) Retained() bool    { return m.retained }
func (m testMessage) Topic() string     { return m.topic }
func (m testMessage) MessageID() uint16 { return 0 }
func (m testMessage) Payload() []byte   { return m.payload }
func (m testMessage) Ack()              {}

type fakeBroker struct {
	mu           sync.Mutex
	handlers     map[string]mqtt.MessageHandler
	unsubscribed []string
	onSubscribe  func(topic string)
	unsubToken   mqtt.Token
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: make(map[string]mqtt.MessageHandler)}
}

func (b *fakeBroker) Subscribe(topic string, qos byte, cb mqtt.MessageHandler) mqtt.Token {
	b.mu.Lock()
	b.handlers[topic] = cb
	hook := b.onSubscribe
	b.mu.Unlock()
	if hook != nil {
		hook(topic)
	}
	return doneToken{}
}

func (b *fakeBroker) Unsubscribe(topics ...string) mqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range topics {
		delete(b.handlers, topic)
		b.unsubscribed = append(b.unsubscribed, topic)
	}
	if b.unsubToken != nil {
		return b.unsubToken
	}
	return doneToken{}
}

func (b *fakeBroker) deliver(t *testing.T, topic string, v any, retained bool) {
	t.Helper()
	payload, ok := v.([]byte)
	if !ok {
		var err error
		payload, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
	}
	b.mu.Lock()
	cb := b.handlers[topic]
	b.mu.Unlock()
	if cb != nil {
		cb(nil, testMessage{topic: topic, payload: payload, retained: retained})
	}
}

func (b *fakeBroker) subscribed(topic string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.handlers[topic]
	return ok
}

const sampleTopic = "spdalt/gps/sample"

func TestMQTTProvider_WatchReceivesSamples(t *testing.T) {
	b := newFakeBroker()
	p := NewMQTTProvider(b, sampleTopic)

	var got []Sample
	var errs []*ErrorInfo
	id, err := p.WatchPosition(
		func(s Sample) { got = append(got, s) },
		func(e *ErrorInfo) { errs = append(errs, e) },
		DefaultFixOptions(),
	)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !b.subscribed(sampleTopic) {
		t.Fatalf("expected subscription")
	}

	b.deliver(t, sampleTopic, NewSample(1, 2, 10, 100, 5, time.Now()), false)
	b.deliver(t, sampleTopic, []byte("{not json"), false)

	if len(got) != 1 || *got[0].Speed != 10 {
		t.Fatalf("expected one sample with speed 10, got %+v", got)
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrAcquisitionError) {
		t.Fatalf("expected one acquisition error, got %+v", errs)
	}

	p.ClearWatch(id)
	if b.subscribed(sampleTopic) {
		t.Fatalf("expected unsubscribe after clear")
	}
	b.deliver(t, sampleTopic, NewSample(1, 2, 12, 100, 5, time.Now()), false)
	if len(got) != 1 {
		t.Fatalf("cleared watch must not receive samples")
	}
}

func TestMQTTProvider_StaleRetainedSampleIgnored(t *testing.T) {
	b := newFakeBroker()
	p := NewMQTTProvider(b, sampleTopic)

	var got []Sample
	if _, err := p.WatchPosition(func(s Sample) { got = append(got, s) }, func(*ErrorInfo) {}, DefaultWatchOptions()); err != nil {
		t.Fatalf("watch: %v", err)
	}
	b.deliver(t, sampleTopic, NewSample(1, 2, 10, 0, 5, time.Now().Add(-time.Minute)), true)
	if len(got) != 0 {
		t.Fatalf("expected stale retained sample dropped, got %+v", got)
	}
	b.deliver(t, sampleTopic, NewSample(1, 2, 11, 0, 5, time.Now()), true)
	if len(got) != 1 {
		t.Fatalf("expected fresh retained sample delivered")
	}
}

func TestMQTTProvider_GetCurrentPosition(t *testing.T) {
	b := newFakeBroker()
	p := NewMQTTProvider(b, sampleTopic)
	b.onSubscribe = func(topic string) {
		go b.deliver(t, topic, NewSample(1, 2, 7, 0, 5, time.Now()), true)
	}

	s, err := p.GetCurrentPosition(context.Background(), DefaultFixOptions())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if *s.Speed != 7 {
		t.Fatalf("expected speed 7, got %v", *s.Speed)
	}
	if b.subscribed(sampleTopic) {
		t.Fatalf("expected one-shot subscription released")
	}
}

func TestMQTTProvider_GetCurrentPositionTimeout(t *testing.T) {
	p := NewMQTTProvider(newFakeBroker(), sampleTopic)
	opts := DefaultFixOptions()
	opts.Timeout = 20 * time.Millisecond
	if _, err := p.GetCurrentPosition(context.Background(), opts); !errors.Is(err, ErrAcquisitionTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestMQTTProvider_NoClientDeniesAuthorization(t *testing.T) {
	p := NewMQTTProvider(nil, sampleTopic)
	ok, err := p.RequestAuthorization(context.Background())
	if ok || err != nil {
		t.Fatalf("expected denial without error, got %v %v", ok, err)
	}
}

// pendingToken completes only when release is closed.
type pendingToken struct{ release chan struct{} }

func (t pendingToken) Wait() bool {
	<-t.release
	return true
}

func (t pendingToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.release:
		return true
	case <-time.After(d):
		return false
	}
}

func (t pendingToken) Done() <-chan struct{} { return t.release }
func (t pendingToken) Error() error          { return nil }

func TestMQTTProvider_ClearWatchInsideHandlerDoesNotBlock(t *testing.T) {
	b := newFakeBroker()
	release := make(chan struct{})
	defer close(release)
	b.unsubToken = pendingToken{release: release}
	p := NewMQTTProvider(b, sampleTopic)

	var id WatchID
	cleared := make(chan struct{})
	id, err := p.WatchPosition(func(Sample) {
		p.ClearWatch(id)
		close(cleared)
	}, func(*ErrorInfo) {}, DefaultFixOptions())
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	delivered := make(chan struct{})
	go func() {
		b.deliver(t, sampleTopic, NewSample(1, 2, 10, 100, 5, time.Now()), false)
		close(delivered)
	}()

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatalf("handler blocked on the unsubscribe token")
	}
	<-cleared
	if b.subscribed(sampleTopic) {
		t.Fatalf("expected unsubscribe requested")
	}
}
