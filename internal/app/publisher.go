// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 5 * time.Second

// Publisher is the part of an MQTT client used to send messages.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// StatePublisher mirrors views to a retained MQTT topic so late subscribers
// get the current state straight away.
type StatePublisher struct {
	client Publisher
	topic  string
}

func NewStatePublisher(client Publisher, topic string) *StatePublisher {
	return &StatePublisher{client: client, topic: topic}
}

func (p *StatePublisher) Publish(v View) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}
	return publishJSON(p.client, p.topic, payload)
}

// Run publishes the current view and then every change until ctx ends.
func (p *StatePublisher) Run(ctx context.Context, views *ViewSource) {
	box := newMailbox()
	unsubscribe := views.Subscribe(box.put)
	defer unsubscribe()
	box.put(views.View())

	for {
		select {
		case <-ctx.Done():
			return
		case v := <-box.ch:
			if err := p.Publish(v); err != nil {
				log.Printf("publisher: %v", err)
			}
		}
	}
}

func publishJSON(client Publisher, topic string, payload []byte) error {
	token := client.Publish(topic, 0, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}
