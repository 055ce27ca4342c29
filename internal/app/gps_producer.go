// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/spdalt/internal/config"
	"github.com/relabs-tech/spdalt/internal/gps"
)

// RunGPSProducer reads NMEA from the serial receiver and publishes each
// accepted fix as a JSON sample on TOPIC_GPS_SAMPLE.
func RunGPSProducer(cfg *config.Config) error {
	provider := gps.NewSerialProvider(gps.SerialConfig{Port: cfg.GPSSerialPort, BaudRate: cfg.GPSBaudRate})
	defer provider.Close()
	return runSampleProducer(cfg, cfg.MQTTClientIDGPS, "gps producer", provider)
}

// RunMockProducer publishes simulated samples, for running the tracker
// with GPS_SOURCE=mqtt without a receiver.
func RunMockProducer(cfg *config.Config) error {
	provider := gps.NewSimProvider(simConfig(cfg))
	defer provider.Close()
	return runSampleProducer(cfg, cfg.MQTTClientIDProducer, "mock producer", provider)
}

func runSampleProducer(cfg *config.Config, clientID, name string, provider gps.Provider) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- 1) Connect to MQTT broker ----
	client, err := connectMQTT(cfg.MQTTBroker, clientID)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	// ---- 2) Check the source ----
	ok, err := provider.RequestAuthorization(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", name, gps.ErrPermissionDenied)
	}

	// ---- 3) Forward fixes ----
	pub := newSamplePublisher(client, cfg.TopicGPSSample)
	id, err := provider.WatchPosition(
		func(s gps.Sample) {
			if err := pub.Publish(s); err != nil {
				log.Printf("%s: %v", name, err)
				return
			}
			log.Printf("%s: published %s", name, sampleSummary(s))
		},
		func(e *gps.ErrorInfo) {
			log.Printf("%s: %v", name, e)
		},
		watchOptions(cfg),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer provider.ClearWatch(id)
	log.Printf("%s: publishing samples on %s", name, cfg.TopicGPSSample)

	<-ctx.Done()
	log.Printf("%s: shutting down", name)
	return nil
}

type samplePublisher struct {
	client Publisher
	topic  string
}

func newSamplePublisher(client Publisher, topic string) *samplePublisher {
	return &samplePublisher{client: client, topic: topic}
}

func (p *samplePublisher) Publish(s gps.Sample) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}
	return publishJSON(p.client, p.topic, payload)
}
