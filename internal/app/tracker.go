// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/spdalt/internal/config"
	"github.com/relabs-tech/spdalt/internal/location"
	"github.com/relabs-tech/spdalt/internal/settings"
	"github.com/relabs-tech/spdalt/internal/tracking"
)

// RunTracker runs the tracker service: location source, state store,
// preferences, MQTT state publisher and the HTTP API, until SIGINT or
// SIGTERM.
func RunTracker(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- 1) MQTT (optional unless it is the location source) ----
	var client mqtt.Client
	if cfg.MQTTBroker != "" {
		c, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDTracker)
		if err != nil {
			if cfg.GPSSource == "mqtt" {
				return err
			}
			log.Printf("tracker: continuing without MQTT: %v", err)
		} else {
			client = c
			defer client.Disconnect(250)
		}
	}

	// ---- 2) Location ----
	provider, closeProvider, err := newProvider(cfg, client)
	if err != nil {
		return err
	}
	defer closeProvider()
	log.Printf("tracker: location source %s", cfg.GPSSource)

	gateway := location.NewGateway(provider, watchOptions(cfg), fixOptions(cfg))
	tracker := tracking.NewTracker(gateway, tracking.NewStore(), tracking.Options{
		AbandonOnError: cfg.GPSAbandonOnError,
	})
	defer tracker.Close()

	// ---- 3) Preferences ----
	kv, closeKV, err := newKVStore(cfg)
	if err != nil {
		return fmt.Errorf("settings store: %w", err)
	}
	defer closeKV()
	prefs := settings.New(settings.NewAdapter(kv, cfg.SettingsKey))
	ps := prefs.Load(ctx)
	log.Printf("tracker: preferences unit=%s theme=%s", ps.Unit, ps.Theme)

	views := NewViewSource(tracker.Store(), prefs)
	defer views.Close()

	if client != nil {
		pub := NewStatePublisher(client, cfg.TopicTrackingState)
		go pub.Run(ctx, views)
		log.Printf("tracker: publishing state on %s", cfg.TopicTrackingState)
	}

	// ---- 4) Start tracking if allowed ----
	if tracker.RequestPermissions(ctx) {
		if err := tracker.Start(ctx); err != nil {
			log.Printf("tracker: %v", err)
		}
	} else {
		log.Println("tracker: location permission is required; grant it and POST /api/tracking/start")
	}

	// ---- 5) Serve until shutdown ----
	if cfg.WebServerPort > 0 {
		addr := fmt.Sprintf(":%d", cfg.WebServerPort)
		log.Printf("web server listening on %s", addr)
		srv := NewServer(ctx, addr, tracker, prefs, views)
		if err := srv.Run(ctx); err != nil {
			return err
		}
	} else {
		<-ctx.Done()
	}

	log.Println("tracker: shutting down")
	tracker.Stop()
	return nil
}
