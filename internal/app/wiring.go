// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/relabs-tech/spdalt/internal/config"
	"github.com/relabs-tech/spdalt/internal/gps"
	"github.com/relabs-tech/spdalt/internal/kvstore"
	"github.com/relabs-tech/spdalt/internal/settings"
)

// connectMQTT connects with a per-process client id so two copies of a
// program do not kick each other off the broker.
func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	id := clientID + "-" + uuid.NewString()[:8]
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(id).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to %s: %w", broker, token.Error())
	}
	log.Printf("connected to MQTT broker at %s as %s", broker, id)
	return client, nil
}

func watchOptions(cfg *config.Config) gps.WatchOptions {
	return gps.WatchOptions{
		HighAccuracy:      cfg.GPSHighAccuracy,
		Timeout:           time.Duration(cfg.GPSTimeoutMs) * time.Millisecond,
		MaxCacheAge:       time.Duration(cfg.GPSMaxCacheAgeMs) * time.Millisecond,
		MinDistanceMeters: cfg.GPSMinDistanceM,
		MinInterval:       time.Duration(cfg.GPSMinIntervalMs) * time.Millisecond,
	}
}

// fixOptions are the watch options without the distance and interval
// filters, which mean nothing for a single fix.
func fixOptions(cfg *config.Config) gps.WatchOptions {
	opts := watchOptions(cfg)
	opts.MinDistanceMeters = 0
	opts.MinInterval = 0
	return opts
}

func simConfig(cfg *config.Config) gps.SimConfig {
	return gps.SimConfig{
		CenterLat:    cfg.SimCenterLat,
		CenterLon:    cfg.SimCenterLon,
		BaseSpeedMps: cfg.SimBaseSpeedMps,
		AltitudeM:    15,
	}
}

// newProvider builds the configured location source. client may be nil
// unless the source is "mqtt".
func newProvider(cfg *config.Config, client mqtt.Client) (gps.Provider, func(), error) {
	switch cfg.GPSSource {
	case "serial":
		p := gps.NewSerialProvider(gps.SerialConfig{Port: cfg.GPSSerialPort, BaudRate: cfg.GPSBaudRate})
		return p, p.Close, nil
	case "mqtt":
		if client == nil {
			return nil, nil, fmt.Errorf("GPS_SOURCE=mqtt needs a broker connection")
		}
		return gps.NewMQTTProvider(client, cfg.TopicGPSSample), func() {}, nil
	case "sim":
		p := gps.NewSimProvider(simConfig(cfg))
		return p, p.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown GPS source %q", cfg.GPSSource)
	}
}

func newKVStore(cfg *config.Config) (settings.KVStore, func(), error) {
	switch cfg.SettingsStore {
	case "memory":
		return kvstore.NewMemory(), func() {}, nil
	case "file":
		return kvstore.NewFile(cfg.SettingsFile), func() {}, nil
	case "redis":
		r, err := kvstore.NewRedis(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { r.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown settings store %q", cfg.SettingsStore)
	}
}
