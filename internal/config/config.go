// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDTracker  string
	MQTTClientIDGPS      string
	MQTTClientIDConsole  string
	MQTTClientIDProducer string

	// Topics
	TopicGPSSample     string
	TopicTrackingState string

	// GPS source: "serial", "mqtt" or "sim"
	GPSSource     string
	GPSSerialPort string
	GPSBaudRate   int

	// Acquisition options
	GPSHighAccuracy   bool
	GPSTimeoutMs      int
	GPSMaxCacheAgeMs  int
	GPSMinDistanceM   float64
	GPSMinIntervalMs  int
	GPSAbandonOnError bool

	// Simulator
	SimCenterLat    float64
	SimCenterLon    float64
	SimBaseSpeedMps float64

	// Preferences: "memory", "file" or "redis"
	SettingsStore string
	SettingsFile  string
	SettingsKey   string
	RedisURL      string

	// Web Server (0 disables)
	WebServerPort int
}

// Default returns the configuration used for keys a file leaves out.
func Default() *Config {
	return &Config{
		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientIDTracker:  "spdalt-tracker",
		MQTTClientIDGPS:      "spdalt-gps",
		MQTTClientIDConsole:  "spdalt-console",
		MQTTClientIDProducer: "spdalt-producer",

		TopicGPSSample:     "spdalt/gps/sample",
		TopicTrackingState: "spdalt/tracking/state",

		GPSSource:     "sim",
		GPSSerialPort: "/dev/serial0",
		GPSBaudRate:   9600,

		GPSHighAccuracy:  true,
		GPSTimeoutMs:     8000,
		GPSMaxCacheAgeMs: 3000,
		GPSMinDistanceM:  0.5,
		GPSMinIntervalMs: 1000,

		SimCenterLat:    37.7749,
		SimCenterLon:    -122.4194,
		SimBaseSpeedMps: 10,

		SettingsStore: "file",
		SettingsFile:  "spdalt_settings.json",
		SettingsKey:   "@SpdAlt_settings",

		WebServerPort: 8080,
	}
}

// Load reads the KEY=VALUE configuration file on top of the defaults.
func Load(configPath string) (*Config, error) {
	values, err := godotenv.Read(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()

	// Sorted so the first bad key reported is stable.
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := cfg.setValue(key, strings.TrimSpace(values[key])); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_TRACKER":
		c.MQTTClientIDTracker = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value

	// Topics
	case "TOPIC_GPS_SAMPLE":
		c.TopicGPSSample = value
	case "TOPIC_TRACKING_STATE":
		c.TopicTrackingState = value

	// GPS
	case "GPS_SOURCE":
		switch value {
		case "serial", "mqtt", "sim":
			c.GPSSource = value
		default:
			return fmt.Errorf("GPS_SOURCE must be serial, mqtt or sim, got %q", value)
		}
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Acquisition options
	case "GPS_HIGH_ACCURACY":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_HIGH_ACCURACY %q: %w", value, err)
		}
		c.GPSHighAccuracy = b
	case "GPS_TIMEOUT_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_TIMEOUT_MS %q: %w", value, err)
		}
		c.GPSTimeoutMs = ms
	case "GPS_MAX_CACHE_AGE_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_MAX_CACHE_AGE_MS %q: %w", value, err)
		}
		c.GPSMaxCacheAgeMs = ms
	case "GPS_MIN_DISTANCE_M":
		m, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GPS_MIN_DISTANCE_M %q: %w", value, err)
		}
		c.GPSMinDistanceM = m
	case "GPS_MIN_INTERVAL_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_MIN_INTERVAL_MS %q: %w", value, err)
		}
		c.GPSMinIntervalMs = ms
	case "GPS_ABANDON_ON_ERROR":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_ABANDON_ON_ERROR %q: %w", value, err)
		}
		c.GPSAbandonOnError = b

	// Simulator
	case "SIM_CENTER_LAT":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid SIM_CENTER_LAT %q: %w", value, err)
		}
		c.SimCenterLat = v
	case "SIM_CENTER_LON":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid SIM_CENTER_LON %q: %w", value, err)
		}
		c.SimCenterLon = v
	case "SIM_BASE_SPEED_MPS":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid SIM_BASE_SPEED_MPS %q: %w", value, err)
		}
		c.SimBaseSpeedMps = v

	// Preferences
	case "SETTINGS_STORE":
		switch value {
		case "memory", "file", "redis":
			c.SettingsStore = value
		default:
			return fmt.Errorf("SETTINGS_STORE must be memory, file or redis, got %q", value)
		}
	case "SETTINGS_FILE":
		c.SettingsFile = value
	case "SETTINGS_KEY":
		c.SettingsKey = value
	case "REDIS_URL":
		c.RedisURL = value

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.GPSSource == "serial" && c.GPSSerialPort == "" {
		return fmt.Errorf("GPS_SERIAL_PORT is required for the serial source")
	}
	if c.GPSSource == "serial" && c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE must be positive, got %d", c.GPSBaudRate)
	}
	if c.GPSSource == "mqtt" && c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required for the mqtt source")
	}
	if c.GPSTimeoutMs <= 0 {
		return fmt.Errorf("GPS_TIMEOUT_MS must be positive, got %d", c.GPSTimeoutMs)
	}
	if c.GPSMaxCacheAgeMs < 0 || c.GPSMinIntervalMs < 0 || c.GPSMinDistanceM < 0 {
		return fmt.Errorf("GPS cache age, interval and distance must not be negative")
	}
	if c.SimCenterLat < -90 || c.SimCenterLat > 90 || c.SimCenterLon < -180 || c.SimCenterLon > 180 {
		return fmt.Errorf("simulator centre %.4f,%.4f is not a coordinate", c.SimCenterLat, c.SimCenterLon)
	}
	if c.SettingsKey == "" {
		return fmt.Errorf("SETTINGS_KEY is required")
	}
	if c.SettingsStore == "file" && c.SettingsFile == "" {
		return fmt.Errorf("SETTINGS_FILE is required for the file store")
	}
	if c.SettingsStore == "redis" && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required for the redis store")
	}
	if c.WebServerPort < 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 0-65535, got %d", c.WebServerPort)
	}
	return nil
}
