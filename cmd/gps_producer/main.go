// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/spdalt/internal/app"
	"github.com/relabs-tech/spdalt/internal/config"
)

func main() {
	configPath := flag.String("config", "./spdalt_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting spdalt GPS producer (NMEA → MQTT)")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunGPSProducer(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
