// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/spdalt/internal/config"
	"github.com/relabs-tech/spdalt/internal/gps"
)

func RunConsoleMQTT(cfg *config.Config) error {
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	// Subscribe to tracker state
	stateToken := client.Subscribe(cfg.TopicTrackingState, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var v View
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			log.Printf("console: state unmarshal error: %v", err)
			return
		}
		fmt.Println(summary(v))
	})
	stateToken.Wait()
	if stateToken.Error() != nil {
		return stateToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicTrackingState)

	// Subscribe to raw samples
	sampleToken := client.Subscribe(cfg.TopicGPSSample, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s gps.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: sample unmarshal error: %v", err)
			return
		}
		fmt.Println(sampleSummary(s))
	})
	sampleToken.Wait()
	if sampleToken.Error() != nil {
		return sampleToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicGPSSample)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	return nil
}
