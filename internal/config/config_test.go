package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spdalt_config.txt")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_EmptyFileGivesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "# nothing here\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	if *cfg != *def {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_OverridesValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
# serial receiver
GPS_SOURCE=serial
GPS_SERIAL_PORT=/dev/ttyUSB0
GPS_BAUD_RATE=115200
GPS_MIN_DISTANCE_M=2.5
GPS_ABANDON_ON_ERROR=true
SETTINGS_STORE=memory
WEB_SERVER_PORT=0
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GPSSource != "serial" || cfg.GPSSerialPort != "/dev/ttyUSB0" || cfg.GPSBaudRate != 115200 {
		t.Fatalf("unexpected gps config: %+v", cfg)
	}
	if cfg.GPSMinDistanceM != 2.5 || !cfg.GPSAbandonOnError {
		t.Fatalf("unexpected acquisition config: %+v", cfg)
	}
	if cfg.SettingsStore != "memory" || cfg.WebServerPort != 0 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.TopicGPSSample != "spdalt/gps/sample" {
		t.Fatalf("expected default topic kept, got %q", cfg.TopicGPSSample)
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown key":       "NOT_A_KEY=1\n",
		"bad int":           "GPS_TIMEOUT_MS=soon\n",
		"bad source":        "GPS_SOURCE=bluetooth\n",
		"redis without url": "SETTINGS_STORE=redis\n",
		"zero timeout":      "GPS_TIMEOUT_MS=0\n",
		"port range":        "WEB_SERVER_PORT=70000\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Fatalf("expected read error, got %v", err)
	}
}
