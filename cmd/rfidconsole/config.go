package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/org/rfidconsole/internal/console"
	"github.com/org/rfidconsole/internal/device"
	"github.com/org/rfidconsole/internal/journal"
	"gopkg.in/yaml.v3"
)

type config struct {
	ListenAddr     string        `yaml:"listen_addr"`
	DeviceURL      string        `yaml:"device_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	SyncInterval   time.Duration `yaml:"sync_interval"`
	ScanInterval   time.Duration `yaml:"scan_interval"`
	ScanTimeout    time.Duration `yaml:"scan_timeout"`
	LogLevel       string        `yaml:"log_level"`
	JournalSize    int           `yaml:"journal_size"`
	RateLimit      int           `yaml:"rate_limit"`
	RateBurst      int           `yaml:"rate_burst"`
}

func defaultConfig() config {
	return config{
		ListenAddr:     ":8080",
		RequestTimeout: device.DefaultTimeout,
		SyncInterval:   console.DefaultSyncInterval,
		ScanInterval:   console.DefaultScanInterval,
		LogLevel:       "info",
		JournalSize:    journal.DefaultSize,
		RateLimit:      10,
		RateBurst:      20,
	}
}

// loadConfig reads path over the defaults and applies env overrides. A
// missing file is not an error; found reports whether it existed.
func loadConfig(path string, getenv func(string) string) (cfg config, found bool, err error) {
	cfg = defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		found = true
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, found, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, false, fmt.Errorf("read %s: %w", path, err)
	}

	if v := getenv("RFIDCONSOLE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := getenv("RFID_DEVICE_URL"); v != "" {
		cfg.DeviceURL = v
	}

	if cfg.DeviceURL == "" {
		return cfg, found, errors.New("device_url must be configured (or RFID_DEVICE_URL env var)")
	}
	if cfg.SyncInterval < time.Second {
		return cfg, found, fmt.Errorf("sync_interval %s is below 1s", cfg.SyncInterval)
	}
	if cfg.ScanTimeout < 0 {
		return cfg, found, errors.New("scan_timeout must not be negative")
	}
	return cfg, found, nil
}
