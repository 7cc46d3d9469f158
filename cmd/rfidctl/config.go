package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/org/rfidconsole/internal/device"
	"gopkg.in/yaml.v3"
)

// CLIConfig is the persistent CLI configuration.
type CLIConfig struct {
	DeviceURL      string        `yaml:"device_url"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
}

var cfg CLIConfig

// configPath returns the path to the CLI config file.
func configPath() string {
	if v := os.Getenv("RFIDCTL_CONFIG"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".rfidctl", "config.yaml")
}

const defaultDeviceURL = "http://192.168.4.1"

// loadConfig reads the CLI config. A missing file means defaults; a file
// that does not parse or names an unusable device is an error. An unset
// request_timeout falls back to the client's default.
func loadConfig() error {
	cfg = CLIConfig{DeviceURL: defaultDeviceURL}
	data, err := os.ReadFile(configPath())
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse %s: %w", configPath(), err)
		}
	}

	if cfg.DeviceURL == "" {
		cfg.DeviceURL = defaultDeviceURL
	}
	if err := validateDeviceURL(cfg.DeviceURL); err != nil {
		return fmt.Errorf("%s: %w", configPath(), err)
	}
	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("%s: request_timeout must not be negative", configPath())
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = device.DefaultTimeout
	}
	return nil
}

func validateDeviceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid device URL %q: want http://host[:port]", raw)
	}
	return nil
}

// saveConfig persists the CLI config to disk.
func saveConfig() error {
	path := configPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// deviceURL resolves the device address: --device flag, then
// RFID_DEVICE_URL, then the config file.
func deviceURL() string {
	if deviceFlag != "" {
		return deviceFlag
	}
	if v := os.Getenv("RFID_DEVICE_URL"); v != "" {
		return v
	}
	return cfg.DeviceURL
}
