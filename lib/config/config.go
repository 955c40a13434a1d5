// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration file loading for the bridge.
//
// Configuration is loaded from a single YAML file specified by:
//   - HEARTH_CONFIG environment variable, or
//   - --config flag passed to the command
//
// The file is optional: every setting has a flag and an environment
// fallback, and flags win over the file. Credentials are never read
// from the file: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY come
// from the environment only, so a world-readable config file cannot
// leak them.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the bridge's file-configurable settings. Zero values
// mean "not set in the file"; Default fills the operational defaults
// before the file is merged on top.
type Config struct {
	// TopicARN is the pub/sub topic the bridge subscribes to.
	TopicARN string `yaml:"topic_arn"`

	// Region is the AWS region of the topic (e.g. "eu-west-1").
	Region string `yaml:"region"`

	// SNSEndpoint overrides the SNS API base URL. Set it to point the
	// bridge at a local emulator; empty uses the regional endpoint.
	SNSEndpoint string `yaml:"sns_endpoint"`

	// Listen is the webhook listen address. ":0" binds an ephemeral
	// port; the bridge reads the bound port back before subscribing.
	Listen string `yaml:"listen"`

	// PublicIP skips discovery entirely when set. For installations
	// with a known static address.
	PublicIP string `yaml:"public_ip"`

	// PortMapper selects the port exposure provider: "upnp" asks the
	// router over IGD, "static" assumes a pre-configured forward.
	PortMapper string `yaml:"port_mapper"`

	// ExternalPort is the router-side port for the static mapper.
	// Zero means the same number as the internal listen port.
	ExternalPort int `yaml:"external_port"`

	// PingIntervalSeconds is the heartbeat publish interval. The
	// delivery channel is declared dead after twice this long without
	// a received ping.
	PingIntervalSeconds int `yaml:"ping_interval_seconds"`

	// SkillsManifest is the path to the skills.jsonc manifest. Empty
	// runs the bridge with no skills (heartbeat only).
	SkillsManifest string `yaml:"skills_manifest"`

	// ControlSocket is the Unix socket path for hearth-ctl.
	ControlSocket string `yaml:"control_socket"`

	// StateDir holds runtime state (the restart marker).
	StateDir string `yaml:"state_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// IPEchoURL is the plain-text public IP echo service used when
	// PublicIP is unset.
	IPEchoURL string `yaml:"ip_echo_url"`

	// STUNServer is the host:port of the STUN fallback for public IP
	// discovery.
	STUNServer string `yaml:"stun_server"`
}

// Default returns the default configuration. These are the values a
// bridge runs with when neither the file nor flags say otherwise.
func Default() *Config {
	return &Config{
		Listen:              ":8080",
		PortMapper:          "upnp",
		PingIntervalSeconds: 600,
		ControlSocket:       "/run/hearth/control.sock",
		StateDir:            "/var/lib/hearth",
		LogLevel:            "info",
		IPEchoURL:           "https://api.ipify.org",
		STUNServer:          "stun.l.google.com:19302",
	}
}

// Load loads configuration from the path in the HEARTH_CONFIG
// environment variable. Returns defaults when the variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv("HEARTH_CONFIG")
	if configPath == "" {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merged over
// the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for malformed values. It does not
// enforce required settings; flags and environment variables may
// still fill those in after the file is loaded.
func (c *Config) Validate() error {
	var errs []error

	switch c.PortMapper {
	case "upnp", "static":
	default:
		errs = append(errs, fmt.Errorf("port_mapper must be \"upnp\" or \"static\", got %q", c.PortMapper))
	}

	if c.PingIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("ping_interval_seconds must be positive, got %d", c.PingIntervalSeconds))
	}

	if c.ExternalPort < 0 || c.ExternalPort > 65535 {
		errs = append(errs, fmt.Errorf("external_port out of range: %d", c.ExternalPort))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
