// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q, want :8080", cfg.Listen)
	}
	if cfg.PortMapper != "upnp" {
		t.Errorf("PortMapper = %q, want upnp", cfg.PortMapper)
	}
	if cfg.PingIntervalSeconds != 600 {
		t.Errorf("PingIntervalSeconds = %d, want 600", cfg.PingIntervalSeconds)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hearth.yaml")
	content := `
topic_arn: arn:aws:sns:eu-west-1:123456789012:hearth-home
region: eu-west-1
listen: ":0"
port_mapper: static
external_port: 18080
ping_interval_seconds: 30
log_level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.TopicARN != "arn:aws:sns:eu-west-1:123456789012:hearth-home" {
		t.Errorf("TopicARN = %q", cfg.TopicARN)
	}
	if cfg.PortMapper != "static" || cfg.ExternalPort != 18080 {
		t.Errorf("port mapper settings = %q/%d", cfg.PortMapper, cfg.ExternalPort)
	}
	if cfg.PingIntervalSeconds != 30 {
		t.Errorf("PingIntervalSeconds = %d, want 30", cfg.PingIntervalSeconds)
	}
	// Unset fields keep their defaults.
	if cfg.ControlSocket != "/run/hearth/control.sock" {
		t.Errorf("ControlSocket = %q, want default", cfg.ControlSocket)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFileRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hearth.yaml")
	content := `
port_mapper: carrier-pigeon
ping_interval_seconds: -5
log_level: loud
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, fragment := range []string{"port_mapper", "ping_interval_seconds", "log_level"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error %q does not mention %s", err, fragment)
		}
	}
}

func TestLoadWithoutEnvReturnsDefaults(t *testing.T) {
	t.Setenv("HEARTH_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != Default().Listen {
		t.Errorf("Load without HEARTH_CONFIG did not return defaults")
	}
}
