// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package skill

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tidwall/jsonc"
)

// manifestEntry is one skill definition in skills.jsonc.
type manifestEntry struct {
	Name           string            `json:"name"`
	Command        []string          `json:"command"`
	Dir            string            `json:"dir,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
}

// LoadManifest reads a skills.jsonc file and returns a registry of
// script skills. The file is a JSON array of entries, extended with //
// line comments, /* block comments */, and trailing commas:
//
//	[
//	    // Turns lights on and off via the hub CLI.
//	    {"name": "lights", "command": ["hearth-lights"], "timeout_seconds": 10},
//	]
func LoadManifest(path string, logger *slog.Logger) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("skill: reading manifest: %w", err)
	}
	registry, err := parseManifest(data, logger)
	if err != nil {
		return nil, fmt.Errorf("skill: manifest %s: %w", path, err)
	}
	return registry, nil
}

func parseManifest(data []byte, logger *slog.Logger) (*Registry, error) {
	// Strip comments and trailing commas before parsing as standard JSON.
	stripped := jsonc.ToJSON(data)

	var entries []manifestEntry
	if err := json.Unmarshal(stripped, &entries); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}

	registry := NewRegistry()
	for i, entry := range entries {
		if entry.Name == "" {
			return nil, fmt.Errorf("entry %d: name is required", i)
		}
		if len(entry.Command) == 0 {
			return nil, fmt.Errorf("entry %d (%s): command is required", i, entry.Name)
		}

		script, err := NewScript(ScriptConfig{
			Name:    entry.Name,
			Command: entry.Command,
			Dir:     entry.Dir,
			Env:     entry.Env,
			Timeout: time.Duration(entry.TimeoutSeconds) * time.Second,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if err := registry.Register(script); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
