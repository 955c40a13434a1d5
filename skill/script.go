// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package skill

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultScriptTimeout bounds a script run when the manifest does not
// set one.
const DefaultScriptTimeout = 30 * time.Second

// Compile-time interface check.
var _ Skill = (*Script)(nil)

// ScriptConfig describes an external command handler.
type ScriptConfig struct {
	// Name is the handler name. Required.
	Name string
	// Command is the argv to run. Required.
	Command []string
	// Dir is the working directory. Empty inherits the daemon's.
	Dir string
	// Env holds extra environment variables, appended to the
	// daemon's environment.
	Env map[string]string
	// Timeout bounds one run. Zero means DefaultScriptTimeout.
	Timeout time.Duration
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Script runs an external command for each dispatched command. The
// payload arrives as a single JSON object on the script's stdin:
//
//	{"room": "...", "command": "...", "data": {...}}
//
// A zero exit status means the command was handled; anything else is
// reported as an error with the script's stderr folded in.
type Script struct {
	name    string
	command []string
	dir     string
	env     map[string]string
	timeout time.Duration
	logger  *slog.Logger
}

// NewScript validates the config and returns the skill.
func NewScript(config ScriptConfig) (*Script, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("skill: script name is required")
	}
	if len(config.Command) == 0 {
		return nil, fmt.Errorf("skill: script %q has no command", config.Name)
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultScriptTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Script{
		name:    config.Name,
		command: config.Command,
		dir:     config.Dir,
		env:     config.Env,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Name returns the handler name.
func (s *Script) Name() string { return s.name }

// scriptInput is the JSON written to the script's stdin.
type scriptInput struct {
	Room    string         `json:"room"`
	Command string         `json:"command"`
	Data    map[string]any `json:"data,omitempty"`
}

// HandleCommand runs the script with the command payload on stdin.
func (s *Script) HandleCommand(ctx context.Context, room, command string, data map[string]any) error {
	input, err := json.Marshal(scriptInput{Room: room, Command: command, Data: data})
	if err != nil {
		return fmt.Errorf("skill: encoding %s input: %w", s.name, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	run := exec.CommandContext(runCtx, s.command[0], s.command[1:]...)
	run.Stdin = bytes.NewReader(input)
	run.Stdout = &stdout
	run.Stderr = &stderr
	run.Dir = s.dir
	if len(s.env) > 0 {
		env := os.Environ()
		for key, value := range s.env {
			env = append(env, key+"="+value)
		}
		run.Env = env
	}

	if err := run.Run(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("skill: %s timed out after %s", s.name, s.timeout)
		}
		return fmt.Errorf("skill: %s (%s): %w (stderr: %s)",
			s.name, s.command[0], err, strings.TrimSpace(stderr.String()))
	}

	if stdout.Len() > 0 {
		s.logger.Debug("skill output", "skill", s.name, "stdout", strings.TrimSpace(stdout.String()))
	}
	return nil
}
