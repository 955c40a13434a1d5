// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package skill

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testScript(t *testing.T, config ScriptConfig) *Script {
	t.Helper()
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	script, err := NewScript(config)
	if err != nil {
		t.Fatalf("NewScript failed: %v", err)
	}
	return script
}

func TestNewScriptValidation(t *testing.T) {
	if _, err := NewScript(ScriptConfig{Command: []string{"true"}}); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := NewScript(ScriptConfig{Name: "lights"}); err == nil {
		t.Error("expected error for missing command")
	}
}

func TestScriptReceivesPayloadOnStdin(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "payload.json")
	script := testScript(t, ScriptConfig{
		Name:    "capture",
		Command: []string{"sh", "-c", `cat > "$HEARTH_TEST_OUT"`},
		Env:     map[string]string{"HEARTH_TEST_OUT": outPath},
	})

	err := script.HandleCommand(context.Background(), "kitchen", "turn_on", map[string]any{"level": float64(80)})
	if err != nil {
		t.Fatalf("HandleCommand failed: %v", err)
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading captured payload: %v", err)
	}
	var payload struct {
		Room    string         `json:"room"`
		Command string         `json:"command"`
		Data    map[string]any `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("parsing captured payload %q: %v", raw, err)
	}
	if payload.Room != "kitchen" || payload.Command != "turn_on" {
		t.Errorf("payload = %+v", payload)
	}
	if payload.Data["level"] != float64(80) {
		t.Errorf("payload data = %v", payload.Data)
	}
}

func TestScriptNonZeroExit(t *testing.T) {
	script := testScript(t, ScriptConfig{
		Name:    "broken",
		Command: []string{"sh", "-c", "echo hub unreachable >&2; exit 3"},
	})

	err := script.HandleCommand(context.Background(), "kitchen", "turn_on", nil)
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !strings.Contains(err.Error(), "hub unreachable") {
		t.Errorf("error %q does not carry the script's stderr", err)
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("error %q does not name the skill", err)
	}
}

func TestScriptTimeout(t *testing.T) {
	script := testScript(t, ScriptConfig{
		Name:    "slow",
		Command: []string{"sh", "-c", "sleep 30"},
		Timeout: 100 * time.Millisecond,
	})

	start := time.Now()
	err := script.HandleCommand(context.Background(), "kitchen", "turn_on", nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error %q does not report the timeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("HandleCommand took %v, the timeout did not bite", elapsed)
	}
}

func TestScriptWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(t.TempDir(), "cwd")
	script := testScript(t, ScriptConfig{
		Name:    "where",
		Command: []string{"sh", "-c", `pwd > "$HEARTH_TEST_OUT"`},
		Dir:     dir,
		Env:     map[string]string{"HEARTH_TEST_OUT": outPath},
	})

	if err := script.HandleCommand(context.Background(), "", "locate", nil); err != nil {
		t.Fatalf("HandleCommand failed: %v", err)
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading captured cwd: %v", err)
	}
	got, err := filepath.EvalSymlinks(strings.TrimSpace(string(raw)))
	if err != nil {
		t.Fatalf("resolving captured cwd: %v", err)
	}
	want, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("resolving temp dir: %v", err)
	}
	if got != want {
		t.Errorf("script ran in %q, want %q", got, want)
	}
}
