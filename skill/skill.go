// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package skill

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Skill handles commands dispatched from the webhook.
type Skill interface {
	// Name is the handler name notifications address this skill by.
	Name() string

	// HandleCommand processes one command. room scopes the command to
	// a conversation or device group and command is the verb; data
	// carries the command's parameters. The dispatcher bounds ctx
	// with a per-dispatch timeout.
	HandleCommand(ctx context.Context, room, command string, data map[string]any) error
}

// Func adapts a function to the Skill interface.
func Func(name string, handle func(ctx context.Context, room, command string, data map[string]any) error) Skill {
	return &funcSkill{name: name, handle: handle}
}

type funcSkill struct {
	name   string
	handle func(ctx context.Context, room, command string, data map[string]any) error
}

func (f *funcSkill) Name() string { return f.name }

func (f *funcSkill) HandleCommand(ctx context.Context, room, command string, data map[string]any) error {
	return f.handle(ctx, room, command, data)
}

// Registry is a name-indexed set of skills. Safe for concurrent use:
// the dispatcher reads it while control socket actions list it.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]Skill
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{skills: make(map[string]Skill)}
}

// Register adds a skill. Registering a second skill under the same
// name is an error: silently shadowing a handler would make dispatch
// order depend on manifest order.
func (r *Registry) Register(s Skill) error {
	name := s.Name()
	if name == "" {
		return fmt.Errorf("skill: cannot register a skill with an empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.skills[name]; exists {
		return fmt.Errorf("skill: %q already registered", name)
	}
	r.skills[name] = s
	return nil
}

// Lookup returns the skill registered under name.
func (r *Registry) Lookup(name string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[name]
	return s, ok
}

// Names returns the registered handler names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.skills))
	for name := range r.skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
