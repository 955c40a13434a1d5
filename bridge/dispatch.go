// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hearth-home/hearth/skill"
)

// DefaultDispatchTimeout bounds a single skill invocation when the
// Config does not say otherwise.
const DefaultDispatchTimeout = 30 * time.Second

// DispatchKind classifies what happened to one delivered
// notification.
type DispatchKind int

const (
	// DispatchOK means the skill handled the command without error.
	DispatchOK DispatchKind = iota

	// DispatchPing means the message was the heartbeat sentinel: the
	// receive timestamp was updated and no skill was consulted.
	DispatchPing

	// DispatchBadMessage means the notification payload did not parse
	// as a command message.
	DispatchBadMessage

	// DispatchUnknownHandler means no skill is registered under the
	// message's handler name.
	DispatchUnknownHandler

	// DispatchSkillError means the skill ran and returned an error.
	DispatchSkillError

	// DispatchSkillPanic means the skill panicked and the panic was
	// recovered.
	DispatchSkillPanic
)

func (k DispatchKind) String() string {
	switch k {
	case DispatchOK:
		return "ok"
	case DispatchPing:
		return "ping"
	case DispatchBadMessage:
		return "bad-message"
	case DispatchUnknownHandler:
		return "unknown-handler"
	case DispatchSkillError:
		return "skill-error"
	case DispatchSkillPanic:
		return "skill-panic"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DispatchResult is the outcome of one delivered notification.
type DispatchResult struct {
	Kind    DispatchKind
	Handler string
	Command string
	Err     error
}

// commandMessage is the JSON carried in a Notification's Message
// field.
type commandMessage struct {
	Command     string         `json:"command"`
	HandlerName string         `json:"handler_name"`
	Room        string         `json:"room"`
	Data        map[string]any `json:"data"`
}

// dispatch routes one notification message. Pings short-circuit to
// the heartbeat clock without touching the registry; everything else
// resolves handler_name and runs the skill under the dispatch
// timeout. No outcome here is fatal to the daemon.
func (b *Bridge) dispatch(ctx context.Context, message string) DispatchResult {
	var command commandMessage
	if err := json.Unmarshal([]byte(message), &command); err != nil {
		return DispatchResult{Kind: DispatchBadMessage, Err: fmt.Errorf("parsing command message: %w", err)}
	}

	if command.Command == pingCommand {
		b.hb.MarkReceived(b.clock.Now())
		return DispatchResult{Kind: DispatchPing, Command: command.Command}
	}

	handler, ok := b.skills.Lookup(command.HandlerName)
	if !ok {
		return DispatchResult{
			Kind:    DispatchUnknownHandler,
			Handler: command.HandlerName,
			Command: command.Command,
			Err:     fmt.Errorf("no skill registered for %q", command.HandlerName),
		}
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, b.dispatchTimeout)
	defer cancel()
	return b.invokeSkill(dispatchCtx, handler, command)
}

// invokeSkill runs the skill with panic containment: a panicking
// skill loses its own dispatch, never the daemon.
func (b *Bridge) invokeSkill(ctx context.Context, handler skill.Skill, command commandMessage) (result DispatchResult) {
	defer func() {
		if r := recover(); r != nil {
			result = DispatchResult{
				Kind:    DispatchSkillPanic,
				Handler: command.HandlerName,
				Command: command.Command,
				Err:     fmt.Errorf("skill panicked: %v", r),
			}
		}
	}()

	if err := handler.HandleCommand(ctx, command.Room, command.Command, command.Data); err != nil {
		return DispatchResult{
			Kind:    DispatchSkillError,
			Handler: command.HandlerName,
			Command: command.Command,
			Err:     err,
		}
	}
	return DispatchResult{Kind: DispatchOK, Handler: command.HandlerName, Command: command.Command}
}

// logDispatch reports one dispatch outcome at a severity matching its
// kind.
func (b *Bridge) logDispatch(result DispatchResult) {
	switch result.Kind {
	case DispatchOK:
		b.logger.Info("command dispatched", "handler", result.Handler, "command", result.Command)
	case DispatchPing:
		b.logger.Debug("heartbeat ping received")
	case DispatchBadMessage:
		b.logger.Warn("dropping unparseable notification", "error", result.Err)
	case DispatchUnknownHandler:
		b.logger.Warn("no handler registered for command",
			"handler", result.Handler, "command", result.Command)
	case DispatchSkillError:
		b.logger.Error("skill failed",
			"handler", result.Handler, "command", result.Command, "error", result.Err)
	case DispatchSkillPanic:
		b.logger.Error("skill panicked",
			"handler", result.Handler, "command", result.Command, "error", result.Err)
	}
}
