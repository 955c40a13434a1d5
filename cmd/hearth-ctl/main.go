// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Hearth-ctl inspects a running hearth-bridge over its control
// socket. It prints each action's result as JSON, so output composes
// with jq in scripts.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/hearth-home/hearth/control"
	"github.com/hearth-home/hearth/lib/config"
	"github.com/hearth-home/hearth/lib/process"
	"github.com/hearth-home/hearth/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var (
		socketPath  string
		timeout     time.Duration
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("hearth-ctl", pflag.ContinueOnError)
	flagSet.StringVar(&socketPath, "socket", cfg.ControlSocket, "bridge control socket path")
	flagSet.DurationVar(&timeout, "timeout", 10*time.Second, "time limit for the call")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.Usage = func() { printUsage(flagSet) }

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("hearth-ctl %s\n", version.Info())
		return nil
	}

	args := flagSet.Args()
	if len(args) != 1 {
		printUsage(flagSet)
		return fmt.Errorf("expected exactly one action")
	}
	action := args[0]
	switch action {
	case "status", "ping", "skills":
	default:
		return fmt.Errorf("unknown action %q (expected status, ping, or skills)", action)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := control.Dial(socketPath)
	var result any
	if err := client.Call(ctx, action, nil, &result); err != nil {
		return err
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

func printUsage(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `hearth-ctl - query a running hearth-bridge

USAGE
    hearth-ctl [flags] <action>

ACTIONS
    status    subscription state, endpoint, and heartbeat timestamps
    ping      publish a heartbeat ping immediately
    skills    list the registered skill handlers

FLAGS
%s`, flagSet.FlagUsages())
}
