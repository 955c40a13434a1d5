// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"os"
	"syscall"
)

// ExecFunc matches the signature of syscall.Exec. Restart accepts one
// so tests can observe the replacement without actually replacing the
// test process.
type ExecFunc func(argv0 string, argv []string, envv []string) error

// Restart replaces the current process with a fresh invocation of the
// same binary, keeping the arguments and environment. Nothing else
// from the current process survives the exec. Callers that need the
// next incarnation to know why it was started must persist that
// reason to disk first (see lib/watchdog).
//
// When execFn is nil, syscall.Exec is used and a successful Restart
// never returns. A non-nil error means the process was NOT replaced
// and the caller is still running.
func Restart(execFn ExecFunc) error {
	if execFn == nil {
		execFn = syscall.Exec
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("process: resolving own executable: %w", err)
	}

	argv := append([]string{executable}, os.Args[1:]...)
	if err := execFn(executable, argv, os.Environ()); err != nil {
		return fmt.Errorf("process: exec %s: %w", executable, err)
	}
	return nil
}
