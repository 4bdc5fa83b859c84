// SPDX-License-Identifier: MPL-2.0

// Package toolchain drives the external JVM tools a build needs: coursier for
// dependency resolution, scalac for compilation and jar for packaging.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ErrToolFailed is the sentinel error wrapped by CallError.
var ErrToolFailed = errors.New("external tool failed")

type (
	// Command is one invocation of an external tool.
	Command struct {
		Name string
		Args []string
		// Dir is the working directory; empty means the current one.
		Dir string
		// Env replaces the inherited environment when non-nil.
		Env []string
	}

	// Runner executes commands. The build stages only talk to a Runner so
	// tests can substitute the tools.
	Runner interface {
		Run(ctx context.Context, cmd Command) ([]byte, error)
	}

	// ExecRunner runs commands as child processes with stdin closed,
	// returning their combined output.
	ExecRunner struct{}

	// CallError reports a tool that could not start or exited non-zero.
	// Code is -1 when the process never ran.
	CallError struct {
		Name   string
		Code   int
		Output string
		Err    error
	}
)

// Error implements the error interface.
func (e *CallError) Error() string {
	var sb strings.Builder
	if e.Code < 0 {
		fmt.Fprintf(&sb, "%s could not be started", e.Name)
		if e.Err != nil {
			fmt.Fprintf(&sb, ": %v", e.Err)
		}
	} else {
		fmt.Fprintf(&sb, "%s exited with code %d", e.Name, e.Code)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		sb.WriteString("\n")
		sb.WriteString(out)
	}
	return sb.String()
}

// Unwrap returns ErrToolFailed so callers can use errors.Is for programmatic detection.
func (e *CallError) Unwrap() error { return ErrToolFailed }

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	slog.Debug("running tool", "command", CommandLine(c.Name, c.Args), "dir", c.Dir)

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if c.Env != nil {
		cmd.Env = c.Env
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		callErr := &CallError{Name: c.Name, Code: -1, Output: out.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			callErr.Code = exitErr.ExitCode()
		}
		return out.Bytes(), callErr
	}
	return out.Bytes(), nil
}

// CommandLine renders a command as a shell would need it typed, for logs and
// dry runs.
func CommandLine(name string, args []string) string {
	words := make([]string, 0, len(args)+1)
	for _, w := range append([]string{name}, args...) {
		q, err := syntax.Quote(w, syntax.LangBash)
		if err != nil {
			q = fmt.Sprintf("%q", w)
		}
		words = append(words, q)
	}
	return strings.Join(words, " ")
}
