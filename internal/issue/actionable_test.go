// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{"operation", &ActionableError{Operation: "read manifest"}, "failed to read manifest"},
		{"resource", &ActionableError{Operation: "read manifest", Resource: "target/mods.json"}, "failed to read manifest: target/mods.json"},
		{"cause", &ActionableError{Operation: "load project", Cause: errors.New("missing [package]")}, "failed to load project: missing [package]"},
		{
			"everything",
			&ActionableError{Operation: "find project", Resource: "/src/demo", Cause: errors.New("not found"), Suggestions: []string{"ignored"}},
			"failed to find project: /src/demo: not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	err := NewErrorContext().
		WithOperation("read manifest").
		Wrap(fmt.Errorf("open mods.json: %w", fs.ErrNotExist)).
		BuildError()
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	var ae *ActionableError
	if !errors.As(err, &ae) || ae.Operation != "read manifest" {
		t.Errorf("errors.As = %v", err)
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	ae := &ActionableError{
		Operation:   "find project",
		Resource:    "/src/demo",
		Suggestions: []string{"Run 'carsier init' to create Carsier.toml", "Use -C to point at the project directory"},
		Cause:       fmt.Errorf("search upward: %w", errors.New("Carsier.toml not found")),
	}

	short := ae.Format(false)
	want := "failed to find project: /src/demo: search upward: Carsier.toml not found\n\n" +
		"  • Run 'carsier init' to create Carsier.toml\n" +
		"  • Use -C to point at the project directory"
	if short != want {
		t.Errorf("Format(false) =\n%s\nwant\n%s", short, want)
	}

	long := ae.Format(true)
	if !strings.HasPrefix(long, short) {
		t.Error("verbose output should extend the short form")
	}
	for _, line := range []string{"Caused by:", "1. search upward: Carsier.toml not found", "2. Carsier.toml not found"} {
		if !strings.Contains(long, line) {
			t.Errorf("Format(true) missing %q:\n%s", line, long)
		}
	}

	bare := &ActionableError{Operation: "compile"}
	if bare.Format(true) != "failed to compile" {
		t.Errorf("no suggestions and no cause = %q", bare.Format(true))
	}
}

func TestErrorContext(t *testing.T) {
	t.Parallel()

	t.Run("operation is required", func(t *testing.T) {
		t.Parallel()
		c := NewErrorContext().WithResource("x").Wrap(errors.New("y"))
		if c.Build() != nil {
			t.Error("Build() without an operation should be nil")
		}
		if err := c.BuildError(); err != nil {
			t.Errorf("BuildError() = %v, want a nil interface", err)
		}
	})

	t.Run("builds every field", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("exit status 1")
		ae := NewErrorContext().
			WithOperation("run scalac").
			WithResource("target/files/main").
			WithSuggestion("Check the compiler output above").
			Wrap(cause).
			Build()
		if ae.Operation != "run scalac" || ae.Resource != "target/files/main" || ae.Cause != cause || !ae.HasSuggestions() {
			t.Errorf("Build() = %+v", ae)
		}
	})

	t.Run("reuse does not share suggestions", func(t *testing.T) {
		t.Parallel()
		c := NewErrorContext().WithOperation("load configuration").WithSuggestion("first")
		a := c.Build()
		b := c.WithSuggestion("second").Build()
		if len(a.Suggestions) != 1 || len(b.Suggestions) != 2 {
			t.Errorf("a = %v, b = %v", a.Suggestions, b.Suggestions)
		}
	})
}
