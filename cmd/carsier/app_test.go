// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/carsier/carsier/internal/config"
	"github.com/carsier/carsier/internal/issue"
	"github.com/carsier/carsier/internal/toolchain"
	"github.com/carsier/carsier/pkg/carsierfile"
)

const demoProject = `[package]
name = "demo"

[dependencies]
cats = { version = "^2.9", org = "org.typelevel" }

[features]
default = []
bench = []

[[resources]]
include = "res/**"
`

type (
	fixedConfigProvider struct {
		cfg    *config.Config
		source string
		err    error
	}

	// toolRunner stands in for coursier, scalac, jar and git.
	toolRunner struct {
		mu       sync.Mutex
		commands []toolchain.Command
		git      map[string]string
	}

	// cliHarness runs the command tree against buffers.
	cliHarness struct {
		app    *App
		runner *toolRunner
		stdout *bytes.Buffer
		stderr *bytes.Buffer
	}
)

func (p *fixedConfigProvider) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.cfg, nil
}

func (p *fixedConfigProvider) Source(context.Context, config.LoadOptions) (string, error) {
	return p.source, p.err
}

func (r *toolRunner) Run(_ context.Context, c toolchain.Command) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, c)

	switch {
	case c.Name == "git":
		if v, ok := r.git[c.Args[len(c.Args)-1]]; ok {
			return []byte(v + "\n"), nil
		}
		return nil, &toolchain.CallError{Name: "git", Code: 1}
	case c.Name == "coursier" && c.Args[0] == "resolve":
		return []byte("org.typelevel:cats_2.13:2.9.0\n"), nil
	case c.Name == "coursier" && c.Args[0] == "fetch":
		return []byte("/cache/cats.jar\n"), nil
	case c.Name == "scalac":
		if i := slices.Index(c.Args, "-d"); i >= 0 {
			if err := os.WriteFile(c.Args[i+1], []byte("PK"), 0o644); err != nil {
				return nil, err
			}
		}
	}
	return nil, nil
}

func (r *toolRunner) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.commands))
	for i, c := range r.commands {
		names[i] = c.Name
	}
	return names
}

func newHarness(t *testing.T) *cliHarness {
	t.Helper()
	h := &cliHarness{
		runner: &toolRunner{},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	app, err := NewApp(Dependencies{
		Config: &fixedConfigProvider{cfg: config.DefaultConfig()},
		Runner: h.runner,
		Stdout: h.stdout,
		Stderr: h.stderr,
	})
	if err != nil {
		t.Fatalf("NewApp() returned error: %v", err)
	}
	h.app = app
	return h
}

func (h *cliHarness) run(args ...string) error {
	h.stdout.Reset()
	h.stderr.Reset()
	root := NewRootCommand(h.app)
	root.SetArgs(args)
	root.SetOut(h.stdout)
	root.SetErr(h.stderr)
	root.SilenceErrors = true
	return root.ExecuteContext(context.Background())
}

func writeDemo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		carsierfile.FileName: demoProject,
		"src/main.scala":     "package %%;\nimport %.util.Helper\nobject Main { def main(args: Array[String]): Unit = Helper.run() }\n",
		"src/util.scala":     "package %.util;\nobject Helper { def run(): Unit = () }\n",
		"res/app.conf":       "greeting = hello\n",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func configWithProfile(profile string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Build.Profile = config.ProfileName(profile)
	return cfg
}

func issueOf(err error) issue.Id {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.IssueID
	}
	return 0
}

func TestNewApp_Defaults(t *testing.T) {
	t.Parallel()

	app, err := NewApp(Dependencies{})
	if err != nil {
		t.Fatalf("NewApp() returned error: %v", err)
	}
	if app.Config == nil || app.Runner == nil || app.stdout != os.Stdout || app.stderr != os.Stderr {
		t.Errorf("NewApp should fill every dependency: %+v", app)
	}
	if _, ok := app.Runner.(toolchain.ExecRunner); !ok {
		t.Errorf("default runner = %T, want toolchain.ExecRunner", app.Runner)
	}
}

func TestOpenSession_ConfigError(t *testing.T) {
	t.Parallel()

	loadErr := errors.New("boom")
	app, err := NewApp(Dependencies{
		Config: &fixedConfigProvider{err: loadErr},
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := app.openSession(context.Background(), &rootFlagValues{}, "build", true); !errors.Is(err, loadErr) {
		t.Errorf("openSession() error = %v, want %v", err, loadErr)
	}
}

func TestLoadProject_NotFound(t *testing.T) {
	t.Parallel()

	_, err := loadProject(t.TempDir())
	if !errors.Is(err, carsierfile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || !ae.HasSuggestions() {
		t.Errorf("expected an actionable error with suggestions, got %v", err)
	}
}

func TestLoadProject_FromSubdirectory(t *testing.T) {
	t.Parallel()

	dir := writeDemo(t)
	project, err := loadProject(filepath.Join(dir, "src"))
	if err != nil {
		t.Fatalf("loadProject() returned error: %v", err)
	}
	if project.Package.Name != "demo" || project.Dir != dir {
		t.Errorf("project = %s in %s", project.Package.Name, project.Dir)
	}
}

func TestRelPath(t *testing.T) {
	t.Parallel()

	base := filepath.Join("home", "demo")
	if got := relPath(base, filepath.Join(base, "target", "build")); got != "target/build" {
		t.Errorf("relPath() = %q", got)
	}
	if got := relPath("", "x"); got != "x" {
		t.Errorf("relPath with empty base = %q", got)
	}
	if !strings.HasPrefix(relPath(base, filepath.Join("home", "other")), "..") {
		t.Error("paths outside base should stay relative with ..")
	}
}
