// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/carsier/carsier/internal/config"
	"github.com/carsier/carsier/pkg/carsierfile"
)

// startWatcher runs w until the test ends and returns a func that stops it
// and reports Run's error.
func startWatcher(t *testing.T, w *Watcher) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	stopped := false
	stop := func() error {
		if stopped {
			return nil
		}
		stopped = true
		cancel()
		return <-errCh
	}
	t.Cleanup(func() { _ = stop() })
	return stop
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestWatcherDebounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var (
		mu        sync.Mutex
		calls     int
		collected []string
	)
	done := make(chan struct{})

	w, err := New(Config{
		Root:     dir,
		Debounce: 100 * time.Millisecond,
		Stdout:   &bytes.Buffer{},
		OnChange: func(_ context.Context, changed []string) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			collected = append(collected, changed...)
			if calls == 1 {
				close(done)
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	for _, name := range []string{"a.scala", "b.scala", "c.scala"} {
		writeFile(t, filepath.Join(dir, name), "object A")
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
	time.Sleep(200 * time.Millisecond)
	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected 1 debounced callback, got %d", calls)
	}
	for _, want := range []string{"a.scala", "b.scala", "c.scala"} {
		if !slices.Contains(collected, want) {
			t.Errorf("expected %q in changed files, got %v", want, collected)
		}
	}
	if !slices.IsSorted(collected) {
		t.Errorf("changed files should be sorted: %v", collected)
	}
}

func TestWatcherPatternsAndIgnores(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "src", "util"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "target", "src"), 0o755); err != nil {
		t.Fatal(err)
	}

	fired := make(chan []string, 10)
	w, err := New(Config{
		Root:     dir,
		Patterns: []string{"src/**/*.scala", "Carsier.toml"},
		Ignore:   []string{"target/**"},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "README.md"), "docs")
	writeFile(t, filepath.Join(dir, "target", "src", "main.scala"), "rewritten")
	writeFile(t, filepath.Join(dir, "src", "util", "x.scala.swp"), "swap")

	select {
	case changed := <-fired:
		t.Fatalf("callback fired for non-matching paths: %v", changed)
	case <-time.After(300 * time.Millisecond):
	}

	writeFile(t, filepath.Join(dir, "src", "util", "x.scala"), "package %.util")
	select {
	case changed := <-fired:
		if !slices.Equal(changed, []string{"src/util/x.scala"}) {
			t.Errorf("changed = %v, want [src/util/x.scala]", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func TestWatcherNewDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fired := make(chan []string, 10)
	w, err := New(Config{
		Root:     dir,
		Patterns: []string{"src/**/*.scala"},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	if err := os.MkdirAll(filepath.Join(dir, "src", "net"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "src", "net", "http.scala"), "package %.net.http")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case changed := <-fired:
			if slices.Contains(changed, "src/net/http.scala") {
				return
			}
		case <-deadline:
			t.Fatal("file in a directory created after startup was not seen")
		}
	}
}

func TestWatcherClearScreen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var (
		mu  sync.Mutex
		out bytes.Buffer
	)
	done := make(chan struct{}, 1)
	w, err := New(Config{
		Root:        dir,
		Debounce:    50 * time.Millisecond,
		ClearScreen: true,
		Stdout:      &lockedWriter{mu: &mu, w: &out},
		OnChange: func(context.Context, []string) error {
			select {
			case done <- struct{}{}:
			default:
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "main.scala"), "object Main")
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(out.String(), "\033[2J\033[H") {
		t.Errorf("expected clear-screen sequence, got %q", out.String())
	}
}

type lockedWriter struct {
	mu *sync.Mutex
	w  *bytes.Buffer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func TestWatcherContextCancel(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() = %v, want nil on cancellation", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestWatcherDoubleRun(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)
	time.Sleep(20 * time.Millisecond)

	if err := w.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() = %v, want ErrAlreadyRunning", err)
	}
}

func TestWatcherInvalidPattern(t *testing.T) {
	t.Parallel()

	tests := []Config{
		{Patterns: []string{"src/[a"}},
		{Patterns: []string{""}},
		{Ignore: []string{"target/{a"}},
	}
	for _, cfg := range tests {
		cfg.Root = t.TempDir()
		if _, err := New(cfg); err == nil {
			t.Errorf("New(%+v) should fail", cfg)
		}
	}
}

func TestDefaultIgnores(t *testing.T) {
	t.Parallel()

	w := &Watcher{ignores: DefaultIgnores()}
	tests := []struct {
		path string
		want bool
	}{
		{".git/HEAD", true},
		{".bsp/sbt.json", true},
		{".metals/metals.log", true},
		{"a/.bloop/project.json", true},
		{"target/mods.json.lock", true},
		{"src/main.scala.swp", true},
		{"src/main.scala~", true},
		{"src/main.scala", false},
		{"Carsier.toml", false},
	}
	for _, tt := range tests {
		if got := w.isIgnored(tt.path); got != tt.want {
			t.Errorf("isIgnored(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	// The returned slice is a copy.
	d := DefaultIgnores()
	d[0] = "changed"
	if DefaultIgnores()[0] == "changed" {
		t.Error("DefaultIgnores should return a copy")
	}
}

func TestIsFatalWatchError(t *testing.T) {
	t.Parallel()

	for _, errno := range fatalErrnos {
		if !isFatalWatchError(fmt.Errorf("fsnotify: %w", errno)) {
			t.Errorf("wrapped %v should be fatal", errno)
		}
	}
	if isFatalWatchError(errors.New("queue overflow")) {
		t.Error("ordinary watcher errors are not fatal")
	}
}

func TestForProject(t *testing.T) {
	t.Parallel()

	project, err := carsierfile.Parse([]byte(`[package]
name = "demo"

[build]
source_root = "app"
target_dir = "out"

[[resources]]
include = "res/**"
`))
	if err != nil {
		t.Fatal(err)
	}
	project.Dir = t.TempDir()

	cfg, err := ForProject(project, config.WatchConfig{Debounce: "250ms", Ignore: []string{"**/*.tmp"}, ClearScreen: true})
	if err != nil {
		t.Fatalf("ForProject() error: %v", err)
	}
	if want := []string{"Carsier.toml", "app/**/*.scala", "res/**"}; !slices.Equal(cfg.Patterns, want) {
		t.Errorf("Patterns = %v, want %v", cfg.Patterns, want)
	}
	if want := []string{"**/*.tmp", "out/**"}; !slices.Equal(cfg.Ignore, want) {
		t.Errorf("Ignore = %v, want %v", cfg.Ignore, want)
	}
	if cfg.Debounce != 250*time.Millisecond || !cfg.ClearScreen || cfg.Root != project.Dir {
		t.Errorf("unexpected config %+v", cfg)
	}

	if _, err := ForProject(project, config.WatchConfig{Debounce: "soon"}); !errors.Is(err, config.ErrInvalidDebounce) {
		t.Errorf("expected ErrInvalidDebounce, got %v", err)
	}
}

func TestTouchesProjectFile(t *testing.T) {
	t.Parallel()

	if !TouchesProjectFile([]string{"src/a.scala", "Carsier.toml"}) {
		t.Error("project file change not detected")
	}
	if TouchesProjectFile([]string{"sub/Carsier.toml"}) {
		t.Error("nested project file is not the project file")
	}
}
