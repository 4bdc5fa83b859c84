// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"testing"

	"github.com/carsier/carsier/internal/filecache"
)

const depsIn = "org.typelevel:cats-core_2.13:2.9.0\n"

func newResolveRunner() *fakeRunner {
	return &fakeRunner{outputs: map[string]string{
		"cs resolve": "org.typelevel:cats-core_2.13:2.9.0:default\norg.typelevel:cats-kernel_2.13:2.9.0:default\n",
		"cs fetch":   "/cache/cats-core.jar:/cache/cats-kernel.jar\n",
	}}
}

func TestResolve_Chain(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runner := newResolveRunner()
	r := &Resolver{Runner: runner, Coursier: "cs", TargetDir: dir}

	res, err := r.Resolve(context.Background(), depsIn)
	if err != nil {
		t.Fatalf("Resolve() returned error: %v", err)
	}
	if !res.Dep.Changed() {
		t.Error("first resolve should touch the classpath")
	}
	if len(res.Resolved) != 2 {
		t.Errorf("Resolved = %v", res.Resolved)
	}

	calls := runner.calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 coursier calls, got %d", len(calls))
	}
	wantFetch := []string{"fetch", "--quiet", "--classpath",
		"org.typelevel:cats-core_2.13:2.9.0:default", "org.typelevel:cats-kernel_2.13:2.9.0:default"}
	if !slices.Equal(calls[1].Args, wantFetch) {
		t.Errorf("fetch args = %q, want %q", calls[1].Args, wantFetch)
	}

	cp, err := os.ReadFile(res.ClasspathFile)
	if err != nil {
		t.Fatal(err)
	}
	if want := strconv.Quote("/cache/cats-core.jar:/cache/cats-kernel.jar"); string(cp) != want {
		t.Errorf("classpath file = %s, want %s", cp, want)
	}
}

func TestResolve_UnchangedSkipsCoursier(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runner := newResolveRunner()
	r := &Resolver{Runner: runner, Coursier: "cs", TargetDir: dir}

	if _, err := r.Resolve(context.Background(), depsIn); err != nil {
		t.Fatal(err)
	}
	res, err := r.Resolve(context.Background(), depsIn)
	if err != nil {
		t.Fatalf("second Resolve() returned error: %v", err)
	}
	if res.Dep.Changed() {
		t.Error("second resolve should be Unchanged")
	}
	if n := len(runner.calls()); n != 2 {
		t.Errorf("coursier called %d times, want 2", n)
	}
	if len(res.Resolved) != 2 {
		t.Errorf("Resolved should come from deps.out, got %v", res.Resolved)
	}
}

func TestResolve_MissingOutputReruns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runner := newResolveRunner()
	r := &Resolver{Runner: runner, Coursier: "cs", TargetDir: dir}

	if _, err := r.Resolve(context.Background(), depsIn); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, DepsClasspathFile)); err != nil {
		t.Fatal(err)
	}
	res, err := r.Resolve(context.Background(), depsIn)
	if err != nil {
		t.Fatal(err)
	}
	calls := runner.calls()
	if len(calls) != 3 || calls[2].Args[0] != "fetch" {
		t.Errorf("expected only fetch to rerun, got %d calls", len(calls))
	}
	if !res.Dep.Changed() {
		t.Error("recreated classpath should be Touched")
	}
}

func TestResolve_IdenticalResolutionStopsChain(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runner := newResolveRunner()
	r := &Resolver{Runner: runner, Coursier: "cs", TargetDir: dir}

	if _, err := r.Resolve(context.Background(), depsIn); err != nil {
		t.Fatal(err)
	}
	// A request differing only in whitespace resolves to the same set.
	res, err := r.Resolve(context.Background(), depsIn+"\n")
	if err != nil {
		t.Fatal(err)
	}
	calls := runner.calls()
	if len(calls) != 3 || calls[2].Args[0] != "resolve" {
		t.Errorf("expected only resolve to rerun, got %d calls", len(calls))
	}
	if res.Dep.Changed() {
		t.Error("identical resolution should leave the classpath Unchanged")
	}
}

func TestResolve_NoDependencies(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runner := &fakeRunner{}
	r := &Resolver{Runner: runner, Coursier: "cs", TargetDir: dir}

	res, err := r.Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("Resolve() returned error: %v", err)
	}
	if len(runner.calls()) != 0 {
		t.Error("coursier should not run without dependencies")
	}
	cp, _ := os.ReadFile(res.ClasspathFile)
	if string(cp) != `""` {
		t.Errorf("classpath file = %s, want empty quoted string", cp)
	}
}

func TestResolve_CoursierFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	failure := &CallError{Name: "cs", Code: 1, Output: "not found: org.typelevel:nope"}
	runner := &fakeRunner{fail: map[string]error{"cs resolve": failure}}
	r := &Resolver{Runner: runner, Coursier: "cs", TargetDir: dir}

	if _, err := r.Resolve(context.Background(), depsIn); !errors.Is(err, ErrToolFailed) {
		t.Fatalf("expected ErrToolFailed, got %v", err)
	}
	if filecache.Exists(filepath.Join(dir, DepsOutFile)) {
		t.Error("deps.out must not be written when coursier fails")
	}

	// The failed stage reruns next time even though deps.in is now unchanged.
	runner.fail = nil
	runner.outputs = newResolveRunner().outputs
	if _, err := r.Resolve(context.Background(), depsIn); err != nil {
		t.Fatalf("retry returned error: %v", err)
	}
}
