// SPDX-License-Identifier: MPL-2.0

package filecache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestCompareAndWrite_TouchedThenUnchanged(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "mods.json")
	content := []byte(`{"%.util": []}`)

	dep, err := CompareAndWrite(path, content)
	if err != nil {
		t.Fatalf("first write returned error: %v", err)
	}
	if dep != Touched {
		t.Errorf("first write = %s, want touched", dep)
	}

	dep, err = CompareAndWrite(path, content)
	if err != nil {
		t.Fatalf("second write returned error: %v", err)
	}
	if dep != Unchanged {
		t.Errorf("second write = %s, want unchanged", dep)
	}

	if got := readFile(t, path); got != string(content) {
		t.Errorf("content = %q, want %q", got, content)
	}
	if Exists(path + LockSuffix) {
		t.Error("lock file left behind")
	}
}

func TestCompareAndWrite_Changed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "deps.in")
	if _, err := CompareAndWrite(path, []byte("a\n")); err != nil {
		t.Fatalf("write returned error: %v", err)
	}
	dep, err := CompareAndWrite(path, []byte("b\n"))
	if err != nil {
		t.Fatalf("write returned error: %v", err)
	}
	if dep != Touched {
		t.Errorf("dep = %s, want touched", dep)
	}
	if got := readFile(t, path); got != "b\n" {
		t.Errorf("content = %q, want b", got)
	}
}

func TestCompareAndWrite_UnchangedDoesNotRewrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("same"), 0o444); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	// A leftover lock would make any write fail; an identical payload must not try.
	if err := os.WriteFile(path+LockSuffix, nil, 0o644); err != nil {
		t.Fatalf("seed lock: %v", err)
	}
	dep, err := CompareAndWrite(path, []byte("same"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dep != Unchanged {
		t.Errorf("dep = %s, want unchanged", dep)
	}
}

func TestCompareAndWrite_LockHeld(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mods.json")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if err := os.WriteFile(path+LockSuffix, []byte("partial"), 0o644); err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	_, err := CompareAndWrite(path, []byte("new"))
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("error = %v, want ErrLocked", err)
	}
	var lockErr *LockError
	if !errors.As(err, &lockErr) || lockErr.Path != path+LockSuffix {
		t.Errorf("expected *LockError naming the lock file, got %v", err)
	}
	if got := readFile(t, path); got != "old" {
		t.Errorf("destination changed to %q while locked", got)
	}
}

func TestFileDep_Or(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b, want FileDep
	}{
		{Unchanged, Unchanged, Unchanged},
		{Unchanged, Touched, Touched},
		{Touched, Unchanged, Touched},
		{Touched, Touched, Touched},
	}
	for _, tt := range tests {
		if got := tt.a.Or(tt.b); got != tt.want {
			t.Errorf("%s.Or(%s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestExistsAndWrite_SkipsWhenUnchangedAndPresent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "deps.out")
	if err := os.WriteFile(path, []byte("cached"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	dep := Unchanged
	calls := 0
	got, err := dep.ExistsAndWrite(path, func() ([]byte, error) {
		calls++
		return []byte("fresh"), nil
	})
	if err != nil {
		t.Fatalf("ExistsAndWrite returned error: %v", err)
	}
	if calls != 0 {
		t.Errorf("compute called %d times, want 0", calls)
	}
	if string(got) != "cached" {
		t.Errorf("got %q, want cached", got)
	}
	if dep != Unchanged {
		t.Errorf("dep = %s, want unchanged", dep)
	}
}

func TestExistsAndWrite_RunsWhenMissing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "deps.out")
	dep := Unchanged
	got, err := dep.ExistsAndWrite(path, func() ([]byte, error) { return []byte("fresh"), nil })
	if err != nil {
		t.Fatalf("ExistsAndWrite returned error: %v", err)
	}
	if string(got) != "fresh" || readFile(t, path) != "fresh" {
		t.Errorf("expected fresh output to be returned and persisted, got %q", got)
	}
	if dep != Touched {
		t.Errorf("dep = %s, want touched", dep)
	}
}

func TestExistsAndWrite_TouchedButIdenticalOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "deps.classpath")
	if err := os.WriteFile(path, []byte("cp"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	dep := Touched
	calls := 0
	if _, err := dep.ExistsAndWrite(path, func() ([]byte, error) {
		calls++
		return []byte("cp"), nil
	}); err != nil {
		t.Fatalf("ExistsAndWrite returned error: %v", err)
	}
	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
	if dep != Unchanged {
		t.Errorf("dep = %s, want unchanged so later stages can skip", dep)
	}
}

func TestExistsAndWrite_ComputeError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out")
	dep := Touched
	wantErr := errors.New("tool failed")
	if _, err := dep.ExistsAndWrite(path, func() ([]byte, error) { return nil, wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
	if Exists(path) {
		t.Error("output must not be written when compute fails")
	}
	if dep != Touched {
		t.Errorf("dep = %s, want unchanged token to stay touched", dep)
	}
}
