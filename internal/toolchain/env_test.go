// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestSplitArgs(t *testing.T) {
	t.Setenv("CARSIER_TEST_PLUGIN", "/opt/plugin.jar")

	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"-deprecation -feature", []string{"-deprecation", "-feature"}},
		{`-Wconf:"cat=deprecation:s"  -Xlint`, []string{"-Wconf:cat=deprecation:s", "-Xlint"}},
		{"'-Xplugin:my plugin.jar'", []string{"-Xplugin:my plugin.jar"}},
		{"-Xplugin:$CARSIER_TEST_PLUGIN", []string{"-Xplugin:/opt/plugin.jar"}},
	}
	for _, tt := range tests {
		got, err := SplitArgs(tt.in)
		if err != nil {
			t.Errorf("SplitArgs(%q) returned error: %v", tt.in, err)
			continue
		}
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("SplitArgs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := SplitArgs(`-deprecation "unterminated`); err == nil {
		t.Error("expected error for unterminated quote")
	}
}

func TestEnviron(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("JAVA_OPTS=-Xmx1g\nSCALA_HOME=/opt/scala\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env.local"), []byte("JAVA_OPTS=\"-Xmx4g -Xss8m\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	base := []string{"PATH=/usr/bin", "JAVA_OPTS=-Xmx512m"}
	got, err := Environ(base, dir, []string{".env", ".env.local", ".env.missing?"})
	if err != nil {
		t.Fatalf("Environ() returned error: %v", err)
	}
	want := []string{"JAVA_OPTS=-Xmx4g -Xss8m", "PATH=/usr/bin", "SCALA_HOME=/opt/scala"}
	if !slices.Equal(got, want) {
		t.Errorf("Environ() = %q, want %q", got, want)
	}
}

func TestEnviron_NoFiles(t *testing.T) {
	t.Parallel()

	base := []string{"B=2", "A=1"}
	got, err := Environ(base, t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, base) {
		t.Errorf("Environ() = %v, want base unchanged", got)
	}
}

func TestEnviron_MissingRequiredFile(t *testing.T) {
	t.Parallel()

	if _, err := Environ(nil, t.TempDir(), []string{".env"}); err == nil {
		t.Error("expected error for a missing required env file")
	}
}
