// SPDX-License-Identifier: MPL-2.0

// Package target selects the units that make up a build target.
package target

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/carsier/carsier/internal/filecache"
	"github.com/carsier/carsier/internal/modpath"
	"github.com/carsier/carsier/internal/registry"
)

const (
	// Bin is the executable target rooted at main.scala.
	Bin Kind = iota + 1
	// Lib is the library target rooted at lib.scala.
	Lib
)

const (
	// Debug is the default profile.
	Debug Profile = iota
	// Release enables compiler optimizations.
	Release
)

// DefaultFeature is enabled unless the caller opts out.
const DefaultFeature = "default"

var (
	// ErrEntryPointNotFound is the sentinel error wrapped by EntryPointError.
	ErrEntryPointNotFound = errors.New("entry point not found")
	// ErrNoTargets is returned by Discover when neither entry file exists.
	ErrNoTargets = errors.New("no target found")
	// ErrUnknownKind is returned by ParseKind.
	ErrUnknownKind = errors.New("unknown target kind")
)

type (
	// Kind is the type of artifact a target produces.
	Kind int

	// Profile selects compiler settings.
	Profile int

	// Target is one build target. It is read-only once constructed.
	Target struct {
		Kind     Kind
		Profile  Profile
		Features modpath.Features
	}

	// EntryPointError is returned when the manifest lacks the target's entry unit.
	EntryPointError struct {
		Key string
	}
)

// String returns the kind name used on the command line.
func (k Kind) String() string {
	switch k {
	case Bin:
		return modpath.BinEntry
	case Lib:
		return modpath.LibEntry
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// EntryKey returns the manifest key of the kind's entry point.
func (k Kind) EntryKey() string {
	return modpath.EntryKey(k.String())
}

// EntryFile returns the entry file name relative to the source root.
func (k Kind) EntryFile(ext string) string {
	if k == Lib {
		return modpath.LibStem + ext
	}
	return modpath.MainStem + ext
}

// ParseKind parses "bin" or "lib".
func ParseKind(s string) (Kind, error) {
	switch s {
	case modpath.BinEntry:
		return Bin, nil
	case modpath.LibEntry:
		return Lib, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// String returns the profile name, also used as the build directory.
func (p Profile) String() string {
	if p == Release {
		return "release"
	}
	return "debug"
}

// Name returns the artifact name: main or lib, followed by the selected
// features joined with '+'.
func (t Target) Name() string {
	name := modpath.MainStem
	if t.Kind == Lib {
		name = modpath.LibStem
	}
	if len(t.Features) > 0 {
		name += "+" + t.Features.String()
	}
	return name
}

// Error implements the error interface for EntryPointError.
func (e *EntryPointError) Error() string {
	return fmt.Sprintf("entry point %s not found in manifest", e.Key)
}

// Unwrap returns ErrEntryPointNotFound for errors.Is() compatibility.
func (e *EntryPointError) Unwrap() error { return ErrEntryPointNotFound }

// Discover returns a target for every entry file present under sourceRoot,
// library first.
func Discover(sourceRoot, ext string, profile Profile, features modpath.Features) ([]Target, error) {
	var targets []Target
	for _, kind := range []Kind{Lib, Bin} {
		info, err := os.Stat(filepath.Join(sourceRoot, kind.EntryFile(ext)))
		if err != nil || info.IsDir() {
			continue
		}
		targets = append(targets, Target{Kind: kind, Profile: profile, Features: features})
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoTargets, sourceRoot)
	}
	return targets, nil
}

// SrcFiles returns the units compiled for t: every non-entry unit whose
// feature set is empty or intersects t.Features, sorted by path, followed by
// every unit of t's entry point. The entry point always comes last.
func SrcFiles(t Target, m registry.Manifest) ([]string, error) {
	entryKey := t.Kind.EntryKey()
	entry, ok := m[entryKey]
	if !ok {
		return nil, &EntryPointError{Key: entryKey}
	}

	entryMarker := modpath.EntryKey("")
	var files []string
	for key, units := range m {
		if strings.HasPrefix(key, entryMarker) {
			continue
		}
		for _, u := range units {
			if len(u.Features) == 0 || u.Features.Intersects(t.Features) {
				files = append(files, u.Path)
			}
		}
	}
	slices.Sort(files)
	files = slices.Compact(files)

	entryFiles := make([]string, 0, len(entry))
	for _, u := range entry {
		if !slices.Contains(files, u.Path) {
			entryFiles = append(entryFiles, u.Path)
		}
	}
	slices.Sort(entryFiles)
	return append(files, slices.Compact(entryFiles)...), nil
}

// WriteFileList persists files, one per line, as dir/<target name>.
func WriteFileList(dir string, t Target, files []string) (string, filecache.FileDep, error) {
	path := filepath.Join(dir, t.Name())
	var sb strings.Builder
	for _, f := range files {
		sb.WriteString(f)
		sb.WriteByte('\n')
	}
	dep, err := filecache.CompareAndWrite(path, []byte(sb.String()))
	if err != nil {
		return "", filecache.Unchanged, fmt.Errorf("write file list for %s: %w", t.Name(), err)
	}
	return path, dep, nil
}

// ExpandFeatures returns the closure of requested under table, the project's
// feature table: enabling a feature enables everything it lists. With
// defaults set, the "default" feature is requested too. Features absent from
// the table stand for themselves.
func ExpandFeatures(requested []string, table map[string][]string, defaults bool) modpath.Features {
	pending := slices.Clone(requested)
	if defaults {
		if _, ok := table[DefaultFeature]; ok {
			pending = append(pending, DefaultFeature)
		}
	}

	enabled := make(map[string]bool)
	for len(pending) > 0 {
		name := strings.TrimSpace(pending[len(pending)-1])
		pending = pending[:len(pending)-1]
		if name == "" || enabled[name] {
			continue
		}
		enabled[name] = true
		pending = append(pending, table[name]...)
	}

	names := make([]string, 0, len(enabled))
	for name := range enabled {
		names = append(names, name)
	}
	return modpath.NewFeatures(names...)
}
