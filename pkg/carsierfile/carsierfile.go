// SPDX-License-Identifier: MPL-2.0

// Package carsierfile reads the Carsier.toml project file.
package carsierfile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// FileName is the project file at the root of every project.
	FileName = "Carsier.toml"

	// DefaultRegistry is the package every crate is published under.
	DefaultRegistry = "crates"
	// DefaultEdition is the Scala binary version appended to dependency names.
	DefaultEdition = "2.13"
	// DefaultSourceRoot is the source directory relative to the project root.
	DefaultSourceRoot = "src"
	// DefaultInclude selects the sources processed by every build.
	DefaultInclude = "**/*.scala"
	// DefaultTargetDir holds every generated file.
	DefaultTargetDir = "target"
)

var (
	// ErrNotFound is returned by Find when no project file exists up the tree.
	ErrNotFound = errors.New("project file not found")
	// ErrInvalid is wrapped by every validation and shape error.
	ErrInvalid = errors.New("invalid project file")
)

type (
	// File is a decoded project file with defaults applied.
	File struct {
		Package      Package               `toml:"package"`
		Dependencies map[string]Dependency `toml:"-"`
		Features     map[string][]string   `toml:"features"`
		Build        Build                 `toml:"build"`
		Resources    []Resource            `toml:"resources"`

		// Dir is the directory holding the file; relative paths resolve against it.
		Dir string `toml:"-"`
	}

	// Package is the [package] table.
	Package struct {
		Name     string   `toml:"name"`
		Version  string   `toml:"version"`
		Authors  []string `toml:"authors"`
		Edition  string   `toml:"edition"`
		Registry string   `toml:"registry"`
	}

	// Build is the [build] table.
	Build struct {
		SourceRoot string `toml:"source_root"`
		Include    string `toml:"include"`
		TargetDir  string `toml:"target_dir"`
	}

	// Resource is one [[resources]] entry, packaged into every jar.
	Resource struct {
		Include string `toml:"include"`
	}

	// document mirrors File on the wire. Dependencies are decoded loosely
	// because each one may be a bare version string or a table.
	document struct {
		Package      Package             `toml:"package"`
		Dependencies map[string]any      `toml:"dependencies"`
		Features     map[string][]string `toml:"features"`
		Build        Build               `toml:"build"`
		Resources    []Resource          `toml:"resources"`
	}
)

// Parse decodes a project file.
func Parse(data []byte) (*File, error) {
	var doc document
	dec := toml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("%w: line %d, column %d: %v", ErrInvalid, row, col, decodeErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	f := &File{
		Package:      doc.Package,
		Features:     doc.Features,
		Build:        doc.Build,
		Resources:    doc.Resources,
		Dependencies: make(map[string]Dependency, len(doc.Dependencies)),
	}
	for name, raw := range doc.Dependencies {
		dep, err := decodeDependency(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: dependency %q: %v", ErrInvalid, name, err)
		}
		f.Dependencies[name] = dep
	}

	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Load reads and parses the project file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Dir = filepath.Dir(path)
	return f, nil
}

// Find walks up from dir looking for the project file and returns its path.
func Find(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(abs, FileName)
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("%w in %s or any parent directory", ErrNotFound, dir)
		}
		abs = parent
	}
}

func (f *File) applyDefaults() {
	if f.Package.Registry == "" {
		f.Package.Registry = DefaultRegistry
	}
	if f.Package.Edition == "" {
		f.Package.Edition = DefaultEdition
	}
	if f.Build.SourceRoot == "" {
		f.Build.SourceRoot = DefaultSourceRoot
	}
	if f.Build.Include == "" {
		f.Build.Include = DefaultInclude
	}
	if f.Build.TargetDir == "" {
		f.Build.TargetDir = DefaultTargetDir
	}
	if f.Features == nil {
		f.Features = map[string][]string{}
	}
}

// Validate reports the first problem found in f.
func (f *File) Validate() error {
	if f.Package.Name == "" {
		return fmt.Errorf("%w: package.name is required", ErrInvalid)
	}
	if strings.ContainsAny(f.Package.Name, ". \t/") {
		return fmt.Errorf("%w: package.name %q must be a single identifier", ErrInvalid, f.Package.Name)
	}
	for name, enables := range f.Features {
		for _, enabled := range enables {
			if _, ok := f.Features[enabled]; !ok {
				return fmt.Errorf("%w: feature %q enables undeclared feature %q", ErrInvalid, name, enabled)
			}
		}
	}
	return nil
}

// Path resolves a project-relative path against Dir.
func (f *File) Path(rel string) string {
	if filepath.IsAbs(rel) || f.Dir == "" {
		return rel
	}
	return filepath.Join(f.Dir, rel)
}

// SourceRoot returns the resolved source directory.
func (f *File) SourceRoot() string { return f.Path(f.Build.SourceRoot) }

// TargetDir returns the resolved directory of generated files.
func (f *File) TargetDir() string { return f.Path(f.Build.TargetDir) }

// DependencyNames returns the dependency names in sorted order.
func (f *File) DependencyNames() []string {
	return slices.Sorted(maps.Keys(f.Dependencies))
}
