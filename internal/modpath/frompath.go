// SPDX-License-Identifier: MPL-2.0

package modpath

import (
	"path/filepath"
	"slices"
	"strings"
)

const (
	// BinEntry names the entry point of the binary target.
	BinEntry = "bin"
	// LibEntry names the entry point of the library target.
	LibEntry = "lib"

	// MainStem is the file stem of the binary entry point (main.scala).
	MainStem = "main"
	// LibStem is the file stem of the library entry point (lib.scala). Below the
	// top of the tree it marks the index file of its directory.
	LibStem = "lib"

	featureDelim = "-"
)

// Features is a sorted set of feature names.
type Features []string

// NewFeatures returns the sorted, deduplicated set of the non-empty names.
func NewFeatures(names ...string) Features {
	out := make(Features, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Contains reports whether name is in the set.
func (f Features) Contains(name string) bool {
	_, found := slices.BinarySearch(f, name)
	return found
}

// Intersects reports whether the two sets share at least one feature.
func (f Features) Intersects(other Features) bool {
	for _, name := range f {
		if other.Contains(name) {
			return true
		}
	}
	return false
}

// String joins the features with '+', the form used in artifact names.
func (f Features) String() string {
	return strings.Join(f, "+")
}

// EntryKey returns the manifest key of the named entry point.
func EntryKey(name string) string {
	return New(EntryPointPrefix(name)).String()
}

// SplitFeatures splits a file stem of the form name[-f1][-f2] into the module
// name and its feature set.
func SplitFeatures(stem string) (string, Features) {
	parts := strings.Split(stem, featureDelim)
	return parts[0], NewFeatures(parts[1:]...)
}

// FromPath derives a module path from where file sits relative to sourceRoot.
// Files under the root get an Absolute path made of the directories below the
// root plus the file stem; files outside it get Relative(k), k being how many
// source-root components lie beyond the common prefix. main and lib directly
// at the root become the bin/lib entry points. Feature suffixes of the file
// name are returned separately.
func FromPath(file, sourceRoot string) (Path, Features, error) {
	fileParts := splitComponents(file)
	if len(fileParts) == 0 {
		return Path{}, nil, ErrEmptyPath
	}
	rootParts := splitComponents(sourceRoot)
	dirParts := fileParts[:len(fileParts)-1]
	name := fileParts[len(fileParts)-1]

	stem, features := SplitFeatures(strings.TrimSuffix(name, filepath.Ext(name)))

	common := 0
	for common < len(dirParts) && common < len(rootParts) && dirParts[common] == rootParts[common] {
		common++
	}

	path := New(AbsolutePrefix(), dirParts[common:]...)
	if common < len(rootParts) {
		path.Prefix = RelativePrefix(len(rootParts) - common)
	}

	atTop := path.Prefix.Kind == Absolute && len(path.Segments) == 0
	switch {
	case atTop && stem == MainStem:
		path.Prefix = EntryPointPrefix(BinEntry)
	case atTop && stem == LibStem:
		path.Prefix = EntryPointPrefix(LibEntry)
	case stem == LibStem:
		// index file: the module is the directory itself
	default:
		path.Segments = append(path.Segments, stem)
	}

	for _, seg := range path.Segments {
		if err := validateSegment(seg); err != nil {
			return Path{}, nil, err
		}
	}
	return path, features, nil
}

func splitComponents(p string) []string {
	raw := strings.Split(filepath.ToSlash(filepath.Clean(p)), "/")
	out := raw[:0]
	for _, part := range raw {
		if part != "" && part != "." {
			out = append(out, part)
		}
	}
	return out
}
