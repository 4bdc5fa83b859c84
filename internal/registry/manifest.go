// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/carsier/carsier/internal/filecache"
	"github.com/carsier/carsier/internal/modpath"
)

// ErrManifestNotFound is returned by Load when no manifest has been written yet.
var ErrManifestNotFound = errors.New("manifest not found")

type (
	// Unit is one physical source file contributing to a module.
	Unit struct {
		// Path is the rewritten copy handed to the compiler.
		Path string `json:"path"`
		// Source is the file the copy was produced from.
		Source string `json:"source"`
		// Features lists the features the unit requires; empty means always included.
		Features modpath.Features `json:"features"`
	}

	// Manifest maps rendered module paths to the units implementing them.
	Manifest map[string][]Unit
)

// Add registers u under key.
func (m Manifest) Add(key string, u Unit) {
	if u.Features == nil {
		u.Features = modpath.Features{}
	}
	m[key] = append(m[key], u)
}

// Keys returns the module keys in sorted order.
func (m Manifest) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Marshal renders the manifest as indented JSON. Keys and the units of every
// key are sorted, so the same tree always produces the same bytes.
func (m Manifest) Marshal() ([]byte, error) {
	sorted := make(Manifest, len(m))
	for key, units := range m {
		units = slices.Clone(units)
		slices.SortFunc(units, func(a, b Unit) int { return strings.Compare(a.Path, b.Path) })
		sorted[key] = units
	}
	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Save persists the manifest through the write cache.
func (m Manifest) Save(path string) (filecache.FileDep, error) {
	data, err := m.Marshal()
	if err != nil {
		return filecache.Unchanged, err
	}
	return filecache.CompareAndWrite(path, data)
}

// Load reads a manifest written by Save.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	if m == nil {
		m = Manifest{}
	}
	return m, nil
}
