// SPDX-License-Identifier: MPL-2.0

package carsierfile

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Dependency is the canonical form of a [dependencies] entry, whichever shape
// it was written in.
type Dependency struct {
	Version  VersionRange
	Features []string
	// Java marks a plain Java artifact: no Scala edition suffix on its name.
	Java bool
	// Org is the Maven group. Dependencies without one are not resolved.
	Org string
	// Others keeps unrecognized string keys.
	Others map[string]string
}

// decodeDependency normalizes the two wire shapes:
//
//	cats = "2.9"
//	cats = { version = "2.9", org = "org.typelevel", features = ["x"], java = false }
func decodeDependency(raw any) (Dependency, error) {
	switch v := raw.(type) {
	case string:
		version, err := ParseVersionRange(v)
		if err != nil {
			return Dependency{}, err
		}
		return Dependency{Version: version}, nil
	case map[string]any:
		return decodeDependencyTable(v)
	default:
		return Dependency{}, fmt.Errorf("expected a version string or a table, got %T", raw)
	}
}

func decodeDependencyTable(table map[string]any) (Dependency, error) {
	var dep Dependency
	rawVersion, ok := table["version"]
	if !ok {
		return Dependency{}, errors.New("missing version")
	}
	for key, value := range table {
		switch key {
		case "version":
			s, ok := value.(string)
			if !ok {
				return Dependency{}, fmt.Errorf("version must be a string, got %T", rawVersion)
			}
			version, err := ParseVersionRange(s)
			if err != nil {
				return Dependency{}, err
			}
			dep.Version = version
		case "features":
			list, ok := value.([]any)
			if !ok {
				return Dependency{}, fmt.Errorf("features must be an array, got %T", value)
			}
			for _, item := range list {
				name, ok := item.(string)
				if !ok {
					return Dependency{}, fmt.Errorf("feature names must be strings, got %T", item)
				}
				dep.Features = append(dep.Features, name)
			}
		case "java":
			b, ok := value.(bool)
			if !ok {
				return Dependency{}, fmt.Errorf("java must be a boolean, got %T", value)
			}
			dep.Java = b
		case "org":
			s, ok := value.(string)
			if !ok {
				return Dependency{}, fmt.Errorf("org must be a string, got %T", value)
			}
			dep.Org = s
		default:
			s, ok := value.(string)
			if !ok {
				return Dependency{}, fmt.Errorf("unknown key %q must be a string, got %T", key, value)
			}
			if dep.Others == nil {
				dep.Others = make(map[string]string)
			}
			dep.Others[key] = s
		}
	}
	return dep, nil
}

// Coordinate renders the coursier coordinate org:name[_edition]:version.
// ok is false for dependencies without an org, which are not resolved.
func (d Dependency) Coordinate(name, edition string) (coord string, ok bool, err error) {
	if d.Org == "" {
		return "", false, nil
	}
	version, err := d.Version.Coursier()
	if err != nil {
		return "", false, fmt.Errorf("dependency %q: %w", name, err)
	}
	if !d.Java {
		name += "_" + edition
	}
	return d.Org + ":" + name + ":" + version, true, nil
}

// DepsIn renders the resolver input: one coordinate per line, in dependency
// name order.
func (f *File) DepsIn() (string, error) {
	var sb strings.Builder
	for _, name := range f.DependencyNames() {
		coord, ok, err := f.Dependencies[name].Coordinate(name, f.Package.Edition)
		if err != nil {
			return "", err
		}
		if ok {
			sb.WriteString(coord)
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

// CheckResolved returns the direct dependencies whose resolved version, as
// listed in resolver output lines org:name:version, falls outside the declared
// range.
func (f *File) CheckResolved(resolved []string) []string {
	var mismatched []string
	for _, line := range resolved {
		parts := strings.Split(strings.TrimSpace(line), ":")
		if len(parts) < 3 {
			continue
		}
		name := strings.TrimSuffix(parts[1], "_"+f.Package.Edition)
		dep, ok := f.Dependencies[name]
		if !ok || dep.Org != parts[0] || dep.Version.String() == "*" {
			continue
		}
		if !dep.Version.Matches(parts[2]) {
			mismatched = append(mismatched, fmt.Sprintf("%s %s (wanted %s)", name, parts[2], dep.Version))
		}
	}
	slices.Sort(mismatched)
	return mismatched
}
