// SPDX-License-Identifier: MPL-2.0

package carsierfile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// LatestRelease is the coursier version selector used for "*".
const LatestRelease = "latest.release"

const (
	// OpCompatible is `^1.2.3`, also the meaning of a bare version.
	OpCompatible Op = iota + 1
	// OpTilde is `~1.2.3`.
	OpTilde
	// OpExact is `=1.2.3`.
	OpExact
	// OpGreater is `>1.2.3`.
	OpGreater
	// OpGreaterEq is `>=1.2.3`.
	OpGreaterEq
	// OpLess is `<1.2.3`.
	OpLess
	// OpLessEq is `<=1.2.3`.
	OpLessEq
	// OpWildcard is `1.*`, `1.2.*` or `*`.
	OpWildcard
)

var (
	// ErrInvalidVersion is returned for requirements that do not parse.
	ErrInvalidVersion = errors.New("invalid version requirement")
	// ErrNoConcreteVersion is returned when a range names no version coursier could fetch.
	ErrNoConcreteVersion = errors.New("version requirement has no concrete version")
)

type (
	// Op is the comparison of one predicate.
	Op int

	// Predicate is one comma-separated part of a requirement. Minor and Patch
	// are -1 when omitted.
	Predicate struct {
		Op    Op
		Major int
		Minor int
		Patch int
		Pre   string
	}

	// VersionRange is a Cargo-style version requirement such as "^1.2",
	// ">= 1.0, < 2" or "*". The zero value is invalid.
	VersionRange struct {
		raw        string
		predicates []Predicate
	}
)

var opTokens = []struct {
	token string
	op    Op
}{
	// Two-character operators first.
	{">=", OpGreaterEq},
	{"<=", OpLessEq},
	{">", OpGreater},
	{"<", OpLess},
	{"=", OpExact},
	{"~", OpTilde},
	{"^", OpCompatible},
}

// ParseVersionRange parses a version requirement.
func ParseVersionRange(s string) (VersionRange, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return VersionRange{}, fmt.Errorf("%w: empty", ErrInvalidVersion)
	}
	var preds []Predicate
	for part := range strings.SplitSeq(raw, ",") {
		p, err := parsePredicate(strings.TrimSpace(part))
		if err != nil {
			return VersionRange{}, fmt.Errorf("%w %q: %v", ErrInvalidVersion, s, err)
		}
		preds = append(preds, p)
	}
	return VersionRange{raw: raw, predicates: preds}, nil
}

// MustParseVersionRange is ParseVersionRange for constants; it panics on error.
func MustParseVersionRange(s string) VersionRange {
	r, err := ParseVersionRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

func parsePredicate(s string) (Predicate, error) {
	p := Predicate{Op: OpCompatible, Minor: -1, Patch: -1}
	explicit := false
	for _, t := range opTokens {
		if strings.HasPrefix(s, t.token) {
			p.Op, explicit = t.op, true
			s = strings.TrimSpace(s[len(t.token):])
			break
		}
	}
	if s == "" {
		return Predicate{}, errors.New("missing version")
	}

	version, pre, _ := strings.Cut(s, "-")
	parts := strings.Split(version, ".")
	if len(parts) > 3 {
		return Predicate{}, fmt.Errorf("too many components in %q", s)
	}

	nums := []*int{&p.Major, &p.Minor, &p.Patch}
	for i, part := range parts {
		if part == "*" || part == "x" || part == "X" {
			if explicit || pre != "" {
				return Predicate{}, fmt.Errorf("wildcard cannot follow an operator in %q", s)
			}
			if i+1 != len(parts) {
				return Predicate{}, fmt.Errorf("wildcard must be the last component in %q", s)
			}
			p.Op = OpWildcard
			if i == 0 {
				p.Major = -1
			}
			break
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Predicate{}, fmt.Errorf("invalid component %q", part)
		}
		*nums[i] = n
	}
	p.Pre = pre

	if p.Major >= 0 && !semver.IsValid(p.semver()) {
		return Predicate{}, fmt.Errorf("invalid version %q", s)
	}
	return p, nil
}

// semver renders the predicate's version in the form x/mod/semver accepts,
// omitted components filled with zero.
func (p Predicate) semver() string {
	v := fmt.Sprintf("v%d.%d.%d", p.Major, max(p.Minor, 0), max(p.Patch, 0))
	if p.Pre != "" {
		v += "-" + p.Pre
	}
	return v
}

// String renders the version as written: major[.minor[.patch]][-pre].
func (p Predicate) String() string {
	v := strconv.Itoa(p.Major)
	if p.Minor >= 0 {
		v += "." + strconv.Itoa(p.Minor)
		if p.Patch >= 0 {
			v += "." + strconv.Itoa(p.Patch)
		}
	}
	if p.Pre != "" {
		v += "-" + p.Pre
	}
	return v
}

// String returns the requirement as written.
func (r VersionRange) String() string { return r.raw }

// Predicates returns the parsed parts of the requirement.
func (r VersionRange) Predicates() []Predicate { return r.predicates }

// MarshalText implements encoding.TextMarshaler.
func (r VersionRange) MarshalText() ([]byte, error) { return []byte(r.raw), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *VersionRange) UnmarshalText(text []byte) error {
	parsed, err := ParseVersionRange(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Example returns a version satisfying the requirement as precisely as it
// was written. Exact, upper-inclusive, tilde, caret and wildcard predicates
// name a version directly, the last one winning; a lower bound is used only
// when nothing else names one. Strict bounds never do.
func (r VersionRange) Example() (string, bool) {
	var (
		result string
		found  bool
	)
	for _, p := range r.predicates {
		switch p.Op {
		case OpExact, OpLessEq, OpTilde, OpCompatible, OpWildcard:
			if p.Major >= 0 {
				result, found = p.String(), true
			}
		case OpGreaterEq:
			if !found {
				result, found = p.String(), true
			}
		}
	}
	return result, found
}

// Coursier returns the version string handed to coursier.
func (r VersionRange) Coursier() (string, error) {
	if r.raw == "*" {
		return LatestRelease, nil
	}
	if v, ok := r.Example(); ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoConcreteVersion, r.raw)
}

// Matches reports whether version (with or without a leading "v") satisfies
// every predicate.
func (r VersionRange) Matches(version string) bool {
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	if !semver.IsValid(version) || len(r.predicates) == 0 {
		return false
	}
	for _, p := range r.predicates {
		if !p.matches(version) {
			return false
		}
	}
	return true
}

func (p Predicate) matches(v string) bool {
	if p.Major < 0 {
		return true
	}
	cmp := semver.Compare(v, p.semver())
	switch p.Op {
	case OpGreater:
		return cmp > 0
	case OpGreaterEq:
		return cmp >= 0
	case OpLess:
		return cmp < 0
	case OpLessEq:
		return cmp <= 0
	case OpExact:
		if p.Minor < 0 || p.Patch < 0 {
			return cmp >= 0 && semver.Compare(v, p.upper(p.Minor < 0)) < 0
		}
		return cmp == 0
	case OpTilde:
		return cmp >= 0 && semver.Compare(v, p.upper(p.Minor < 0)) < 0
	case OpWildcard:
		return cmp >= 0 && semver.Compare(v, p.upper(p.Minor < 0)) < 0
	case OpCompatible:
		return cmp >= 0 && semver.Compare(v, p.caretUpper()) < 0
	default:
		return false
	}
}

// upper returns the exclusive bound of the next major (or next minor) release.
func (p Predicate) upper(major bool) string {
	if major {
		return fmt.Sprintf("v%d.0.0", p.Major+1)
	}
	return fmt.Sprintf("v%d.%d.0", p.Major, p.Minor+1)
}

// caretUpper bumps the leftmost non-zero component that was written.
func (p Predicate) caretUpper() string {
	switch {
	case p.Major > 0 || p.Minor < 0:
		return fmt.Sprintf("v%d.0.0", p.Major+1)
	case p.Minor > 0 || p.Patch < 0:
		return fmt.Sprintf("v0.%d.0", p.Minor+1)
	default:
		return fmt.Sprintf("v0.0.%d", p.Patch+1)
	}
}
