// SPDX-License-Identifier: MPL-2.0

package carsierfile

import (
	"errors"
	"slices"
	"testing"
)

func TestVersionRange_Coursier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"*", LatestRelease},
		{"1.2.3", "1.2.3"},
		{"^2.9", "2.9"},
		{"~1.4", "1.4"},
		{"=31.1-jre", "31.1-jre"},
		{"1.2.*", "1.2"},
		{">= 0.14, < 0.15", "0.14"},
		{">= 1, <= 1.5", "1.5"},
		{"<= 2, >= 1", "2"},
	}

	for _, tt := range tests {
		r, err := ParseVersionRange(tt.in)
		if err != nil {
			t.Errorf("ParseVersionRange(%q) returned error: %v", tt.in, err)
			continue
		}
		got, err := r.Coursier()
		if err != nil {
			t.Errorf("Coursier(%q) returned error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Coursier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVersionRange_Predicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []Predicate
	}{
		{"*", []Predicate{{Op: OpWildcard, Major: -1, Minor: -1, Patch: -1}}},
		{"1.*", []Predicate{{Op: OpWildcard, Major: 1, Minor: -1, Patch: -1}}},
		{"2.13", []Predicate{{Op: OpCompatible, Major: 2, Minor: 13, Patch: -1}}},
		{
			"^1.2, < 1.9.0-rc1",
			[]Predicate{
				{Op: OpCompatible, Major: 1, Minor: 2, Patch: -1},
				{Op: OpLess, Major: 1, Minor: 9, Patch: 0, Pre: "rc1"},
			},
		},
	}

	for _, tt := range tests {
		r, err := ParseVersionRange(tt.in)
		if err != nil {
			t.Errorf("ParseVersionRange(%q) returned error: %v", tt.in, err)
			continue
		}
		if got := r.Predicates(); !slices.Equal(got, tt.want) {
			t.Errorf("Predicates(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestVersionRange_NoConcreteVersion(t *testing.T) {
	t.Parallel()

	r := MustParseVersionRange("> 1.0, < 2.0")
	if _, err := r.Coursier(); !errors.Is(err, ErrNoConcreteVersion) {
		t.Errorf("error = %v, want ErrNoConcreteVersion", err)
	}
}

func TestParseVersionRange_Errors(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "abc", "1.2.3.4", ">=", "^1.*", "1.*.3", "1.2,", "-1"} {
		if _, err := ParseVersionRange(in); !errors.Is(err, ErrInvalidVersion) {
			t.Errorf("ParseVersionRange(%q) error = %v, want ErrInvalidVersion", in, err)
		}
	}
}

func TestVersionRange_Matches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rng     string
		version string
		want    bool
	}{
		{"^1.2.3", "1.9.0", true},
		{"^1.2.3", "2.0.0", false},
		{"^1.2.3", "1.2.2", false},
		{"^0.2.3", "0.2.9", true},
		{"^0.2.3", "0.3.0", false},
		{"^0.0.3", "0.0.4", false},
		{"~1.2.3", "1.2.9", true},
		{"~1.2.3", "1.3.0", false},
		{"~1", "1.9.9", true},
		{"=1.2", "1.2.7", true},
		{"=1.2.3", "1.2.4", false},
		{"1.*", "1.99.0", true},
		{"1.*", "2.0.0", false},
		{"*", "42.0.0", true},
		{">= 0.14, < 0.15", "0.14.6", true},
		{">= 0.14, < 0.15", "0.15.0", false},
		{"> 1", "1.0.0", false},
		{"<= 1.5", "v1.5.0", true},
		{"^1", "not-a-version", false},
	}

	for _, tt := range tests {
		if got := MustParseVersionRange(tt.rng).Matches(tt.version); got != tt.want {
			t.Errorf("%q.Matches(%q) = %v, want %v", tt.rng, tt.version, got, tt.want)
		}
	}
}

func TestVersionRange_Text(t *testing.T) {
	t.Parallel()

	var r VersionRange
	if err := r.UnmarshalText([]byte("~2.1")); err != nil {
		t.Fatalf("UnmarshalText returned error: %v", err)
	}
	text, err := r.MarshalText()
	if err != nil || string(text) != "~2.1" {
		t.Errorf("MarshalText() = %q, %v", text, err)
	}
	if err := r.UnmarshalText([]byte("nope")); !errors.Is(err, ErrInvalidVersion) {
		t.Errorf("UnmarshalText(nope) error = %v", err)
	}
}
