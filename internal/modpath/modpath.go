// SPDX-License-Identifier: MPL-2.0

package modpath

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// Absolute paths start at the project source root.
	Absolute Kind = iota + 1
	// Relative paths climb Depth levels from the current module before appending segments.
	Relative
	// Root paths start at a named external package.
	Root
	// EntryPoint marks the designated bin/lib unit of the project.
	EntryPoint
)

const (
	// Sentinel is the token that introduces the custom module syntax.
	Sentinel = "%"
	// Separator joins path segments.
	Separator = "."

	upMarker    = "^"
	entryMarker = "@"
)

var (
	// ErrEmptyPath is returned when parsing an empty module path.
	ErrEmptyPath = errors.New("empty module path")
	// ErrUnknownPrefix is the sentinel error wrapped by PrefixError.
	ErrUnknownPrefix = errors.New("unknown prefix operator")
	// ErrInvalidSegment is the sentinel error wrapped by SegmentError.
	ErrInvalidSegment = errors.New("invalid path segment")
	// ErrDepthOutOfRange is the sentinel error wrapped by DepthError.
	ErrDepthOutOfRange = errors.New("relative depth exceeds available ancestry")
)

type (
	// Kind is the resolution mode of a module path.
	Kind int

	// Prefix describes how a path's segments are anchored.
	// Depth is only meaningful for Relative, Name only for Root and EntryPoint.
	Prefix struct {
		Kind  Kind
		Depth int
		Name  string
	}

	// Path is a module location: a prefix plus ordered segments.
	// The zero value is not a valid path; see IsZero.
	Path struct {
		Prefix   Prefix
		Segments []string
	}

	// PrefixError is returned when a leading `%` token is not a known operator.
	PrefixError struct {
		Token string
	}

	// SegmentError is returned when a segment is empty or carries a reserved character.
	SegmentError struct {
		Segment string
	}

	// DepthError is returned when a relative path climbs above an anchored base.
	DepthError struct {
		Depth int
		Base  Path
	}
)

// String returns the human-readable kind name.
func (k Kind) String() string {
	switch k {
	case Absolute:
		return "absolute"
	case Relative:
		return "relative"
	case Root:
		return "root"
	case EntryPoint:
		return "entry-point"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// AbsolutePrefix returns the prefix anchored at the project source root.
func AbsolutePrefix() Prefix { return Prefix{Kind: Absolute} }

// RelativePrefix returns a prefix that climbs n levels from the current module.
func RelativePrefix(n int) Prefix { return Prefix{Kind: Relative, Depth: n} }

// RootPrefix returns a prefix anchored at the external package name.
func RootPrefix(name string) Prefix { return Prefix{Kind: Root, Name: name} }

// EntryPointPrefix returns the synthetic prefix for the named entry point.
func EntryPointPrefix(name string) Prefix { return Prefix{Kind: EntryPoint, Name: name} }

// String renders the prefix token.
func (p Prefix) String() string {
	switch p.Kind {
	case Absolute:
		return Sentinel
	case Relative:
		if p.Depth == 0 {
			return Sentinel + Sentinel
		}
		return Sentinel + strings.Repeat(upMarker, p.Depth)
	case Root:
		return p.Name
	case EntryPoint:
		return entryMarker + p.Name
	default:
		return ""
	}
}

// New builds a path from a prefix and segments. The segments are copied.
func New(prefix Prefix, segments ...string) Path {
	return Path{Prefix: prefix, Segments: slices.Clone(segments)}
}

// Parse parses the dotted string form of a module path.
func Parse(s string) (Path, error) {
	if s == "" {
		return Path{}, ErrEmptyPath
	}
	return ParseTokens(strings.Split(s, Separator))
}

// ParseTokens builds a path from already split tokens. The first token selects
// the prefix; the rest become segments verbatim.
func ParseTokens(tokens []string) (Path, error) {
	if len(tokens) == 0 {
		return Path{}, ErrEmptyPath
	}
	prefix, err := parsePrefix(tokens[0])
	if err != nil {
		return Path{}, err
	}
	for _, seg := range tokens[1:] {
		if err := validateSegment(seg); err != nil {
			return Path{}, err
		}
	}
	return Path{Prefix: prefix, Segments: slices.Clone(tokens[1:])}, nil
}

func parsePrefix(token string) (Prefix, error) {
	switch {
	case token == Sentinel:
		return AbsolutePrefix(), nil
	case token == Sentinel+Sentinel:
		return RelativePrefix(0), nil
	case strings.HasPrefix(token, Sentinel):
		ups := token[len(Sentinel):]
		if ups != "" && strings.Trim(ups, upMarker) == "" {
			return RelativePrefix(len(ups)), nil
		}
		return Prefix{}, &PrefixError{Token: token}
	}
	if err := validateSegment(token); err != nil {
		return Prefix{}, err
	}
	return RootPrefix(token), nil
}

func validateSegment(seg string) error {
	if seg == "" || strings.Contains(seg, Separator) ||
		strings.HasPrefix(seg, Sentinel) || strings.HasPrefix(seg, entryMarker) {
		return &SegmentError{Segment: seg}
	}
	return nil
}

// String renders the path in the dotted form accepted by Parse.
func (p Path) String() string {
	var sb strings.Builder
	sb.WriteString(p.Prefix.String())
	for _, seg := range p.Segments {
		sb.WriteString(Separator)
		sb.WriteString(seg)
	}
	return sb.String()
}

// IsZero reports whether p is the zero path.
func (p Path) IsZero() bool {
	return p.Prefix.Kind == 0 && len(p.Segments) == 0
}

// Equal reports whether both paths have the same prefix and segments.
func (p Path) Equal(other Path) bool {
	return p.Prefix == other.Prefix && slices.Equal(p.Segments, other.Segments)
}

// Append returns a copy of p with segs appended.
func (p Path) Append(segs ...string) Path {
	out := make([]string, 0, len(p.Segments)+len(segs))
	out = append(out, p.Segments...)
	out = append(out, segs...)
	return Path{Prefix: p.Prefix, Segments: out}
}

// Anchor returns p with an EntryPoint prefix replaced by Absolute. The entry
// point is the crate root, so relative references made from it resolve
// against the source root.
func (p Path) Anchor() Path {
	if p.Prefix.Kind != EntryPoint {
		return p
	}
	return New(AbsolutePrefix(), p.Segments...)
}

// Transform resolves p against base. Relative paths drop Depth trailing
// segments of base and append their own; when base runs out of segments the
// deficit composes into a deeper Relative prefix if base is itself relative,
// and is an error otherwise. Absolute, Root and EntryPoint paths are already
// resolved and are returned unchanged.
func (p Path) Transform(base Path) (Path, error) {
	if p.Prefix.Kind != Relative {
		return New(p.Prefix, p.Segments...), nil
	}

	n := p.Prefix.Depth
	if n <= len(base.Segments) {
		kept := base.Segments[:len(base.Segments)-n]
		return New(base.Prefix, kept...).Append(p.Segments...), nil
	}

	deficit := n - len(base.Segments)
	if base.Prefix.Kind == Relative {
		return New(RelativePrefix(base.Prefix.Depth+deficit), p.Segments...), nil
	}
	return Path{}, &DepthError{Depth: n, Base: base}
}

// Error implements the error interface for PrefixError.
func (e *PrefixError) Error() string {
	return fmt.Sprintf("unknown prefix operator %q", e.Token)
}

// Unwrap returns ErrUnknownPrefix for errors.Is() compatibility.
func (e *PrefixError) Unwrap() error { return ErrUnknownPrefix }

// Error implements the error interface for SegmentError.
func (e *SegmentError) Error() string {
	return fmt.Sprintf("invalid path segment %q", e.Segment)
}

// Unwrap returns ErrInvalidSegment for errors.Is() compatibility.
func (e *SegmentError) Unwrap() error { return ErrInvalidSegment }

// Error implements the error interface for DepthError.
func (e *DepthError) Error() string {
	return fmt.Sprintf("depth out of range: cannot climb %d level(s) from %s", e.Depth, e.Base)
}

// Unwrap returns ErrDepthOutOfRange for errors.Is() compatibility.
func (e *DepthError) Unwrap() error { return ErrDepthOutOfRange }
