// SPDX-License-Identifier: MPL-2.0

// Package importtree parses brace-grouped import expressions such as
// `%.a.{b, c.{d, e}}` into a tree and flattens them into module paths.
//
// Nested branches carry Relative(0) continuation paths, so a branch is resolved
// against its parent the same way a `%%` path is resolved against the current
// module.
//
// A renaming selector such as `{b => c}` or `{b => _}` stands for its source
// name b; the alias only exists in the importing file's scope.
package importtree

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/carsier/carsier/internal/modpath"
)

var (
	// ErrPrefixMidExpression is returned when a `%` appears anywhere but the
	// first identifier of the first term at the outermost level.
	ErrPrefixMidExpression = errors.New("prefix mid-expression")
	// ErrTrailingAfterGroup is returned for characters following a closed group, as in `a.{b}c`.
	ErrTrailingAfterGroup = errors.New("trailing characters after closed group")
	// ErrUnmatchedBrace is returned for a `}` at the outermost level.
	ErrUnmatchedBrace = errors.New("unmatched '}'")
	// ErrUnclosedGroup is returned when the input ends inside a `{` group.
	ErrUnclosedGroup = errors.New("unclosed '{' group")
	// ErrMisplacedBrace is returned when `{` does not follow a '.' or open a term.
	ErrMisplacedBrace = errors.New("'{' must follow '.'")
	// ErrEmptySegment is returned for empty identifiers and empty terms.
	ErrEmptySegment = errors.New("empty identifier")
	// ErrMisplacedRename is returned for a `=>` that does not follow a single
	// identifier inside a `{` group.
	ErrMisplacedRename = errors.New("'=>' must follow a single name inside '{'")
)

type (
	// Tree is one node of a parsed import expression. Path may be empty, in
	// which case Children apply directly to the enclosing scope.
	Tree struct {
		Path     modpath.Path
		Children []*Tree
	}

	// SyntaxError reports where an import expression failed to parse.
	SyntaxError struct {
		Expr   string
		Offset int
		Err    error
	}

	cursor struct {
		runes []rune
		pos   int
		// atStart stays true until the first term's first identifier is complete;
		// only then may `%` tokens appear.
		atStart bool
	}
)

// Error implements the error interface for SyntaxError.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("import %q: %v (at offset %d)", e.Expr, e.Err, e.Offset)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *SyntaxError) Unwrap() error { return e.Err }

// Parse parses the right-hand side of an import statement.
func Parse(expr string) (*Tree, error) {
	c := &cursor{runes: []rune(expr), atStart: true}
	terms, err := parseGroup(c, false)
	if err != nil {
		return nil, &SyntaxError{Expr: expr, Offset: c.pos, Err: err}
	}
	return &Tree{Path: ambient(), Children: terms}, nil
}

// parseGroup consumes terms until the end of input (outermost level) or the
// closing brace of the current group (nested level).
func parseGroup(c *cursor, nested bool) ([]*Tree, error) {
	var (
		terms    []*Tree
		idents   []string
		ident    strings.Builder
		children []*Tree
		closed   bool
		afterDot bool
		// renamed is set after `=>`; the alias or `_` that follows names
		// nothing on disk and is only checked for presence.
		renamed bool
		alias   strings.Builder
	)

	finish := func() error {
		if renamed && alias.Len() == 0 {
			return ErrEmptySegment
		}
		if ident.Len() > 0 {
			idents = append(idents, ident.String())
			ident.Reset()
		} else if afterDot || (len(idents) == 0 && children == nil) {
			return ErrEmptySegment
		}
		path, err := termPath(idents, nested)
		if err != nil {
			return err
		}
		terms = append(terms, &Tree{Path: path, Children: children})
		idents, children, closed, afterDot, renamed = nil, nil, false, false, false
		alias.Reset()
		return nil
	}

	for c.pos < len(c.runes) {
		r := c.runes[c.pos]
		c.pos++

		switch {
		case unicode.IsSpace(r):
			continue
		case r == ',':
			c.atStart = false
			if err := finish(); err != nil {
				return nil, err
			}
		case r == '}':
			if !nested {
				return nil, ErrUnmatchedBrace
			}
			if err := finish(); err != nil {
				return nil, err
			}
			return terms, nil
		case renamed:
			alias.WriteRune(r)
		case closed:
			return nil, ErrTrailingAfterGroup
		case r == '=' && c.pos < len(c.runes) && c.runes[c.pos] == '>':
			if !nested || len(idents) > 0 || ident.Len() == 0 {
				return nil, ErrMisplacedRename
			}
			c.pos++
			renamed = true
		case r == '{':
			if ident.Len() > 0 {
				return nil, ErrMisplacedBrace
			}
			c.atStart = false
			group, err := parseGroup(c, true)
			if err != nil {
				return nil, err
			}
			children, closed, afterDot = group, true, false
		case r == '.':
			if ident.Len() == 0 {
				return nil, ErrEmptySegment
			}
			idents = append(idents, ident.String())
			ident.Reset()
			c.atStart = false
			afterDot = true
		case r == '%':
			if nested || !c.atStart || strings.Trim(ident.String(), modpath.Sentinel) != "" {
				return nil, ErrPrefixMidExpression
			}
			ident.WriteRune(r)
			afterDot = false
		default:
			ident.WriteRune(r)
			afterDot = false
		}
	}

	if nested {
		return nil, ErrUnclosedGroup
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return terms, nil
}

// termPath converts the identifiers of one term into its path. Outermost terms
// carry their own prefix; nested ones continue their parent.
func termPath(idents []string, nested bool) (modpath.Path, error) {
	if nested || len(idents) == 0 {
		tokens := append([]string{modpath.Sentinel + modpath.Sentinel}, idents...)
		return modpath.ParseTokens(tokens)
	}
	return modpath.ParseTokens(idents)
}

func ambient() modpath.Path {
	return modpath.New(modpath.RelativePrefix(0))
}

func isAmbient(p modpath.Path) bool {
	return p.Prefix.Kind == modpath.Relative && p.Prefix.Depth == 0 && len(p.Segments) == 0
}

// Normalize resolves the tree against current, the module the import appears
// in. Continuation branches are left as they are; they follow their parent.
func (t *Tree) Normalize(current modpath.Path) (*Tree, error) {
	if isAmbient(t.Path) && len(t.Children) > 0 {
		children := make([]*Tree, 0, len(t.Children))
		for _, child := range t.Children {
			normalized, err := child.Normalize(current)
			if err != nil {
				return nil, err
			}
			children = append(children, normalized)
		}
		return &Tree{Path: ambient(), Children: children}, nil
	}

	path, err := t.Path.Transform(current)
	if err != nil {
		return nil, err
	}
	return &Tree{Path: path, Children: t.Children}, nil
}

// Mods flattens the tree into concrete module paths, expanding every branch
// onto its parent's path from left to right.
func (t *Tree) Mods() []modpath.Path {
	if len(t.Children) == 0 {
		return []modpath.Path{modpath.New(t.Path.Prefix, t.Path.Segments...)}
	}
	var out []modpath.Path
	for _, child := range t.Children {
		for _, mod := range child.Mods() {
			out = append(out, join(t.Path, mod))
		}
	}
	return out
}

// join appends a continuation onto parent; resolved paths stand on their own.
func join(parent, child modpath.Path) modpath.Path {
	if child.Prefix.Kind == modpath.Relative && child.Prefix.Depth == 0 {
		return parent.Append(child.Segments...)
	}
	return child
}
