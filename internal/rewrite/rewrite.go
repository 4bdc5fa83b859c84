// SPDX-License-Identifier: MPL-2.0

// Package rewrite turns source files written with `%` module references into
// plain Scala: the package clause becomes a registry-qualified name and gains
// alias imports for every `%` prefix, while `%` imports are resolved so the
// registry can sweep the modules they name.
package rewrite

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/carsier/carsier/internal/importtree"
	"github.com/carsier/carsier/internal/modpath"
)

const (
	packageKeyword = "package"
	importKeyword  = "import"
	statementSep   = ";"
	tripleQuote    = `"""`

	// maxLineSize bounds a single source line. Generated sources can carry very
	// long lines, well beyond bufio's 64 KiB default.
	maxLineSize = 4 << 20
)

var (
	// ErrMalformedPackage is returned when a `%` package clause carries more than a path.
	ErrMalformedPackage = errors.New("malformed package clause")
	// ErrUnanchoredPackage is returned when a package resolves to a path that is
	// not below the source root and therefore has no qualified name.
	ErrUnanchoredPackage = errors.New("package does not resolve below the source root")
)

type (
	// Rewriter rewrites the files of one crate.
	Rewriter struct {
		// Registry is the top-level package every crate lives in.
		Registry string
		// Crate is the project name.
		Crate string

		cache *importtree.Cache
	}

	// Result describes one rewritten file.
	Result struct {
		// Declared is false when the file has no package clause; such files
		// contribute nothing to the manifest.
		Declared bool
		// Package is the module the file belongs to after resolving its clause.
		Package modpath.Path
		// Imports lists every module named by `%` imports, resolved against Package.
		Imports []modpath.Path
	}

	// LineError locates a rewrite failure.
	LineError struct {
		Line int
		Text string
		Err  error
	}

	span struct {
		start, end int
	}

	// lexState is what maskNonCode carries from one line to the next.
	lexState struct {
		depth int  // block comment nesting
		raw   bool // inside a """ literal
	}
)

// New creates a Rewriter for crate inside registry. A nil cache parses every
// import expression afresh.
func New(registry, crate string, cache *importtree.Cache) *Rewriter {
	return &Rewriter{Registry: registry, Crate: crate, cache: cache}
}

// Error implements the error interface for LineError.
func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v\n  %s", e.Line, e.Err, strings.TrimSpace(e.Text))
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *LineError) Unwrap() error { return e.Err }

// Rewrite copies r to w line by line. current is the module derived from the
// file's location; a `%` package clause is resolved against it. Line numbers
// are preserved: everything synthesized for the package clause stays on the
// clause's line.
func (rw *Rewriter) Rewrite(r io.Reader, w io.Writer, current modpath.Path) (Result, error) {
	var (
		res      Result
		lex      lexState
		lineNo   int
		sawCode  bool
		inactive bool
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	bw := bufio.NewWriter(w)

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		code := maskNonCode(line, &lex)
		out := line

		if !inactive {
			for _, st := range statements(code) {
				text := code[st.start:st.end]
				if !sawCode {
					sawCode = true
					if !hasKeyword(text, packageKeyword) {
						// No package clause: nothing below can be resolved.
						inactive = true
						break
					}
					replacement, n, err := rw.declare(&res, text, current)
					if err != nil {
						return Result{}, &LineError{Line: lineNo, Text: line, Err: err}
					}
					if replacement != "" {
						out = line[:st.start] + replacement + line[st.start+n:]
					}
					continue
				}
				if hasKeyword(text, importKeyword) {
					if err := rw.collect(&res, text); err != nil {
						return Result{}, &LineError{Line: lineNo, Text: line, Err: err}
					}
				}
			}
		}

		if _, err := bw.WriteString(out); err != nil {
			return Result{}, err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return Result{}, err
		}
	}
	if err := scanner.Err(); err != nil {
		return Result{}, fmt.Errorf("read source: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return Result{}, err
	}
	return res, nil
}

// declare handles the package statement. It returns the text replacing the
// first n bytes of stmt, or "" when the statement stays as written. In a
// packaging block, `package %.a {`, only the clause up to the brace is
// replaced and the alias imports open the block.
func (rw *Rewriter) declare(res *Result, stmt string, current modpath.Path) (string, int, error) {
	clause, braced := stmt, false
	if i := strings.IndexByte(stmt, '{'); i >= 0 {
		clause, braced = stmt[:i+1], true
	}
	fields := strings.Fields(strings.TrimSuffix(clause[len(packageKeyword):], "{"))
	if len(fields) == 0 {
		return "", 0, ErrMalformedPackage
	}

	if !strings.HasPrefix(fields[0], modpath.Sentinel) {
		declared, err := modpath.Parse(fields[0])
		if err != nil {
			return "", 0, err
		}
		res.Declared, res.Package = true, declared
		return "", 0, nil
	}

	if len(fields) != 1 {
		return "", 0, ErrMalformedPackage
	}
	declared, err := modpath.Parse(fields[0])
	if err != nil {
		return "", 0, err
	}
	actual, err := declared.Transform(current.Anchor())
	if err != nil {
		return "", 0, err
	}
	if actual.Prefix.Kind != modpath.Absolute {
		return "", 0, fmt.Errorf("%w: %s", ErrUnanchoredPackage, actual)
	}

	res.Declared, res.Package = true, actual
	return rw.packageClause(actual, braced), len(clause), nil
}

// packageClause renders the qualified package clause and its alias chain. For
// module a.b of crate demo in registry crates:
//
//	package crates.demo.a.b; import crates.{demo => %}; import crates.{demo => %^^};
//	import crates.demo.{a => %^}; import crates.demo.a.{b => %%}
//
// all on one line. A braced clause opens the block before the imports and
// ends them with a separator.
func (rw *Rewriter) packageClause(actual modpath.Path, braced bool) string {
	registry := []string{rw.Registry}
	segs := actual.Segments
	aliases := []string{
		alias(registry, rw.Crate, modpath.AbsolutePrefix()),
		alias(registry, rw.Crate, modpath.RelativePrefix(len(segs))),
	}
	owner := []string{rw.Registry, rw.Crate}
	for i, seg := range segs {
		aliases = append(aliases, alias(owner, seg, modpath.RelativePrefix(len(segs)-i-1)))
		owner = append(owner, seg)
	}

	head := packageKeyword + " " + rw.QualifiedName(actual)
	imports := strings.Join(aliases, statementSep+" ")
	if braced {
		return head + " { " + imports + statementSep
	}
	return head + statementSep + " " + imports
}

func alias(owner []string, name string, prefix modpath.Prefix) string {
	return fmt.Sprintf("%s %s.{%s => %s}", importKeyword,
		strings.Join(owner, modpath.Separator), name, prefix)
}

// QualifiedName returns the host-language package of an absolute module path.
func (rw *Rewriter) QualifiedName(p modpath.Path) string {
	parts := append([]string{rw.Registry, rw.Crate}, p.Segments...)
	return strings.Join(parts, modpath.Separator)
}

// collect resolves a `%` import statement. Other imports are left to the compiler.
func (rw *Rewriter) collect(res *Result, stmt string) error {
	expr := strings.TrimSpace(stmt[len(importKeyword):])
	if !strings.HasPrefix(expr, modpath.Sentinel) {
		return nil
	}
	tree, err := rw.cache.Parse(expr)
	if err != nil {
		return err
	}
	normalized, err := tree.Normalize(res.Package.Anchor())
	if err != nil {
		return err
	}
	res.Imports = append(res.Imports, normalized.Mods()...)
	return nil
}

// hasKeyword reports whether stmt starts with kw as a whole word.
func hasKeyword(stmt, kw string) bool {
	if !strings.HasPrefix(stmt, kw) {
		return false
	}
	rest := stmt[len(kw):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

// statements splits code on ';' and returns the trimmed, non-empty spans.
func statements(code string) []span {
	var out []span
	start := 0
	for i := 0; i <= len(code); i++ {
		if i < len(code) && code[i] != ';' {
			continue
		}
		s, e := start, i
		for s < e && isSpace(code[s]) {
			s++
		}
		for e > s && isSpace(code[e-1]) {
			e--
		}
		if s < e {
			out = append(out, span{start: s, end: e})
		}
		start = i + 1
	}
	return out
}

// maskNonCode returns line with every byte inside a comment or a literal
// replaced by a space, so offsets into the result are valid offsets into line.
// Quote characters stay. st carries block comments and triple-quoted strings
// across lines; Scala block comments nest.
func maskNonCode(line string, st *lexState) string {
	b := []byte(line)
	blank := func(from, to int) {
		for i := from; i < to; i++ {
			b[i] = ' '
		}
	}

	for i := 0; i < len(b); {
		switch {
		case st.raw:
			if !strings.HasPrefix(line[i:], tripleQuote) {
				b[i] = ' '
				i++
				continue
			}
			// The last three quotes of a run close the literal.
			n := len(line[i:]) - len(strings.TrimLeft(line[i:], `"`))
			blank(i, i+n-len(tripleQuote))
			i += n
			st.raw = false
		case st.depth > 0 && strings.HasPrefix(line[i:], "*/"):
			st.depth--
			blank(i, i+2)
			i += 2
		case strings.HasPrefix(line[i:], "/*"):
			st.depth++
			blank(i, i+2)
			i += 2
		case st.depth > 0:
			b[i] = ' '
			i++
		case strings.HasPrefix(line[i:], "//"):
			blank(i, len(b))
			i = len(b)
		case strings.HasPrefix(line[i:], tripleQuote):
			st.raw = true
			i += len(tripleQuote)
		case b[i] == '"':
			end := skipString(line, i)
			if end > i+1 && line[end-1] == '"' {
				blank(i+1, end-1)
			} else {
				blank(i+1, end)
			}
			i = end
		case b[i] == '\'':
			if end := charLiteralEnd(line, i); end > 0 {
				blank(i+1, end-1)
				i = end
				continue
			}
			i++
		default:
			i++
		}
	}
	return string(b)
}

// skipString returns the offset just past the string literal opening at i, or
// the end of line for an unterminated one.
func skipString(line string, i int) int {
	for j := i + 1; j < len(line); j++ {
		switch line[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(line)
}

// charLiteralEnd returns the offset just past the character literal opening
// at i, or -1 when the quote starts a symbol or a type variable instead.
func charLiteralEnd(line string, i int) int {
	if i+2 < len(line) && line[i+1] != '\\' && line[i+2] == '\'' {
		return i + 3
	}
	if i+3 < len(line) && line[i+1] == '\\' {
		// '\'', '\n', '\u0022'
		if n := strings.IndexByte(line[i+3:], '\''); n >= 0 && n <= 4 {
			return i + 3 + n + 1
		}
	}
	return -1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r'
}
