// SPDX-License-Identifier: MPL-2.0

// Package registry runs the rewriter over a source tree and collects the
// manifest: which units implement which module, and which features each unit
// requires.
package registry

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/carsier/carsier/internal/dag"
	"github.com/carsier/carsier/internal/filecache"
	"github.com/carsier/carsier/internal/modpath"
	"github.com/carsier/carsier/internal/rewrite"
)

const (
	// DefaultInclude matches every Scala file below the source root.
	DefaultInclude = "**/*.scala"
	// DefaultExt is the extension of source files.
	DefaultExt = ".scala"
)

type (
	// Registry drives the rewriter over a source tree.
	Registry struct {
		// SourceRoot is the directory module paths are derived from.
		SourceRoot string
		// Include is a doublestar pattern, relative to SourceRoot, selecting the
		// files processed up front. Files reached through `%` imports are
		// processed whether they match or not.
		Include string
		// Ext is the source file extension used to locate imported modules.
		Ext string
		// OutDir receives the rewritten copies, mirroring SourceRoot.
		OutDir string
		// ManifestPath is where Build persists the manifest; empty skips it.
		ManifestPath string
		// Start, when set, replaces Include: the sweep begins at these modules.
		Start []modpath.Path
		// Rewriter rewrites each file.
		Rewriter *rewrite.Rewriter
	}

	// Result is the outcome of one Build.
	Result struct {
		Manifest Manifest
		// Graph has an edge from every imported module to its importer.
		Graph *dag.Graph
		// Dep is Touched when any rewritten copy or the manifest changed.
		Dep filecache.FileDep
	}

	sweep struct {
		reg    *Registry
		fsys   fs.FS
		queue  []string
		seen   map[string]bool
		result Result
	}
)

// ParseEntry parses the argument of --entry-path: "bin", "lib", or a module
// path with or without its leading `%`.
func ParseEntry(s string) (modpath.Path, error) {
	switch s {
	case modpath.BinEntry, modpath.LibEntry:
		return modpath.New(modpath.EntryPointPrefix(s)), nil
	}
	if !strings.HasPrefix(s, modpath.Sentinel) {
		s = modpath.Sentinel + modpath.Separator + s
	}
	p, err := modpath.Parse(s)
	if err != nil {
		return modpath.Path{}, err
	}
	if p.Prefix.Kind != modpath.Absolute {
		return modpath.Path{}, fmt.Errorf("entry path %q must be absolute", s)
	}
	return p, nil
}

// Build processes the source tree and returns the manifest.
func (r *Registry) Build(ctx context.Context) (Result, error) {
	sw := &sweep{
		reg:  r,
		fsys: os.DirFS(r.SourceRoot),
		seen: make(map[string]bool),
		result: Result{
			Manifest: Manifest{},
			Graph:    dag.New(),
		},
	}

	seeds, err := r.seeds(sw.fsys)
	if err != nil {
		return Result{}, err
	}
	sw.queue = seeds

	for len(sw.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		file := sw.queue[0]
		sw.queue = sw.queue[1:]
		if sw.seen[file] {
			continue
		}
		sw.seen[file] = true
		if err := sw.process(file); err != nil {
			return Result{}, err
		}
	}

	slog.Debug("preprocessed sources", "files", len(sw.seen), "modules", len(sw.result.Manifest))

	if r.ManifestPath != "" {
		dep, err := sw.result.Manifest.Save(r.ManifestPath)
		if err != nil {
			return Result{}, fmt.Errorf("save manifest: %w", err)
		}
		sw.result.Dep = sw.result.Dep.Or(dep)
	}
	return sw.result, nil
}

func (r *Registry) ext() string {
	if r.Ext == "" {
		return DefaultExt
	}
	return r.Ext
}

func (r *Registry) seeds(fsys fs.FS) ([]string, error) {
	if len(r.Start) > 0 {
		var files []string
		for _, start := range r.Start {
			found, err := r.exactFiles(fsys, start)
			if err != nil {
				return nil, err
			}
			if len(found) == 0 {
				return nil, fmt.Errorf("no source files for entry path %s", start)
			}
			files = append(files, found...)
		}
		return files, nil
	}

	include := r.Include
	if include == "" {
		include = DefaultInclude
	}
	files, err := doublestar.Glob(fsys, include, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("match %q in %s: %w", include, r.SourceRoot, err)
	}
	slices.Sort(files)
	return files, nil
}

// exactFiles returns the files implementing exactly module p.
func (r *Registry) exactFiles(fsys fs.FS, p modpath.Path) ([]string, error) {
	var stems []string
	switch p.Prefix.Kind {
	case modpath.EntryPoint:
		stem := modpath.MainStem
		if p.Prefix.Name == modpath.LibEntry {
			stem = modpath.LibStem
		}
		stems = []string{stem}
	case modpath.Absolute:
		if len(p.Segments) == 0 {
			stems = []string{modpath.MainStem, modpath.LibStem}
		} else {
			dir := path.Join(p.Segments...)
			stems = []string{dir, path.Join(dir, modpath.LibStem)}
		}
	default:
		return nil, nil
	}

	ext := r.ext()
	var files []string
	for _, stem := range stems {
		if isFile(fsys, stem+ext) {
			files = append(files, stem+ext)
		}
		variants, err := doublestar.Glob(fsys, stem+"-*"+ext, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("match variants of %s: %w", stem, err)
		}
		files = append(files, variants...)
	}
	slices.Sort(files)
	return files, nil
}

// moduleFiles finds the files behind an import. Imports may name a member of a
// module (`%.util.Helper`), so the path is shortened until files are found.
func (r *Registry) moduleFiles(fsys fs.FS, p modpath.Path) ([]string, error) {
	for n := len(p.Segments); n >= 0; n-- {
		files, err := r.exactFiles(fsys, modpath.New(p.Prefix, p.Segments[:n]...))
		if err != nil {
			return nil, err
		}
		if len(files) > 0 {
			return files, nil
		}
	}
	return nil, nil
}

func isFile(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	return err == nil && !info.IsDir()
}

// process rewrites one file, given relative to the source root in slash form.
func (sw *sweep) process(rel string) error {
	reg := sw.reg
	src := filepath.Join(reg.SourceRoot, filepath.FromSlash(rel))

	current, features, err := modpath.FromPath(src, reg.SourceRoot)
	if err != nil {
		return fmt.Errorf("derive module of %s: %w", src, err)
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = f.Close() }() // Read-only file; close error is non-actionable.

	var buf bytes.Buffer
	res, err := reg.Rewriter.Rewrite(f, &buf, current)
	if err != nil {
		return fmt.Errorf("preprocess %s: %w", src, err)
	}
	if !res.Declared {
		slog.Debug("skipping file without package clause", "file", src)
		return nil
	}
	if res.Package.Prefix.Kind == modpath.Absolute && !res.Package.Equal(current.Anchor()) {
		slog.Warn("package clause does not match file location",
			"file", src, "package", res.Package.String(), "location", current.Anchor().String())
	}

	out := filepath.Join(reg.OutDir, filepath.FromSlash(rel))
	dep, err := filecache.CompareAndWrite(out, buf.Bytes())
	if err != nil {
		return fmt.Errorf("write rewritten %s: %w", src, err)
	}
	sw.result.Dep = sw.result.Dep.Or(dep)

	key := current.String()
	sw.result.Manifest.Add(key, Unit{
		Path:     filepath.ToSlash(out),
		Source:   filepath.ToSlash(src),
		Features: features,
	})
	sw.result.Graph.AddNode(key)

	for _, imp := range res.Imports {
		if imp.Prefix.Kind != modpath.Absolute {
			continue // external package, left to the classpath
		}
		files, err := reg.moduleFiles(sw.fsys, imp)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			slog.Warn("no source files for imported module", "module", imp.String(), "file", src)
			continue
		}
		for _, file := range files {
			imported, _, err := modpath.FromPath(filepath.Join(reg.SourceRoot, filepath.FromSlash(file)), reg.SourceRoot)
			if err != nil {
				return fmt.Errorf("derive module of %s: %w", file, err)
			}
			if importedKey := imported.String(); importedKey != key {
				sw.result.Graph.AddEdge(importedKey, key)
			}
			if !sw.seen[file] {
				sw.queue = append(sw.queue, file)
			}
		}
	}
	return nil
}
