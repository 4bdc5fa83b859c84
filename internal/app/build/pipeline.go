// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/carsier/carsier/internal/config"
	"github.com/carsier/carsier/internal/filecache"
	"github.com/carsier/carsier/internal/importtree"
	"github.com/carsier/carsier/internal/modpath"
	"github.com/carsier/carsier/internal/registry"
	"github.com/carsier/carsier/internal/rewrite"
	"github.com/carsier/carsier/internal/target"
	"github.com/carsier/carsier/internal/toolchain"
	"github.com/carsier/carsier/pkg/carsierfile"
)

// Layout of the target directory.
const (
	// SourcesDir receives the rewritten sources.
	SourcesDir = "src"
	// ManifestFile is the module manifest.
	ManifestFile = "mods.json"
	// FilesDir holds one file list per target.
	FilesDir = "files"
)

// ErrProjectRequired is returned by New when Options.Project is nil.
var ErrProjectRequired = errors.New("project file is required")

type (
	// Options configures a Pipeline.
	//
	// Project is required. Config defaults to config.DefaultConfig(), Runner to
	// toolchain.ExecRunner and Environ to os.Environ().
	Options struct {
		Project *carsierfile.File
		Config  *config.Config
		Runner  toolchain.Runner

		Profile  target.Profile
		Features modpath.Features
		// Kinds restricts the targets; empty builds every discovered target.
		Kinds []target.Kind
		// EntryPaths start the preprocessing sweep at the given modules
		// instead of the project's include pattern.
		EntryPaths []modpath.Path

		Environ []string
	}

	// Pipeline runs the build stages of one project. Stages are sequential and
	// each is skipped when its inputs did not change.
	Pipeline struct {
		opts      Options
		targetDir string
		resolver  *toolchain.Resolver
		compiler  *toolchain.Compiler
		packager  *toolchain.Packager
		registry  *registry.Registry
	}

	// Preprocessed is the outcome of the preprocessing stage.
	Preprocessed struct {
		registry.Result
		ManifestPath string
	}

	// FileList is the file list of one target.
	FileList struct {
		Target target.Target
		Path   string
		Files  []string
		Dep    filecache.FileDep
	}

	// Artifact is one built jar.
	Artifact struct {
		Target target.Target
		Jar    string
		// Rebuilt is false when the jar was already up to date.
		Rebuilt bool
	}
)

// New prepares a pipeline. It loads the compiler environment files and
// splits the configured compiler arguments.
func New(opts Options) (*Pipeline, error) {
	if opts.Project == nil {
		return nil, ErrProjectRequired
	}
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Runner == nil {
		opts.Runner = toolchain.ExecRunner{}
	}
	if opts.Environ == nil {
		opts.Environ = os.Environ()
	}

	project := opts.Project
	targetDir, err := filepath.Abs(project.TargetDir())
	if err != nil {
		return nil, fmt.Errorf("resolve target directory: %w", err)
	}
	sourceRoot, err := filepath.Abs(project.SourceRoot())
	if err != nil {
		return nil, fmt.Errorf("resolve source root: %w", err)
	}

	args, err := toolchain.SplitArgs(opts.Config.Compiler.Args)
	if err != nil {
		return nil, fmt.Errorf("compiler.args: %w", err)
	}
	env, err := toolchain.Environ(opts.Environ, project.Dir, opts.Config.Compiler.EnvFiles)
	if err != nil {
		return nil, fmt.Errorf("compiler.env_files: %w", err)
	}

	cache, err := importtree.NewCache(importtree.DefaultCacheSize)
	if err != nil {
		return nil, err
	}

	tools := opts.Config.Tools
	return &Pipeline{
		opts:      opts,
		targetDir: targetDir,
		resolver: &toolchain.Resolver{
			Runner:    opts.Runner,
			Coursier:  tools.Coursier.String(),
			TargetDir: targetDir,
		},
		compiler: &toolchain.Compiler{
			Runner:    opts.Runner,
			Scalac:    tools.Scalac.String(),
			Args:      args,
			Env:       env,
			TargetDir: targetDir,
		},
		packager: &toolchain.Packager{
			Runner:     opts.Runner,
			Jar:        tools.Jar.String(),
			ProjectDir: project.Dir,
			TargetDir:  targetDir,
		},
		registry: &registry.Registry{
			SourceRoot:   sourceRoot,
			Include:      project.Build.Include,
			OutDir:       filepath.Join(targetDir, SourcesDir),
			ManifestPath: filepath.Join(targetDir, ManifestFile),
			Start:        opts.EntryPaths,
			Rewriter:     rewrite.New(project.Package.Registry, project.Package.Name, cache),
		},
	}, nil
}

// TargetDir returns the absolute directory of generated files.
func (p *Pipeline) TargetDir() string { return p.targetDir }

// Resolve runs dependency resolution and warns about direct dependencies
// resolved outside their declared range.
func (p *Pipeline) Resolve(ctx context.Context) (toolchain.Resolution, error) {
	depsIn, err := p.opts.Project.DepsIn()
	if err != nil {
		return toolchain.Resolution{}, err
	}
	res, err := p.resolver.Resolve(ctx, depsIn)
	if err != nil {
		return toolchain.Resolution{}, fmt.Errorf("resolve dependencies: %w", err)
	}
	for _, mismatch := range p.opts.Project.CheckResolved(res.Resolved) {
		slog.Warn("resolved version outside the declared range", "dependency", mismatch)
	}
	return res, nil
}

// Preprocess rewrites the sources and saves the manifest.
func (p *Pipeline) Preprocess(ctx context.Context) (Preprocessed, error) {
	res, err := p.registry.Build(ctx)
	if err != nil {
		return Preprocessed{}, err
	}
	if order, err := res.Graph.TopologicalSort(); err != nil {
		slog.Warn("module imports form a cycle", "error", err)
	} else {
		slog.Debug("module order", "modules", order)
	}
	return Preprocessed{Result: res, ManifestPath: p.registry.ManifestPath}, nil
}

// Targets discovers the targets to build, filtered by Options.Kinds.
func (p *Pipeline) Targets() ([]target.Target, error) {
	found, err := target.Discover(p.registry.SourceRoot, registry.DefaultExt, p.opts.Profile, p.opts.Features)
	if err != nil {
		return nil, err
	}
	if len(p.opts.Kinds) == 0 {
		return found, nil
	}

	var targets []target.Target
	for _, kind := range p.opts.Kinds {
		matched := false
		for _, t := range found {
			if t.Kind == kind {
				targets = append(targets, t)
				matched = true
			}
		}
		if !matched {
			return nil, &target.EntryPointError{Key: kind.EntryKey()}
		}
	}
	return targets, nil
}

// Files writes the file list of every target for manifest m.
func (p *Pipeline) Files(targets []target.Target, m registry.Manifest) ([]FileList, error) {
	dir := filepath.Join(p.targetDir, FilesDir)
	lists := make([]FileList, 0, len(targets))
	for _, t := range targets {
		files, err := target.SrcFiles(t, m)
		if err != nil {
			return nil, err
		}
		path, dep, err := target.WriteFileList(dir, t, files)
		if err != nil {
			return nil, err
		}
		lists = append(lists, FileList{Target: t, Path: path, Files: files, Dep: dep})
	}
	return lists, nil
}

// Build runs every stage and returns the artifacts in target order.
func (p *Pipeline) Build(ctx context.Context) ([]Artifact, error) {
	resolution, err := p.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	pre, err := p.Preprocess(ctx)
	if err != nil {
		return nil, err
	}
	targets, err := p.Targets()
	if err != nil {
		return nil, err
	}
	lists, err := p.Files(targets, pre.Manifest)
	if err != nil {
		return nil, err
	}

	includes := make([]string, 0, len(p.opts.Project.Resources))
	for _, r := range p.opts.Project.Resources {
		includes = append(includes, r.Include)
	}

	artifacts := make([]Artifact, 0, len(lists))
	for _, list := range lists {
		jar, dep, err := p.compiler.Compile(ctx, toolchain.CompileInput{
			Target:        list.Target,
			FileList:      list.Path,
			SourcePath:    p.registry.OutDir,
			ClasspathFile: resolution.ClasspathFile,
			Upstream:      resolution.Dep.Or(pre.Dep).Or(list.Dep),
		})
		if err != nil {
			return nil, err
		}
		if err := p.packager.Package(ctx, jar, dep, includes); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, Artifact{Target: list.Target, Jar: jar, Rebuilt: dep.Changed()})
	}
	return artifacts, nil
}
