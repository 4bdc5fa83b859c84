// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/carsier/carsier/internal/app/build"
	"github.com/carsier/carsier/internal/issue"
	"github.com/carsier/carsier/internal/registry"
	"github.com/carsier/carsier/internal/target"
)

// buildFlagValues holds the flags selecting what to build.
type buildFlagValues struct {
	release    bool
	profile    string
	features   []string
	noDefault  bool
	bin        bool
	lib        bool
	entryPaths []string
}

func (f *buildFlagValues) registerFeatures(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.features, "features", "F", nil, "features to enable (comma or space separated)")
	cmd.Flags().BoolVar(&f.noDefault, "no-default-features", false, "do not enable the 'default' feature")
}

func (f *buildFlagValues) registerProfile(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.release, "release", "r", false, "build with the release profile")
	cmd.Flags().StringVar(&f.profile, "profile", "", "build profile (debug, release)")
	cmd.MarkFlagsMutuallyExclusive("release", "profile")
}

func (f *buildFlagValues) registerTargets(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.bin, "bin", false, "only the binary target (src/main.scala)")
	cmd.Flags().BoolVar(&f.lib, "lib", false, "only the library target (src/lib.scala)")
}

func (f *buildFlagValues) registerEntryPaths(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.entryPaths, "entry-path", nil, "start preprocessing at this module ('bin', 'lib' or a.b.c); repeatable")
}

// options turns the flags into pipeline options, falling back to the
// configuration for anything not given on the command line.
func (f *buildFlagValues) options(cmd *cobra.Command, s *session) (build.Options, error) {
	var opts build.Options

	override := f.profile
	if f.release {
		override = target.Release.String()
	}
	profile, err := build.ResolveProfile(override, s.cfg)
	if err != nil {
		return opts, err
	}
	opts.Profile = profile

	var req build.FeatureRequest
	if cmd.Flags().Changed("features") {
		req.Features = []string{}
		for _, value := range f.features {
			req.Features = append(req.Features, strings.Fields(value)...)
		}
	}
	if cmd.Flags().Changed("no-default-features") {
		req.NoDefault = &f.noDefault
	}
	opts.Features = build.ResolveFeatures(req, s.cfg, s.project)

	if f.bin {
		opts.Kinds = append(opts.Kinds, target.Bin)
	}
	if f.lib {
		opts.Kinds = append(opts.Kinds, target.Lib)
	}

	for _, raw := range f.entryPaths {
		p, err := registry.ParseEntry(raw)
		if err != nil {
			return opts, fmt.Errorf("--entry-path %q: %w", raw, err)
		}
		opts.EntryPaths = append(opts.EntryPaths, p)
	}
	return opts, nil
}

func newBuildCommand(app *App, root *rootFlagValues) *cobra.Command {
	flags := &buildFlagValues{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Resolve, preprocess, compile and package the project",
		Long: `Build every target of the project.

Each stage is skipped when its inputs did not change since the last build:
dependencies are resolved into target/deps.classpath, sources are rewritten
into target/src, and each target is compiled into
target/build/<profile>/<target>.jar together with the project resources.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return wrapError(runBuild(cmd, app, root, flags))
		},
	}
	flags.registerProfile(cmd)
	flags.registerFeatures(cmd)
	flags.registerTargets(cmd)
	flags.registerEntryPaths(cmd)
	return cmd
}

func runBuild(cmd *cobra.Command, app *App, root *rootFlagValues, flags *buildFlagValues) error {
	ctx := cmd.Context()
	s, err := app.openSession(ctx, root, "build", true)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	opts, err := flags.options(cmd, s)
	if err != nil {
		return err
	}
	p, err := app.pipeline(s, opts)
	if err != nil {
		return err
	}
	return buildOnce(cmd, app, s, p)
}

// buildOnce runs the pipeline and reports every artifact.
func buildOnce(cmd *cobra.Command, app *App, s *session, p *build.Pipeline) error {
	start := time.Now()
	artifacts, err := p.Build(cmd.Context())
	if err != nil {
		return err
	}

	profile := target.Debug
	for _, a := range artifacts {
		profile = a.Target.Profile
		verb := "Fresh"
		if a.Rebuilt {
			verb = "Compiled"
		}
		fmt.Fprint(app.stderr, status(verb, "%s (%s)", a.Target.Name(), relPath(s.project.Dir, a.Jar)))
	}
	fmt.Fprint(app.stderr, status("Finished", "%s target(s) in %.2fs", profile, time.Since(start).Seconds()))
	return nil
}

func newResolveCommand(app *App, root *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Resolve dependencies into target/deps.classpath",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return wrapError(runResolve(cmd, app, root))
		},
	}
}

func runResolve(cmd *cobra.Command, app *App, root *rootFlagValues) error {
	ctx := cmd.Context()
	s, err := app.openSession(ctx, root, "resolve", true)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	p, err := app.pipeline(s, build.Options{})
	if err != nil {
		return err
	}
	res, err := p.Resolve(ctx)
	if err != nil {
		return err
	}
	for _, coord := range res.Resolved {
		fmt.Fprintln(app.stdout, coord)
	}
	verb := "Fresh"
	if res.Dep.Changed() {
		verb = "Resolved"
	}
	fmt.Fprint(app.stderr, status(verb, "%d dependencies", len(res.Resolved)))
	return nil
}

func newPreprocessCommand(app *App, root *rootFlagValues) *cobra.Command {
	flags := &buildFlagValues{}
	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Rewrite the sources into target/src and write the module manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return wrapError(runPreprocess(cmd, app, root, flags))
		},
	}
	flags.registerEntryPaths(cmd)
	return cmd
}

func runPreprocess(cmd *cobra.Command, app *App, root *rootFlagValues, flags *buildFlagValues) error {
	ctx := cmd.Context()
	s, err := app.openSession(ctx, root, "preprocess", true)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	opts, err := flags.options(cmd, s)
	if err != nil {
		return err
	}
	p, err := app.pipeline(s, opts)
	if err != nil {
		return err
	}
	pre, err := p.Preprocess(ctx)
	if err != nil {
		return err
	}
	verb := "Fresh"
	if pre.Dep.Changed() {
		verb = "Preprocessed"
	}
	fmt.Fprint(app.stderr, status(verb, "%d modules into %s", len(pre.Manifest),
		relPath(s.project.Dir, filepath.Join(p.TargetDir(), build.SourcesDir))))
	return nil
}

func newFilesCommand(app *App, root *rootFlagValues) *cobra.Command {
	flags := &buildFlagValues{}
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Write and print the source file list of each target",
		Long: `Write and print the source file list of each target.

The lists are computed from the manifest written by the last preprocess,
so run 'carsier preprocess' (or 'carsier build') first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return wrapError(runFiles(cmd, app, root, flags))
		},
	}
	flags.registerFeatures(cmd)
	flags.registerTargets(cmd)
	return cmd
}

func runFiles(cmd *cobra.Command, app *App, root *rootFlagValues, flags *buildFlagValues) error {
	s, err := app.openSession(cmd.Context(), root, "files", true)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	opts, err := flags.options(cmd, s)
	if err != nil {
		return err
	}
	p, err := app.pipeline(s, opts)
	if err != nil {
		return err
	}

	manifestPath := filepath.Join(p.TargetDir(), build.ManifestFile)
	m, err := registry.Load(manifestPath)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("read manifest").
			WithResource(manifestPath).
			WithSuggestion("Run 'carsier preprocess' first").
			Wrap(err).
			BuildError()
	}

	targets, err := p.Targets()
	if err != nil {
		return err
	}
	lists, err := p.Files(targets, m)
	if err != nil {
		return err
	}
	for _, list := range lists {
		fmt.Fprintf(app.stdout, "%s (%s)\n", CmdStyle.Render(list.Target.Name()), relPath(s.project.Dir, list.Path))
		for _, f := range list.Files {
			fmt.Fprintf(app.stdout, "  %s\n", relPath(s.project.Dir, f))
		}
	}
	return nil
}

func newTreeCommand(app *App, root *rootFlagValues) *cobra.Command {
	flags := &buildFlagValues{}
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the module import graph in dependency order",
		Long: `Preprocess the project and print every module after the modules it
imports, each followed by its imports. Import cycles are reported but do not
fail the command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return wrapError(runTree(cmd, app, root, flags))
		},
	}
	flags.registerEntryPaths(cmd)
	return cmd
}

func runTree(cmd *cobra.Command, app *App, root *rootFlagValues, flags *buildFlagValues) error {
	ctx := cmd.Context()
	s, err := app.openSession(ctx, root, "tree", true)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	opts, err := flags.options(cmd, s)
	if err != nil {
		return err
	}
	p, err := app.pipeline(s, opts)
	if err != nil {
		return err
	}
	pre, err := p.Preprocess(ctx)
	if err != nil {
		return err
	}

	graph := pre.Graph
	order, sortErr := graph.TopologicalSort()
	if sortErr != nil {
		fmt.Fprintf(app.stderr, "%s %v\n", WarningStyle.Render("warning:"), sortErr)
		order = graph.Nodes()
	}
	for _, node := range order {
		fmt.Fprintln(app.stdout, CmdStyle.Render(node))
		imports := graph.Predecessors(node)
		for i, dep := range imports {
			branch := "├─"
			if i == len(imports)-1 {
				branch = "└─"
			}
			fmt.Fprintf(app.stdout, "  %s %s\n", branch, dep)
		}
	}
	return nil
}

// relPath shortens p relative to the project for display.
func relPath(base, p string) string {
	if base == "" {
		return p
	}
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}
