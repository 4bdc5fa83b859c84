// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carsier/carsier/internal/app/build"
	"github.com/carsier/carsier/internal/watch"
)

func newWatchCommand(app *App, root *rootFlagValues) *cobra.Command {
	flags := &buildFlagValues{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build, then rebuild whenever a source, resource or Carsier.toml changes",
		Long: `Build the project once, then watch its sources, resources and project
file and rebuild after every burst of changes. A change to Carsier.toml
reloads the project before rebuilding. Stop with Ctrl+C.

The quiet period, extra ignore patterns and screen clearing are set in the
'watch' block of the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return wrapError(runWatch(cmd, app, root, flags))
		},
	}
	flags.registerProfile(cmd)
	flags.registerFeatures(cmd)
	flags.registerTargets(cmd)
	return cmd
}

func runWatch(cmd *cobra.Command, app *App, root *rootFlagValues, flags *buildFlagValues) error {
	s, err := app.openSession(cmd.Context(), root, "watch", true)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	var p *build.Pipeline
	// reload recomputes everything derived from the project file.
	reload := func() error {
		opts, err := flags.options(cmd, s)
		if err != nil {
			return err
		}
		p, err = app.pipeline(s, opts)
		return err
	}
	if err := reload(); err != nil {
		return err
	}

	rebuild := func() {
		if err := buildOnce(cmd, app, s, p); err != nil {
			fmt.Fprintf(app.stderr, "%s %s\n", ErrorStyle.Render("error:"), formatErrorForDisplay(err, s.verbose))
		}
	}
	rebuild()

	cfg, err := watch.ForProject(s.project, s.cfg.Watch)
	if err != nil {
		return err
	}
	cfg.Stdout = app.stdout
	cfg.OnChange = func(_ context.Context, changed []string) error {
		fmt.Fprint(app.stderr, status("Changed", "%d file(s)", len(changed)))
		if watch.TouchesProjectFile(changed) {
			project, err := loadProject(s.project.Dir)
			if err != nil {
				return err
			}
			s.project = project
			if err := reload(); err != nil {
				return err
			}
		}
		rebuild()
		return nil
	}

	w, err := watch.New(cfg)
	if err != nil {
		return err
	}
	fmt.Fprint(app.stderr, status("Watching", "%s (Ctrl+C to stop)", s.project.Dir))
	return w.Run(cmd.Context())
}
