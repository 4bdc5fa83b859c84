// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the global flags shared by every subcommand.
type rootFlagValues struct {
	workdir    string
	configPath string
	verbose    bool
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "carsier",
		Short: "A Cargo-style build tool for Scala",
		Long: TitleStyle.Render("carsier") + SubtitleStyle.Render(" - a Cargo-style build tool for Scala") + `

carsier builds Scala projects described by a Carsier.toml file. Sources
use module-relative package clauses and imports ('package %%;',
'import %.util.{a, b};') that carsier rewrites into plain Scala before
handing them to scalac. Dependencies are resolved with coursier.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Create a project with: carsier new hello
  2. Build it with:         carsier build
  3. Rebuild on change:     carsier watch

` + SubtitleStyle.Render("Examples:") + `
  carsier build --release       Build optimized jars
  carsier build --features tls  Enable the 'tls' feature
  carsier tree                  Show the module import graph
  carsier config show           Show current configuration`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.workdir, "workdir", "C", "", "run as if carsier was started in this directory")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $HOME/.config/carsier/config.cue)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(
		newBuildCommand(app, flags),
		newResolveCommand(app, flags),
		newPreprocessCommand(app, flags),
		newFilesCommand(app, flags),
		newTreeCommand(app, flags),
		newWatchCommand(app, flags),
		newInitCommand(app, flags),
		newNewCommand(app, flags),
		newConfigCommand(app, flags),
		newExtCommand(app, flags),
		newCompletionCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

// handleError prints a failed command's error followed by the catalog entry
// explaining it. An ExitError without a cause prints nothing: the child
// process already reported.
func (a *App) handleError(w io.Writer, _ fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, a.verbose))

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		renderServiceError(w, svcErr)
	}
}

// Execute runs the CLI and exits with the command's status. It is called by
// main.main.
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:"), err)
		os.Exit(1)
	}

	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(app.handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
