// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// ExtPrefix is prepended to the name given to 'carsier ext'.
const ExtPrefix = "carsier-"

func newExtCommand(app *App, root *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "ext <name> [args...]",
		Short: "Run the external sub-command carsier-<name>",
		Long: `Run the executable carsier-<name> found in PATH with the remaining
arguments. Its exit status becomes carsier's. The variables CARSIER and
CARSIER_WORKDIR tell the extension how it was started.`,
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExt(cmd, app, root, args)
		},
	}
}

func runExt(cmd *cobra.Command, app *App, root *rootFlagValues, args []string) error {
	if args[0] == "-h" || args[0] == "--help" {
		return cmd.Help()
	}
	name := ExtPrefix + args[0]
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("no such sub-command %q: %w", args[0], err)
	}

	self, err := os.Executable()
	if err != nil {
		self = "carsier"
	}
	child := exec.CommandContext(cmd.Context(), path, args[1:]...)
	child.Dir = root.workdir
	child.Stdin = os.Stdin
	child.Stdout = app.stdout
	child.Stderr = app.stderr
	child.Env = append(os.Environ(), "CARSIER="+self, "CARSIER_WORKDIR="+root.workdir)

	if err := child.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}
