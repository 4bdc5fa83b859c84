// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carsier/carsier/internal/config"
	"github.com/carsier/carsier/internal/issue"
	"github.com/carsier/carsier/internal/registry"
	"github.com/carsier/carsier/internal/target"
	"github.com/carsier/carsier/internal/toolchain"
	"github.com/carsier/carsier/pkg/carsierfile"
)

// ErrProjectExists is returned by init and new when the directory already
// holds a project file.
var ErrProjectExists = errors.New("project already exists")

type initFlagValues struct {
	name string
}

func newInitCommand(app *App, root *rootFlagValues) *cobra.Command {
	flags := &initFlagValues{}
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a new project in an existing directory",
		Long: `Create Carsier.toml, .gitignore and a hello-world src/main.scala in the
given directory (default: the working directory). Existing .gitignore and
source files are left alone. The package name defaults to the directory name
and the author is taken from git.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return wrapError(runInit(cmd.Context(), app, root, inWorkdir(root, dir), flags.name))
		},
	}
	cmd.Flags().StringVar(&flags.name, "name", "", "package name (default: the directory name)")
	return cmd
}

func newNewCommand(app *App, root *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "new <name>",
		Short: "Create a new project in a new directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := inWorkdir(root, args[0])
			if _, err := os.Stat(dir); err == nil {
				return fmt.Errorf("destination %s already exists", dir)
			}
			return wrapError(runInit(cmd.Context(), app, root, dir, filepath.Base(args[0])))
		},
	}
}

func runInit(ctx context.Context, app *App, root *rootFlagValues, dir, name string) error {
	s, err := app.openSession(ctx, root, "init", false)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if name == "" {
		name = filepath.Base(abs)
	}
	projectPath := filepath.Join(abs, carsierfile.FileName)
	if _, err := os.Stat(projectPath); err == nil {
		return issue.NewErrorContext().
			WithOperation("create project").
			WithResource(projectPath).
			WithSuggestion("Use 'carsier build' to build the existing project").
			Wrap(ErrProjectExists).
			BuildError()
	}

	manifest, err := carsierfile.Template(name, gitAuthor(ctx, app.Runner, s.cfg.Tools.Git))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(abs, "src"), 0o755); err != nil {
		return fmt.Errorf("create source directory: %w", err)
	}
	if err := os.WriteFile(projectPath, manifest, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", carsierfile.FileName, err)
	}
	for _, f := range []struct{ path, content string }{
		{filepath.Join(abs, ".gitignore"), carsierfile.GitIgnore},
		{filepath.Join(abs, "src", target.Bin.EntryFile(registry.DefaultExt)), carsierfile.MainSource},
	} {
		if err := writeIfMissing(f.path, f.content); err != nil {
			return err
		}
	}

	fmt.Fprint(app.stderr, status("Created", "package %s in %s", CmdStyle.Render(name), abs))
	return nil
}

// gitAuthor returns "name <email>" from git's user settings, or "" when git
// is unavailable or has no user.
func gitAuthor(ctx context.Context, runner toolchain.Runner, git config.ToolPath) string {
	get := func(key string) string {
		out, err := runner.Run(ctx, toolchain.Command{Name: git.String(), Args: []string{"config", "--get", key}})
		if err != nil {
			slog.Debug("git config lookup failed", "key", key, "error", err)
			return ""
		}
		return strings.TrimSpace(string(out))
	}

	name := get("user.name")
	if name == "" {
		return ""
	}
	if email := get("user.email"); email != "" {
		return fmt.Sprintf("%s <%s>", name, email)
	}
	return name
}

func writeIfMissing(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		slog.Debug("keeping existing file", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// inWorkdir resolves a relative dir against -C.
func inWorkdir(root *rootFlagValues, dir string) string {
	if root.workdir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root.workdir, dir)
}
