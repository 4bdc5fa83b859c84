// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carsier/carsier/internal/config"
)

type configInitFlagValues struct {
	force bool
}

// newConfigCommand creates the `carsier config` command tree.
// Subcommands that read configuration use the App's ConfigProvider.
func newConfigCommand(app *App, root *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage carsier configuration",
		Long: `Manage carsier configuration.

Configuration is stored in:
  - Linux: ~/.config/carsier/config.cue
  - macOS: ~/Library/Application Support/carsier/config.cue
  - Windows: %APPDATA%\carsier\config.cue

Every key can be overridden with a CARSIER_ environment variable, for
example CARSIER_BUILD_PROFILE=release or CARSIER_TOOLS_SCALAC=/opt/scala/bin/scalac.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration and where it comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return wrapError(showConfig(cmd.Context(), app, root))
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return wrapError(showConfigPath(cmd.Context(), app, root))
		},
	})

	initFlags := &configInitFlagValues{}
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return wrapError(initConfig(app, initFlags.force))
		},
	}
	initCmd.Flags().BoolVarP(&initFlags.force, "force", "f", false, "overwrite an existing configuration file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: root.configPath})
			if err != nil {
				return wrapError(err)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, root *rootFlagValues) error {
	opts := config.LoadOptions{ConfigFilePath: root.configPath}
	cfg, err := app.Config.Load(ctx, opts)
	if err != nil {
		return err
	}
	source, err := app.Config.Source(ctx, opts)
	if err != nil {
		return err
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(app.stdout, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(app.stdout)
	if source == "" {
		source = SubtitleStyle.Render("(using defaults)")
	}
	fmt.Fprintf(app.stdout, "%s: %s\n\n", keyStyle.Render("Config file"), source)

	rows := []struct {
		key   string
		value any
	}{
		{"tools.coursier", cfg.Tools.Coursier},
		{"tools.scalac", cfg.Tools.Scalac},
		{"tools.jar", cfg.Tools.Jar},
		{"tools.git", cfg.Tools.Git},
		{"compiler.args", cfg.Compiler.Args},
		{"compiler.env_files", cfg.Compiler.EnvFiles},
		{"build.profile", cfg.Build.Profile},
		{"build.features", cfg.Build.Features},
		{"build.no_default_features", cfg.Build.NoDefaultFeatures},
		{"watch.debounce", cfg.Watch.Debounce},
		{"watch.ignore", cfg.Watch.Ignore},
		{"watch.clear_screen", cfg.Watch.ClearScreen},
		{"ui.color_scheme", cfg.UI.ColorScheme},
		{"ui.verbose", cfg.UI.Verbose},
	}
	for _, row := range rows {
		fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render(row.key), valueStyle.Render(fmt.Sprint(row.value)))
	}
	return nil
}

func showConfigPath(ctx context.Context, app *App, root *rootFlagValues) error {
	if root.configPath != "" {
		fmt.Fprintln(app.stdout, root.configPath)
		return nil
	}
	path, err := config.FilePath()
	if err != nil {
		return err
	}
	fmt.Fprintln(app.stdout, path)

	// A broken file is reported without failing the command.
	if _, err := app.Config.Source(ctx, config.LoadOptions{}); err != nil {
		fmt.Fprintf(app.stderr, "%s %s\n", WarningStyle.Render("warning:"), formatErrorForDisplay(err, root.verbose))
	}
	return nil
}

func initConfig(app *App, force bool) error {
	path, created, err := config.CreateDefaultConfig(force)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if !created {
		fmt.Fprintf(app.stderr, "%s %s already exists (use --force to overwrite)\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
