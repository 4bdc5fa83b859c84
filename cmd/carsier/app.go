// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/carsier/carsier/internal/app/build"
	"github.com/carsier/carsier/internal/config"
	"github.com/carsier/carsier/internal/issue"
	"github.com/carsier/carsier/internal/toolchain"
	"github.com/carsier/carsier/pkg/carsierfile"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root
	// for the CLI layer: every Cobra handler receives an App and reaches the
	// configuration and the external tools through it.
	App struct {
		Config ConfigProvider
		Runner toolchain.Runner
		stdout io.Writer
		stderr io.Writer
		// verbose is set once a session knows the effective verbosity.
		verbose bool
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Runner toolchain.Runner
		Stdout io.Writer
		Stderr io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
		Source(ctx context.Context, opts config.LoadOptions) (string, error)
	}

	// session is the per-invocation state of a command: the loaded
	// configuration, the project when one is required, and the log file.
	session struct {
		cfg     *config.Config
		project *carsierfile.File
		verbose bool
		closers []func() error
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Runner == nil {
		deps.Runner = toolchain.ExecRunner{}
	}

	return &App{
		Config: deps.Config,
		Runner: deps.Runner,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}, nil
}

// openSession loads the configuration, installs the logger and, when
// withProject is set, loads the project found from the working directory.
// The command's log is then also written to <target>/<command>.log.
func (a *App) openSession(ctx context.Context, flags *rootFlagValues, command string, withProject bool) (*session, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, verbose: flags.verbose || cfg.UI.Verbose}
	a.verbose = s.verbose
	installLogger(a.stderr, s.verbose)
	if !withProject {
		return s, nil
	}

	project, err := loadProject(flags.workdir)
	if err != nil {
		return nil, err
	}
	s.project = project

	closeLog, err := teeLogToFile(a.stderr, s.verbose, filepath.Join(project.TargetDir(), command+".log"))
	if err != nil {
		slog.Warn("command log disabled", "error", err)
	} else {
		s.closers = append(s.closers, closeLog)
	}
	return s, nil
}

// Close releases the session's log file.
func (s *session) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// pipeline creates a build pipeline for the session's project.
func (a *App) pipeline(s *session, opts build.Options) (*build.Pipeline, error) {
	opts.Project = s.project
	opts.Config = s.cfg
	opts.Runner = a.Runner
	return build.New(opts)
}

// loadProject finds the project file from dir upward and loads it.
func loadProject(dir string) (*carsierfile.File, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}
		dir = wd
	}

	path, err := carsierfile.Find(dir)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("find project").
			WithResource(dir).
			WithSuggestion("Run 'carsier init' to create " + carsierfile.FileName).
			WithSuggestion("Use -C to point at the project directory").
			Wrap(err).
			BuildError()
	}
	project, err := carsierfile.Load(path)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load project").
			WithResource(path).
			Wrap(err).
			BuildError()
	}
	return project, nil
}
