// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the carsier command line.
//
// The root command is assembled by NewRootCommand around an App, which owns
// the configuration provider and the runner used for external tools. Every
// build subcommand opens a session (configuration, logger, project) and
// drives an internal/app/build Pipeline.
package cmd
