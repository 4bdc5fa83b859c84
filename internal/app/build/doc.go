// SPDX-License-Identifier: MPL-2.0

// Package build runs the carsier pipeline for one project: dependency
// resolution, source preprocessing, per-target file lists, compilation and
// packaging. It decouples the CLI layer from the stage packages and applies
// flag, configuration and project-file precedence in one place.
package build
