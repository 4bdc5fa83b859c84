// SPDX-License-Identifier: MPL-2.0

package build

import (
	"log/slog"
	"slices"

	"github.com/carsier/carsier/internal/config"
	"github.com/carsier/carsier/internal/modpath"
	"github.com/carsier/carsier/internal/target"
	"github.com/carsier/carsier/pkg/carsierfile"
)

type (
	// FeatureRequest is what the command line asked for.
	FeatureRequest struct {
		// Features lists --features values; nil when the flag was not given.
		Features []string
		// NoDefault is --no-default-features; nil when the flag was not given.
		NoDefault *bool
	}
)

// ResolveProfile applies profile precedence:
//  1. --release (or an explicit --profile)
//  2. config build.profile
//  3. debug
func ResolveProfile(override string, cfg *config.Config) (target.Profile, error) {
	name := override
	if name == "" && cfg != nil {
		name = string(cfg.Build.Profile)
	}
	switch config.ProfileName(name) {
	case "", config.ProfileDebug:
		return target.Debug, nil
	case config.ProfileRelease:
		return target.Release, nil
	default:
		return target.Debug, &config.InvalidProfileError{Value: config.ProfileName(name)}
	}
}

// ResolveFeatures expands the requested features against the project's
// feature table. Flags win over config; the default feature is enabled unless
// either opts out. Features the table does not declare are still enabled,
// since file name suffixes may use them, but they are reported.
func ResolveFeatures(req FeatureRequest, cfg *config.Config, project *carsierfile.File) modpath.Features {
	requested := req.Features
	noDefault := false
	if cfg != nil {
		if requested == nil {
			requested = cfg.Build.Features
		}
		noDefault = cfg.Build.NoDefaultFeatures
	}
	if req.NoDefault != nil {
		noDefault = *req.NoDefault
	}

	var table map[string][]string
	if project != nil {
		table = project.Features
	}
	if len(table) > 0 {
		for _, name := range requested {
			if _, ok := table[name]; !ok {
				slog.Warn("feature not declared in "+carsierfile.FileName, "feature", name, "declared", declared(table))
			}
		}
	}
	return target.ExpandFeatures(requested, table, !noDefault)
}

func declared(table map[string][]string) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
