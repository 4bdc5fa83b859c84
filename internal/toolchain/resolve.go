// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/carsier/carsier/internal/filecache"
)

// File names of the resolution chain inside the target directory.
const (
	DepsInFile        = "deps.in"
	DepsOutFile       = "deps.out"
	DepsClasspathFile = "deps.classpath"
)

type (
	// Resolver turns coursier coordinates into a classpath.
	Resolver struct {
		Runner Runner
		// Coursier is the coursier executable.
		Coursier  string
		TargetDir string
	}

	// Resolution is the result of one Resolve.
	Resolution struct {
		// Resolved lists the transitive coordinates, one org:name:version each.
		Resolved []string
		// ClasspathFile holds the quoted classpath, usable as a compiler @argfile.
		ClasspathFile string
		// Dep is Touched when the classpath changed.
		Dep filecache.FileDep
	}
)

// Resolve runs the resolution chain for depsIn, one coordinate per line:
//
//	deps.in -> coursier resolve -> deps.out -> coursier fetch --classpath -> deps.classpath
//
// Each stage reruns only when its input changed or its output is missing. An
// empty deps.in never calls coursier and yields an empty classpath.
func (r *Resolver) Resolve(ctx context.Context, depsIn string) (Resolution, error) {
	inPath := filepath.Join(r.TargetDir, DepsInFile)
	dep, err := filecache.CompareAndWrite(inPath, []byte(depsIn))
	if err != nil {
		return Resolution{}, fmt.Errorf("write %s: %w", inPath, err)
	}

	outPath := filepath.Join(r.TargetDir, DepsOutFile)
	out, err := dep.ExistsAndWrite(outPath, func() ([]byte, error) {
		coords := lines(depsIn)
		if len(coords) == 0 {
			return nil, nil
		}
		slog.Info("resolving dependencies", "count", len(coords))
		return r.coursier(ctx, "resolve", coords)
	})
	if err != nil {
		return Resolution{}, err
	}
	resolved := lines(string(out))

	cpPath := filepath.Join(r.TargetDir, DepsClasspathFile)
	if _, err := dep.ExistsAndWrite(cpPath, func() ([]byte, error) {
		if len(resolved) == 0 {
			return []byte(strconv.Quote("")), nil
		}
		slog.Info("fetching dependencies", "count", len(resolved))
		cp, err := r.coursier(ctx, "fetch", resolved, "--classpath")
		if err != nil {
			return nil, err
		}
		return []byte(strconv.Quote(strings.TrimRight(string(cp), "\r\n"))), nil
	}); err != nil {
		return Resolution{}, err
	}

	return Resolution{Resolved: resolved, ClasspathFile: cpPath, Dep: dep}, nil
}

func (r *Resolver) coursier(ctx context.Context, sub string, coords []string, flags ...string) ([]byte, error) {
	args := append([]string{sub, "--quiet"}, flags...)
	args = append(args, coords...)
	return r.Runner.Run(ctx, Command{Name: r.Coursier, Args: args})
}

// lines splits s into its non-blank, trimmed lines.
func lines(s string) []string {
	var out []string
	for line := range strings.Lines(s) {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
