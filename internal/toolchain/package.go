// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/carsier/carsier/internal/filecache"
)

// ResourcesFile lists the resources added to every jar.
const ResourcesFile = "resources.txt"

// Packager adds resources to compiled jars.
type Packager struct {
	Runner Runner
	// Jar is the jar executable.
	Jar string
	// ProjectDir is the directory resource globs are relative to.
	ProjectDir string
	TargetDir  string
}

// Resources expands the include globs against ProjectDir into a sorted,
// deduplicated list of slash-separated files.
func (p *Packager) Resources(includes []string) ([]string, error) {
	fsys := os.DirFS(p.ProjectDir)
	var files []string
	for _, include := range includes {
		if !doublestar.ValidatePattern(include) {
			return nil, fmt.Errorf("invalid resource pattern %q", include)
		}
		matches, err := doublestar.Glob(fsys, include, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand resource pattern %q: %w", include, err)
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// Package updates jar with the resources matched by includes. It does nothing
// when no resource matches, and skips the jar call when neither the jar nor
// the resource list changed.
func (p *Packager) Package(ctx context.Context, jar string, jarDep filecache.FileDep, includes []string) error {
	files, err := p.Resources(includes)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		slog.Debug("no resources to package", "jar", jar)
		return nil
	}

	list := filepath.Join(p.TargetDir, ResourcesFile)
	listDep, err := filecache.CompareAndWrite(list, []byte(strings.Join(files, "\n")+"\n"))
	if err != nil {
		return fmt.Errorf("write resource list: %w", err)
	}
	if !jarDep.Or(listDep).Changed() {
		return nil
	}

	slog.Info("packaging resources", "jar", jar, "count", len(files))
	if _, err := p.Runner.Run(ctx, Command{
		Name: p.Jar,
		Args: []string{"--update", "--file", jar, "@" + list},
		Dir:  p.ProjectDir,
	}); err != nil {
		_ = os.Remove(list) // Forces a retry on the next run.
		return fmt.Errorf("package %s: %w", filepath.Base(jar), err)
	}
	return nil
}
