// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/carsier/carsier/internal/config"
	"github.com/carsier/carsier/pkg/carsierfile"
)

// ForProject returns the watch configuration of a project: its sources, its
// resources and the project file trigger a rebuild, its target directory
// never does. OnChange is left to the caller.
func ForProject(project *carsierfile.File, wc config.WatchConfig) (Config, error) {
	debounce, err := wc.DebounceDuration()
	if err != nil {
		return Config{}, err
	}

	sourceRoot, err := relToProject(project, project.SourceRoot())
	if err != nil {
		return Config{}, err
	}
	patterns := []string{
		carsierfile.FileName,
		joinPattern(sourceRoot, project.Build.Include),
	}
	for _, r := range project.Resources {
		patterns = append(patterns, r.Include)
	}

	ignore := append([]string(nil), wc.Ignore...)
	targetDir, err := relToProject(project, project.TargetDir())
	if err != nil {
		return Config{}, err
	}
	if !strings.HasPrefix(targetDir, "..") {
		ignore = append(ignore, joinPattern(targetDir, "**"))
	}

	return Config{
		Root:        project.Dir,
		Patterns:    patterns,
		Ignore:      ignore,
		Debounce:    debounce,
		ClearScreen: wc.ClearScreen,
	}, nil
}

// TouchesProjectFile reports whether changed, as passed to OnChange,
// includes the project file itself.
func TouchesProjectFile(changed []string) bool {
	return slices.Contains(changed, carsierfile.FileName)
}

func relToProject(project *carsierfile.File, p string) (string, error) {
	if project.Dir == "" {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}
	rel, err := filepath.Rel(project.Dir, p)
	if err != nil {
		return "", fmt.Errorf("watch: %s is not below the project: %w", p, err)
	}
	return filepath.ToSlash(rel), nil
}

func joinPattern(dir, pattern string) string {
	if dir == "." || dir == "" {
		return pattern
	}
	return path.Join(dir, pattern)
}
