// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/carsier/carsier/internal/filecache"
	"github.com/carsier/carsier/internal/target"
)

// releaseFlags enable the Scala 2.13 optimizer.
var releaseFlags = []string{"-opt:l:inline", "-opt-inline-from:**"}

type (
	// Compiler runs scalac for one target at a time.
	Compiler struct {
		Runner Runner
		// Scalac is the scalac executable.
		Scalac string
		// Args are extra compiler arguments, appended before the sources.
		Args []string
		// Env is the compiler environment; nil inherits the current one.
		Env       []string
		TargetDir string
	}

	// CompileInput ties a target to the files produced for it upstream.
	CompileInput struct {
		Target target.Target
		// FileList is the one-path-per-line list of sources.
		FileList string
		// SourcePath is the directory of rewritten sources.
		SourcePath string
		// ClasspathFile is the quoted classpath written by Resolve.
		ClasspathFile string
		// Upstream is Touched when any input of the compilation changed.
		Upstream filecache.FileDep
	}
)

// JarPath returns where the artifact of t is written.
func (c *Compiler) JarPath(t target.Target) string {
	return filepath.Join(c.TargetDir, "build", t.Profile.String(), t.Name()+".jar")
}

// Compile builds the jar of in.Target. It is skipped, returning Unchanged,
// when nothing upstream changed and the jar exists.
func (c *Compiler) Compile(ctx context.Context, in CompileInput) (string, filecache.FileDep, error) {
	jar := c.JarPath(in.Target)
	if !in.Upstream.Changed() && filecache.Exists(jar) {
		slog.Info("target up to date", "target", in.Target.Name(), "jar", jar)
		return jar, filecache.Unchanged, nil
	}
	if err := os.MkdirAll(filepath.Dir(jar), 0o755); err != nil {
		return "", filecache.Unchanged, fmt.Errorf("create build directory: %w", err)
	}

	slog.Info("compiling", "target", in.Target.Name(), "profile", in.Target.Profile)
	if _, err := c.Runner.Run(ctx, Command{
		Name: c.Scalac,
		Args: c.args(in, jar),
		Env:  c.Env,
	}); err != nil {
		// A stale jar would make the next run skip this target.
		_ = os.Remove(jar)
		return "", filecache.Unchanged, fmt.Errorf("compile %s: %w", in.Target.Name(), err)
	}
	return jar, filecache.Touched, nil
}

func (c *Compiler) args(in CompileInput, jar string) []string {
	var args []string
	if in.ClasspathFile != "" {
		args = append(args, "-classpath", "@"+in.ClasspathFile)
	}
	if in.SourcePath != "" {
		args = append(args, "-sourcepath", in.SourcePath)
	}
	if in.Target.Profile == target.Release {
		args = append(args, releaseFlags...)
	}
	args = append(args, c.Args...)
	return append(args, "@"+in.FileList, "-d", jar)
}
