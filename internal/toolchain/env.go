// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"mvdan.cc/sh/v3/shell"
)

// SplitArgs splits a configured argument string into words with shell
// quoting rules. Variables expand from the process environment.
func SplitArgs(s string) ([]string, error) {
	args, err := shell.Fields(s, nil)
	if err != nil {
		return nil, fmt.Errorf("split arguments %q: %w", s, err)
	}
	return args, nil
}

// Environ returns base overlaid with the variables of every dotenv file,
// later files winning. Relative paths resolve against dir. A path ending in
// '?' is optional.
func Environ(base []string, dir string, files []string) ([]string, error) {
	if len(files) == 0 {
		return base, nil
	}
	env := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	for _, file := range files {
		optional := strings.HasSuffix(file, "?")
		file = strings.TrimSuffix(file, "?")
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, filepath.FromSlash(file))
		}
		vars, err := godotenv.Read(file)
		if err != nil {
			if optional && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("load env file %s: %w", file, err)
		}
		maps.Copy(env, vars)
	}

	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out, nil
}
