// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// maxConfigSize bounds the config file read into memory.
const maxConfigSize = 1 << 20

// decodeCUE checks data against #Config and returns it as a map for viper.
// Fields may be left out, so values need not be concrete.
func decodeCUE(data []byte, filename string) (map[string]any, error) {
	if len(data) > maxConfigSize {
		return nil, fmt.Errorf("%s: %d bytes exceeds the %d byte limit", filename, len(data), maxConfigSize)
	}

	ctx := cuecontext.New()
	def := ctx.CompileString(configSchema).LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("config schema: %w", err)
	}

	user := ctx.CompileBytes(data, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return nil, cueError(err, filename)
	}

	unified := def.Unify(user)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, cueError(err, filename)
	}

	var out map[string]any
	if err := unified.Decode(&out); err != nil {
		return nil, cueError(err, filename)
	}
	return out, nil
}

// cueError renders each CUE error as "<file>: <key path>: <message>".
func cueError(err error, filename string) error {
	var lines []string
	for _, e := range cueerrors.Errors(err) {
		key := keyPath(cueerrors.Path(e))
		msg := e.Error()
		if key == "" {
			lines = append(lines, msg)
			continue
		}
		msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, key), ":"))
		lines = append(lines, key+": "+msg)
	}

	switch len(lines) {
	case 0:
		return fmt.Errorf("%s: %w", filename, err)
	case 1:
		return fmt.Errorf("%s: %s", filename, lines[0])
	default:
		return fmt.Errorf("%s: invalid configuration:\n  %s", filename, strings.Join(lines, "\n  "))
	}
}

// keyPath joins CUE path selectors the way the keys are written in config
// show: compiler.env_files[0].
func keyPath(path []string) string {
	var sb strings.Builder
	for i, sel := range path {
		if _, err := strconv.Atoi(sel); err == nil && i > 0 {
			sb.WriteString("[" + sel + "]")
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(sel)
	}
	return sb.String()
}
