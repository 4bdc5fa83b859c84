// SPDX-License-Identifier: MPL-2.0

package config

import (
	"reflect"
	"slices"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// compiledSchema compiles the embedded schema and returns the named definition.
func compiledSchema(t *testing.T, def string) cue.Value {
	t.Helper()

	schema := cuecontext.New().CompileString(configSchema)
	if err := schema.Err(); err != nil {
		t.Fatalf("compile schema: %v", err)
	}
	v := schema.LookupPath(cue.ParsePath(def))
	if err := v.Err(); err != nil {
		t.Fatalf("lookup %s: %v", def, err)
	}
	return v
}

// schemaKeys lists the regular fields of a CUE struct, sorted.
func schemaKeys(t *testing.T, v cue.Value) []string {
	t.Helper()

	iter, err := v.Fields(cue.Optional(true))
	if err != nil {
		t.Fatalf("iterate fields: %v", err)
	}
	var keys []string
	for iter.Next() {
		sel := iter.Selector()
		if sel.IsDefinition() || sel.LabelType().IsHidden() {
			continue
		}
		keys = append(keys, strings.TrimSuffix(sel.String(), "?"))
	}
	slices.Sort(keys)
	return keys
}

// structKeys lists the mapstructure keys viper decodes into typ, sorted. The
// json tag must agree so that 'config show' and the loader use one name.
func structKeys(t *testing.T, typ reflect.Type) []string {
	t.Helper()

	var keys []string
	for i := range typ.NumField() {
		f := typ.Field(i)
		ms := f.Tag.Get("mapstructure")
		js, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if ms != js {
			t.Errorf("%s.%s: mapstructure %q and json %q disagree", typ.Name(), f.Name, ms, js)
		}
		if ms != "" && ms != "-" {
			keys = append(keys, ms)
		}
	}
	slices.Sort(keys)
	return keys
}

func TestSchemaMatchesStructs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		def string
		typ reflect.Type
	}{
		{"#Config", reflect.TypeFor[Config]()},
		{"#ToolsConfig", reflect.TypeFor[ToolsConfig]()},
		{"#CompilerConfig", reflect.TypeFor[CompilerConfig]()},
		{"#BuildConfig", reflect.TypeFor[BuildConfig]()},
		{"#WatchConfig", reflect.TypeFor[WatchConfig]()},
		{"#UIConfig", reflect.TypeFor[UIConfig]()},
	}
	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			t.Parallel()
			cueKeys := schemaKeys(t, compiledSchema(t, tt.def))
			goKeys := structKeys(t, tt.typ)
			if !slices.Equal(cueKeys, goKeys) {
				t.Errorf("schema keys %v, struct keys %v", cueKeys, goKeys)
			}
		})
	}
}

func TestSchemaConstraints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		data  string
		valid bool
	}{
		{"empty", ``, true},
		{"tool name", `tools: scalac: "scalac"`, true},
		{"tool path with spaces", `tools: scalac: "/opt/my tools/scalac"`, true},
		{"tool leading space", `tools: scalac: " scalac"`, false},
		{"tool newline", `tools: jar: "jar\nrm"`, false},
		{"tool too long", `tools: git: "` + strings.Repeat("g", 4097) + `"`, false},
		{"args", `compiler: args: "-deprecation -Xfatal-warnings"`, true},
		{"env files", `compiler: env_files: [".env", ".env.local?"]`, true},
		{"env file blank", `compiler: env_files: [""]`, false},
		{"feature names", `build: features: ["render", "json+yaml", "a_b-c"]`, true},
		{"feature with space", `build: features: ["a b"]`, false},
		{"release", `build: profile: "release"`, true},
		{"unknown profile", `build: profile: "bench"`, false},
		{"debounce micro", `watch: debounce: "1500µs"`, true},
		{"debounce fraction", `watch: debounce: "1.5s"`, true},
		{"debounce no unit", `watch: debounce: "500"`, false},
		{"unknown top-level", `runtime: "native"`, false},
		{"unknown nested", `ui: interactive: true`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			def := compiledSchema(t, "#Config")
			data := def.Context().CompileString(tt.data)
			err := data.Err()
			if err == nil {
				err = def.Unify(data).Validate(cue.Concrete(true))
			}
			if (err == nil) != tt.valid {
				t.Errorf("%q: error = %v, valid %v", tt.data, err, tt.valid)
			}
		})
	}
}
