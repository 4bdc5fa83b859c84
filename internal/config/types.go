// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// ProfileDebug compiles without optimizations.
	ProfileDebug ProfileName = "debug"
	// ProfileRelease enables the optimizer.
	ProfileRelease ProfileName = "release"

	// DefaultDebounce is the default watch quiet period.
	DefaultDebounce = "500ms"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidProfile is returned when a ProfileName value is not recognized.
	ErrInvalidProfile = errors.New("invalid build profile")
	// ErrInvalidToolPath is returned when a ToolPath value is blank.
	ErrInvalidToolPath = errors.New("invalid tool path")
	// ErrInvalidDebounce is returned when the watch debounce is not a positive duration.
	ErrInvalidDebounce = errors.New("invalid debounce")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// ProfileName is the configured default build profile.
	ProfileName string

	// InvalidProfileError is returned when a ProfileName value is not recognized.
	InvalidProfileError struct {
		Value ProfileName
	}

	// ToolPath is an executable name looked up in PATH, or a path to one.
	ToolPath string

	// InvalidToolPathError is returned when a ToolPath is empty or whitespace-only.
	InvalidToolPathError struct {
		Field string
		Value ToolPath
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Tools names the external executables
		Tools ToolsConfig `json:"tools" mapstructure:"tools"`
		// Compiler configures scalac invocations
		Compiler CompilerConfig `json:"compiler" mapstructure:"compiler"`
		// Build holds defaults for the build flags
		Build BuildConfig `json:"build" mapstructure:"build"`
		// Watch configures watch mode
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// ToolsConfig names the executables carsier drives.
	ToolsConfig struct {
		Coursier ToolPath `json:"coursier" mapstructure:"coursier"`
		Scalac   ToolPath `json:"scalac" mapstructure:"scalac"`
		Jar      ToolPath `json:"jar" mapstructure:"jar"`
		// Git is only used by init to find the author.
		Git ToolPath `json:"git" mapstructure:"git"`
	}

	// CompilerConfig configures scalac.
	CompilerConfig struct {
		// Args are extra arguments, split with shell quoting rules
		Args string `json:"args" mapstructure:"args"`
		// EnvFiles are dotenv files, relative to the project, loaded into the
		// compiler environment. A trailing "?" marks a file optional.
		EnvFiles []string `json:"env_files" mapstructure:"env_files"`
	}

	// BuildConfig holds defaults for build, files and watch.
	BuildConfig struct {
		Profile           ProfileName `json:"profile" mapstructure:"profile"`
		Features          []string    `json:"features" mapstructure:"features"`
		NoDefaultFeatures bool        `json:"no_default_features" mapstructure:"no_default_features"`
	}

	// WatchConfig configures watch mode.
	WatchConfig struct {
		// Debounce is a Go duration string
		Debounce string `json:"debounce" mapstructure:"debounce"`
		// Ignore are extra doublestar patterns that never trigger a rebuild
		Ignore      []string `json:"ignore" mapstructure:"ignore"`
		ClearScreen bool     `json:"clear_screen" mapstructure:"clear_screen"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// IsValid returns whether the Config has valid fields, and the field errors
// wrapped in an InvalidConfigError if not.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	tools := []struct {
		field string
		path  ToolPath
	}{
		{"tools.coursier", c.Tools.Coursier},
		{"tools.scalac", c.Tools.Scalac},
		{"tools.jar", c.Tools.Jar},
		{"tools.git", c.Tools.Git},
	}
	for _, tool := range tools {
		if strings.TrimSpace(string(tool.path)) == "" {
			errs = append(errs, &InvalidToolPathError{Field: tool.field, Value: tool.path})
		}
	}
	if valid, fieldErrs := c.Build.Profile.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if _, err := c.Watch.DebounceDuration(); err != nil {
		errs = append(errs, err)
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DebounceDuration parses Debounce. An empty value yields the default.
func (c WatchConfig) DebounceDuration() (time.Duration, error) {
	s := c.Debounce
	if s == "" {
		s = DefaultDebounce
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: watch.debounce %q must be a positive duration", ErrInvalidDebounce, c.Debounce)
	}
	return d, nil
}

// String returns the string representation of the ToolPath.
func (p ToolPath) String() string { return string(p) }

// Error implements the error interface for InvalidToolPathError.
func (e *InvalidToolPathError) Error() string {
	return fmt.Sprintf("invalid tool path %q for %s: must be non-empty", e.Value, e.Field)
}

// Unwrap returns ErrInvalidToolPath for errors.Is() compatibility.
func (e *InvalidToolPathError) Unwrap() error { return ErrInvalidToolPath }

// String returns the string representation of the ProfileName.
func (p ProfileName) String() string { return string(p) }

// IsValid returns whether the ProfileName is debug or release.
func (p ProfileName) IsValid() (bool, []error) {
	switch p {
	case ProfileDebug, ProfileRelease:
		return true, nil
	default:
		return false, []error{&InvalidProfileError{Value: p}}
	}
}

// Error implements the error interface for InvalidProfileError.
func (e *InvalidProfileError) Error() string {
	return fmt.Sprintf("invalid build profile %q (valid: debug, release)", e.Value)
}

// Unwrap returns ErrInvalidProfile for errors.Is() compatibility.
func (e *InvalidProfileError) Unwrap() error { return ErrInvalidProfile }

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Tools: ToolsConfig{
			Coursier: "coursier",
			Scalac:   "scalac",
			Jar:      "jar",
			Git:      "git",
		},
		Compiler: CompilerConfig{
			Args:     "",
			EnvFiles: []string{},
		},
		Build: BuildConfig{
			Profile:  ProfileDebug,
			Features: []string{},
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
			Ignore:   []string{},
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}
