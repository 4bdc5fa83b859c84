// SPDX-License-Identifier: MPL-2.0

package config

import "context"

type (
	// LoadOptions selects where configuration is read from. The zero value
	// reads config.cue from ConfigDir.
	LoadOptions struct {
		// ConfigFilePath is the --config flag; when set no other file is read.
		ConfigFilePath string
		// ConfigDirPath replaces ConfigDir.
		ConfigDirPath string
	}

	// Provider is how the CLI obtains configuration.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
		// Source returns the file Load would read, empty when none exists.
		Source(ctx context.Context, opts LoadOptions) (string, error)
	}

	cueProvider struct{}
)

// NewProvider returns a Provider reading CUE files through viper.
func NewProvider() Provider { return cueProvider{} }

func (cueProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	return cfg, err
}

func (cueProvider) Source(ctx context.Context, opts LoadOptions) (string, error) {
	_, path, err := loadWithOptions(ctx, opts)
	return path, err
}
