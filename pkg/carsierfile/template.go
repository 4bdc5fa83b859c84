// SPDX-License-Identifier: MPL-2.0

package carsierfile

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultVersion is the version of a freshly created package.
	DefaultVersion = "0.1.0"
	// DefaultAuthor is used when git has no user configured.
	DefaultAuthor = "name <email@example.com>"

	// GitIgnore is written next to the project file of a new project.
	GitIgnore = "/target\n"

	// MainSource is the hello-world entry point of a new project.
	MainSource = `package %%;

object Main {
  def main(args: Array[String]): Unit = {
    println("Hello, world!")
  }
}
`
)

type template struct {
	Package      templatePackage   `toml:"package"`
	Dependencies map[string]string `toml:"dependencies"`
}

type templatePackage struct {
	Name    string   `toml:"name"`
	Version string   `toml:"version"`
	Authors []string `toml:"authors"`
	Edition string   `toml:"edition"`
}

// Template renders the project file of a new package.
func Template(name, author string) ([]byte, error) {
	if author == "" {
		author = DefaultAuthor
	}
	data, err := toml.Marshal(template{
		Package: templatePackage{
			Name:    name,
			Version: DefaultVersion,
			Authors: []string{author},
			Edition: DefaultEdition,
		},
		Dependencies: map[string]string{},
	})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", FileName, err)
	}
	return data, nil
}
