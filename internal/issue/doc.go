// SPDX-License-Identifier: MPL-2.0

// Package issue holds carsier's user-facing error help: ActionableError for
// one-line failures with suggestions, and a catalog of Markdown pages, keyed
// by Id, that the CLI renders with glamour after the error.
package issue
