// SPDX-License-Identifier: MPL-2.0

// Package modpath implements the module path algebra used by the preprocessor.
//
// A module path is a prefix (absolute from the source root, relative by N levels,
// rooted at a named external package, or a synthetic entry point) plus an ordered
// list of segments. Paths are written with the `%` family of tokens:
//
//	%.util.render    absolute from the project source root
//	%%.sibling       relative to the current module
//	%^.other         one level up from the current module
//	scala.util       rooted at an external package
//
// Entry points (`@bin`, `@lib`) are never parsed; they are only assigned when a
// module path is derived from a file's location on disk.
package modpath
