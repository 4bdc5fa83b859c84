// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ProjectFileNotFoundId Id = iota + 1
	ProjectFileInvalidId
	ConfigLoadFailedId
	ImportSyntaxErrorId
	ModuleDepthId
	EntryPointNotFoundId
	NoTargetsId
	ManifestNotFoundId
	ToolFailedId
	ToolNotFoundId
	WriteLockHeldId
	ImportCycleId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id
	mdMsg    MarkdownMsg
	docLinks []HttpLink // carsier documentation
	extLinks []HttpLink // third-party pages, such as tool install guides
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the page with glamour. stylePath is a glamour style name
// ("dark", "light") or a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		sb.WriteString("\n\n## See also\n")
		for _, link := range append(slices.Clone(i.docLinks), i.extLinks...) {
			sb.WriteString("\n- <" + string(link) + ">")
		}
	}
	return render(sb.String(), stylePath)
}

var (
	render = glamour.Render

	projectFileNotFoundIssue = &Issue{
		id: ProjectFileNotFoundId,
		mdMsg: `
# No Carsier.toml found!

carsier looks for Carsier.toml in the working directory and every parent directory.

## Things you can try:
- Create a new project in the current directory:
~~~
$ carsier init
~~~

- Or create one in a new directory:
~~~
$ carsier new hello
~~~

- Or point carsier at the project:
~~~
$ carsier -C path/to/project build
~~~`,
	}

	projectFileInvalidIssue = &Issue{
		id: ProjectFileInvalidId,
		mdMsg: `
# Carsier.toml is invalid!

The project file could not be read. The message above names the offending key or line.

## A minimal project file:
~~~toml
[package]
name = "hello"
version = "0.1.0"
edition = "2.13"

[dependencies]
cats-core = { version = "^2.9", org = "org.typelevel" }
guava = { version = "=32.1.2-jre", org = "com.google.guava", java = true }

[features]
default = []
~~~

## Things you can try:
- Check that every dependency is a version string or a table with a version
- Check that features only enable features declared in [features]`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the carsier configuration file.

## Configuration file locations:
- Linux: ~/.config/carsier/config.cue
- macOS: ~/Library/Application Support/carsier/config.cue
- Windows: %APPDATA%\carsier\config.cue

## Things you can try:
- Create a default configuration:
~~~
$ carsier config init
~~~

- Check the configuration syntax
- Remove the config file to use defaults

## Example configuration:
~~~cue
tools: {
  coursier: "cs"
  scalac: "scalac"
}

compiler: {
  args: "-deprecation -feature"
  env_files: [".env?"]
}
~~~`,
	}

	importSyntaxErrorIssue = &Issue{
		id: ImportSyntaxErrorId,
		mdMsg: `
# Invalid module import!

A ` + "`%`" + ` import could not be parsed.

## Import forms:
~~~scala
import %.util                   // from the crate root
import %%.sibling               // from the current module
import %^.parent.other          // one level up, one ^ per level
import %.app.{io, net.{http, tcp}}
~~~

## Things you can try:
- Use a single prefix, at the start of the expression
- Close every brace and write nothing after a closing brace
- Import a sub-module inside braces instead of prefixing it again`,
	}

	moduleDepthIssue = &Issue{
		id: ModuleDepthId,
		mdMsg: `
# Module path climbs above the crate root!

A ` + "`%^`" + ` path removes more levels than the current module has.

## Things you can try:
- Count the levels: a file at src/a/b.scala is module ` + "`%.a.b`" + `, so ` + "`%^`" + ` is ` + "`%.a`" + ` and ` + "`%^^`" + ` is the crate root
- Use an absolute ` + "`%.`" + ` import instead`,
	}

	entryPointNotFoundIssue = &Issue{
		id: EntryPointNotFoundId,
		mdMsg: `
# Entry point not found!

The target's entry file did not declare a package, so nothing was compiled for it.

## Things you can try:
- Start src/main.scala (binary) or src/lib.scala (library) with:
~~~scala
package %%;
~~~

- Run the preprocessor alone to inspect the manifest:
~~~
$ carsier preprocess
~~~`,
	}

	noTargetsIssue = &Issue{
		id: NoTargetsId,
		mdMsg: `
# No target found!

A project builds a binary from src/main.scala and a library from src/lib.scala. Neither exists.

## Things you can try:
- Create src/main.scala, or run ` + "`carsier init`" + ` in an empty directory
- Check [build] source_root in Carsier.toml`,
	}

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No module manifest!

The module manifest is written by the preprocessor.

## Things you can try:
~~~
$ carsier preprocess
~~~`,
	}

	toolFailedIssue = &Issue{
		id: ToolFailedId,
		mdMsg: `
# An external tool failed!

coursier, scalac or jar exited with an error. Its output is shown above.

## Things you can try:
- Run with verbose mode to see the exact command line:
~~~
$ carsier --verbose build
~~~

- For resolution failures, check the org and version of each dependency
- For compile failures, open the rewritten file under target/src`,
	}

	toolNotFoundIssue = &Issue{
		id: ToolNotFoundId,
		mdMsg: `
# Tool not found!

carsier drives coursier, scalac and jar, which must be installed separately.

## Things you can try:
- Install coursier and let it set up Scala:
~~~
$ cs setup
~~~

- Or configure the executables:
~~~cue
tools: {
  coursier: "/opt/coursier/bin/cs"
  scalac: "/opt/scala/bin/scalac"
  jar: "/usr/lib/jvm/default/bin/jar"
}
~~~`,
		extLinks: []HttpLink{"https://get-coursier.io/docs/cli-installation"},
	}

	writeLockHeldIssue = &Issue{
		id: WriteLockHeldId,
		mdMsg: `
# Output file is locked!

A ` + "`.lock`" + ` file sits next to an output carsier wants to replace. Another build is running, or an earlier one was killed mid-write.

## Things you can try:
- Wait for the other build to finish
- If no build is running, delete the lock file named above`,
	}

	importCycleIssue = &Issue{
		id: ImportCycleId,
		mdMsg: `
# Import cycle detected!

Modules import each other in a loop. scalac accepts this, but the module tree cannot be ordered.

## Things you can try:
- Move the shared definitions into a module both can import
- Inspect the graph:
~~~
$ carsier tree
~~~`,
	}

	issues = map[Id]*Issue{
		projectFileNotFoundIssue.Id(): projectFileNotFoundIssue,
		projectFileInvalidIssue.Id():  projectFileInvalidIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		importSyntaxErrorIssue.Id():   importSyntaxErrorIssue,
		moduleDepthIssue.Id():         moduleDepthIssue,
		entryPointNotFoundIssue.Id():  entryPointNotFoundIssue,
		noTargetsIssue.Id():           noTargetsIssue,
		manifestNotFoundIssue.Id():    manifestNotFoundIssue,
		toolFailedIssue.Id():          toolFailedIssue,
		toolNotFoundIssue.Id():        toolNotFoundIssue,
		writeLockHeldIssue.Id():       writeLockHeldIssue,
		importCycleIssue.Id():         importCycleIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

// Get returns the entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
