// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// BugReportURL is printed whenever tzup hits an internal error it cannot
// classify, so users know where to file it.
const BugReportURL = "https://github.com/tzup/tzup/issues"

type Id int

const (
	ToolMissingId Id = iota + 1
	ReleaseNotFoundId
	SourceUnreachableId
	FetchFailedId
	CompileFailedId
	VersionUnresolvableId
	ConfigLoadFailedId
	InternalErrorId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.extLinks) > 0 {
		extraMd += "\n\n## See also:\n"
		for _, link := range i.extLinks {
			extraMd += "- " + string(link) + "\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	toolMissingIssue = &Issue{
		id: ToolMissingId,
		mdMsg: `
# Zone compiler not found!

tzup compiles release data with the external ` + "`zic`" + ` compiler, and it was
not found on your PATH.

## Things you can try:
- Install it (part of the tzdata/libc development tools):
  - Debian/Ubuntu: ` + "`sudo apt install tzdata`" + `
  - Fedora: ` + "`sudo dnf install tzdata`" + `
  - macOS: included with the system at /usr/sbin/zic
- Point tzup at a custom build in your config:
~~~cue
compiler: {
	dir: "/opt/tz/bin"
}
~~~`,
	}

	releaseNotFoundIssue = &Issue{
		id: ReleaseNotFoundId,
		mdMsg: `
# Release not found!

The release you asked for does not exist at the distribution point.

## Things you can try:
- Check the identifier for typos (releases look like ` + "`2025a`" + `)
- See what is currently published:
~~~
$ tzup latest
~~~`,
		extLinks: []HttpLink{"https://www.iana.org/time-zones"},
	}

	sourceUnreachableIssue = &Issue{
		id: SourceUnreachableId,
		mdMsg: `
# Release source unreachable!

The distribution host could not be reached (DNS or connection failure).

## Things you can try:
- Check your network connection and proxy settings
- Retry in a little while; the operation is safe to repeat`,
	}

	fetchFailedIssue = &Issue{
		id: FetchFailedId,
		mdMsg: `
# Download failed!

The release archive download did not complete.

## Things you can try:
- Retry the operation; partial downloads are cleaned up automatically
- Run with verbose mode for more details:
~~~
$ tzup --verbose install 2025a
~~~`,
	}

	compileFailedIssue = &Issue{
		id: CompileFailedId,
		mdMsg: `
# Compilation failed!

The zone compiler reported errors for one or more components.

## Things you can try:
- See the full compiler output:
~~~
$ tzup install 2025a --show-compiler-log
~~~
- Continue past failing components instead of aborting:
~~~
$ tzup install 2025a --strict=false
~~~`,
	}

	versionUnresolvableIssue = &Issue{
		id: VersionUnresolvableId,
		mdMsg: `
# Could not determine the latest release!

The published page did not contain a recognizable version token.

## Things you can try:
- Install an explicit release instead:
~~~
$ tzup install 2025a
~~~
- Retry later; the page may be temporarily malformed`,
		extLinks: []HttpLink{"https://www.iana.org/time-zones"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Configuration file locations:
- Linux: ~/.config/tzup/config.cue
- macOS: ~/Library/Application Support/tzup/config.cue
- Windows: %APPDATA%\tzup\config.cue

## Things you can try:
- Create a default configuration:
~~~
$ tzup config init
~~~
- Remove the config file to use defaults`,
	}

	internalErrorIssue = &Issue{
		id: InternalErrorId,
		mdMsg: `
# Unexpected internal error!

This should not happen. Please report it, including the command you ran
and the full output:

` + BugReportURL,
	}

	issues = map[Id]*Issue{
		toolMissingIssue.Id():         toolMissingIssue,
		releaseNotFoundIssue.Id():     releaseNotFoundIssue,
		sourceUnreachableIssue.Id():   sourceUnreachableIssue,
		fetchFailedIssue.Id():         fetchFailedIssue,
		compileFailedIssue.Id():       compileFailedIssue,
		versionUnresolvableIssue.Id(): versionUnresolvableIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		internalErrorIssue.Id():       internalErrorIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
