// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"slices"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	NoPackagesId
	InvalidFrameworkId
	InvalidPackageSpecId
	MetadataFetchFailedId
	UnsatisfiableId
	SolverTimeoutId
	GraphStoreFailedId
	LockFileFailedId
	CancelledId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
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

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

nugraph could not read or validate its configuration file.

## Things you can try:
- Print the effective configuration and the file it came from:
~~~
$ nugraph config show
$ nugraph config path
~~~

- Check the CUE syntax and field names against the defaults:
~~~
$ nugraph config dump
~~~

- Durations use Go syntax ("30s", "2m") and every source needs a unique name.
- Point at another file with ` + "`--config`" + ` to rule out the default one.`,
	}

	noPackagesIssue = &Issue{
		id: NoPackagesId,
		mdMsg: `
# No packages to resolve!

The resolve command needs at least one top-level package ID.

## Things you can try:
~~~
$ nugraph resolve Newtonsoft.Json Serilog
~~~`,
	}

	invalidFrameworkIssue = &Issue{
		id: InvalidFrameworkId,
		mdMsg: `
# Unknown target framework!

The target framework moniker could not be understood.

## Supported forms:
- .NET 5 and later: ` + "`net8.0`, `net6.0-windows`" + `
- .NET Core: ` + "`netcoreapp3.1`" + `
- .NET Standard: ` + "`netstandard2.0`" + `
- .NET Framework: ` + "`net472`, `net48`" + `

## Things you can try:
~~~
$ nugraph frameworks net8.0
~~~`,
		extLinks: []HttpLink{"https://learn.microsoft.com/dotnet/standard/frameworks"},
	}

	invalidPackageSpecIssue = &Issue{
		id: InvalidPackageSpecId,
		mdMsg: `
# Invalid package argument!

Package IDs contain letters, digits, dots, dashes and underscores.
Version ranges use NuGet interval notation.

## Examples:
~~~
$ nugraph resolve -p Serilog,Serilog.Sinks.Console
$ nugraph versions Newtonsoft.Json --range "[12.0,14.0)"
~~~`,
		extLinks: []HttpLink{"https://learn.microsoft.com/nuget/concepts/package-versioning"},
	}

	metadataFetchFailedIssue = &Issue{
		id: MetadataFetchFailedId,
		mdMsg: `
# Failed to fetch package metadata!

A package source did not answer or returned an unexpected response.

## Things you can try:
- Check your network connection and proxy settings
- Verify the source URLs in your configuration:
~~~
$ nugraph config show
~~~

- Raise the retry count or timeout:
~~~
$ NUGRAPH_HTTP_MAX_RETRIES=5 NUGRAPH_HTTP_TIMEOUT=60s nugraph resolve ...
~~~

- Private feeds may need credentials that nugraph does not send.`,
	}

	unsatisfiableIssue = &Issue{
		id: UnsatisfiableId,
		mdMsg: `
# No valid set of versions exists!

Every combination of candidate versions violates at least one dependency
range, or a top-level package has no version for the target framework.

## Things you can try:
- Allow prerelease versions with ` + "`--prerelease`" + `
- Consider more candidates with ` + "`--max-versions`" + `
- Check which frameworks the packages support:
~~~
$ nugraph versions <package>
~~~

- Try another target framework with ` + "`--framework`" + ``,
	}

	solverTimeoutIssue = &Issue{
		id: SolverTimeoutId,
		mdMsg: `
# The solver ran out of time!

No optimal assignment was proven before the solver timeout.

## Things you can try:
- Give the solver more time with ` + "`--solver-timeout 2m`" + `
- Shrink the search space with ` + "`--max-versions`" + `
- Resolve fewer top-level packages at once`,
	}

	graphStoreFailedIssue = &Issue{
		id: GraphStoreFailedId,
		mdMsg: `
# Failed to write to the graph store!

The resolution succeeded but the Neo4j store rejected the write.

## Things you can try:
- Check that the database is reachable at the configured URI
- Verify the credentials in the ` + "`neo4j`" + ` config block
- Disable the store by removing the ` + "`neo4j`" + ` block`,
		extLinks: []HttpLink{"https://neo4j.com/docs/operations-manual/current/"},
	}

	lockFileFailedIssue = &Issue{
		id: LockFileFailedId,
		mdMsg: `
# Failed to write the lock file!

## Things you can try:
- Check that the target directory exists and is writable
- Pass another path with ` + "`--lock`" + ``,
	}

	cancelledIssue = &Issue{
		id: CancelledId,
		mdMsg: `
# Resolution cancelled!

The run was interrupted or exceeded the global timeout.

## Things you can try:
- Raise ` + "`resolve.global_timeout`" + ` in your configuration
- Enable the disk cache so repeated runs skip finished fetches:
~~~cue
http: disk_cache: true
~~~`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		noPackagesIssue.Id():          noPackagesIssue,
		invalidFrameworkIssue.Id():    invalidFrameworkIssue,
		invalidPackageSpecIssue.Id():  invalidPackageSpecIssue,
		metadataFetchFailedIssue.Id(): metadataFetchFailedIssue,
		unsatisfiableIssue.Id():       unsatisfiableIssue,
		solverTimeoutIssue.Id():       solverTimeoutIssue,
		graphStoreFailedIssue.Id():    graphStoreFailedIssue,
		lockFileFailedIssue.Id():      lockFileFailedIssue,
		cancelledIssue.Id():           cancelledIssue,
	}
)

// Values returns every catalogued issue ordered by ID.
func Values() []*Issue {
	out := slices.Collect(maps.Values(issues))
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
