// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	RuntimeNotAvailableId Id = iota + 1
	UnsupportedDistributionId
	BlueprintNotFoundId
	BlueprintInvalidId
	EnvironmentExistsId
	EnvironmentNotFoundId
	StageFailedId
	DownloadFailedId
	ConfigLoadFailedId
	UnsupportedOperationId
)

type MarkdownMsg string

type HttpLink string

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

// Render renders the issue as terminal markdown using the given glamour style.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
		for _, link := range i.extLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	runtimeNotAvailableIssue = &Issue{
		id: RuntimeNotAvailableId,
		mdMsg: `
# No container runtime available!

thresh needs WSL on Windows, or one of nerdctl, docker or ctr on Linux and macOS.

## Things you can try:
- On Windows, enable WSL:
~~~
> wsl --install
~~~

- On Linux, install nerdctl (preferred) or docker and make sure it is on your PATH
- Force a specific runtime in your config file:
~~~cue
runtime: "docker"
~~~`,
		extLinks: []HttpLink{
			"https://learn.microsoft.com/windows/wsl/install",
			"https://github.com/containerd/nerdctl",
		},
	}

	unsupportedDistributionIssue = &Issue{
		id: UnsupportedDistributionId,
		mdMsg: `
# Unsupported base distribution!

The blueprint's ` + "`base`" + ` does not name a known distribution.

## Things you can try:
- List the known distributions:
~~~
$ thresh distros
~~~

- Register your own rootfs:
~~~
$ thresh distro add --name mydistro --version 1.0 --url https://example.com/rootfs.tar.gz
~~~`,
	}

	blueprintNotFoundIssue = &Issue{
		id: BlueprintNotFoundId,
		mdMsg: `
# Blueprint not found!

The name is neither an existing file nor a bundled blueprint.

## Things you can try:
- List bundled blueprints:
~~~
$ thresh blueprints
~~~

- Pass a path to a blueprint file (.json, .cue, .yaml or .toml)`,
	}

	blueprintInvalidIssue = &Issue{
		id: BlueprintInvalidId,
		mdMsg: `
# Blueprint is invalid!

The blueprint failed schema validation.

## Example blueprint:
~~~json
{
  "name": "python-dev",
  "base": "ubuntu-22.04",
  "packages": ["python3", "python3-pip"],
  "scripts": { "setup": "pip3 --version" },
  "environment": { "PYTHONUNBUFFERED": "1" }
}
~~~`,
	}

	environmentExistsIssue = &Issue{
		id: EnvironmentExistsId,
		mdMsg: `
# Environment already exists!

thresh never overwrites an existing environment.

## Things you can try:
- Remove it first:
~~~
$ thresh destroy <name>
~~~

- Pick another name with ` + "`--name`",
	}

	environmentNotFoundIssue = &Issue{
		id: EnvironmentNotFoundId,
		mdMsg: `
# Environment not found!

## Things you can try:
- List environments managed by thresh:
~~~
$ thresh list
~~~`,
	}

	stageFailedIssue = &Issue{
		id: StageFailedId,
		mdMsg: `
# Provisioning stopped at a failed stage!

Stages that already completed are left in place; nothing is rolled back.

## Things you can try:
- Fix the blueprint and resume from the failed stage:
~~~
$ thresh up <blueprint> --name <name> --resume-from <stage>
~~~

- Or start from scratch:
~~~
$ thresh destroy <name> --force
~~~`,
	}

	downloadFailedIssue = &Issue{
		id: DownloadFailedId,
		mdMsg: `
# Rootfs download failed!

Nothing was written to the rootfs cache.

## Things you can try:
- Check your network connection and proxy settings
- Check that the distribution URL is still published:
~~~
$ thresh distros
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Check the config file for CUE or JSON syntax errors
- Reset to defaults:
~~~
$ thresh config reset
~~~`,
	}

	unsupportedOperationIssue = &Issue{
		id: UnsupportedOperationId,
		mdMsg: `
# Operation not supported by this runtime!

` + "`ctr`" + ` cannot start, stop or import environments the way nerdctl and docker do.

## Things you can try:
- Install nerdctl, which talks to the same containerd daemon`,
	}

	issues = map[Id]*Issue{
		runtimeNotAvailableIssue.Id():     runtimeNotAvailableIssue,
		unsupportedDistributionIssue.Id(): unsupportedDistributionIssue,
		blueprintNotFoundIssue.Id():       blueprintNotFoundIssue,
		blueprintInvalidIssue.Id():        blueprintInvalidIssue,
		environmentExistsIssue.Id():       environmentExistsIssue,
		environmentNotFoundIssue.Id():     environmentNotFoundIssue,
		stageFailedIssue.Id():             stageFailedIssue,
		downloadFailedIssue.Id():          downloadFailedIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		unsupportedOperationIssue.Id():    unsupportedOperationIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
