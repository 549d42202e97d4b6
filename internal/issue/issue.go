// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"slices"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

type Id int

const (
	FileNotFoundId Id = iota + 1
	ConfigLoadFailedId
	CatalogInvalidId
	SourceUnreadableId
	DocumentParseErrorId
	RuleInvalidId
	RuleUnresolvedId
	RuleDuplicateId
	GeneratedIdCollisionId
	PhaseOrderId
	RegistrationFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	name     string      // stable kebab-case name for `ucw issue <name>`
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) Name() string {
	return i.name
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

// Markdown returns the message followed by a "See also" list when the issue
// carries links.
func (i *Issue) Markdown() string {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md += "\n\n## See also\n"
		for _, link := range i.docLinks {
			md += "\n- <" + string(link) + ">"
		}
		for _, link := range i.extLinks {
			md += "\n- <" + string(link) + ">"
		}
	}
	return md
}

// Render renders the issue with glamour using the given style ("dark",
// "light", "auto" or a style file path).
func (i *Issue) Render(stylePath string) (string, error) {
	return render(i.Markdown(), stylePath)
}

var (
	render = glamour.Render

	fileNotFoundIssue = &Issue{
		id:   FileNotFoundId,
		name: "file-not-found",
		mdMsg: `
# File not found!

ucw was asked to read a file that does not exist.

## Things you can try:
- Check the path for typos
- Paths in the config file are resolved from the current directory
- Show the effective configuration:
~~~
$ ucw config show
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id:   ConfigLoadFailedId,
		name: "config-load-failed",
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the schema.

## Things you can try:
- Check the CUE syntax of your config file
- Print where ucw looks for its config:
~~~
$ ucw config path
~~~
- Write a fresh default config and compare:
~~~
$ ucw config init
~~~

## Example config:
~~~cue
namespace: "unlimitedchiselworks"
catalog:   "catalog.toml"
sources: [
	{id: "basepack", path: "./packs/basepack"},
]
mods_dir: "./mods"
~~~`,
	}

	catalogInvalidIssue = &Issue{
		id:   CatalogInvalidId,
		name: "catalog-invalid",
		mdMsg: `
# The block catalog is invalid!

The catalog describes the blocks that already exist. Rules can only
reference blocks listed there.

## Common issues:
- Duplicate block ids
- Identifiers without a namespace separator (` + "`minecraft:stone`" + `)
- Negative or repeated variant values
- ` + "`meta_tags`" + ` keys that are not one of the block's variants

## Example:
~~~toml
[[blocks]]
id = "minecraft:stone"
variants = [0, 1, 2]
tags = ["stone"]

[blocks.meta_tags]
"1" = ["granite"]
~~~`,
	}

	sourceUnreadableIssue = &Issue{
		id:   SourceUnreadableId,
		name: "source-unreadable",
		mdMsg: `
# A content source could not be read!

A directory or archive was listed as a content source but could not be
opened or walked. Its rules were skipped; other sources were still loaded.

## Things you can try:
- Make sure archives are valid zip files (` + "`.zip`" + ` or ` + "`.jar`" + `)
- Rules must live under ` + "`assets/<source id>/ucwdefs/`" + ` inside the source
- Check file permissions`,
	}

	documentParseErrorIssue = &Issue{
		id:   DocumentParseErrorId,
		name: "document-parse-error",
		mdMsg: `
# A rule document could not be parsed!

The whole document was skipped. Only a few problems do this: invalid JSON,
a top-level value that is not an object, a ` + "`blocks`" + ` value that is not
an array, or a document larger than ` + "`max_document_size`" + `.

## Things you can try:
- Validate the document on its own:
~~~
$ ucw validate path/to/rules.json
~~~

## Example document:
~~~json
{
  "blocks": [
    {"from": "minecraft:stone", "through": "chisel:marble", "group": "stone"}
  ]
}
~~~`,
	}

	ruleInvalidIssue = &Issue{
		id:   RuleInvalidId,
		name: "rule-invalid",
		mdMsg: `
# A rule was rejected!

One rule object failed validation. The rest of its document was kept.

## Rule fields:
- ` + "`from`" + ` (required): ` + "`\"ns:block\"`" + `, ` + "`\"ns:block#meta\"`" + `, or a list of
  ` + "`\"ns:block#meta\"`" + ` entries and ` + "`null`" + ` placeholders naming one block
- ` + "`through`" + ` (required): the block whose variants are mirrored
- ` + "`basedUpon`" + ` (optional): the state the generated blocks copy, defaults to ` + "`through`" + `
- ` + "`group`" + ` (required): the variation group name`,
	}

	ruleUnresolvedIssue = &Issue{
		id:   RuleUnresolvedId,
		name: "rule-unresolved",
		mdMsg: `
# A rule references an unknown block!

Every block named by ` + "`from`" + `, ` + "`through`" + ` and ` + "`basedUpon`" + ` must exist in the
host catalog before rules are collected.

## Things you can try:
- Add the block to your catalog file
- Check the namespace: identifiers without one default to ` + "`minecraft`",
	}

	ruleDuplicateIssue = &Issue{
		id:   RuleDuplicateId,
		name: "rule-duplicate",
		mdMsg: `
# A rule was declared twice!

Two rules with the same source block and the same generated variants are the
same rule. The first one wins; the later copy is reported and dropped.

This is harmless when two packs ship the same rules.`,
	}

	generatedIdCollisionIssue = &Issue{
		id:   GeneratedIdCollisionId,
		name: "generated-id-collision",
		mdMsg: `
# Two rules would generate the same block!

A rule was rejected because one of its generated identifiers is already
claimed by an accepted rule with a different variant layout.

## Things you can try:
- Remove one of the overlapping rules
- Make both rules use the same ` + "`from`" + ` layout so they deduplicate`,
	}

	phaseOrderIssue = &Issue{
		id:   PhaseOrderId,
		name: "phase-order",
		mdMsg: `
# Lifecycle step out of order!

The engine runs in fixed steps: collect, declare blocks, declare items,
initialize. A step was requested before the one it depends on, or after the
engine failed.

Use ` + "`ucw reload`" + ` to recollect rules after content changes.`,
	}

	registrationFailedIssue = &Issue{
		id:   RegistrationFailedId,
		name: "registration-failed",
		mdMsg: `
# Registering generated content failed!

The host refused a generated block, item or tag. Registration is not retried
because the host may already hold part of the content.

## Things you can try:
- Look for catalog blocks whose ids clash with generated ids
- Run with ` + "`--verbose`" + ` to see the full error chain`,
	}

	issues = map[Id]*Issue{
		fileNotFoundIssue.Id():         fileNotFoundIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		catalogInvalidIssue.Id():       catalogInvalidIssue,
		sourceUnreadableIssue.Id():     sourceUnreadableIssue,
		documentParseErrorIssue.Id():   documentParseErrorIssue,
		ruleInvalidIssue.Id():          ruleInvalidIssue,
		ruleUnresolvedIssue.Id():       ruleUnresolvedIssue,
		ruleDuplicateIssue.Id():        ruleDuplicateIssue,
		generatedIdCollisionIssue.Id(): generatedIdCollisionIssue,
		phaseOrderIssue.Id():           phaseOrderIssue,
		registrationFailedIssue.Id():   registrationFailedIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	values := maps.Values(issues)
	slices.SortFunc(values, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}

// Lookup finds an issue by its name.
func Lookup(name string) (*Issue, bool) {
	for _, iss := range issues {
		if iss.name == name {
			return iss, true
		}
	}
	return nil, false
}

// Names returns every issue name ordered by id.
func Names() []string {
	names := make([]string, 0, len(issues))
	for _, iss := range Values() {
		names = append(names, iss.name)
	}
	return names
}
