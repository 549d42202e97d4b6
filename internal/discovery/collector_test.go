// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/chiselworks/ucw/internal/ruleset"
	"github.com/chiselworks/ucw/internal/testutil"
	"github.com/chiselworks/ucw/pkg/ucwdef"
)

const stoneRule = `{"blocks": [{"from": "minecraft:stone", "through": "chisel:marble", "group": "chiseled_stone"}]}`

type mapResolver map[ucwdef.Identifier][]int

func (m mapResolver) LookupBlock(id ucwdef.Identifier) (ucwdef.BlockInfo, bool) {
	v, ok := m[id]
	return ucwdef.BlockInfo{ID: id, Variants: v}, ok
}

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	resolver := mapResolver{
		"minecraft:stone":     {0, 1, 2, 3},
		"minecraft:sandstone": {0, 1, 2},
		"chisel:marble":       {0, 1, 2},
	}
	return New(resolver, ruleset.New(),
		WithLogger(log.New(io.Discard)),
		WithNamespace("ucw"),
	)
}

func containsDiagnostic(diags []Diagnostic, code DiagnosticCode, path string) bool {
	for _, diag := range diags {
		if diag.Code == code && (path == "" || diag.Path == path) {
			return true
		}
	}
	return false
}

func TestCollect_DirectoryAndArchiveSources(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	sources := []ContentSource{
		{ID: "alpha", Path: testutil.WriteDirSource(t, filepath.Join(tmpDir, "alpha"), "alpha", map[string]string{"stone.json": stoneRule})},
		{ID: "beta", Path: testutil.WriteZipSource(t, filepath.Join(tmpDir, "beta.jar"), "beta", map[string]string{"stone.json": stoneRule})},
	}

	c := newTestCollector(t)
	report, err := c.Collect(context.Background(), sources)
	if err != nil {
		t.Fatalf("Collect() returned error: %v", err)
	}

	if report.Accepted != 1 || c.Rules().Len() != 1 {
		t.Errorf("Accepted = %d, Len() = %d, want 1", report.Accepted, c.Rules().Len())
	}
	if report.Sources != 2 || report.Documents != 2 {
		t.Errorf("Sources = %d, Documents = %d, want 2/2", report.Sources, report.Documents)
	}
	archiveDoc := sources[1].Path + "!/assets/beta/ucwdefs/stone.json"
	if !containsDiagnostic(report.Diagnostics, CodeRuleDuplicate, archiveDoc) {
		t.Fatalf("expected rule_duplicate for %s, got: %#v", archiveDoc, report.Diagnostics)
	}
	if HasErrors(report.Diagnostics) {
		t.Errorf("duplicates should only warn, got: %#v", report.Diagnostics)
	}

	rule := c.Rules().Rules()[0]
	if rule.Origin.SourceID != "alpha" {
		t.Errorf("first occurrence should win, got origin %+v", rule.Origin)
	}
}

func TestCollect_MissingPathsAreSilent(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	noRules := filepath.Join(tmpDir, "norules")
	testutil.MustMkdirAll(t, filepath.Join(noRules, "assets", "norules"), 0o755)

	c := newTestCollector(t)
	report, err := c.Collect(context.Background(), []ContentSource{
		{ID: "missing", Path: filepath.Join(tmpDir, "does-not-exist")},
		{ID: "norules", Path: noRules},
		{ID: "other", Path: testutil.WriteDirSource(t, filepath.Join(tmpDir, "other"), "someone-else", map[string]string{"stone.json": stoneRule})},
	})
	if err != nil {
		t.Fatalf("Collect() returned error: %v", err)
	}
	if len(report.Diagnostics) != 0 {
		t.Errorf("expected no diagnostics, got: %#v", report.Diagnostics)
	}
	if report.Accepted != 0 || report.Documents != 0 {
		t.Errorf("Accepted = %d, Documents = %d, want 0/0", report.Accepted, report.Documents)
	}
}

func TestCollect_BrokenArchive(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	broken := filepath.Join(tmpDir, "broken.jar")
	testutil.MustWriteFile(t, broken, "not a zip file")
	good := testutil.WriteDirSource(t, filepath.Join(tmpDir, "good"), "good", map[string]string{"stone.json": stoneRule})

	c := newTestCollector(t)
	report, err := c.Collect(context.Background(), []ContentSource{
		{ID: "broken", Path: broken},
		{ID: "good", Path: good},
	})
	if err != nil {
		t.Fatalf("Collect() returned error: %v", err)
	}
	if !containsDiagnostic(report.Diagnostics, CodeSourceOpenFailed, broken) {
		t.Fatalf("expected source_open_failed for %s, got: %#v", broken, report.Diagnostics)
	}
	if report.Accepted != 1 {
		t.Errorf("the good source should still load, Accepted = %d", report.Accepted)
	}
}

func TestCollect_InvalidSource(t *testing.T) {
	t.Parallel()

	c := newTestCollector(t)
	report, err := c.Collect(context.Background(), []ContentSource{{ID: "../escape", Path: t.TempDir()}})
	if err != nil {
		t.Fatalf("Collect() returned error: %v", err)
	}
	if !containsDiagnostic(report.Diagnostics, CodeSourceOpenFailed, "") {
		t.Fatalf("expected source_open_failed, got: %#v", report.Diagnostics)
	}
	if !errors.Is(report.Diagnostics[0].Cause, ErrInvalidContentSource) {
		t.Errorf("cause should wrap ErrInvalidContentSource, got: %v", report.Diagnostics[0].Cause)
	}
}

func TestCollect_DocumentAndRuleDiagnostics(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteDirSource(t, filepath.Join(t.TempDir(), "mixed"), "mixed", map[string]string{
		"a_broken.json": `{"blocks": [`,
		"b_rules.json": `{"blocks": [
			{"from": "minecraft:stone", "through": "chisel:marble", "group": "ok"},
			{"from": "minecraft:stone", "group": "missing_through"},
			{"from": "minecraft:nope", "through": "chisel:marble", "group": "unknown"}
		]}`,
		"c_empty.json": `{}`,
		"readme.txt":   `not a rule document`,
	})

	c := newTestCollector(t)
	report, err := c.Collect(context.Background(), []ContentSource{{ID: "mixed", Path: dir}})
	if err != nil {
		t.Fatalf("Collect() returned error: %v", err)
	}

	base := filepath.Join(dir, "assets", "mixed", "ucwdefs")
	if !containsDiagnostic(report.Diagnostics, CodeDocumentParseFailed, filepath.Join(base, "a_broken.json")) {
		t.Errorf("expected document_parse_failed, got: %#v", report.Diagnostics)
	}
	if !containsDiagnostic(report.Diagnostics, CodeRuleParseFailed, filepath.Join(base, "b_rules.json")) {
		t.Errorf("expected rule_parse_failed, got: %#v", report.Diagnostics)
	}
	if !containsDiagnostic(report.Diagnostics, CodeRuleUnresolvedReference, filepath.Join(base, "b_rules.json")) {
		t.Errorf("expected rule_unresolved_reference, got: %#v", report.Diagnostics)
	}
	if len(report.Diagnostics) != 3 {
		t.Errorf("expected 3 diagnostics, got %d: %#v", len(report.Diagnostics), report.Diagnostics)
	}
	if report.Documents != 3 {
		t.Errorf("Documents = %d, want 3 (non-JSON files are ignored)", report.Documents)
	}
	if report.Accepted != 1 {
		t.Errorf("Accepted = %d, want 1", report.Accepted)
	}
}

func TestCollect_GeneratedIDCollision(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteDirSource(t, filepath.Join(t.TempDir(), "col"), "col", map[string]string{
		"a.json": stoneRule,
		"b.json": `{"blocks": [{"from": "minecraft:stone#1", "through": "chisel:marble", "group": "other"}]}`,
	})

	c := newTestCollector(t)
	report, err := c.Collect(context.Background(), []ContentSource{{ID: "col", Path: dir}})
	if err != nil {
		t.Fatalf("Collect() returned error: %v", err)
	}
	if !containsDiagnostic(report.Diagnostics, CodeRuleGeneratedIDCollision, "") {
		t.Fatalf("expected rule_generated_id_collision, got: %#v", report.Diagnostics)
	}
	if report.Accepted != 1 {
		t.Errorf("Accepted = %d, want 1", report.Accepted)
	}
}

func TestCollect_OrderAndIdempotence(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteDirSource(t, filepath.Join(t.TempDir(), "order"), "order", map[string]string{
		"a.json":     `{"blocks": [{"from": "minecraft:stone#0", "through": "chisel:marble", "group": "a"}]}`,
		"sub/b.json": `{"blocks": [{"from": "minecraft:stone#1", "through": "chisel:marble", "group": "b"}]}`,
		"z.json":     `{"blocks": [{"from": "minecraft:sandstone", "through": "chisel:marble", "group": "z"}]}`,
	})
	sources := []ContentSource{{ID: "order", Path: dir}}

	c := newTestCollector(t)
	if _, err := c.Collect(context.Background(), sources); err != nil {
		t.Fatalf("Collect() returned error: %v", err)
	}
	var groups []string
	for _, r := range c.Rules().Rules() {
		groups = append(groups, r.Group)
	}
	// Directory listing order belongs to the file system.
	slices.Sort(groups)
	if !slices.Equal(groups, []string{"a", "b", "z"}) {
		t.Errorf("groups = %v, want a, b and z", groups)
	}

	first := c.Rules().Keys()
	if _, err := c.Collect(context.Background(), sources); err != nil {
		t.Fatalf("second Collect() returned error: %v", err)
	}
	if !slices.Equal(first, c.Rules().Keys()) {
		t.Errorf("second Collect() changed the rule set:\n%v\n%v", first, c.Rules().Keys())
	}
}

func TestCollect_ArchiveStorageOrder(t *testing.T) {
	t.Parallel()

	// Both documents describe the same rule. The one stored first wins even
	// though it sorts last.
	jar := testutil.WriteZipEntries(t, filepath.Join(t.TempDir(), "order.jar"), "order",
		testutil.ZipEntry{Name: "z/late.json", Data: `{"blocks": [{"from": "minecraft:sandstone", "through": "chisel:marble", "group": "sandstone"}]}`},
		testutil.ZipEntry{Name: "b.json", Data: `{"blocks": [{"from": "minecraft:stone", "through": "chisel:marble", "group": "from_b"}]}`},
		testutil.ZipEntry{Name: "a.json", Data: `{"blocks": [{"from": "minecraft:stone", "through": "chisel:marble", "group": "from_a"}]}`},
	)

	c := newTestCollector(t)
	report, err := c.Collect(context.Background(), []ContentSource{{ID: "order", Path: jar}})
	if err != nil {
		t.Fatalf("Collect() returned error: %v", err)
	}

	var groups []string
	for _, r := range c.Rules().Rules() {
		groups = append(groups, r.Group)
	}
	if !slices.Equal(groups, []string{"sandstone", "from_b"}) {
		t.Errorf("groups = %v, want [sandstone from_b]", groups)
	}
	duplicate := jar + "!/" + testutil.RulesPath("order", "a.json")
	if !containsDiagnostic(report.Diagnostics, CodeRuleDuplicate, duplicate) {
		t.Errorf("expected rule_duplicate for %s, got: %#v", duplicate, report.Diagnostics)
	}
}

func TestCollect_UnlistableRulesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "flat")
	rulesDir := filepath.Join(dir, "assets", "flat", "ucwdefs")
	testutil.MustWriteFile(t, rulesDir, "not a directory")

	c := newTestCollector(t)
	report, err := c.Collect(context.Background(), []ContentSource{{ID: "flat", Path: dir}})
	if err != nil {
		t.Fatalf("Collect() returned error: %v", err)
	}
	if !containsDiagnostic(report.Diagnostics, CodeSourceWalkFailed, rulesDir) {
		t.Errorf("expected source_walk_failed for %s, got: %#v", rulesDir, report.Diagnostics)
	}
}

func TestCollect_SchemaCompiledOncePerCall(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dir := testutil.WriteDirSource(t, filepath.Join(tmpDir, "many"), "many", map[string]string{
		"a.json": `{"blocks": [{"from": "minecraft:stone#0", "through": "chisel:marble", "group": "a"}]}`,
		"b.json": `{"blocks": [{"from": "minecraft:stone#1", "through": "chisel:marble", "group": "b"}]}`,
		"c.json": `{"blocks": [{"from": "minecraft:sandstone", "through": "chisel:marble", "group": 3}]}`,
	})
	sources := []ContentSource{{ID: "many", Path: dir}}

	c := newTestCollector(t)
	report, err := c.Collect(context.Background(), sources)
	if err != nil {
		t.Fatalf("Collect() returned error: %v", err)
	}
	if report.Accepted != 2 || !containsDiagnostic(report.Diagnostics, CodeRuleParseFailed, "") {
		t.Fatalf("Accepted = %d, diagnostics = %#v; want 2 rules and one rule_parse_failed", report.Accepted, report.Diagnostics)
	}
	first := c.schema
	if first == nil {
		t.Fatal("Collect() should keep the compiled rule schema")
	}

	if _, diags := c.ParseFile(filepath.Join(dir, "assets", "many", "ucwdefs", "a.json")); len(diags) != 0 {
		t.Fatalf("ParseFile() diagnostics: %#v", diags)
	}
	if c.schema != first {
		t.Error("ParseFile() should reuse the schema compiled by Collect()")
	}

	if _, err := c.Collect(context.Background(), sources); err != nil {
		t.Fatalf("second Collect() returned error: %v", err)
	}
	if c.schema == first {
		t.Error("each Collect() call should compile a fresh schema")
	}
	if c.Rules().Len() != 2 {
		t.Errorf("second Collect() accepted %d rules, want 2", c.Rules().Len())
	}
}

func TestCollect_Canceled(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteDirSource(t, filepath.Join(t.TempDir(), "c"), "c", map[string]string{"stone.json": stoneRule})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestCollector(t)
	_, err := c.Collect(ctx, []ContentSource{{ID: "c", Path: dir}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Collect() error = %v, want context.Canceled", err)
	}
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	good := filepath.Join(tmpDir, "good.json")
	testutil.MustWriteFile(t, good, stoneRule)

	c := newTestCollector(t)
	result, diags := c.ParseFile(good)
	if len(diags) != 0 || result == nil || len(result.Rules) != 1 {
		t.Fatalf("ParseFile() = %v, %#v", result, diags)
	}
	if c.Rules().Len() != 0 {
		t.Error("ParseFile() must not touch the RuleSet")
	}

	_, diags = c.ParseFile(filepath.Join(tmpDir, "missing.json"))
	if !containsDiagnostic(diags, CodeDocumentReadFailed, "") {
		t.Errorf("expected document_read_failed, got: %#v", diags)
	}
}

func TestSourcesFromDir(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	testutil.MustMkdirAll(t, filepath.Join(tmpDir, "bravo"), 0o755)
	testutil.MustMkdirAll(t, filepath.Join(tmpDir, ".hidden"), 0o755)
	testutil.WriteZipSource(t, filepath.Join(tmpDir, "alpha.jar"), "alpha", map[string]string{"x.json": "{}"})
	testutil.WriteZipSource(t, filepath.Join(tmpDir, "charlie.zip"), "charlie", map[string]string{"x.json": "{}"})
	testutil.MustWriteFile(t, filepath.Join(tmpDir, "notes.txt"), "ignored")

	sources, err := SourcesFromDir(tmpDir)
	if err != nil {
		t.Fatalf("SourcesFromDir() returned error: %v", err)
	}
	var ids []string
	for _, s := range sources {
		ids = append(ids, s.ID)
	}
	if !slices.Equal(ids, []string{"alpha", "bravo", "charlie"}) {
		t.Errorf("ids = %v, want [alpha bravo charlie]", ids)
	}

	sources, err = SourcesFromDir(filepath.Join(tmpDir, "missing"))
	if err != nil || sources != nil {
		t.Errorf("SourcesFromDir(missing) = %v, %v; want nil, nil", sources, err)
	}
}

func TestContentSource_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  ContentSource
		want bool
	}{
		{"valid", ContentSource{ID: "chisel", Path: "/mods/chisel.jar"}, true},
		{"empty id", ContentSource{ID: " ", Path: "/mods/x"}, false},
		{"id with separator", ContentSource{ID: "a/b", Path: "/mods/x"}, false},
		{"empty path", ContentSource{ID: "chisel"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.src.IsValid()
			if isValid != tt.want {
				t.Errorf("IsValid() = %v, want %v", isValid, tt.want)
			}
			for _, err := range errs {
				if !errors.Is(err, ErrInvalidContentSource) {
					t.Errorf("error should wrap ErrInvalidContentSource, got: %v", err)
				}
			}
		})
	}
}

func TestSourceKind_IsValid(t *testing.T) {
	t.Parallel()

	if ok, _ := SourceArchive.IsValid(); !ok {
		t.Error("SourceArchive should be valid")
	}
	ok, errs := SourceKind(9).IsValid()
	if ok || len(errs) == 0 || !errors.Is(errs[0], ErrInvalidSourceKind) {
		t.Errorf("SourceKind(9).IsValid() = %v, %v", ok, errs)
	}
}

func TestIsArchive(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]bool{"a.jar": true, "b.ZIP": true, "c.json": false, "d": false} {
		if got := IsArchive(name); got != want {
			t.Errorf("IsArchive(%q) = %v, want %v", name, got, want)
		}
	}
}
