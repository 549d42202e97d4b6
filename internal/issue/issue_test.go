// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestId_Constants(t *testing.T) {
	t.Parallel()

	ids := []Id{
		FileNotFoundId,
		ConfigLoadFailedId,
		CatalogInvalidId,
		SourceUnreadableId,
		DocumentParseErrorId,
		RuleInvalidId,
		RuleUnresolvedId,
		RuleDuplicateId,
		GeneratedIdCollisionId,
		PhaseOrderId,
		RegistrationFailedId,
	}

	seen := make(map[Id]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
		if Get(id) == nil {
			t.Errorf("Get(%d) returned nil, every id needs a catalog entry", id)
		}
	}

	if FileNotFoundId != 1 {
		t.Errorf("FileNotFoundId = %d, want 1", FileNotFoundId)
	}
	if len(Values()) != len(ids) {
		t.Errorf("len(Values()) = %d, want %d", len(Values()), len(ids))
	}
}

func TestValues_OrderedById(t *testing.T) {
	t.Parallel()

	values := Values()
	for i := 1; i < len(values); i++ {
		if values[i-1].Id() >= values[i].Id() {
			t.Fatalf("Values() not ordered: %d before %d", values[i-1].Id(), values[i].Id())
		}
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		wantID Id
		wantOK bool
	}{
		{"document-parse-error", DocumentParseErrorId, true},
		{"generated-id-collision", GeneratedIdCollisionId, true},
		{"config-load-failed", ConfigLoadFailedId, true},
		{"no-such-issue", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			iss, ok := Lookup(tt.name)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.name, ok, tt.wantOK)
			}
			if ok && iss.Id() != tt.wantID {
				t.Errorf("Lookup(%q).Id() = %d, want %d", tt.name, iss.Id(), tt.wantID)
			}
		})
	}
}

func TestNames_UniqueAndKebabCase(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for _, name := range Names() {
		if seen[name] {
			t.Errorf("duplicate issue name %q", name)
		}
		seen[name] = true
		if name == "" || strings.ToLower(name) != name || strings.ContainsAny(name, " _") {
			t.Errorf("issue name %q is not kebab-case", name)
		}
	}
}

func TestIssue_MarkdownMsg(t *testing.T) {
	t.Parallel()

	for _, iss := range Values() {
		msg := string(iss.MarkdownMsg())
		if !strings.Contains(msg, "# ") {
			t.Errorf("issue %q has no heading", iss.Name())
		}
	}
}

func TestIssue_Markdown_Links(t *testing.T) {
	t.Parallel()

	iss := &Issue{
		id:       FileNotFoundId,
		name:     "test",
		mdMsg:    "# Title",
		docLinks: []HttpLink{"https://example.com/docs"},
		extLinks: []HttpLink{"https://example.com/ext"},
	}

	md := iss.Markdown()
	if !strings.HasPrefix(md, "# Title") {
		t.Errorf("Markdown() should start with the message, got %q", md)
	}
	if !strings.Contains(md, "## See also") {
		t.Error("Markdown() should contain a See also section")
	}
	if !strings.Contains(md, "<https://example.com/docs>") || !strings.Contains(md, "<https://example.com/ext>") {
		t.Errorf("Markdown() missing links: %q", md)
	}

	plain := &Issue{mdMsg: "# Plain"}
	if plain.Markdown() != "# Plain" {
		t.Errorf("Markdown() without links = %q, want the bare message", plain.Markdown())
	}
}

func TestIssue_LinksAreCopies(t *testing.T) {
	t.Parallel()

	iss := &Issue{docLinks: []HttpLink{"a"}, extLinks: []HttpLink{"b"}}
	docs := iss.DocLinks()
	docs[0] = "changed"
	if iss.DocLinks()[0] != "a" {
		t.Error("DocLinks() must return a copy")
	}
	ext := iss.ExtLinks()
	ext[0] = "changed"
	if iss.ExtLinks()[0] != "b" {
		t.Error("ExtLinks() must return a copy")
	}
}

func TestIssue_Render(t *testing.T) {
	t.Parallel()

	iss := Get(RuleDuplicateId)
	out, err := iss.Render("notty")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(out, "declared twice") {
		t.Errorf("Render() output missing heading text: %q", out)
	}
}
