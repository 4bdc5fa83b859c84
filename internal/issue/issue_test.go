// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

// plainRender replaces glamour for the duration of a test.
func plainRender(t *testing.T) {
	t.Helper()
	prev := render
	render = func(in, _ string) (string, error) { return in, nil }
	t.Cleanup(func() { render = prev })
}

func TestGet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id    Id
		title string
	}{
		{ProjectFileNotFoundId, "No Carsier.toml found"},
		{ProjectFileInvalidId, "Carsier.toml is invalid"},
		{ConfigLoadFailedId, "Failed to load configuration"},
		{ImportSyntaxErrorId, "Invalid module import"},
		{ModuleDepthId, "climbs above the crate root"},
		{EntryPointNotFoundId, "Entry point not found"},
		{NoTargetsId, "No target found"},
		{ManifestNotFoundId, "No module manifest"},
		{ToolFailedId, "An external tool failed"},
		{ToolNotFoundId, "Tool not found"},
		{WriteLockHeldId, "Output file is locked"},
		{ImportCycleId, "Import cycle detected"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			t.Parallel()
			i := Get(tt.id)
			if i == nil {
				t.Fatalf("Get(%d) = nil", tt.id)
			}
			if i.Id() != tt.id || !strings.Contains(string(i.MarkdownMsg()), tt.title) {
				t.Errorf("Get(%d) = id %d, page %q", tt.id, i.Id(), i.MarkdownMsg())
			}
		})
	}

	if Get(Id(0)) != nil || Get(ImportCycleId+1) != nil {
		t.Error("unknown ids have no page")
	}
}

func TestValues(t *testing.T) {
	t.Parallel()

	all := Values()
	if len(all) != int(ImportCycleId) {
		t.Fatalf("Values() has %d entries, want %d", len(all), ImportCycleId)
	}
	for n, i := range all {
		if i.Id() != Id(n+1) {
			t.Errorf("Values()[%d].Id() = %d; entries are ordered by id", n, i.Id())
		}
	}
}

func TestIssue_Render(t *testing.T) {
	plainRender(t)

	t.Run("links", func(t *testing.T) {
		i := &Issue{mdMsg: "# Broken", docLinks: []HttpLink{"https://example.com/doc"}, extLinks: []HttpLink{"https://example.com/ext"}}
		out, err := i.Render("dark")
		if err != nil {
			t.Fatal(err)
		}
		want := "# Broken\n\n## See also\n\n- <https://example.com/doc>\n- <https://example.com/ext>"
		if out != want {
			t.Errorf("Render() = %q, want %q", out, want)
		}
		if got := i.DocLinks(); len(got) != 1 {
			t.Errorf("DocLinks() = %v", got)
		}
	})

	t.Run("no links", func(t *testing.T) {
		out, err := (&Issue{mdMsg: "# Broken"}).Render("dark")
		if err != nil || out != "# Broken" {
			t.Errorf("Render() = %q, %v", out, err)
		}
	})

	t.Run("catalog", func(t *testing.T) {
		for _, i := range Values() {
			out, err := i.Render("dark")
			if err != nil || strings.TrimSpace(out) == "" {
				t.Errorf("issue %d: %q, %v", i.Id(), out, err)
			}
		}
		if out, _ := Get(ToolNotFoundId).Render("dark"); !strings.Contains(out, "get-coursier.io") {
			t.Error("tool-not-found page should link the coursier install guide")
		}
	})
}

func TestIssue_RenderWithGlamour(t *testing.T) {
	i := Get(ImportSyntaxErrorId)
	out, err := i.Render("notty")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(out, "Invalid module import") {
		t.Errorf("rendered page lost its title: %q", out)
	}
}
