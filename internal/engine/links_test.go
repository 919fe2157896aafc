// internal/engine/links_test.go
package engine

import (
	"testing"

	"github.com/valpere/crosslink/internal/rules"
)

func registryWith(values map[string]string) *rules.Registry {
	r := rules.NewRegistry()
	for _, k := range []string{"fanhao", "id", "studio"} {
		if v, ok := values[k]; ok {
			r.Put(rules.IdentifierValue{Type: k, Value: v, SourceExtractorID: k})
		}
	}
	return r
}

func TestBuildLinks_OnePerTarget(t *testing.T) {
	current := rules.SiteProfile{ID: "javdb"}
	target := rules.SiteProfile{
		ID: "avbase",
		EntryPoints: []rules.EntryPoint{
			{ID: "later", RequiredIdentifierType: "fanhao", URLTemplate: "https://www.avbase.net/talents?q={id}", Priority: 2},
			{ID: "search", RequiredIdentifierType: "fanhao", URLTemplate: "https://www.avbase.net/works?q={id}", DisplayName: "AVBase", Color: "#fff", Priority: 1},
		},
	}
	all := []rules.SiteProfile{current, target}

	links := BuildLinks(&all[0], all, registryWith(map[string]string{"fanhao": "ABC-123"}))
	if len(links) != 1 {
		t.Fatalf("Expected exactly one link, got %d", len(links))
	}

	link := links[0]
	if link.ID != "javdb->avbase:search" {
		t.Errorf("Unexpected link id %q", link.ID)
	}
	if link.URL != "https://www.avbase.net/works?q=ABC-123" {
		t.Errorf("Unexpected url %q", link.URL)
	}
	if link.TargetSiteID != "avbase" || link.DisplayName != "AVBase" || link.Color != "#fff" {
		t.Errorf("Expected pass-through fields, got %+v", link)
	}
}

func TestBuildLinks_SkipsSelfAndDisabled(t *testing.T) {
	disabled := false
	entry := []rules.EntryPoint{{ID: "ep", RequiredIdentifierType: "fanhao", URLTemplate: "https://x/{id}"}}
	all := []rules.SiteProfile{
		{ID: "self", EntryPoints: entry},
		{ID: "off", Enabled: &disabled, EntryPoints: entry},
		{ID: "on", EntryPoints: entry},
	}

	links := BuildLinks(&all[0], all, registryWith(map[string]string{"fanhao": "A-1"}))
	if len(links) != 1 || links[0].TargetSiteID != "on" {
		t.Fatalf("Expected only the enabled foreign target, got %+v", links)
	}
}

func TestBuildLinks_FallsBackToResolvableEntryPoint(t *testing.T) {
	all := []rules.SiteProfile{
		{ID: "javdb"},
		{
			ID: "fanza",
			EntryPoints: []rules.EntryPoint{
				{ID: "by-cid", RequiredIdentifierType: "cid", URLTemplate: "https://dmm/{id}"},
				{ID: "by-fanhao", RequiredIdentifierType: "fanhao", Pattern: "-", ReplaceWith: "00", URLTemplate: "https://www.dmm.co.jp/search/=/searchstr={id}", Priority: 1},
			},
		},
		{
			ID:          "nothing",
			EntryPoints: []rules.EntryPoint{{ID: "by-cid", RequiredIdentifierType: "cid", URLTemplate: "https://x/{id}"}},
		},
	}

	links := BuildLinks(&all[0], all, registryWith(map[string]string{"fanhao": "ABC-123"}))
	if len(links) != 1 {
		t.Fatalf("Expected one link, got %d", len(links))
	}
	if links[0].ID != "javdb->fanza:by-fanhao" {
		t.Errorf("Unexpected link %q", links[0].ID)
	}
	if links[0].URL != "https://www.dmm.co.jp/search/=/searchstr=ABC00123" {
		t.Errorf("Unexpected url %q", links[0].URL)
	}
}

func TestBuildLinks_RenderContext(t *testing.T) {
	all := []rules.SiteProfile{
		{ID: "cur"},
		{
			ID: "target",
			EntryPoints: []rules.EntryPoint{{
				ID:                     "ep",
				RequiredIdentifierType: "fanhao",
				Pattern:                `(\w+)-`,
				URLTemplate:            "https://t/{id:lower}/{fanhao}/{studio:upper}/{missing}",
				QueryParams:            map[string]string{"q": "{fanhao}", "s": "a b"},
			}},
		},
	}

	registry := registryWith(map[string]string{"fanhao": "ABC-123", "id": "natural", "studio": "s1"})
	links := BuildLinks(&all[0], all, registry)
	if len(links) != 1 {
		t.Fatalf("Expected one link, got %d", len(links))
	}

	expected := "https://t/abc/ABC-123/S1/?q=ABC-123&s=a%20b"
	if links[0].URL != expected {
		t.Errorf("Expected %q, got %q", expected, links[0].URL)
	}
}

func TestBuildLinks_InvalidEntryPointPattern(t *testing.T) {
	all := []rules.SiteProfile{
		{ID: "cur"},
		{
			ID: "target",
			EntryPoints: []rules.EntryPoint{
				{ID: "broken", RequiredIdentifierType: "fanhao", Pattern: "(", URLTemplate: "https://broken/{id}"},
				{ID: "ok", RequiredIdentifierType: "fanhao", URLTemplate: "https://ok/{id}", Priority: 1},
			},
		},
	}

	links := BuildLinks(&all[0], all, registryWith(map[string]string{"fanhao": "A-1"}))
	if len(links) != 1 || links[0].URL != "https://ok/A-1" {
		t.Errorf("Expected fallback entry point, got %+v", links)
	}
}

func TestBuildLinks_NoIdentifiers(t *testing.T) {
	all := []rules.SiteProfile{
		{ID: "cur"},
		{ID: "target", EntryPoints: []rules.EntryPoint{{ID: "ep", RequiredIdentifierType: "fanhao", URLTemplate: "https://t/{id}"}}},
	}

	links := BuildLinks(&all[0], all, rules.NewRegistry())
	if links == nil || len(links) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", links)
	}
}
