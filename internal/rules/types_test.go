// internal/rules/types_test.go
package rules

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRegistry_FirstWriterWins(t *testing.T) {
	r := NewRegistry()

	if !r.Put(IdentifierValue{Type: "fanhao", Value: "ABC-001", SourceExtractorID: "a"}) {
		t.Fatal("Expected first put to succeed")
	}
	if r.Put(IdentifierValue{Type: "fanhao", Value: "XYZ-999", SourceExtractorID: "b"}) {
		t.Fatal("Expected second put for the same type to be rejected")
	}
	r.Put(IdentifierValue{Type: "title", Value: "Movie", SourceExtractorID: "c"})

	v, ok := r.Get("fanhao")
	if !ok || v.Value != "ABC-001" || v.SourceExtractorID != "a" {
		t.Fatalf("Expected ABC-001 from a, got %+v", v)
	}
	if r.Len() != 2 {
		t.Fatalf("Expected 2 identifiers, got %d", r.Len())
	}

	values := r.Values()
	if values[0].Type != "fanhao" || values[1].Type != "title" {
		t.Errorf("Expected insertion order fanhao,title; got %s,%s", values[0].Type, values[1].Type)
	}

	m := r.Map()
	if m["fanhao"] != "ABC-001" || m["title"] != "Movie" {
		t.Errorf("Unexpected map: %v", m)
	}
}

func TestRegistry_MarshalJSON(t *testing.T) {
	r := NewRegistry()
	r.Put(IdentifierValue{Type: "fanhao", Value: "ABC-001", SourceExtractorID: "a"})

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Failed to marshal registry: %v", err)
	}
	want := `[{"type":"fanhao","value":"ABC-001","sourceExtractorId":"a"}]`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}
}

func TestSortedGuards_StableOnTies(t *testing.T) {
	guards := []PageGuard{
		{ID: "c", Priority: 2},
		{ID: "a"},
		{ID: "b"},
		{ID: "d", Priority: -1},
	}
	sorted := SortedGuards(guards)

	var ids []string
	for _, g := range sorted {
		ids = append(ids, g.ID)
	}
	if got := strings.Join(ids, ","); got != "d,a,b,c" {
		t.Errorf("Expected d,a,b,c, got %s", got)
	}
	if guards[0].ID != "c" {
		t.Error("SortedGuards must not reorder its input")
	}
}

func TestSiteProfile_IsEnabled(t *testing.T) {
	off := false
	on := true
	tests := []struct {
		name    string
		enabled *bool
		want    bool
	}{
		{"unset", nil, true},
		{"true", &on, true},
		{"false", &off, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := SiteProfile{Enabled: tt.enabled}
			if got := p.IsEnabled(); got != tt.want {
				t.Errorf("IsEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSiteProfile_CloneIsDeep(t *testing.T) {
	orig := DefaultProfiles()[0]
	orig.EntryPoints[0].QueryParams = map[string]string{"lang": "en"}

	clone := orig.Clone()
	clone.Keywords[0] = "changed"
	clone.Matchers[0].Pattern = "changed"
	clone.EntryPoints[0].QueryParams["lang"] = "jp"
	*clone.Enabled = false

	if orig.Keywords[0] == "changed" || orig.Matchers[0].Pattern == "changed" {
		t.Error("Clone shares slices with the original")
	}
	if orig.EntryPoints[0].QueryParams["lang"] != "en" {
		t.Error("Clone shares query params with the original")
	}
	if !orig.IsEnabled() {
		t.Error("Clone shares the enabled flag with the original")
	}
}

func TestDefaultProfiles_FreshCopies(t *testing.T) {
	a := DefaultProfiles()
	a[0].Name = "mutated"
	b := DefaultProfiles()
	if b[0].Name == "mutated" {
		t.Fatal("DefaultProfiles must return a fresh copy each call")
	}
	if len(b) != 7 {
		t.Errorf("Expected 7 default profiles, got %d", len(b))
	}
}
