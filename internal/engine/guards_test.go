// internal/engine/guards_test.go
package engine

import (
	"testing"

	"github.com/valpere/crosslink/internal/rules"
)

func TestGuardsPass_Empty(t *testing.T) {
	ctx := mustContext(t, "https://javdb.com/", newCountingDocument())
	if !GuardsPass(nil, ctx) {
		t.Error("Expected nil guards to pass")
	}
	if !GuardsPass([]rules.PageGuard{}, ctx) {
		t.Error("Expected empty guards to pass")
	}
}

func TestGuardsPass_Kinds(t *testing.T) {
	doc := newCountingDocument()
	doc.elements["div.screencap"] = &fakeElement{}
	doc.bodyText = "識別碼: ABC-123 發行日期"
	ctx := mustContext(t, "https://www.javbus.com/ABC-123", doc)

	tests := []struct {
		name     string
		guard    rules.PageGuard
		expected bool
	}{
		{"url regex", rules.PageGuard{Type: rules.GuardURLRegex, Rule: `/abc-\d+$`}, true},
		{"url regex miss", rules.PageGuard{Type: rules.GuardURLRegex, Rule: `/v/`}, false},
		{"invalid url regex", rules.PageGuard{Type: rules.GuardURLRegex, Rule: `(`}, false},
		{"selector", rules.PageGuard{Type: rules.GuardSelector, Rule: "div.screencap"}, true},
		{"selector miss", rules.PageGuard{Type: rules.GuardSelector, Rule: "#video_info"}, false},
		{"text content", rules.PageGuard{Type: rules.GuardTextContent, Rule: "識別碼"}, true},
		{"text content is case sensitive", rules.PageGuard{Type: rules.GuardTextContent, Rule: "abc-123"}, false},
		{"unknown type", rules.PageGuard{Type: rules.GuardType("script"), Rule: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GuardsPass([]rules.PageGuard{tt.guard}, ctx); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestGuardsPass_ShortCircuitsInPriorityOrder(t *testing.T) {
	doc := newCountingDocument()
	doc.elements["#detail"] = &fakeElement{}
	ctx := mustContext(t, "https://javdb.com/v/abc", doc)

	guards := []rules.PageGuard{
		{ID: "late-text", Type: rules.GuardTextContent, Rule: "never", Priority: 5},
		{ID: "early-selector", Type: rules.GuardSelector, Rule: "#detail", Priority: 1},
		{ID: "failing", Type: rules.GuardSelector, Rule: "#nope", Priority: 0},
	}

	if !GuardsPass(guards, ctx) {
		t.Fatal("Expected guards to pass")
	}
	if doc.bodyCalls != 0 {
		t.Error("Expected evaluation to stop before the text-content guard")
	}
	if doc.selectorCalls["#nope"] != 1 {
		t.Error("Expected priority 0 guard to be evaluated first")
	}
}

func TestGuardsPass_AllFail(t *testing.T) {
	doc := newCountingDocument()
	doc.bodyText = "listing"
	ctx := mustContext(t, "https://javdb.com/", doc)

	guards := []rules.PageGuard{
		{Type: rules.GuardTextContent, Rule: "detail"},
		{Type: rules.GuardTextContent, Rule: "movie"},
	}
	if GuardsPass(guards, ctx) {
		t.Error("Expected guards to fail")
	}
	if doc.bodyCalls != 1 {
		t.Errorf("Expected body text read once across guards, got %d", doc.bodyCalls)
	}
}
