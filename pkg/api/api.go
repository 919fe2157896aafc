// pkg/api/api.go

// Package api is the public entry point for embedding crosslink: build an
// Evaluator from a rule set and feed it pages.
package api

import (
	"context"
	"fmt"

	"github.com/valpere/crosslink/internal/document"
	"github.com/valpere/crosslink/internal/engine"
	"github.com/valpere/crosslink/internal/rules"
	"github.com/valpere/crosslink/internal/utils"
)

// Evaluator matches pages against a fixed rule set. It is safe for
// concurrent use and caches results per URL.
type Evaluator struct {
	engine *engine.Engine
}

// NewEvaluator creates an evaluator for profiles. A rule set with any
// validation problem is rejected with ValidationErrors.
func NewEvaluator(profiles []SiteProfile) (*Evaluator, error) {
	if verrs := rules.Validate(profiles); len(verrs) > 0 {
		return nil, verrs
	}

	eng, err := engine.NewEngine(engine.StaticLoader(profiles), engine.WithLogger(utils.NewComponentLogger("api")))
	if err != nil {
		return nil, err
	}
	if err := eng.Hydrate(context.Background()); err != nil {
		return nil, err
	}
	return &Evaluator{engine: eng}, nil
}

// NewDefaultEvaluator creates an evaluator for the built-in rule set.
func NewDefaultEvaluator() (*Evaluator, error) {
	return NewEvaluator(rules.DefaultProfiles())
}

// EvaluateHTML parses html as the page at url and evaluates it. A page no
// profile claims yields a nil result and a nil error.
func (e *Evaluator) EvaluateHTML(ctx context.Context, url, html string) (*Result, error) {
	doc, err := document.ParseString(html, url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return e.engine.Run(ctx, url, doc)
}

// Rules returns a copy of the evaluator's rule set.
func (e *Evaluator) Rules() []SiteProfile {
	return e.engine.Rules()
}

// Invalidate drops the cached result for url, or every cached result when
// url is empty.
func (e *Evaluator) Invalidate(url string) {
	e.engine.Invalidate(url)
}

// ValidateRules reports every problem in a rule set.
func ValidateRules(profiles []SiteProfile) ValidationErrors {
	return rules.Validate(profiles)
}

// DefaultProfiles returns a fresh copy of the built-in rule set.
func DefaultProfiles() []SiteProfile {
	return rules.DefaultProfiles()
}

// DecodeRules parses a JSON or YAML rule set.
func DecodeRules(data []byte) ([]SiteProfile, error) {
	return rules.Decode(data)
}
