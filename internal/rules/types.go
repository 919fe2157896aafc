// internal/rules/types.go
package rules

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// MatchScope selects the part of the URL a matcher is tested against.
type MatchScope string

const (
	ScopeHost     MatchScope = "host"
	ScopeHostname MatchScope = "hostname"
	ScopePathname MatchScope = "pathname"
	ScopeQuery    MatchScope = "query"
	ScopeHash     MatchScope = "hash"
	ScopeFull     MatchScope = "full"
)

// GuardType is the kind of a detail page guard.
type GuardType string

const (
	GuardURLRegex    GuardType = "url-regex"
	GuardSelector    GuardType = "selector"
	GuardTextContent GuardType = "text-content"
)

// ExtractorMethod is the kind of an identifier extractor.
type ExtractorMethod string

const (
	MethodURLRegex ExtractorMethod = "url-regex"
	MethodSelector ExtractorMethod = "selector"
	MethodXPath    ExtractorMethod = "xpath"
)

// UIPosition tells the renderer where to place the links relative to the
// anchor element.
type UIPosition string

const (
	PositionBefore   UIPosition = "before"
	PositionAfter    UIPosition = "after"
	PositionAppend   UIPosition = "append"
	PositionPrepend  UIPosition = "prepend"
	PositionFloating UIPosition = "floating"
)

// URLMatcher decides whether a URL belongs to a site.
type URLMatcher struct {
	ID         string     `yaml:"id" json:"id"`
	Pattern    string     `yaml:"pattern" json:"pattern"`
	Exclude    []string   `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	MatchScope MatchScope `yaml:"matchScope,omitempty" json:"matchScope,omitempty"`
	SPAAware   bool       `yaml:"spaAware,omitempty" json:"spaAware,omitempty"`
}

// Scope returns the configured scope, full when unset.
func (m URLMatcher) Scope() MatchScope {
	if m.MatchScope == "" {
		return ScopeFull
	}
	return m.MatchScope
}

// PageGuard is a secondary test for "this is a detail page".
type PageGuard struct {
	ID       string    `yaml:"id" json:"id"`
	Type     GuardType `yaml:"type" json:"type"`
	Rule     string    `yaml:"rule" json:"rule"`
	Priority int       `yaml:"priority,omitempty" json:"priority,omitempty"`
}

// Extractor derives one typed identifier from a page.
type Extractor struct {
	ID             string          `yaml:"id" json:"id"`
	Method         ExtractorMethod `yaml:"method" json:"method"`
	Selector       string          `yaml:"selector,omitempty" json:"selector,omitempty"`
	Attribute      string          `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	Pattern        string          `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	ReplaceWith    string          `yaml:"replaceWith,omitempty" json:"replaceWith,omitempty"`
	IdentifierType string          `yaml:"identifierType" json:"identifierType"`
	Priority       int             `yaml:"priority,omitempty" json:"priority,omitempty"`
}

// EntryPoint turns an identifier into a URL on the owning site.
type EntryPoint struct {
	ID                     string            `yaml:"id" json:"id"`
	RequiredIdentifierType string            `yaml:"requiredIdentifierType" json:"requiredIdentifierType"`
	Pattern                string            `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	ReplaceWith            string            `yaml:"replaceWith,omitempty" json:"replaceWith,omitempty"`
	URLTemplate            string            `yaml:"urlTemplate" json:"urlTemplate"`
	QueryParams            map[string]string `yaml:"queryParams,omitempty" json:"queryParams,omitempty"`
	DisplayName            string            `yaml:"displayName" json:"displayName"`
	Color                  string            `yaml:"color,omitempty" json:"color,omitempty"`
	Priority               int               `yaml:"priority,omitempty" json:"priority,omitempty"`
}

// UIPlacement is passed through to the renderer untouched.
type UIPlacement struct {
	Anchor   string     `yaml:"anchor" json:"anchor"`
	Position UIPosition `yaml:"position,omitempty" json:"position,omitempty"`
}

// SiteProfile is the rule bundle of one site.
type SiteProfile struct {
	ID          string       `yaml:"id" json:"id"`
	Name        string       `yaml:"name" json:"name"`
	Keywords    []string     `yaml:"keywords" json:"keywords"`
	Enabled     *bool        `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Matchers    []URLMatcher `yaml:"matchers" json:"matchers"`
	Guards      []PageGuard  `yaml:"detailPageGuards,omitempty" json:"detailPageGuards,omitempty"`
	Extractors  []Extractor  `yaml:"identifierExtractors" json:"identifierExtractors"`
	EntryPoints []EntryPoint `yaml:"entryPoints,omitempty" json:"entryPoints,omitempty"`
	UIPlacement UIPlacement  `yaml:"uiPlacement" json:"uiPlacement"`
}

// IsEnabled reports whether the profile takes part in evaluation. A
// profile without an explicit flag is enabled.
func (p *SiteProfile) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Clone returns a deep copy of the profile.
func (p SiteProfile) Clone() SiteProfile {
	out := p
	out.Keywords = append([]string(nil), p.Keywords...)
	if p.Enabled != nil {
		enabled := *p.Enabled
		out.Enabled = &enabled
	}
	if p.Matchers != nil {
		out.Matchers = make([]URLMatcher, len(p.Matchers))
		for i, m := range p.Matchers {
			m.Exclude = append([]string(nil), m.Exclude...)
			out.Matchers[i] = m
		}
	}
	out.Guards = append([]PageGuard(nil), p.Guards...)
	out.Extractors = append([]Extractor(nil), p.Extractors...)
	if p.EntryPoints != nil {
		out.EntryPoints = make([]EntryPoint, len(p.EntryPoints))
		for i, ep := range p.EntryPoints {
			if ep.QueryParams != nil {
				params := make(map[string]string, len(ep.QueryParams))
				for k, v := range ep.QueryParams {
					params[k] = v
				}
				ep.QueryParams = params
			}
			out.EntryPoints[i] = ep
		}
	}
	return out
}

// CloneAll deep copies a rule set, preserving order.
func CloneAll(profiles []SiteProfile) []SiteProfile {
	if profiles == nil {
		return nil
	}
	out := make([]SiteProfile, len(profiles))
	for i, p := range profiles {
		out[i] = p.Clone()
	}
	return out
}

// SortedGuards returns the guards ordered by ascending priority. Ties
// keep their configured order.
func SortedGuards(guards []PageGuard) []PageGuard {
	sorted := append([]PageGuard(nil), guards...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return sorted
}

// SortedExtractors returns the extractors ordered by ascending priority.
func SortedExtractors(extractors []Extractor) []Extractor {
	sorted := append([]Extractor(nil), extractors...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return sorted
}

// SortedEntryPoints returns the entry points ordered by ascending priority.
func SortedEntryPoints(entryPoints []EntryPoint) []EntryPoint {
	sorted := append([]EntryPoint(nil), entryPoints...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return sorted
}

// IdentifierValue is one extracted identifier with its provenance.
type IdentifierValue struct {
	Type              string `json:"type"`
	Value             string `json:"value"`
	SourceExtractorID string `json:"sourceExtractorId"`
}

// Registry maps identifier types to values. The first value stored for
// a type is kept; insertion order is preserved.
type Registry struct {
	order  []string
	values map[string]IdentifierValue
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{values: make(map[string]IdentifierValue)}
}

// Put stores v unless its type is already populated. It reports whether
// the value was stored.
func (r *Registry) Put(v IdentifierValue) bool {
	if _, exists := r.values[v.Type]; exists {
		return false
	}
	r.values[v.Type] = v
	r.order = append(r.order, v.Type)
	return true
}

// Has reports whether the type is populated.
func (r *Registry) Has(identifierType string) bool {
	_, ok := r.values[identifierType]
	return ok
}

// Get returns the value stored for the type.
func (r *Registry) Get(identifierType string) (IdentifierValue, bool) {
	v, ok := r.values[identifierType]
	return v, ok
}

// Len returns the number of populated types.
func (r *Registry) Len() int {
	return len(r.order)
}

// Values returns the identifiers in insertion order.
func (r *Registry) Values() []IdentifierValue {
	out := make([]IdentifierValue, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.values[t])
	}
	return out
}

// Map flattens the registry into type -> value.
func (r *Registry) Map() map[string]string {
	out := make(map[string]string, len(r.order))
	for _, t := range r.order {
		out[t] = r.values[t].Value
	}
	return out
}

// MarshalJSON encodes the registry as an ordered list.
func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Values())
}

// BuiltLink is a synthesized navigation link to another site.
type BuiltLink struct {
	ID           string `json:"id"`
	TargetSiteID string `json:"targetSiteId"`
	DisplayName  string `json:"displayName"`
	URL          string `json:"url"`
	Color        string `json:"color,omitempty"`
}

// LinkID builds the identity of a link.
func LinkID(currentID, targetID, entryPointID string) string {
	return fmt.Sprintf("%s->%s:%s", currentID, targetID, entryPointID)
}

// ValidationKind classifies rule validation failures.
type ValidationKind string

const (
	KindDuplicateKeyword ValidationKind = "duplicate-keyword"
	KindInvalidRegex     ValidationKind = "invalid-regex"
	KindMissingField     ValidationKind = "missing-field"
)

// ValidationError is one problem found in a rule set.
type ValidationError struct {
	Kind    ValidationKind `json:"kind"`
	SiteID  string         `json:"siteId"`
	Message string         `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.SiteID, e.Kind, e.Message)
}

// ValidationErrors is the complete list of problems in a rule set.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("rule validation failed with %d error(s): %s", len(ve), strings.Join(msgs, "; "))
}

// OfKind filters the errors by kind.
func (ve ValidationErrors) OfKind(kind ValidationKind) ValidationErrors {
	var out ValidationErrors
	for _, e := range ve {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
