// internal/rules/validation.go - static checks gating every rule set write
package rules

import (
	"fmt"
	"regexp"
)

// Validate checks a rule set for structural and regex problems. It never
// stops at the first problem; the returned list is complete.
func Validate(profiles []SiteProfile) ValidationErrors {
	v := &validator{keywordOwners: make(map[string]string)}

	for i := range profiles {
		v.validateProfile(&profiles[i])
	}

	return v.errors
}

type validator struct {
	errors        ValidationErrors
	keywordOwners map[string]string
}

func (v *validator) add(kind ValidationKind, siteID, format string, args ...interface{}) {
	v.errors = append(v.errors, ValidationError{
		Kind:    kind,
		SiteID:  siteID,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *validator) validateProfile(p *SiteProfile) {
	if len(p.Keywords) == 0 {
		v.add(KindMissingField, p.ID, "keywords cannot be empty")
	}
	for _, keyword := range p.Keywords {
		owner, claimed := v.keywordOwners[keyword]
		if claimed && owner != p.ID {
			v.add(KindDuplicateKeyword, p.ID, "keyword %q already used by %s", keyword, owner)
			continue
		}
		v.keywordOwners[keyword] = p.ID
	}

	for _, m := range p.Matchers {
		v.validateMatcher(m, p.ID)
	}
	for _, e := range p.Extractors {
		v.validateExtractor(e, p.ID)
	}
	for _, g := range p.Guards {
		v.validateGuard(g, p.ID)
	}
	for _, ep := range p.EntryPoints {
		v.validateEntryPoint(ep, p.ID)
	}
}

func (v *validator) validateRegex(pattern, siteID string) {
	if _, err := regexp.Compile(pattern); err != nil {
		v.add(KindInvalidRegex, siteID, "invalid regular expression %q: %v", pattern, err)
	}
}

func (v *validator) validateMatcher(m URLMatcher, siteID string) {
	if m.Pattern == "" {
		v.add(KindMissingField, siteID, "matcher %s missing pattern", m.ID)
		return
	}
	v.validateRegex(m.Pattern, siteID)
	for _, exclude := range m.Exclude {
		v.validateRegex(exclude, siteID)
	}
}

func (v *validator) validateExtractor(e Extractor, siteID string) {
	if e.IdentifierType == "" {
		v.add(KindMissingField, siteID, "extractor %s missing identifierType", e.ID)
	}
	if (e.Method == MethodURLRegex || e.Method == MethodXPath) && e.Pattern == "" {
		v.add(KindMissingField, siteID, "extractor %s requires pattern", e.ID)
	}
	if e.Pattern != "" {
		v.validateRegex(e.Pattern, siteID)
	}
	if e.ReplaceWith != "" {
		v.validateRegex(e.ReplaceWith, siteID)
	}
	if e.Method == MethodSelector && e.Selector == "" {
		v.add(KindMissingField, siteID, "extractor %s requires selector", e.ID)
	}
}

func (v *validator) validateGuard(g PageGuard, siteID string) {
	if g.Rule == "" {
		v.add(KindMissingField, siteID, "guard %s missing rule", g.ID)
		return
	}
	if g.Type == GuardURLRegex {
		v.validateRegex(g.Rule, siteID)
	}
}

func (v *validator) validateEntryPoint(ep EntryPoint, siteID string) {
	if ep.RequiredIdentifierType == "" {
		v.add(KindMissingField, siteID, "entry point %s missing requiredIdentifierType", ep.ID)
	}
	if ep.URLTemplate == "" {
		v.add(KindMissingField, siteID, "entry point %s missing urlTemplate", ep.ID)
	}
}

// ExtractorOverlap names extractors of one profile that fill the same
// identifier type, in the order they run.
type ExtractorOverlap struct {
	SiteID         string
	IdentifierType string
	ExtractorIDs   []string
}

// ExtractorOverlaps lists every identifier type targeted by more than one
// extractor. The first of them to produce a value fills the type and the
// rest are skipped, which rule authors rarely expect. Not an error.
func ExtractorOverlaps(profiles []SiteProfile) []ExtractorOverlap {
	var overlaps []ExtractorOverlap
	for _, p := range profiles {
		byType := make(map[string][]string)
		var order []string
		for _, ex := range SortedExtractors(p.Extractors) {
			if _, seen := byType[ex.IdentifierType]; !seen {
				order = append(order, ex.IdentifierType)
			}
			byType[ex.IdentifierType] = append(byType[ex.IdentifierType], ex.ID)
		}
		for _, t := range order {
			if ids := byType[t]; len(ids) > 1 {
				overlaps = append(overlaps, ExtractorOverlap{SiteID: p.ID, IdentifierType: t, ExtractorIDs: ids})
			}
		}
	}
	return overlaps
}
