// internal/engine/matcher.go
package engine

import (
	"strings"

	"github.com/valpere/crosslink/internal/rules"
	"github.com/valpere/crosslink/internal/utils"
)

var matcherLogger = utils.NewComponentLogger("matcher")

// KeywordMatches is the cheap prefilter run before the matchers: the host
// must contain at least one keyword. The test is case-sensitive. A profile
// without keywords is not filtered.
func KeywordMatches(profile *rules.SiteProfile, host string) bool {
	if len(profile.Keywords) == 0 {
		return true
	}
	for _, keyword := range profile.Keywords {
		if strings.Contains(host, keyword) {
			return true
		}
	}
	return false
}

// MatchesProfile reports whether any matcher of the profile hits. Every
// matcher is evaluated until one hits.
func MatchesProfile(profile *rules.SiteProfile, ctx *Context) bool {
	for _, m := range profile.Matchers {
		if matcherHit(m, ctx) {
			return true
		}
	}
	return false
}

// matcherHit requires the pattern to match the scoped value and every
// exclude pattern to miss it.
func matcherHit(m rules.URLMatcher, ctx *Context) bool {
	value := ctx.URLPart(m.Scope())

	if !testPattern(m.Pattern, value, ctx) {
		return false
	}
	for _, exclude := range m.Exclude {
		if testPattern(exclude, value, ctx) {
			return false
		}
	}
	return true
}

// testPattern degrades a pattern that does not compile to "never matches".
func testPattern(pattern, value string, ctx *Context) bool {
	ok, err := ctx.matchPattern(pattern, value)
	if err != nil {
		matcherLogger.WithField("pattern", pattern).Warnf("failed to compile matcher regex: %v", err)
		return false
	}
	return ok
}
