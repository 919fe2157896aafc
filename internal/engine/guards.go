// internal/engine/guards.go
package engine

import (
	"strings"

	"github.com/valpere/crosslink/internal/rules"
	"github.com/valpere/crosslink/internal/utils"
)

var guardLogger = utils.NewComponentLogger("guard")

type guardEvaluator func(guard rules.PageGuard, ctx *Context) bool

var guardEvaluators = map[rules.GuardType]guardEvaluator{
	rules.GuardURLRegex: func(guard rules.PageGuard, ctx *Context) bool {
		ok, err := ctx.matchPattern(guard.Rule, ctx.Href())
		if err != nil {
			guardLogger.WithField("guard", guard.ID).Warnf("invalid guard regex: %v", err)
			return false
		}
		return ok
	},
	rules.GuardSelector: func(guard rules.PageGuard, ctx *Context) bool {
		return ctx.QuerySelector(guard.Rule) != nil
	},
	rules.GuardTextContent: func(guard rules.PageGuard, ctx *Context) bool {
		return strings.Contains(ctx.BodyText(), guard.Rule)
	},
}

// GuardsPass reports whether the page is a detail page. No guards means
// pass; otherwise guards run in ascending priority and the first one that
// passes ends the evaluation.
func GuardsPass(guards []rules.PageGuard, ctx *Context) bool {
	if len(guards) == 0 {
		return true
	}

	for _, guard := range rules.SortedGuards(guards) {
		evaluate, known := guardEvaluators[guard.Type]
		passed := known && evaluate(guard, ctx)
		guardLogger.Debugf("guard %s => %v", guard.ID, passed)
		if passed {
			return true
		}
	}
	return false
}
