// internal/engine/extractors.go
package engine

import (
	"github.com/valpere/crosslink/internal/pipeline"
	"github.com/valpere/crosslink/internal/rules"
	"github.com/valpere/crosslink/internal/utils"
)

var extractorLogger = utils.NewComponentLogger("extractor")

// extraction is the outcome of one extractor: a value, or nothing.
type extraction struct {
	value string
	ok    bool
}

func extracted(value string) extraction {
	return extraction{value: value, ok: value != ""}
}

var none = extraction{}

type extractorHandler func(ex rules.Extractor, ctx *Context) extraction

var extractorHandlers = map[rules.ExtractorMethod]extractorHandler{
	rules.MethodURLRegex: func(ex rules.Extractor, ctx *Context) extraction {
		return transform(ex, ctx.Href())
	},
	rules.MethodSelector: func(ex rules.Extractor, ctx *Context) extraction {
		if ex.Selector == "" {
			return none
		}
		var raw string
		if ex.Attribute != "" {
			el := ctx.QuerySelector(ex.Selector)
			if el == nil {
				return none
			}
			raw, _ = el.Attr(ex.Attribute)
		} else {
			raw, _ = ctx.TextContent(ex.Selector)
		}
		if raw == "" {
			return none
		}
		return transform(ex, raw)
	},
	rules.MethodXPath: func(ex rules.Extractor, ctx *Context) extraction {
		if ex.Selector == "" {
			return none
		}
		raw, err := ctx.Document().EvaluateXPath(ex.Selector)
		if err != nil {
			extractorLogger.WithField("extractor", ex.ID).Warnf("xpath extractor failed: %v", err)
			return none
		}
		return transform(ex, raw)
	},
}

func transform(ex rules.Extractor, raw string) extraction {
	value, err := pipeline.ApplyPattern(raw, ex.Pattern, ex.ReplaceWith)
	if err != nil {
		extractorLogger.WithField("extractor", ex.ID).Warnf("extractor pattern failed: %v", err)
		return none
	}
	return extracted(value)
}

// RunExtractors runs the extractors in ascending priority and collects
// their values. Once an identifier type holds a value, later extractors
// for the same type are skipped.
func RunExtractors(extractors []rules.Extractor, ctx *Context) *rules.Registry {
	registry := rules.NewRegistry()

	for _, ex := range rules.SortedExtractors(extractors) {
		if registry.Has(ex.IdentifierType) {
			continue
		}
		handler, known := extractorHandlers[ex.Method]
		if !known {
			continue
		}
		result := handler(ex, ctx)
		if !result.ok {
			continue
		}
		registry.Put(rules.IdentifierValue{
			Type:              ex.IdentifierType,
			Value:             result.value,
			SourceExtractorID: ex.ID,
		})
		extractorLogger.Infof("extractor %s produced %s", ex.ID, result.value)
	}

	return registry
}
