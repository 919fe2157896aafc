// internal/engine/links.go
package engine

import (
	"github.com/valpere/crosslink/internal/pipeline"
	"github.com/valpere/crosslink/internal/rules"
	"github.com/valpere/crosslink/internal/utils"
)

var linkLogger = utils.NewComponentLogger("links")

// BuildLinks synthesizes at most one link per other enabled profile, using
// the first entry point (by priority) whose required identifier resolves.
func BuildLinks(current *rules.SiteProfile, all []rules.SiteProfile, registry *rules.Registry) []rules.BuiltLink {
	links := make([]rules.BuiltLink, 0)

	for i := range all {
		target := &all[i]
		if target.ID == current.ID || !target.IsEnabled() {
			continue
		}

		for _, ep := range rules.SortedEntryPoints(target.EntryPoints) {
			link, ok := buildLink(current, target, ep, registry)
			if !ok {
				continue
			}
			links = append(links, link)
			break
		}
	}

	return links
}

func buildLink(current, target *rules.SiteProfile, ep rules.EntryPoint, registry *rules.Registry) (rules.BuiltLink, bool) {
	identifier, ok := registry.Get(ep.RequiredIdentifierType)
	if !ok {
		return rules.BuiltLink{}, false
	}

	id, err := pipeline.ApplyPattern(identifier.Value, ep.Pattern, ep.ReplaceWith)
	if err != nil {
		linkLogger.WithFields(map[string]interface{}{
			"target":      target.ID,
			"entry_point": ep.ID,
		}).Warnf("entry point pattern failed: %v", err)
		return rules.BuiltLink{}, false
	}

	values := registry.Map()
	values["id"] = id

	url := pipeline.Render(ep.URLTemplate, values)
	url = pipeline.AppendQuery(url, ep.QueryParams, values)

	return rules.BuiltLink{
		ID:           rules.LinkID(current.ID, target.ID, ep.ID),
		TargetSiteID: target.ID,
		DisplayName:  ep.DisplayName,
		URL:          url,
		Color:        ep.Color,
	}, true
}
