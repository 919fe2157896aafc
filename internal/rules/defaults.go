// internal/rules/defaults.go
package rules

func enabled() *bool {
	b := true
	return &b
}

// DefaultProfiles returns the built-in rule set. Every call returns a
// fresh copy that the caller may modify.
func DefaultProfiles() []SiteProfile {
	return []SiteProfile{
		{
			ID:       "missav",
			Name:     "MissAV",
			Keywords: []string{"missav"},
			Enabled:  enabled(),
			EntryPoints: []EntryPoint{{
				ID:                     "search",
				DisplayName:            "MissAV",
				RequiredIdentifierType: "fanhao",
				URLTemplate:            "https://missav.ws/cn/search/{fanhao}",
				Color:                  "#fe628e",
			}},
			Matchers: []URLMatcher{{ID: "missav", MatchScope: ScopeHostname, Pattern: "missav"}},
			Guards:   []PageGuard{{ID: "movie-title", Type: GuardSelector, Rule: "h1.text-base"}},
			Extractors: []Extractor{{
				ID:             "title-prefix",
				Method:         MethodSelector,
				Priority:       1,
				IdentifierType: "fanhao",
				Pattern:        `(\S+)\s.*`,
				Selector:       "h1.text-base",
			}},
			UIPlacement: UIPlacement{Anchor: "h1.text-base", Position: PositionAfter},
		},
		{
			ID:       "javdb",
			Name:     "JavDB",
			Keywords: []string{"javdb"},
			Enabled:  enabled(),
			EntryPoints: []EntryPoint{{
				ID:                     "javdb-search-fanhao",
				RequiredIdentifierType: "fanhao",
				URLTemplate:            "https://javdb.com/search?q={fanhao:upper}",
				DisplayName:            "JavDB",
			}},
			Matchers: []URLMatcher{{ID: "javdb-default", Pattern: `javdb\d*\.com`, MatchScope: ScopeHostname}},
			Guards:   []PageGuard{{ID: "javdb-detail", Type: GuardURLRegex, Rule: "/v/"}},
			Extractors: []Extractor{{
				ID:             "javdb-fanhao",
				Method:         MethodSelector,
				Selector:       "h2 strong",
				IdentifierType: "fanhao",
			}},
			UIPlacement: UIPlacement{Anchor: ".video-meta-panel", Position: PositionAfter},
		},
		{
			ID:       "fanza",
			Name:     "Fanza",
			Keywords: []string{"dmm.co.jp"},
			Enabled:  enabled(),
			EntryPoints: []EntryPoint{{
				ID:                     "search",
				DisplayName:            "Fanza",
				RequiredIdentifierType: "fanhao",
				URLTemplate:            "https://www.dmm.co.jp/search/=/searchstr={id}",
				Pattern:                "-",
				ReplaceWith:            "00",
				Color:                  "#ee2737",
			}},
			Matchers:    []URLMatcher{},
			Guards:      []PageGuard{},
			Extractors:  []Extractor{},
			UIPlacement: UIPlacement{Anchor: "body", Position: PositionAppend},
		},
		{
			ID:       "avbase",
			Name:     "AVBase",
			Keywords: []string{"avbase"},
			Enabled:  enabled(),
			EntryPoints: []EntryPoint{{
				ID:                     "search",
				DisplayName:            "AVBase",
				URLTemplate:            "https://www.avbase.net/works?q={id}",
				RequiredIdentifierType: "fanhao",
				Color:                  "#3b71b0",
			}},
			Matchers:    []URLMatcher{},
			Guards:      []PageGuard{},
			Extractors:  []Extractor{},
			UIPlacement: UIPlacement{Anchor: "body", Position: PositionAppend},
		},
		{
			ID:       "subtitle-cat",
			Name:     "subtitle-cat",
			Keywords: []string{"subtitlecat.com"},
			Enabled:  enabled(),
			EntryPoints: []EntryPoint{{
				ID:                     "search",
				DisplayName:            "SubtitleCat",
				RequiredIdentifierType: "fanhao",
				URLTemplate:            "https://www.subtitlecat.com/index.php?search={id}",
				Color:                  "#fdba29",
			}},
			Matchers:    []URLMatcher{},
			Guards:      []PageGuard{},
			Extractors:  []Extractor{},
			UIPlacement: UIPlacement{Anchor: "body", Position: PositionAppend},
		},
		{
			ID:       "javbus",
			Name:     "JavBus",
			Keywords: []string{"javbus.com", "buscdn.cyou"},
			Enabled:  enabled(),
			EntryPoints: []EntryPoint{{
				ID:                     "detail",
				DisplayName:            "JavBus",
				RequiredIdentifierType: "fanhao",
				URLTemplate:            "https://www.javbus.com/{id}",
				Color:                  "#cc0000",
			}},
			Matchers: []URLMatcher{{ID: "any", MatchScope: ScopeHostname, Pattern: ".*"}},
			Guards:   []PageGuard{{ID: "image", Type: GuardSelector, Rule: "div.screencap"}},
			Extractors: []Extractor{{
				ID:             "url-suffix",
				Method:         MethodURLRegex,
				IdentifierType: "fanhao",
				Pattern:        ".+/(.+)",
			}},
			UIPlacement: UIPlacement{Anchor: "div.row.movie", Position: PositionAfter},
		},
		{
			ID:       "javlibrary",
			Name:     "javlibrary",
			Keywords: []string{"z93j.com", "javlibrary.com"},
			Enabled:  enabled(),
			EntryPoints: []EntryPoint{{
				ID:                     "search",
				DisplayName:            "Library",
				Color:                  "#f908bb",
				URLTemplate:            "https://www.javlibrary.com/cn/vl_searchbyid.php?keyword={id}",
				RequiredIdentifierType: "fanhao",
			}},
			Matchers: []URLMatcher{{ID: "detail", MatchScope: ScopeQuery, Pattern: "v="}},
			Guards:   []PageGuard{{ID: "detail", Type: GuardSelector, Rule: "#video_info"}},
			Extractors: []Extractor{{
				ID:             "info",
				Method:         MethodSelector,
				IdentifierType: "fanhao",
				Selector:       "#video_id td.text",
			}},
			UIPlacement: UIPlacement{Anchor: "#video_favorite_edit", Position: PositionAfter},
		},
	}
}
