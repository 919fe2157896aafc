// pkg/api/types.go
package api

import (
	"github.com/valpere/crosslink/internal/engine"
	"github.com/valpere/crosslink/internal/rules"
)

// Re-export types from internal packages for public API
type SiteProfile = rules.SiteProfile
type URLMatcher = rules.URLMatcher
type PageGuard = rules.PageGuard
type Extractor = rules.Extractor
type EntryPoint = rules.EntryPoint
type UIPlacement = rules.UIPlacement
type IdentifierValue = rules.IdentifierValue
type BuiltLink = rules.BuiltLink
type ValidationError = rules.ValidationError
type ValidationErrors = rules.ValidationErrors
type Result = engine.Result
type MatchScope = rules.MatchScope
type GuardType = rules.GuardType
type ExtractorMethod = rules.ExtractorMethod

// Rule vocabulary.
const (
	ScopeHost     = rules.ScopeHost
	ScopeHostname = rules.ScopeHostname
	ScopePathname = rules.ScopePathname
	ScopeQuery    = rules.ScopeQuery
	ScopeHash     = rules.ScopeHash
	ScopeFull     = rules.ScopeFull

	GuardURLRegex    = rules.GuardURLRegex
	GuardSelector    = rules.GuardSelector
	GuardTextContent = rules.GuardTextContent

	MethodURLRegex = rules.MethodURLRegex
	MethodSelector = rules.MethodSelector
	MethodXPath    = rules.MethodXPath
)
