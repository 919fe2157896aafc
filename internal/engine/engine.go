// internal/engine/engine.go
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/valpere/crosslink/internal/document"
	"github.com/valpere/crosslink/internal/rules"
	"github.com/valpere/crosslink/internal/utils"
)

// Evaluation outcomes reported to the Recorder.
const (
	OutcomeHit     = "hit"
	OutcomeMatch   = "match"
	OutcomeNoMatch = "no_match"
)

// Loader supplies the persisted rule set.
type Loader interface {
	Load(ctx context.Context) ([]rules.SiteProfile, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) ([]rules.SiteProfile, error)

// Load calls f(ctx).
func (f LoaderFunc) Load(ctx context.Context) ([]rules.SiteProfile, error) {
	return f(ctx)
}

// StaticLoader serves a fixed rule set.
func StaticLoader(profiles []rules.SiteProfile) Loader {
	return LoaderFunc(func(context.Context) ([]rules.SiteProfile, error) {
		return rules.CloneAll(profiles), nil
	})
}

// Recorder observes evaluations. It never influences them.
type Recorder interface {
	RecordEvaluation(outcome string, duration time.Duration)
	RecordMatch(profileID string, links []rules.BuiltLink)
	RecordInvalidation(scope string)
	SetRulesLoaded(count int)
}

type nopRecorder struct{}

func (nopRecorder) RecordEvaluation(string, time.Duration) {}
func (nopRecorder) RecordMatch(string, []rules.BuiltLink) {}
func (nopRecorder) RecordInvalidation(string) {}
func (nopRecorder) SetRulesLoaded(int) {}

// Result is the outcome of a successful evaluation.
type Result struct {
	Profile     *rules.SiteProfile `json:"profile"`
	Identifiers *rules.Registry    `json:"identifiers"`
	Links       []rules.BuiltLink  `json:"links"`
	Timestamp   time.Time          `json:"timestamp"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger replaces the engine logger.
func WithLogger(logger utils.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder attaches an evaluation observer.
func WithRecorder(recorder Recorder) Option {
	return func(e *Engine) {
		if recorder != nil {
			e.recorder = recorder
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine owns the rule set and the per-URL result cache.
type Engine struct {
	loader   Loader
	logger   utils.Logger
	recorder Recorder
	now      func() time.Time

	mu       sync.RWMutex
	loaded   bool
	profiles []rules.SiteProfile
	cache    map[string]*Result
	// generation changes on every hydrate and invalidation. A run only
	// caches its result when the generation it started under is current.
	generation uint64

	hydrateMu sync.Mutex
}

// NewEngine creates an unloaded engine. Rules are loaded on the first Run
// or an explicit Hydrate.
func NewEngine(loader Loader, opts ...Option) (*Engine, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader cannot be nil")
	}

	e := &Engine{
		loader:   loader,
		logger:   utils.NewComponentLogger("engine"),
		recorder: nopRecorder{},
		now:      time.Now,
		cache:    make(map[string]*Result),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Hydrate loads the rule set, replacing the current one and dropping every
// cached result.
func (e *Engine) Hydrate(ctx context.Context) error {
	e.hydrateMu.Lock()
	defer e.hydrateMu.Unlock()
	return e.hydrate(ctx)
}

func (e *Engine) hydrate(ctx context.Context) error {
	profiles, err := e.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	e.mu.Lock()
	e.profiles = profiles
	e.loaded = true
	e.cache = make(map[string]*Result)
	e.generation++
	e.mu.Unlock()

	e.recorder.SetRulesLoaded(len(profiles))
	e.logger.Infof("loaded %d site profiles", len(profiles))
	for _, o := range rules.ExtractorOverlaps(profiles) {
		e.logger.WithField("profile", o.SiteID).Debugf("extractors %v share identifier type %s, first value wins", o.ExtractorIDs, o.IdentifierType)
	}
	return nil
}

func (e *Engine) ensureLoaded(ctx context.Context) error {
	e.mu.RLock()
	loaded := e.loaded
	e.mu.RUnlock()
	if loaded {
		return nil
	}

	e.hydrateMu.Lock()
	defer e.hydrateMu.Unlock()

	e.mu.RLock()
	loaded = e.loaded
	e.mu.RUnlock()
	if loaded {
		return nil
	}
	return e.hydrate(ctx)
}

// Loaded reports whether a rule set is held in memory.
func (e *Engine) Loaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loaded
}

// Rules returns a copy of the current rule set.
func (e *Engine) Rules() []rules.SiteProfile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return rules.CloneAll(e.profiles)
}

// Run evaluates the page. A cached result for the exact URL string is
// returned unchanged. No match yields a nil result and a nil error. A
// result computed across a Hydrate or Invalidate is returned but not
// cached.
func (e *Engine) Run(ctx context.Context, rawURL string, doc document.Document) (*Result, error) {
	if err := e.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	start := time.Now()

	e.mu.RLock()
	cached, hit := e.cache[rawURL]
	profiles := e.profiles
	generation := e.generation
	e.mu.RUnlock()

	if hit {
		e.logger.Debugf("cache hit for %s", rawURL)
		e.recorder.RecordEvaluation(OutcomeHit, time.Since(start))
		return cached, nil
	}

	pageCtx, err := NewContext(rawURL, doc)
	if err != nil {
		return nil, err
	}

	result := e.evaluate(profiles, pageCtx)
	if result == nil {
		e.recorder.RecordEvaluation(OutcomeNoMatch, time.Since(start))
		return nil, nil
	}

	e.mu.Lock()
	if e.generation == generation {
		e.cache[rawURL] = result
	}
	e.mu.Unlock()

	e.recorder.RecordMatch(result.Profile.ID, result.Links)
	e.recorder.RecordEvaluation(OutcomeMatch, time.Since(start))
	return result, nil
}

func (e *Engine) evaluate(profiles []rules.SiteProfile, pageCtx *Context) *Result {
	host := pageCtx.URLPart(rules.ScopeHost)

	for i := range profiles {
		profile := &profiles[i]
		if !profile.IsEnabled() {
			continue
		}
		if !KeywordMatches(profile, host) {
			continue
		}
		if !MatchesProfile(profile, pageCtx) {
			continue
		}
		if !GuardsPass(profile.Guards, pageCtx) {
			e.logger.Debugf("profile %s matched but guards rejected %s", profile.ID, pageCtx.Href())
			continue
		}

		registry := RunExtractors(profile.Extractors, pageCtx)
		if registry.Len() == 0 {
			e.logger.Debugf("profile %s produced no identifiers", profile.ID)
			continue
		}

		links := BuildLinks(profile, profiles, registry)
		e.logger.WithFields(map[string]interface{}{
			"profile":     profile.ID,
			"identifiers": registry.Len(),
			"links":       len(links),
		}).Info("page matched")

		return &Result{
			Profile:     profile,
			Identifiers: registry,
			Links:       links,
			Timestamp:   e.now(),
		}
	}
	return nil
}

// Invalidate evicts the cached result for rawURL, or every cached result
// when rawURL is empty. Runs already in flight return their result but do
// not cache it.
func (e *Engine) Invalidate(rawURL string) {
	e.mu.Lock()
	if rawURL == "" {
		e.cache = make(map[string]*Result)
	} else {
		delete(e.cache, rawURL)
	}
	e.generation++
	e.mu.Unlock()

	scope := "url"
	if rawURL == "" {
		scope = "all"
	}
	e.recorder.RecordInvalidation(scope)
}

// CacheSize returns the number of cached results.
func (e *Engine) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}
