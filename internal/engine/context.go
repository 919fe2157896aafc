// internal/engine/context.go
package engine

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/valpere/crosslink/internal/document"
	"github.com/valpere/crosslink/internal/pipeline"
	"github.com/valpere/crosslink/internal/rules"
)

const bodyTextKey = "body:text"

// Context is the cache-coherent view of one page for one evaluation. It
// is not safe for concurrent use and must not outlive the evaluation.
type Context struct {
	url      *url.URL
	document document.Document
	parts    map[rules.MatchScope]string

	queryCache map[string]document.Element
	textCache  map[string]textEntry
	memoCache  map[string]interface{}
}

type textEntry struct {
	text  string
	found bool
}

// NewContext parses rawURL once, resolving it against the document base
// URI when the document exposes one.
func NewContext(rawURL string, doc document.Document) (*Context, error) {
	if doc == nil {
		return nil, fmt.Errorf("document cannot be nil")
	}

	u, err := resolveURL(rawURL, doc)
	if err != nil {
		return nil, err
	}
	normalizeURL(u)

	c := &Context{
		url:        u,
		document:   doc,
		queryCache: make(map[string]document.Element),
		textCache:  make(map[string]textEntry),
		memoCache:  make(map[string]interface{}),
	}
	c.parts = map[rules.MatchScope]string{
		rules.ScopeHost:     u.Host,
		rules.ScopeHostname: u.Hostname(),
		rules.ScopePathname: pathname(u),
		rules.ScopeQuery:    prefixed("?", u.RawQuery),
		rules.ScopeHash:     prefixed("#", u.EscapedFragment()),
		rules.ScopeFull:     u.String(),
	}
	return c, nil
}

func resolveURL(rawURL string, doc document.Document) (*url.URL, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", rawURL, err)
	}
	if ref.IsAbs() {
		return ref, nil
	}

	if b, ok := doc.(document.BaseURIer); ok && b.BaseURI() != "" {
		base, err := url.Parse(b.BaseURI())
		if err == nil && base.IsAbs() {
			return base.ResolveReference(ref), nil
		}
	}
	return nil, fmt.Errorf("page URL %q is not absolute and the document has no base URI", rawURL)
}

// normalizeURL applies the same canonical form a browser gives a parsed
// URL: lowercase host and "/" as the path of an authority-only URL.
func normalizeURL(u *url.URL) {
	u.Host = strings.ToLower(u.Host)
	if u.Host != "" && u.Path == "" && u.Opaque == "" {
		u.Path = "/"
		u.RawPath = ""
	}
}

func pathname(u *url.URL) string {
	return u.EscapedPath()
}

func prefixed(prefix, value string) string {
	if value == "" {
		return ""
	}
	return prefix + value
}

// URL returns the parsed page URL.
func (c *Context) URL() *url.URL {
	return c.url
}

// Href returns the full page URL.
func (c *Context) Href() string {
	return c.parts[rules.ScopeFull]
}

// URLPart returns the URL component selected by scope. Unknown scopes
// yield the full URL.
func (c *Context) URLPart(scope rules.MatchScope) string {
	if v, ok := c.parts[scope]; ok {
		return v
	}
	return c.parts[rules.ScopeFull]
}

// Document returns the underlying snapshot.
func (c *Context) Document() document.Document {
	return c.document
}

// QuerySelector resolves a selector once per context. A miss is cached
// too.
func (c *Context) QuerySelector(selector string) document.Element {
	if el, ok := c.queryCache[selector]; ok {
		return el
	}
	el := c.document.QuerySelector(selector)
	c.queryCache[selector] = el
	return el
}

// TextContent returns the trimmed text of the element matched by
// selector, and false when nothing matched.
func (c *Context) TextContent(selector string) (string, bool) {
	if entry, ok := c.textCache[selector]; ok {
		return entry.text, entry.found
	}
	entry := textEntry{}
	if el := c.QuerySelector(selector); el != nil {
		entry = textEntry{text: el.Text(), found: true}
	}
	c.textCache[selector] = entry
	return entry.text, entry.found
}

// Memoize returns the value stored under key, computing it with factory
// the first time. factory is never called twice for the same key.
func (c *Context) Memoize(key string, factory func() interface{}) interface{} {
	if v, ok := c.memoCache[key]; ok {
		return v
	}
	v := factory()
	c.memoCache[key] = v
	return v
}

// BodyText returns the body text, read from the document at most once.
func (c *Context) BodyText() string {
	v := c.Memoize(bodyTextKey, func() interface{} {
		return c.document.BodyText()
	})
	s, _ := v.(string)
	return s
}

type compiledPattern struct {
	re  *regexp.Regexp
	err error
}

// matchPattern tests a case-insensitive pattern against value. Compiled
// patterns are memoized per context; compile errors are returned to the
// caller, which treats them as a non-match.
func (c *Context) matchPattern(pattern, value string) (bool, error) {
	v := c.Memoize("regex:"+pattern, func() interface{} {
		re, err := pipeline.CompilePattern(pattern)
		if err != nil {
			return compiledPattern{err: err}
		}
		return compiledPattern{re: re}
	})
	cp := v.(compiledPattern)
	if cp.err != nil {
		return false, cp.err
	}
	return cp.re.MatchString(value), nil
}
