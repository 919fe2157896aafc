// internal/document/document.go
package document

import (
	"fmt"
	"io"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

// Element is a single node of a document snapshot.
type Element interface {
	// Attr returns the attribute value and whether it is present.
	Attr(name string) (string, bool)
	// Text returns the trimmed text content of the element subtree.
	Text() string
}

// Document is a read-only snapshot of a rendered page.
type Document interface {
	// QuerySelector returns the first element matching the CSS selector
	// in document order, or nil.
	QuerySelector(selector string) Element
	// EvaluateXPath evaluates an expression and converts the result to
	// its string value.
	EvaluateXPath(expr string) (string, error)
	// BodyText returns the untrimmed text content of <body>.
	BodyText() string
}

// BaseURIer is implemented by documents that know their own location.
type BaseURIer interface {
	BaseURI() string
}

// HTML is a Document backed by one parsed node tree shared between the
// CSS and XPath engines.
type HTML struct {
	root    *html.Node
	doc     *goquery.Document
	baseURI string
}

// Parse reads an HTML document. baseURI may be empty.
func Parse(r io.Reader, baseURI string) (*HTML, error) {
	if r == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	h := &HTML{
		root: root,
		doc:  goquery.NewDocumentFromNode(root),
	}
	h.baseURI = h.resolveBase(baseURI)
	return h, nil
}

// ParseString is Parse over a string.
func ParseString(content, baseURI string) (*HTML, error) {
	return Parse(strings.NewReader(content), baseURI)
}

// resolveBase applies a <base href> element on top of the location the
// document was loaded from.
func (h *HTML) resolveBase(location string) string {
	href, ok := h.doc.Find("base[href]").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return location
	}

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return location
	}
	if location == "" {
		if ref.IsAbs() {
			return ref.String()
		}
		return location
	}

	loc, err := url.Parse(location)
	if err != nil {
		return location
	}
	return loc.ResolveReference(ref).String()
}

// BaseURI returns the document base URI, or "" when unknown.
func (h *HTML) BaseURI() string {
	return h.baseURI
}

// QuerySelector implements Document. Invalid selectors match nothing.
func (h *HTML) QuerySelector(selector string) Element {
	if strings.TrimSpace(selector) == "" {
		return nil
	}
	sel := h.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	return &element{sel: sel}
}

// BodyText implements Document.
func (h *HTML) BodyText() string {
	return h.doc.Find("body").First().Text()
}

// EvaluateXPath implements Document. Node-set results yield the string
// value of the first node, numbers are formatted the way browsers do.
func (h *HTML) EvaluateXPath(expr string) (result string, err error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return "", fmt.Errorf("invalid xpath %q: %w", expr, err)
	}

	// the evaluator panics on some type mismatches
	defer func() {
		if r := recover(); r != nil {
			result = ""
			err = fmt.Errorf("xpath %q evaluation failed: %v", expr, r)
		}
	}()

	switch v := compiled.Evaluate(htmlquery.CreateXPathNavigator(h.root)).(type) {
	case string:
		return v, nil
	case float64:
		return formatNumber(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case *xpath.NodeIterator:
		if v.MoveNext() {
			return v.Current().Value(), nil
		}
		return "", nil
	default:
		return "", fmt.Errorf("xpath %q returned unsupported type %T", expr, v)
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

type element struct {
	sel *goquery.Selection
}

func (e *element) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e *element) Text() string {
	return strings.TrimSpace(e.sel.Text())
}
