// internal/pipeline/template.go
package pipeline

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var tokenRegex = regexp.MustCompile(`\{([^}]+)\}`)

// Token transforms understood by Render.
const (
	TransformUpper              = "upper"
	TransformLower              = "lower"
	TransformEncodeURIComponent = "encodeURIComponent"
)

var (
	upperCaser = cases.Upper(language.Und)
	lowerCaser = cases.Lower(language.Und)
)

// Render fills {key} and {key:transform} tokens from values. Missing keys
// render as the empty string and unknown transforms leave the value as
// is, so rendering never fails.
func Render(template string, values map[string]string) string {
	return tokenRegex.ReplaceAllStringFunc(template, func(token string) string {
		raw := token[1 : len(token)-1]
		parts := strings.Split(raw, ":")

		value := values[strings.TrimSpace(parts[0])]
		if len(parts) < 2 {
			return value
		}
		return applyTransform(strings.TrimSpace(parts[1]), value)
	})
}

func applyTransform(name, value string) string {
	switch name {
	case TransformUpper:
		return upperCaser.String(value)
	case TransformLower:
		return lowerCaser.String(value)
	case TransformEncodeURIComponent:
		return EncodeURIComponent(value)
	default:
		return value
	}
}

// EncodeURIComponent percent-encodes every byte outside the unreserved
// set A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

// AppendQuery renders each parameter value as a template and appends the
// pairs to rawURL in key order.
func AppendQuery(rawURL string, params map[string]string, values map[string]string) string {
	if len(params) == 0 {
		return rawURL
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fragment := ""
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		rawURL, fragment = rawURL[:i], rawURL[i:]
	}

	var b strings.Builder
	b.WriteString(rawURL)
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
		if strings.HasSuffix(rawURL, "?") || strings.HasSuffix(rawURL, "&") {
			sep = ""
		}
	}
	for _, k := range keys {
		b.WriteString(sep)
		b.WriteString(EncodeURIComponent(k))
		b.WriteByte('=')
		b.WriteString(EncodeURIComponent(Render(params[k], values)))
		sep = "&"
	}
	b.WriteString(fragment)
	return b.String()
}
