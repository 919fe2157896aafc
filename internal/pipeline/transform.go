// internal/pipeline/transform.go
package pipeline

import (
	"fmt"
	"regexp"
	"strings"
)

// CompilePattern compiles a rule pattern. Rule patterns always match
// case-insensitively.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}
	return re, nil
}

// ApplyPattern runs the shared pattern transform over a raw value.
//
//   - no pattern: the value is returned unchanged
//   - pattern and replacement: the first match is substituted once
//   - pattern only: capture group 1 if it took part in the match, else the
//     whole match, else the unchanged value
//
// The only failure is a pattern that does not compile.
func ApplyPattern(value, pattern, replaceWith string) (string, error) {
	if pattern == "" {
		return value, nil
	}

	re, err := CompilePattern(pattern)
	if err != nil {
		return "", err
	}

	if replaceWith != "" {
		return ReplaceFirst(re, value, replaceWith), nil
	}

	return ExtractFirst(re, value), nil
}

// ExtractFirst returns capture group 1 of the first match, the whole
// match when group 1 did not participate, or value when nothing matched.
func ExtractFirst(re *regexp.Regexp, value string) string {
	loc := re.FindStringSubmatchIndex(value)
	if loc == nil {
		return value
	}
	if len(loc) >= 4 && loc[2] >= 0 {
		return value[loc[2]:loc[3]]
	}
	return value[loc[0]:loc[1]]
}

// ReplaceFirst substitutes the first match of re in value. The
// replacement follows the rule format's substitution syntax:
//
//	$$        a literal $
//	$&        the whole match
//	$` and $' the text before and after the match
//	$n, $nn   capture group n (1-99); a two digit reference that exceeds
//	          the group count falls back to one digit and a literal
//	$<name>   a named group, when the pattern has named groups
//
// Any other $ sequence, $0 included, is copied literally.
func ReplaceFirst(re *regexp.Regexp, value, replacement string) string {
	loc := re.FindStringSubmatchIndex(value)
	if loc == nil {
		return value
	}

	var b strings.Builder
	b.Grow(len(value) + len(replacement))
	b.WriteString(value[:loc[0]])
	expandReplacement(&b, re, value, loc, replacement)
	b.WriteString(value[loc[1]:])
	return b.String()
}

func expandReplacement(b *strings.Builder, re *regexp.Regexp, value string, loc []int, replacement string) {
	groups := re.NumSubexp()

	for i := 0; i < len(replacement); i++ {
		c := replacement[i]
		if c != '$' || i+1 == len(replacement) {
			b.WriteByte(c)
			continue
		}

		next := replacement[i+1]
		switch {
		case next == '$':
			b.WriteByte('$')
			i++
		case next == '&':
			b.WriteString(value[loc[0]:loc[1]])
			i++
		case next == '`':
			b.WriteString(value[:loc[0]])
			i++
		case next == '\'':
			b.WriteString(value[loc[1]:])
			i++
		case isDigit(next):
			n, width := groupReference(replacement[i+1:], groups)
			if width == 0 {
				b.WriteByte('$')
				continue
			}
			writeGroup(b, value, loc, n)
			i += width
		case next == '<' && hasNamedGroups(re):
			end := strings.IndexByte(replacement[i+2:], '>')
			if end < 0 {
				b.WriteByte('$')
				continue
			}
			if n := re.SubexpIndex(replacement[i+2 : i+2+end]); n > 0 {
				writeGroup(b, value, loc, n)
			}
			i += 2 + end
		default:
			b.WriteByte('$')
		}
	}
}

// groupReference parses the digits after a $ into a group number and the
// number of digits consumed. Zero width means no valid reference.
func groupReference(s string, groups int) (n, width int) {
	if len(s) >= 2 && isDigit(s[1]) {
		if nn := int(s[0]-'0')*10 + int(s[1]-'0'); nn >= 1 && nn <= groups {
			return nn, 2
		}
	}
	if d := int(s[0] - '0'); d >= 1 && d <= groups {
		return d, 1
	}
	return 0, 0
}

func writeGroup(b *strings.Builder, value string, loc []int, n int) {
	if start := loc[2*n]; start >= 0 {
		b.WriteString(value[start:loc[2*n+1]])
	}
}

func hasNamedGroups(re *regexp.Regexp) bool {
	for _, name := range re.SubexpNames() {
		if name != "" {
			return true
		}
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
