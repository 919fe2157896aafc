// internal/rules/codec.go
package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMalformed marks rule data that is neither a JSON array nor a YAML
// list of profiles.
var ErrMalformed = errors.New("malformed rule data")

// Format is a text serialization of a rule set.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Encode serializes the rule set. JSON output is indented when pretty is
// set; YAML output is always block style.
func Encode(profiles []SiteProfile, format Format, pretty bool) ([]byte, error) {
	if profiles == nil {
		profiles = []SiteProfile{}
	}

	switch format {
	case FormatJSON, "":
		if pretty {
			return json.MarshalIndent(profiles, "", "  ")
		}
		return json.Marshal(profiles)
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(profiles); err != nil {
			return nil, fmt.Errorf("failed to encode rules as YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported rule format: %s", format)
	}
}

// Decode parses a rule set. A document starting with '[' is read as
// JSON, anything else as YAML.
func Decode(data []byte) ([]SiteProfile, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: rule data cannot be empty", ErrMalformed)
	}

	var profiles []SiteProfile
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &profiles); err != nil {
			return nil, fmt.Errorf("%w: failed to parse JSON rules: %w", ErrMalformed, err)
		}
		return profiles, nil
	}

	if err := yaml.Unmarshal(trimmed, &profiles); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML rules: %w", ErrMalformed, err)
	}
	return profiles, nil
}
