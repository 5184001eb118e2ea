package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Case is the full cast of one murder mystery.
type Case struct {
	ID         string      `json:"id" yaml:"id"`
	Title      string      `json:"title" yaml:"title"`
	Victim     string      `json:"victim" yaml:"victim"`
	Characters []Character `json:"characters" yaml:"characters"`
}

// Character returns the character with the given id.
func (c *Case) Character(id string) (*Character, bool) {
	for i := range c.Characters {
		if c.Characters[i].ID == id {
			return &c.Characters[i], true
		}
	}
	return nil, false
}

// CharacterIDs returns the character ids in file order.
func (c *Case) CharacterIDs() []string {
	ids := make([]string, len(c.Characters))
	for i, ch := range c.Characters {
		ids[i] = ch.ID
	}
	return ids
}

// Format is the serialisation of a case file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported case file extension: %s", filepath.Ext(path))
}

// DecodeCase parses a case file. Unknown fields are ignored so that case
// files may carry data for other collaborators (appearance, victory
// conditions).
func DecodeCase(data []byte, format Format) (*Case, error) {
	return decodeCase(data, format, false)
}

// DecodeCaseStrict parses a case file and fails on unknown fields.
func DecodeCaseStrict(data []byte, format Format) (*Case, error) {
	return decodeCase(data, format, true)
}

func decodeCase(data []byte, format Format, strict bool) (*Case, error) {
	var c Case
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to decode case: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(strict)
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to decode case: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported case format %q", format)
	}
	return &c, nil
}

var idPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidID reports whether id is lowercase snake_case, the form required of
// case and character ids.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Validate returns every problem found in the case. A nil slice means the
// case is usable.
func (c *Case) Validate() []string {
	var problems []string
	if c.ID != "" && !ValidID(c.ID) {
		problems = append(problems, fmt.Sprintf("case id %q must be lowercase snake_case", c.ID))
	}
	if len(c.Characters) == 0 {
		problems = append(problems, "case has no characters")
	}

	seen := make(map[string]bool)
	culprits := 0
	for i, ch := range c.Characters {
		label := fmt.Sprintf("characters[%d]", i)
		if ch.ID == "" {
			problems = append(problems, label+": missing id")
		} else if !ValidID(ch.ID) {
			problems = append(problems, fmt.Sprintf("%s: id %q must be lowercase snake_case", label, ch.ID))
		} else if seen[ch.ID] {
			problems = append(problems, fmt.Sprintf("%s: duplicate id %q", label, ch.ID))
		}
		seen[ch.ID] = true

		if strings.TrimSpace(ch.Name) == "" {
			problems = append(problems, label+": missing name")
		}
		if !ch.Role.Valid() {
			problems = append(problems, fmt.Sprintf("%s: invalid role %q", label, ch.Role))
		}
		if ch.Role == RoleCulprit {
			culprits++
		}
		for _, t := range ch.Personality {
			if t.Kind == TraitIntensity && (t.Intensity < 0 || t.Intensity > 1) {
				problems = append(problems, fmt.Sprintf("%s: trait %q intensity %v outside [0,1]", label, t.Name, t.Intensity))
			}
		}
		for j, t := range ch.KeyTestimony {
			if len(t.TriggerKeywords) == 0 {
				problems = append(problems, fmt.Sprintf("%s.keyTestimony[%d]: no trigger keywords", label, j))
			}
		}
	}
	if len(c.Characters) > 0 && culprits == 0 {
		problems = append(problems, "case has no culprit; no interrogation can end in a confession")
	}
	return problems
}
