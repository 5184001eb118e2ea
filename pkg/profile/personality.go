package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// TraitKind tells how a personality trait value was written in the case file.
type TraitKind int

const (
	// TraitIntensity is a numeric value in [0,1].
	TraitIntensity TraitKind = iota
	// TraitTags is a list of descriptive tags.
	TraitTags
	// TraitText is any other value, kept verbatim.
	TraitText
)

// Trait is one named personality trait.
type Trait struct {
	Name      string
	Kind      TraitKind
	Intensity float64
	Tags      []string
	Text      string
}

// Personality is an ordered list of traits, in the order the case file
// declares them.
type Personality []Trait

// Intensity returns the numeric value of the named trait.
func (p Personality) Intensity(name string) (float64, bool) {
	for _, t := range p {
		if t.Name == name && t.Kind == TraitIntensity {
			return t.Intensity, true
		}
	}
	return 0, false
}

// Trait returns the named trait.
func (p Personality) Trait(name string) (Trait, bool) {
	for _, t := range p {
		if t.Name == name {
			return t, true
		}
	}
	return Trait{}, false
}

func (p *Personality) UnmarshalJSON(data []byte) error {
	var traits Personality
	err := walkObject(data, func(key string, raw json.RawMessage) error {
		trait, err := decodeJSONTrait(key, raw)
		if err != nil {
			return err
		}
		traits = append(traits, trait)
		return nil
	})
	if err != nil {
		return fmt.Errorf("personality: %w", err)
	}
	*p = traits
	return nil
}

func decodeJSONTrait(name string, raw json.RawMessage) (Trait, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Trait{Name: name, Kind: TraitText}, nil
	}
	switch trimmed[0] {
	case '[':
		var items []any
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Trait{}, fmt.Errorf("trait %q: %w", name, err)
		}
		tags := make([]string, 0, len(items))
		for _, item := range items {
			tags = append(tags, fmt.Sprint(item))
		}
		return Trait{Name: name, Kind: TraitTags, Tags: tags}, nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Trait{}, fmt.Errorf("trait %q: %w", name, err)
		}
		return Trait{Name: name, Kind: TraitText, Text: s}, nil
	}
	var f float64
	if err := json.Unmarshal(trimmed, &f); err == nil {
		return Trait{Name: name, Kind: TraitIntensity, Intensity: f}, nil
	}
	return Trait{Name: name, Kind: TraitText, Text: string(trimmed)}, nil
}

func (p *Personality) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("personality: expected mapping at line %d", node.Line)
	}
	traits := make(Personality, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		value := node.Content[i+1]
		switch value.Kind {
		case yaml.SequenceNode:
			var tags []string
			if err := value.Decode(&tags); err != nil {
				return fmt.Errorf("trait %q: %w", name, err)
			}
			traits = append(traits, Trait{Name: name, Kind: TraitTags, Tags: tags})
		case yaml.ScalarNode:
			var f float64
			if value.Tag == "!!int" || value.Tag == "!!float" {
				if err := value.Decode(&f); err == nil {
					traits = append(traits, Trait{Name: name, Kind: TraitIntensity, Intensity: f})
					continue
				}
			}
			traits = append(traits, Trait{Name: name, Kind: TraitText, Text: value.Value})
		default:
			var v any
			if err := value.Decode(&v); err != nil {
				return fmt.Errorf("trait %q: %w", name, err)
			}
			traits = append(traits, Trait{Name: name, Kind: TraitText, Text: strings.TrimSpace(fmt.Sprint(v))})
		}
	}
	*p = traits
	return nil
}
