package profile

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Entry is one topic of a knowledge section. Text is a single sentence that
// is surfaced into prompts verbatim.
type Entry struct {
	Key  string
	Text string
}

// Section maps topic keys to disclosure text, preserving file order.
type Section []Entry

// Get returns the text stored under key.
func (s Section) Get(key string) (string, bool) {
	for _, e := range s {
		if e.Key == key {
			return e.Text, true
		}
	}
	return "", false
}

// Texts returns the entry texts in order.
func (s Section) Texts() []string {
	texts := make([]string, len(s))
	for i, e := range s {
		texts[i] = e.Text
	}
	return texts
}

func (s *Section) UnmarshalJSON(data []byte) error {
	var entries Section
	err := walkObject(data, func(key string, raw json.RawMessage) error {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return fmt.Errorf("entry %q: expected string: %w", key, err)
		}
		entries = append(entries, Entry{Key: key, Text: text})
		return nil
	})
	if err != nil {
		return err
	}
	*s = entries
	return nil
}

func (s *Section) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping at line %d", node.Line)
	}
	entries := make(Section, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var text string
		if err := node.Content[i+1].Decode(&text); err != nil {
			return fmt.Errorf("entry %q: %w", node.Content[i].Value, err)
		}
		entries = append(entries, Entry{Key: node.Content[i].Value, Text: text})
	}
	*s = entries
	return nil
}

// Subject is a section about one particular person, keyed by that person's
// identifier or name as written in the case file.
type Subject struct {
	Name    string
	Section Section
}

// SectionGroup is an ordered list of per-person sections, used for
// observations about other suspects and for deflection talking points.
type SectionGroup []Subject

// Get returns the section kept for name.
func (g SectionGroup) Get(name string) (Section, bool) {
	for _, s := range g {
		if s.Name == name {
			return s.Section, true
		}
	}
	return nil, false
}

func (g *SectionGroup) UnmarshalJSON(data []byte) error {
	var subjects SectionGroup
	err := walkObject(data, func(key string, raw json.RawMessage) error {
		var section Section
		if err := section.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("subject %q: %w", key, err)
		}
		subjects = append(subjects, Subject{Name: key, Section: section})
		return nil
	})
	if err != nil {
		return err
	}
	*g = subjects
	return nil
}

func (g *SectionGroup) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping at line %d", node.Line)
	}
	subjects := make(SectionGroup, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var section Section
		if err := section.UnmarshalYAML(node.Content[i+1]); err != nil {
			return fmt.Errorf("subject %q: %w", node.Content[i].Value, err)
		}
		subjects = append(subjects, Subject{Name: node.Content[i].Value, Section: section})
	}
	*g = subjects
	return nil
}

// walkObject calls fn for every member of a JSON object in document order.
// A JSON null is treated as an empty object.
func walkObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("value for %q: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
