package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/interrogation-engine/pkg/chat"
	"github.com/jwebster45206/interrogation-engine/pkg/profile"
)

// DefaultVictim is used when the case does not name a victim.
const DefaultVictim = "the victim"

// Builder composes the instruction text for one turn using a fluent interface.
// Composition is pure: the same inputs always produce the same prompt.
type Builder struct {
	character *profile.Character
	victim    string
	question  string
	history   []chat.Message
	session   SessionContext
}

// New creates a new prompt builder with default settings.
func New() *Builder {
	return &Builder{
		victim: DefaultVictim,
	}
}

// WithCharacter sets the suspect being interrogated.
func (b *Builder) WithCharacter(c *profile.Character) *Builder {
	b.character = c
	return b
}

// WithVictim sets the name of the murder victim.
func (b *Builder) WithVictim(name string) *Builder {
	if name != "" {
		b.victim = name
	}
	return b
}

// WithQuestion sets the cleaned question being asked.
func (b *Builder) WithQuestion(q string) *Builder {
	b.question = q
	return b
}

// WithHistory sets the character's conversation so far, oldest first.
func (b *Builder) WithHistory(history []chat.Message) *Builder {
	b.history = history
	return b
}

// WithSession sets the session counters.
func (b *Builder) WithSession(s SessionContext) *Builder {
	b.session = s
	return b
}

// Build assembles the prompt in fixed order: preamble, character, situation,
// question, closing instruction and any triggered key testimony.
func (b *Builder) Build() (string, error) {
	if b.character == nil {
		return "", fmt.Errorf("character is required")
	}
	if strings.TrimSpace(b.question) == "" {
		return "", fmt.Errorf("question is required")
	}

	parts := []string{
		SystemPreamble,
		CharacterPrompt(b.character, b.victim),
	}
	if situation := SituationalContext(b.character, b.history, b.session); situation != "" {
		parts = append(parts, situation)
	}
	parts = append(parts,
		fmt.Sprintf(QuestionTemplate, b.question),
		fmt.Sprintf(ClosingTemplate, orNone(b.character.Name)),
	)
	if t, ok := MatchTestimony(b.character, b.question); ok {
		parts = append(parts, fmt.Sprintf(TestimonyTemplate, t.Response))
	}

	return strings.Join(parts, "\n\n"), nil
}

// GeneratePrompt is a convenience function for the common case.
func GeneratePrompt(
	c *profile.Character,
	victim string,
	question string,
	history []chat.Message,
	session SessionContext,
) (string, error) {
	return New().
		WithCharacter(c).
		WithVictim(victim).
		WithQuestion(question).
		WithHistory(history).
		WithSession(session).
		Build()
}
