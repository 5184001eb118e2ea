package profile

import (
	"fmt"
	"strings"
)

// Role is the part a character plays in a case. The set is closed: every
// switch over a Role handles RoleInnocent, RoleCulprit and RoleRedHerring.
type Role string

const (
	RoleInnocent   Role = "innocent"
	RoleCulprit    Role = "culprit"
	RoleRedHerring Role = "redHerring"
)

// Roles lists every valid role in declaration order.
var Roles = []Role{RoleInnocent, RoleCulprit, RoleRedHerring}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleInnocent, RoleCulprit, RoleRedHerring:
		return true
	}
	return false
}

// UnmarshalText rejects unknown roles so that a case file cannot smuggle in
// a role the prompt composer does not know how to render.
func (r *Role) UnmarshalText(text []byte) error {
	role := Role(strings.TrimSpace(string(text)))
	if !role.Valid() {
		return fmt.Errorf("unknown role %q (expected one of %v)", string(text), Roles)
	}
	*r = role
	return nil
}

// Background is the character's cover story.
type Background struct {
	Occupation   string `json:"occupation" yaml:"occupation"`
	Relationship string `json:"relationship" yaml:"relationship"`
	Alibi        string `json:"alibi" yaml:"alibi"`
}

// Testimony is a piece of key information a character works into an answer
// when the detective's question touches one of its trigger keywords.
type Testimony struct {
	TriggerKeywords []string `json:"triggerKeywords" yaml:"triggerKeywords"`
	Response        string   `json:"response" yaml:"response"`
	EvidenceType    string   `json:"evidenceType,omitempty" yaml:"evidenceType,omitempty"`
}

// KnowledgeProfile holds everything a character may draw on when answering.
// Culprits use Lies, HiddenTruths and DeflectionTactics; everyone else uses
// AboutSelf. The remaining sections are shared by all roles.
type KnowledgeProfile struct {
	GeneralKnowledge  Section      `json:"generalKnowledge" yaml:"generalKnowledge"`
	Lies              Section      `json:"lies,omitempty" yaml:"lies,omitempty"`
	HiddenTruths      Section      `json:"hiddenTruths,omitempty" yaml:"hiddenTruths,omitempty"`
	DeflectionTactics SectionGroup `json:"deflectionTactics,omitempty" yaml:"deflectionTactics,omitempty"`
	AboutSelf         Section      `json:"aboutSelf,omitempty" yaml:"aboutSelf,omitempty"`
	AboutVictim       Section      `json:"aboutVictim,omitempty" yaml:"aboutVictim,omitempty"`
	AboutOthers       SectionGroup `json:"aboutOthers,omitempty" yaml:"aboutOthers,omitempty"`
	Timeline          Section      `json:"timeline,omitempty" yaml:"timeline,omitempty"`
}

// Character is the static persona and knowledge for one suspect. It is
// loaded once per case and never mutated afterwards.
type Character struct {
	ID               string           `json:"id" yaml:"id"`
	Name             string           `json:"name" yaml:"name"`
	Role             Role             `json:"role" yaml:"role"`
	Personality      Personality      `json:"personality" yaml:"personality"`
	Background       Background       `json:"background" yaml:"background"`
	KnowledgeProfile KnowledgeProfile `json:"knowledgeProfile" yaml:"knowledgeProfile"`
	KeyTestimony     []Testimony      `json:"keyTestimony,omitempty" yaml:"keyTestimony,omitempty"`
}

// IsCulprit reports whether the character is allowed to confess.
func (c *Character) IsCulprit() bool {
	return c != nil && c.Role == RoleCulprit
}

// Nervousness returns the character's nervousness intensity, or 0 when the
// trait is absent or not numeric.
func (c *Character) Nervousness() float64 {
	v, _ := c.Personality.Intensity("nervousness")
	return v
}
