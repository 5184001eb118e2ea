package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/interrogation-engine/pkg/profile"
)

// SystemPreamble states the reply contract. The field labels and values must
// match what pkg/response parses.
const SystemPreamble = `You are roleplaying as a character in a murder mystery interrogation game. 
You must stay completely in character and respond as they would based on their personality, background, and current emotional state.

IMPORTANT RULES:
- Stay in character at all times
- Be consistent with previous statements
- Show personality through speech patterns and reactions
- Include subtle emotional cues and body language
- Keep responses conversational and natural
- Don't break character or mention you're an AI
- Respond to the specific question asked

RESPONSE FORMAT:
You must format your response EXACTLY like this:
emotion: "angry" OR "scared" OR "normal"
message: "Your character's spoken dialogue only - no stage directions or actions"
context: "Brief summary of conversation state, attitude, and key points discussed"
state: "CONTINUE" OR "END"

Available emotions:
- "angry": Use when defensive, frustrated, or confrontational
- "scared": Use when nervous, anxious, or intimidated
- "normal": Use for calm, neutral, or cooperative responses

Context field requirements:
- Summarize the current conversation state in 1-2 sentences (what has been asked, what has been revealed, the chronology)
- Include the suspect's current attitude/demeanor
- Note any key topics discussed or revelations made
- Keep it under 150 words

State field requirements:
- Use "CONTINUE" for normal conversation
- Use "END" ONLY when the character confesses to the crime
- END should only be used if:
  * Your character is the culprit (role: "culprit")
  * AND you've been confronted with strong evidence or contradictions
  * AND your character breaks down and admits guilt
- Innocent characters should NEVER use "END"`

// CharacterIntroduction takes name, occupation, victim, role, relationship,
// alibi, rendered personality and emotional state.
const CharacterIntroduction = `You are %s, a %s involved in the murder investigation of %s.

Your role in this case: %s
Your relationship to the victim: %s
Your alibi: %s

Your personality traits:
%s

Your current emotional state: %s`

const (
	KnowledgeHeader    = "YOUR KNOWLEDGE AND WHAT YOU CAN REVEAL:"
	GeneralHeader      = "GENERAL KNOWLEDGE (known by everyone):"
	LiesHeader         = "WHAT YOU CLAIM (LIES):"
	HiddenTruthsHeader = "WHAT YOU HIDE (only reveal under extreme pressure):"
	DeflectionHeader   = "HOW YOU DEFLECT SUSPICION:"
	AboutSelfHeader    = "ABOUT YOURSELF:"
	AboutVictimHeader  = "ABOUT THE VICTIM:"
	AboutOthersHeader  = "ABOUT OTHER SUSPECTS:"
	TimelineHeader     = "TIMELINE & OBSERVATIONS:"

	KnowledgeFooter = "IMPORTANT: Only reveal information naturally when asked relevant questions. Don't volunteer everything at once. If a user requests information that isn't in the knowledge provided for the character, say idk. DO NOT CONFESS if not presented with evidence."

	// NoInformation replaces any piece of profile data that is missing.
	NoInformation = "no information"
)

// Situational notes.
const (
	FatigueNote    = "You are getting tired from the long interrogation. Show signs of fatigue or irritation."
	PressureNote   = "You feel under pressure. The detective seems suspicious of you."
	ConfessionNote = "IMPORTANT: You are feeling the weight of evidence against you. If confronted with strong contradictions or evidence in the message, go ahead and confess."

	PreviousContextHeader = "PREVIOUS CONVERSATION CONTEXT:"
	ConsistencyNote       = "Maintain consistency with this established context and your character's previous attitude."
)

const (
	QuestionTemplate  = "CURRENT QUESTION FROM DETECTIVE: \"%s\"\n\nYour response:"
	ClosingTemplate   = "Respond in character as %s. Put spoken dialogue in the message field only. Body language and emotional reactions should be reflected through the emotion field and context summary, not in the dialogue itself."
	TestimonyTemplate = "IMPORTANT: When responding to this question, naturally work in this key information: \"%s\""
)

// Session thresholds.
const (
	FatigueQuestions      = 10
	PressureThreshold     = 0.5
	ConfessionHistorySize = 6
)

// Emotional states.
const (
	culpritNervous     = "nervous and defensive, trying to appear calm"
	culpritControlled  = "carefully controlled, but with underlying tension"
	innocentEager      = "cooperative and eager to help"
	innocentConcerned  = "concerned but willing to assist"
	redHerringHostile  = "frustrated and somewhat hostile"
	redHerringDefended = "defensive but trying to clear their name"
	unknownState       = "cautious and uncertain"
)

// CharacterPrompt renders the introduction and knowledge blocks for c.
func CharacterPrompt(c *profile.Character, victim string) string {
	intro := fmt.Sprintf(CharacterIntroduction,
		orNone(c.Name),
		orNone(c.Background.Occupation),
		orNone(victim),
		orNone(string(c.Role)),
		orNone(c.Background.Relationship),
		orNone(c.Background.Alibi),
		PersonalityTraits(c.Personality),
		EmotionalState(c),
	)
	return intro + "\n\n" + KnowledgeHeader + "\n" + KnowledgeSection(c)
}

// PersonalityTraits renders one bullet per trait. Numeric traits are
// bucketed into very (> 0.7), somewhat (> 0.4) or slightly.
func PersonalityTraits(p profile.Personality) string {
	if len(p) == 0 {
		return "- " + NoInformation
	}
	lines := make([]string, 0, len(p))
	for _, t := range p {
		switch t.Kind {
		case profile.TraitIntensity:
			lines = append(lines, fmt.Sprintf("- %s %s", intensityWord(t.Intensity), t.Name))
		case profile.TraitTags:
			lines = append(lines, fmt.Sprintf("- %s: %s", t.Name, strings.Join(t.Tags, ", ")))
		default:
			lines = append(lines, fmt.Sprintf("- %s: %s", t.Name, t.Text))
		}
	}
	return strings.Join(lines, "\n")
}

func intensityWord(v float64) string {
	switch {
	case v > 0.7:
		return "very"
	case v > 0.4:
		return "somewhat"
	default:
		return "slightly"
	}
}

// EmotionalState derives the character's mood from role and personality.
func EmotionalState(c *profile.Character) string {
	intensity := func(name string) float64 {
		v, _ := c.Personality.Intensity(name)
		return v
	}
	switch c.Role {
	case profile.RoleCulprit:
		if intensity("nervousness") > 0.5 {
			return culpritNervous
		}
		return culpritControlled
	case profile.RoleInnocent:
		if intensity("helpfulness") > 0.7 {
			return innocentEager
		}
		return innocentConcerned
	case profile.RoleRedHerring:
		if intensity("aggressiveness") > 0.5 {
			return redHerringHostile
		}
		return redHerringDefended
	}
	return unknownState
}

// KnowledgeSection renders the knowledge profile. General knowledge comes
// first; culprits then get lies, hidden truths and deflection tactics while
// everyone else gets what they know about themselves. Every role ends with
// victim, other suspects and timeline.
func KnowledgeSection(c *profile.Character) string {
	kp := c.KnowledgeProfile
	var sb strings.Builder

	writeSection(&sb, GeneralHeader, kp.GeneralKnowledge)
	switch c.Role {
	case profile.RoleCulprit:
		writeSection(&sb, LiesHeader, kp.Lies)
		writeSection(&sb, HiddenTruthsHeader, kp.HiddenTruths)
		writeGroup(&sb, DeflectionHeader, kp.DeflectionTactics)
	case profile.RoleInnocent, profile.RoleRedHerring:
		writeSection(&sb, AboutSelfHeader, kp.AboutSelf)
	}
	writeSection(&sb, AboutVictimHeader, kp.AboutVictim)
	writeGroup(&sb, AboutOthersHeader, kp.AboutOthers)
	writeSection(&sb, TimelineHeader, kp.Timeline)

	sb.WriteString(KnowledgeFooter)
	return sb.String()
}

func writeSection(sb *strings.Builder, header string, s profile.Section) {
	sb.WriteString(header + "\n")
	writeBullets(sb, "- ", s)
	sb.WriteString("\n")
}

func writeGroup(sb *strings.Builder, header string, g profile.SectionGroup) {
	sb.WriteString(header + "\n")
	if len(g) == 0 {
		sb.WriteString("- " + NoInformation + "\n")
	}
	for _, subj := range g {
		sb.WriteString("About " + subj.Name + ":\n")
		writeBullets(sb, "  - ", subj.Section)
	}
	sb.WriteString("\n")
}

func writeBullets(sb *strings.Builder, bullet string, s profile.Section) {
	if len(s) == 0 {
		sb.WriteString(bullet + NoInformation + "\n")
		return
	}
	for _, e := range s {
		sb.WriteString(bullet + e.Text + "\n")
	}
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return NoInformation
	}
	return s
}
