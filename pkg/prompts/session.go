package prompts

import (
	"math"
	"strings"
	"time"

	"github.com/jwebster45206/interrogation-engine/pkg/chat"
	"github.com/jwebster45206/interrogation-engine/pkg/profile"
)

// SessionContext is the slice of session state a prompt can see.
type SessionContext struct {
	TotalQuestions int           `json:"total_questions"`
	Duration       time.Duration `json:"duration"`
	PressureLevel  float64       `json:"pressure_level"`
}

// Phrases in the detective's questions that challenge earlier answers.
var contradictionPhrases = []string{
	"you said", "earlier you", "but you told me", "contradicts", "inconsistent",
	"lies", "lying", "false", "truth", "evidence shows", "witnesses saw",
}

// Phrases in the detective's questions that confront the suspect with evidence.
var evidencePhrases = []string{
	"evidence", "proof", "witness", "saw you", "camera", "fingerprints",
	"dna", "motive", "opportunity", "caught", "alibi",
}

// Pressure estimates in [0,1] how hard the detective has been pushing a
// suspect, from the contradictions and evidence raised in their questions.
// Each contradiction phrase adds 0.15; any evidence adds 0.4.
func Pressure(history []chat.Message) float64 {
	var contradictions int
	var evidence bool
	for _, m := range history {
		if m.Type != chat.MessageTypeUser {
			continue
		}
		q := strings.ToLower(m.Content)
		for _, p := range contradictionPhrases {
			if strings.Contains(q, p) {
				contradictions++
			}
		}
		if !evidence {
			for _, p := range evidencePhrases {
				if strings.Contains(q, p) {
					evidence = true
					break
				}
			}
		}
	}

	level := 0.15 * float64(contradictions)
	if evidence {
		level += 0.4
	}
	return math.Min(level, 1)
}

// PreviousContext renders the last one or two running summaries the
// character left, or "" when there are none.
func PreviousContext(history []chat.Message) string {
	var summaries []string
	for _, m := range history {
		if m.Type == chat.MessageTypeCharacter && m.Context != "" {
			summaries = append(summaries, m.Context)
		}
	}
	if len(summaries) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(PreviousContextHeader + "\n")
	if len(summaries) >= 2 {
		recent := summaries[len(summaries)-2:]
		sb.WriteString("Earlier: " + recent[0] + "\n")
		sb.WriteString("Recent: " + recent[1] + "\n")
	} else {
		sb.WriteString("Previous: " + summaries[0] + "\n")
	}
	sb.WriteString("\n" + ConsistencyNote)
	return sb.String()
}

// SituationalContext renders the notes that depend on how the interrogation
// has gone so far. It returns "" when no note applies.
func SituationalContext(c *profile.Character, history []chat.Message, session SessionContext) string {
	var notes []string
	if session.TotalQuestions > FatigueQuestions {
		notes = append(notes, FatigueNote)
	}
	if session.PressureLevel > PressureThreshold {
		notes = append(notes, PressureNote)
	}
	if c.IsCulprit() && len(history) > ConfessionHistorySize {
		notes = append(notes, ConfessionNote)
	}
	if prev := PreviousContext(history); prev != "" {
		notes = append(notes, prev)
	}
	return strings.Join(notes, "\n\n")
}

// MatchTestimony returns the first key testimony whose trigger keywords
// appear in question, ignoring case.
func MatchTestimony(c *profile.Character, question string) (profile.Testimony, bool) {
	q := strings.ToLower(question)
	for _, t := range c.KeyTestimony {
		for _, kw := range t.TriggerKeywords {
			if kw != "" && strings.Contains(q, strings.ToLower(kw)) {
				return t, true
			}
		}
	}
	return profile.Testimony{}, false
}
