// Package question cleans and validates the detective's free-text input
// before it reaches a prompt.
package question

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultMinLength = 3
	DefaultMaxLength = 500
)

// DefaultBannedTerms is the block-list used when none is configured.
var DefaultBannedTerms = []string{"fuck", "shit", "damn"}

// Type is a coarse classification of what a question asks about.
type Type string

const (
	TypeLocation     Type = "location"
	TypeTime         Type = "time"
	TypePerson       Type = "person"
	TypeDescription  Type = "description"
	TypeMotive       Type = "motive"
	TypeMethod       Type = "method"
	TypeConfirmation Type = "confirmation"
	TypeRequest      Type = "request"
	TypeNarrative    Type = "narrative"
	TypeGeneral      Type = "general"
)

// Processed is the outcome of normalising one submission. It is created
// fresh for every submission and never stored.
type Processed struct {
	Original    string   `json:"original"`
	Cleaned     string   `json:"cleaned"`
	Valid       bool     `json:"is_valid"`
	Type        Type     `json:"type"`
	Errors      []string `json:"errors,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Normalizer holds the static configuration for question processing.
// A Normalizer is safe for concurrent use.
type Normalizer struct {
	minLength   int
	maxLength   int
	bannedTerms []string
}

// New returns a Normalizer with the default limits and block-list.
func New() *Normalizer {
	return &Normalizer{
		minLength:   DefaultMinLength,
		maxLength:   DefaultMaxLength,
		bannedTerms: DefaultBannedTerms,
	}
}

// WithBannedTerms replaces the block-list. Empty terms are ignored.
func (n *Normalizer) WithBannedTerms(terms []string) *Normalizer {
	cleaned := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	n.bannedTerms = cleaned
	return n
}

// WithLengthLimits sets the inclusive character bounds for a valid question.
func (n *Normalizer) WithLengthLimits(minLength, maxLength int) *Normalizer {
	n.minLength = minLength
	n.maxLength = maxLength
	return n
}

var interrogatives = map[string]bool{
	"what": true, "where": true, "when": true, "who": true, "why": true, "how": true,
	"did": true, "do": true, "does": true, "can": true, "could": true, "would": true,
	"will": true, "is": true, "are": true,
}

var whitespace = regexp.MustCompile(`\s+`)

type offTopic struct {
	pattern *regexp.Regexp
	message string
}

var offTopicPatterns = []offTopic{
	{regexp.MustCompile(`(?i)what.*time.*is.*it`), "Focus on the investigation rather than asking about time"},
	{regexp.MustCompile(`(?i)how.*are.*you`), "This is an interrogation, focus on case-related questions"},
	{regexp.MustCompile(`(?i)nice.*weather`), "Stay focused on the murder investigation"},
}

var investigativePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)where.*were.*you`),
	regexp.MustCompile(`(?i)what.*did.*you.*see`),
	regexp.MustCompile(`(?i)who.*was.*with`),
	regexp.MustCompile(`(?i)when.*did.*you`),
	regexp.MustCompile(`(?i)how.*do.*you.*know`),
	regexp.MustCompile(`(?i)why.*would`),
	regexp.MustCompile(`(?i)can.*you.*explain`),
	regexp.MustCompile(`(?i)tell.*me.*about`),
}

const (
	warnGeneric        = "Consider asking more specific investigative questions"
	suggestElaborate   = "Try asking a more detailed question about the suspect's whereabouts or actions"
	suggestSplit       = "Break this into multiple shorter questions"
	suggestOpeners     = `Try starting with: "Where were you...", "What did you see...", or "Who was with you..."`
	errEmpty           = "Question cannot be empty"
	errTooShortFormat  = "Question too short (minimum %d characters)"
	errTooLongFormat   = "Question too long (maximum %d characters)"
	errProfanityFormat = "Please keep questions professional (found: %s)"
)

// Process cleans and validates raw input. It never fails: problems are
// reported through the Errors and Warnings of the result.
func (n *Normalizer) Process(raw string) Processed {
	p := Processed{
		Original: raw,
		Cleaned:  Clean(raw),
	}
	p.Type = Classify(p.Cleaned)

	var tooShort, tooLong bool
	length := utf8.RuneCountInString(p.Cleaned)
	switch {
	case length == 0:
		p.Errors = append(p.Errors, errEmpty)
	case length < n.minLength:
		tooShort = true
		p.Errors = append(p.Errors, fmt.Sprintf(errTooShortFormat, n.minLength))
	}
	if length > n.maxLength {
		tooLong = true
		p.Errors = append(p.Errors, fmt.Sprintf(errTooLongFormat, n.maxLength))
	}
	if found := n.bannedTermsIn(p.Cleaned); len(found) > 0 {
		p.Errors = append(p.Errors, fmt.Sprintf(errProfanityFormat, strings.Join(found, ", ")))
	}
	if length > 0 {
		p.Warnings = warningsFor(p.Cleaned)
	}

	p.Valid = len(p.Errors) == 0
	if !p.Valid {
		if tooShort {
			p.Suggestions = append(p.Suggestions, suggestElaborate)
		}
		if tooLong {
			p.Suggestions = append(p.Suggestions, suggestSplit)
		}
		if p.Type == TypeGeneral {
			p.Suggestions = append(p.Suggestions, suggestOpeners)
		}
	}
	return p
}

// Clean trims the input, collapses whitespace runs, capitalises the first
// letter and appends a question mark to unpunctuated questions. Clean is
// idempotent.
func Clean(raw string) string {
	cleaned := whitespace.ReplaceAllString(strings.TrimSpace(raw), " ")
	if cleaned == "" {
		return ""
	}

	first, size := utf8.DecodeRuneInString(cleaned)
	cleaned = cases.Upper(language.Und).String(string(first)) + cleaned[size:]

	if looksLikeQuestion(cleaned) && !endsWithTerminal(cleaned) {
		cleaned += "?"
	}
	return cleaned
}

func looksLikeQuestion(s string) bool {
	first, _, _ := strings.Cut(s, " ")
	return interrogatives[strings.ToLower(first)]
}

func endsWithTerminal(s string) bool {
	switch s[len(s)-1] {
	case '?', '.', '!':
		return true
	}
	return false
}

func (n *Normalizer) bannedTermsIn(s string) []string {
	fold := cases.Fold()
	folded := fold.String(s)
	var found []string
	for _, term := range n.bannedTerms {
		if strings.Contains(folded, fold.String(term)) {
			found = append(found, term)
		}
	}
	return found
}

func warningsFor(s string) []string {
	var warnings []string
	for _, ot := range offTopicPatterns {
		if ot.pattern.MatchString(s) {
			warnings = append(warnings, ot.message)
		}
	}
	if len(warnings) > 0 {
		return warnings
	}
	for _, p := range investigativePatterns {
		if p.MatchString(s) {
			return nil
		}
	}
	return []string{warnGeneric}
}

var typePrefixes = []struct {
	prefix string
	t      Type
}{
	{"where", TypeLocation},
	{"when", TypeTime},
	{"who", TypePerson},
	{"what", TypeDescription},
	{"why", TypeMotive},
	{"how", TypeMethod},
	{"did you", TypeConfirmation},
	{"have you", TypeConfirmation},
	{"can you", TypeRequest},
	{"could you", TypeRequest},
	{"tell me", TypeNarrative},
}

// Classify returns the question type implied by the opening words.
func Classify(s string) Type {
	lower := strings.ToLower(s)
	for _, tp := range typePrefixes {
		if strings.HasPrefix(lower, tp.prefix) {
			return tp.t
		}
	}
	return TypeGeneral
}

// SampleQuestions lists example questions to show a stuck player.
func SampleQuestions() []string {
	return []string{
		"Where were you between 8:30 and 9:15 PM?",
		"What did you see in Victoria's office?",
		"Who was with you during the gallery opening?",
		"When did you last speak to Victoria?",
		"How well did you know the victim?",
		"Why were you in that area of the gallery?",
		"Can you explain the argument witnesses heard?",
		"Tell me about your relationship with Victoria.",
		"Did you notice anything unusual that evening?",
		"What time did you arrive at the gallery?",
	}
}

// Format renders errors, warnings and suggestions as bullet blocks for
// display. It returns an empty string when there is nothing to report.
func Format(p Processed) string {
	var blocks []string
	if len(p.Errors) > 0 {
		blocks = append(blocks, bulletBlock("Errors:", p.Errors))
	}
	if len(p.Warnings) > 0 {
		blocks = append(blocks, bulletBlock("Suggestions:", p.Warnings))
	}
	if len(p.Suggestions) > 0 {
		blocks = append(blocks, bulletBlock("Tips:", p.Suggestions))
	}
	return strings.Join(blocks, "\n\n")
}

func bulletBlock(title string, items []string) string {
	var sb strings.Builder
	sb.WriteString(title)
	for _, item := range items {
		sb.WriteString("\n• " + item)
	}
	return sb.String()
}
