// Package response turns raw language-model completions into the four-field
// reply a suspect gives: emotion, message, context and state.
//
// Parsing is total. Whatever the model returns, Parse yields a Reply whose
// emotion and state are members of their enumerations.
package response

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jwebster45206/interrogation-engine/pkg/chat"
	"github.com/jwebster45206/interrogation-engine/pkg/profile"
)

// Emotion is the suspect's visible mood for a reply.
type Emotion string

const (
	EmotionAngry  Emotion = "angry"
	EmotionScared Emotion = "scared"
	EmotionNormal Emotion = "normal"
)

// Valid reports whether e is one of the contract emotions.
func (e Emotion) Valid() bool {
	switch e {
	case EmotionAngry, EmotionScared, EmotionNormal:
		return true
	}
	return false
}

// State says whether the interrogation of a suspect goes on.
type State string

const (
	StateContinue State = "CONTINUE"
	StateEnd      State = "END"
)

// Valid reports whether s is one of the contract states.
func (s State) Valid() bool {
	return s == StateContinue || s == StateEnd
}

// Field labels of the reply contract.
const (
	LabelEmotion = "emotion"
	LabelMessage = "message"
	LabelContext = "context"
	LabelState   = "state"
)

var (
	emotionRe = regexp.MustCompile(`(?i)emotion:\s*["']?(angry|scared|normal)`)
	stateRe   = regexp.MustCompile(`(?i)state:\s*["']?(CONTINUE|END)`)
	// Free-text fields run non-greedily up to the next label or the end.
	messageRe = regexp.MustCompile(`(?is)message:\s*["']?(.*?)["']?[\s,]*(?:emotion:|context:|state:|\z)`)
	contextRe = regexp.MustCompile(`(?is)context:\s*["']?(.*?)["']?[\s,]*(?:emotion:|message:|state:|\z)`)

	labelRe = map[string]*regexp.Regexp{
		LabelEmotion: regexp.MustCompile(`(?i)emotion:`),
		LabelMessage: regexp.MustCompile(`(?i)message:`),
		LabelContext: regexp.MustCompile(`(?i)context:`),
		LabelState:   regexp.MustCompile(`(?i)state:`),
	}

	whitespaceRe   = regexp.MustCompile(`\s+`)
	sentenceGapRe  = regexp.MustCompile(`([.!?])\s*([A-Z])`)
	bodyLanguageRe = regexp.MustCompile(`\*(.*?)\*`)
	emotionMarkRe  = regexp.MustCompile(`\[(.*?)\]`)
)

// Fields is the four-field reply contract.
type Fields struct {
	Emotion Emotion `json:"emotion"`
	Message string  `json:"message"`
	Context string  `json:"context"`
	State   State   `json:"state"`
}

// Parse extracts the contract fields from raw completion text. Each field is
// tried with its strict pattern first and a line scan second; fields that
// still cannot be found take their defaults.
func Parse(content string) Fields {
	f := Fields{
		Emotion: EmotionNormal,
		Message: content,
		State:   StateContinue,
	}

	if v, ok := extract(content, emotionRe, LabelEmotion); ok {
		if e := Emotion(strings.ToLower(v)); e.Valid() {
			f.Emotion = e
		}
	}
	if v, ok := extract(content, messageRe, LabelMessage); ok {
		f.Message = v
	}
	if v, ok := extract(content, contextRe, LabelContext); ok {
		f.Context = v
	}
	if v, ok := extract(content, stateRe, LabelState); ok {
		if s := State(strings.ToUpper(v)); s.Valid() {
			f.State = s
		}
	}

	f.Message = Clean(f.Message)
	return f
}

func extract(content string, re *regexp.Regexp, label string) (string, bool) {
	if m := re.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return scanLines(content, label)
}

// scanLines finds the first line mentioning label and returns what follows it.
func scanLines(content, label string) (string, bool) {
	re := labelRe[label]
	for _, line := range strings.Split(content, "\n") {
		loc := re.FindStringIndex(line)
		if loc == nil {
			continue
		}
		v := strings.TrimSpace(line[loc[1]:])
		v = strings.TrimLeft(v, `"'`)
		v = strings.TrimRight(v, ` ,"'`)
		return strings.TrimSpace(v), true
	}
	return "", false
}

// Clean trims and collapses whitespace and puts exactly one space between a
// sentence end and the capital letter that follows it.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return sentenceGapRe.ReplaceAllString(s, "$1 $2")
}

// ActionKind classifies an inline stage direction.
type ActionKind string

const (
	ActionBodyLanguage ActionKind = "body_language" // *leans back*
	ActionEmotion      ActionKind = "emotion"       // [nervous]
)

// Action is a stage direction the model left inside the dialogue.
type Action struct {
	Kind        ActionKind `json:"kind"`
	Description string     `json:"description"`
	Position    int        `json:"position"`
}

// Actions returns the stage directions in message ordered by position.
func Actions(message string) []Action {
	var actions []Action
	collect := func(re *regexp.Regexp, kind ActionKind) {
		for _, m := range re.FindAllStringSubmatchIndex(message, -1) {
			desc := strings.TrimSpace(message[m[2]:m[3]])
			if desc == "" {
				continue
			}
			actions = append(actions, Action{Kind: kind, Description: desc, Position: m[0]})
		}
	}
	collect(bodyLanguageRe, ActionBodyLanguage)
	collect(emotionMarkRe, ActionEmotion)

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Position < actions[j].Position
	})
	return actions
}

// Metadata is passed through from the completion.
type Metadata struct {
	Model        string     `json:"model,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        chat.Usage `json:"usage"`
}

// Reply is a parsed completion attributed to the suspect who gave it.
type Reply struct {
	Fields
	Raw       string             `json:"raw"`
	Actions   []Action           `json:"actions,omitempty"`
	Character *profile.Character `json:"-"`
	Timestamp time.Time          `json:"timestamp"`
	Metadata  Metadata           `json:"metadata"`
}

// Confession reports whether the reply ends the interrogation.
func (r *Reply) Confession() bool {
	return r.State == StateEnd
}

// Process parses a completion generated for character. A nil completion is
// treated as an empty reply.
func Process(c *chat.Completion, character *profile.Character) *Reply {
	if c == nil {
		c = &chat.Completion{}
	}
	fields := Parse(c.Content)
	return &Reply{
		Fields:    fields,
		Raw:       c.Content,
		Actions:   Actions(fields.Message),
		Character: character,
		Timestamp: time.Now(),
		Metadata: Metadata{
			Model:        c.Model,
			FinishReason: c.FinishReason,
			Usage:        c.Usage,
		},
	}
}
