package response

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/interrogation-engine/pkg/chat"
	"github.com/jwebster45206/interrogation-engine/pkg/profile"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Fields
	}{
		{
			name:    "inline contract",
			content: `emotion: "angry" message: "X" context: "Y" state: "CONTINUE"`,
			want:    Fields{Emotion: EmotionAngry, Message: "X", Context: "Y", State: StateContinue},
		},
		{
			name: "one field per line",
			content: "emotion: \"scared\"\n" +
				"message: \"I told you, I was in the gallery.\"\n" +
				"context: \"Defensive, repeated earlier alibi.\"\n" +
				"state: \"CONTINUE\"",
			want: Fields{
				Emotion: EmotionScared,
				Message: "I told you, I was in the gallery.",
				Context: "Defensive, repeated earlier alibi.",
				State:   StateContinue,
			},
		},
		{
			name:    "missing context label",
			content: "emotion: \"normal\"\nmessage: \"Fine. I did it.\"\nstate: \"END\"",
			want:    Fields{Emotion: EmotionNormal, Message: "Fine. I did it.", Context: "", State: StateEnd},
		},
		{
			name:    "comma separated with mixed case values",
			content: `Emotion: 'ANGRY', Message: 'Leave me alone!', Context: 'Hostile.', State: 'continue'`,
			want:    Fields{Emotion: EmotionAngry, Message: "Leave me alone!", Context: "Hostile.", State: StateContinue},
		},
		{
			name:    "unquoted values",
			content: "emotion: scared\nmessage: I was upstairs.\ncontext: Nervous.\nstate: END",
			want:    Fields{Emotion: EmotionScared, Message: "I was upstairs.", Context: "Nervous.", State: StateEnd},
		},
		{
			name:    "no labels at all",
			content: "  I don't know what you mean.\n  Ask someone else.  ",
			want:    Fields{Emotion: EmotionNormal, Message: "I don't know what you mean. Ask someone else.", State: StateContinue},
		},
		{
			name:    "out of range enum values fall back",
			content: "emotion: \"ecstatic\"\nmessage: \"Hello.\"\nstate: \"MAYBE\"",
			want:    Fields{Emotion: EmotionNormal, Message: "Hello.", State: StateContinue},
		},
		{
			name:    "empty",
			content: "",
			want:    Fields{Emotion: EmotionNormal, Message: "", State: StateContinue},
		},
		{
			name:    "sentence spacing",
			content: `message: "I left early.Then I went home!Why?" state: "CONTINUE"`,
			want:    Fields{Emotion: EmotionNormal, Message: "I left early. Then I went home! Why?", State: StateContinue},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.content)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Total(t *testing.T) {
	inputs := []string{
		"",
		"emotion:",
		"message:",
		"state:\n",
		"context: context: context:",
		`emotion: "" message: "" context: "" state: ""`,
		"\x00\xff\xfe garbage ***[[[",
		"message: \"unterminated",
		"STATE: end\nEMOTION: Scared",
	}
	for _, in := range inputs {
		f := Parse(in)
		assert.True(t, f.Emotion.Valid(), "emotion %q from %q", f.Emotion, in)
		assert.True(t, f.State.Valid(), "state %q from %q", f.State, in)
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello   there  ", "hello there"},
		{"One.Two", "One. Two"},
		{"One.   Two", "One. Two"},
		{"Wait!\n\nStop", "Wait! Stop"},
		{"3.14 is pi", "3.14 is pi"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clean(tt.in), tt.in)
	}
}

func TestActions(t *testing.T) {
	msg := "[nervous] I *glances away* was not there. *shrugs*"
	want := []Action{
		{Kind: ActionEmotion, Description: "nervous", Position: 0},
		{Kind: ActionBodyLanguage, Description: "glances away", Position: 12},
		{Kind: ActionBodyLanguage, Description: "shrugs", Position: 42},
	}
	if diff := cmp.Diff(want, Actions(msg)); diff != "" {
		t.Errorf("Actions() mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, Actions("Nothing to see here."))
}

func TestProcess(t *testing.T) {
	character := &profile.Character{ID: "hartwell", Name: "Director Hartwell", Role: profile.RoleCulprit}
	completion := &chat.Completion{
		Content:      "emotion: \"scared\"\nmessage: \"All right. I did it.\"\ncontext: \"Broke down.\"\nstate: \"END\"",
		Model:        "gpt-4o-mini",
		FinishReason: "stop",
		Usage:        chat.Usage{PromptTokens: 900, CompletionTokens: 40, TotalTokens: 940},
	}

	got := Process(completion, character)

	want := &Reply{
		Fields:    Fields{Emotion: EmotionScared, Message: "All right. I did it.", Context: "Broke down.", State: StateEnd},
		Raw:       completion.Content,
		Character: character,
		Metadata: Metadata{
			Model:        "gpt-4o-mini",
			FinishReason: "stop",
			Usage:        completion.Usage,
		},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Reply{}, "Timestamp")); diff != "" {
		t.Errorf("Process() mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, got.Timestamp.IsZero())
	assert.True(t, got.Confession())
	assert.Same(t, character, got.Character)
}

func TestProcess_NilCompletion(t *testing.T) {
	got := Process(nil, nil)
	require.NotNil(t, got)
	assert.Equal(t, EmotionNormal, got.Emotion)
	assert.Equal(t, StateContinue, got.State)
	assert.False(t, got.Confession())
}
