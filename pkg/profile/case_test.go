package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCaseJSON = `{
  "id": "gallery_murder",
  "title": "Death at the Gallery",
  "victim": "Victoria Sterling",
  "characters": [
    {
      "id": "hartwell",
      "name": "Dr. James Hartwell",
      "role": "culprit",
      "appearance": {"headSize": 0.16},
      "personality": {
        "nervousness": 0.7,
        "defensiveness": 0.8,
        "speechPatterns": ["evasive", "technical"],
        "accent": "faint Oxford"
      },
      "background": {
        "occupation": "Botanist",
        "relationship": "Ex-husband",
        "alibi": "Never left main gallery"
      },
      "knowledgeProfile": {
        "generalKnowledge": {
          "zeta": "Victoria was hosting an exhibition",
          "alpha": "Victoria was killed by poisoning"
        },
        "lies": {"alibi": "Claims he stayed in the main gallery"},
        "deflectionTactics": {
          "aboutMarcusWebb": {"financial": "Points out Marcus's debts"}
        }
      }
    }
  ]
}`

const testCaseYAML = `
id: gallery_murder
victim: Victoria Sterling
characters:
  - id: elena
    name: Elena Rodriguez
    role: innocent
    personality:
      nervousness: 0.02
      helpfulness: 0.8
      speechPatterns: [formal, detailed]
    background:
      occupation: Personal Assistant
      relationship: Employee
      alibi: Managing the event
    knowledgeProfile:
      generalKnowledge:
        exhibition: Victoria was hosting an exhibition
      aboutOthers:
        marcus webb:
          threat: "Saw him make the threat: 'You'll regret destroying me'"
          phone: Noticed him checking his phone
`

func TestDecodeCase_JSONPreservesOrder(t *testing.T) {
	c, err := DecodeCase([]byte(testCaseJSON), FormatJSON)
	require.NoError(t, err)
	require.Len(t, c.Characters, 1)

	h := c.Characters[0]
	assert.Equal(t, RoleCulprit, h.Role)
	assert.True(t, h.IsCulprit())
	assert.InDelta(t, 0.7, h.Nervousness(), 1e-9)

	require.Len(t, h.Personality, 4)
	assert.Equal(t, "nervousness", h.Personality[0].Name)
	assert.Equal(t, TraitTags, h.Personality[2].Kind)
	assert.Equal(t, []string{"evasive", "technical"}, h.Personality[2].Tags)
	assert.Equal(t, TraitText, h.Personality[3].Kind)
	assert.Equal(t, "faint Oxford", h.Personality[3].Text)

	assert.Equal(t, []string{
		"Victoria was hosting an exhibition",
		"Victoria was killed by poisoning",
	}, h.KnowledgeProfile.GeneralKnowledge.Texts())

	tactics, ok := h.KnowledgeProfile.DeflectionTactics.Get("aboutMarcusWebb")
	require.True(t, ok)
	text, ok := tactics.Get("financial")
	require.True(t, ok)
	assert.Equal(t, "Points out Marcus's debts", text)
}

func TestDecodeCase_StrictRejectsUnknownFields(t *testing.T) {
	_, err := DecodeCaseStrict([]byte(testCaseJSON), FormatJSON)
	assert.Error(t, err, "appearance is not part of the profile model")
}

func TestDecodeCase_YAML(t *testing.T) {
	c, err := DecodeCase([]byte(testCaseYAML), FormatYAML)
	require.NoError(t, err)

	elena, ok := c.Character("elena")
	require.True(t, ok)
	assert.Equal(t, RoleInnocent, elena.Role)
	helpfulness, ok := elena.Personality.Intensity("helpfulness")
	require.True(t, ok)
	assert.InDelta(t, 0.8, helpfulness, 1e-9)

	marcus, ok := elena.KnowledgeProfile.AboutOthers.Get("marcus webb")
	require.True(t, ok)
	assert.Equal(t, []string{
		"Saw him make the threat: 'You'll regret destroying me'",
		"Noticed him checking his phone",
	}, marcus.Texts())
}

func TestDecodeCase_UnknownRole(t *testing.T) {
	data := `{"characters":[{"id":"x","name":"X","role":"accomplice"}]}`
	_, err := DecodeCase([]byte(data), FormatJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"cases/gallery_murder.json", FormatJSON, false},
		{"cases/gallery_murder.YAML", FormatYAML, false},
		{"cases/gallery_murder.yml", FormatYAML, false},
		{"cases/gallery_murder.txt", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCase_Validate(t *testing.T) {
	c, err := DecodeCase([]byte(testCaseJSON), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, c.Validate())

	broken := &Case{
		ID: "Gallery-Murder",
		Characters: []Character{
			{ID: "elena", Name: "Elena", Role: RoleInnocent},
			{ID: "elena", Name: "", Role: RoleInnocent, Personality: Personality{{Name: "nervousness", Kind: TraitIntensity, Intensity: 1.4}}},
		},
	}
	problems := broken.Validate()
	assert.Contains(t, problems, `case id "Gallery-Murder" must be lowercase snake_case`)
	assert.Contains(t, problems, `characters[1]: duplicate id "elena"`)
	assert.Contains(t, problems, "characters[1]: missing name")
	assert.Contains(t, problems, `characters[1]: trait "nervousness" intensity 1.4 outside [0,1]`)
	assert.Contains(t, problems, "case has no culprit; no interrogation can end in a confession")
}
