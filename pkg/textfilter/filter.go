// Package textfilter softens profanity in suspect replies.
package textfilter

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Censored replaces a term that has no milder alternative.
const Censored = "[censored]"

// replacements maps common profanity to family-friendly alternatives. Terms
// added through New without an entry here are replaced by Censored.
var replacements = map[string]string{
	"fuck":         "fudge",
	"shit":         "shoot",
	"damn":         "dang",
	"hell":         "heck",
	"ass":          "butt",
	"bitch":        "jerk",
	"bastard":      "jerk",
	"crap":         "crud",
	"piss":         "ticked",
	"motherfucker": "mother-trucker",
	"goddamn":      "gosh-dang",
	"asshole":      "jerk",
	"dumbass":      "dummy",
	"jackass":      "jerk",
	"bullshit":     "baloney",
	"horseshit":    "nonsense",
	"dipshit":      "dummy",
	"shithead":     "jerk",
	"dickhead":     "jerk",
	"prick":        "jerk",
	"douchebag":    "jerk",
}

type term struct {
	word        string
	replacement string
	re          *regexp.Regexp
}

// Filter replaces whole-word matches of its terms. A Filter is safe for
// concurrent use.
type Filter struct {
	terms []term
}

// New builds a filter for the built-in terms plus extra. Longer terms are
// applied first so that "bullshit" wins over "shit".
func New(extra ...string) *Filter {
	words := make(map[string]bool, len(replacements)+len(extra))
	for w := range replacements {
		words[w] = true
	}
	for _, w := range extra {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			words[w] = true
		}
	}

	f := &Filter{terms: make([]term, 0, len(words))}
	for w := range words {
		replacement, ok := replacements[w]
		if !ok {
			replacement = Censored
		}
		f.terms = append(f.terms, term{
			word:        w,
			replacement: replacement,
			// Optional plural "s" so "bastards" is caught as well.
			re: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `(s?)\b`),
		})
	}
	sort.Slice(f.terms, func(i, j int) bool {
		if len(f.terms[i].word) != len(f.terms[j].word) {
			return len(f.terms[i].word) > len(f.terms[j].word)
		}
		return f.terms[i].word < f.terms[j].word
	})
	return f
}

// Clean returns text with every term replaced, keeping the case pattern of
// the replaced word.
func (f *Filter) Clean(text string) string {
	if text == "" {
		return text
	}
	for _, t := range f.terms {
		text = t.re.ReplaceAllStringFunc(text, func(match string) string {
			suffix := ""
			if len(match) > len(t.word) {
				suffix = match[len(t.word):]
			}
			if t.replacement == Censored {
				return Censored
			}
			return preserveCase(match[:len(t.word)], t.replacement) + suffix
		})
	}
	return text
}

// Contains reports whether text has any filtered term.
func (f *Filter) Contains(text string) bool {
	for _, t := range f.terms {
		if t.re.MatchString(text) {
			return true
		}
	}
	return false
}

func preserveCase(original, replacement string) string {
	if original == "" {
		return replacement
	}
	if strings.ToUpper(original) == original {
		return strings.ToUpper(replacement)
	}
	if strings.ToLower(original) == original {
		return strings.ToLower(replacement)
	}

	titleCaser := cases.Title(language.English)
	if titleCaser.String(strings.ToLower(original)) == original {
		return titleCaser.String(replacement)
	}

	// Mixed case: copy the case of each position, lowercase past the end.
	originalRunes := []rune(original)
	result := make([]rune, 0, len(replacement))
	for i, r := range replacement {
		if i < len(originalRunes) && unicode.IsUpper(originalRunes[i]) {
			result = append(result, unicode.ToUpper(r))
		} else {
			result = append(result, unicode.ToLower(r))
		}
	}
	return string(result)
}

// ShouldFilter reports whether replies are softened for a content rating.
func ShouldFilter(rating string) bool {
	switch strings.ToUpper(strings.TrimSpace(rating)) {
	case "G", "PG", "PG13", "PG-13":
		return true
	}
	return false
}
