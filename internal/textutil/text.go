package textutil

import (
	"strings"
	"unicode"
)

// Words lowercases text and splits it on anything that is not a letter,
// digit, or apostrophe.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// Sentences splits text after '.', '!', '?' and newlines and drops blanks.
// Terminal punctuation stays with its sentence.
func Sentences(text string) []string {
	var out []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			out = append(out, s)
		}
		current.Reset()
	}
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			flush()
		}
	}
	flush()
	return out
}

// ContainsPhrase counts occurrences of a word or multi-word phrase in tokens.
func ContainsPhrase(tokens []string, phrase string) int {
	parts := strings.Fields(phrase)
	if len(parts) == 0 || len(parts) > len(tokens) {
		return 0
	}
	var count int
	for i := 0; i+len(parts) <= len(tokens); i++ {
		match := true
		for j, part := range parts {
			if tokens[i+j] != part {
				match = false
				break
			}
		}
		if match {
			count++
		}
	}
	return count
}

var stopwords = WordSet(`a about above after again against all also am an and any are as at be because been
before being below between both but by can could did do does doing down during each few for from further had
has have having he her here hers him his how i if in into is it its itself just let's me more most my no nor
not now of off on once only or other our ours out over own same she should so some such than that the their
theirs them then there these they this those through to too under until up very was we were what when where
which while who whom why will with would you your yours yeah okay um uh like going get got really well think
know want need make said say`)

// WordSet builds a lookup set from a whitespace separated word list.
func WordSet(list string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(list) {
		set[w] = struct{}{}
	}
	return set
}

// IsStopword reports whether w (already lowercased) carries no topic.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}
