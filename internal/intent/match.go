package intent

import (
	"strings"
	"unicode"
)

// utterance is the normalized form every predicate and extractor sees.
type utterance struct {
	text   string
	tokens []string
}

func normalize(raw string) utterance {
	text := strings.ToLower(strings.TrimSpace(raw))
	text = strings.ReplaceAll(text, "’", "'")
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	for i, t := range tokens {
		tokens[i] = strings.Trim(t, "'")
	}
	return utterance{text: text, tokens: tokens}
}

// Matcher reports whether an utterance triggers a rule.
type Matcher func(u utterance) bool

// phrases matches when any phrase occurs as a substring of the utterance.
func phrases(ps ...string) Matcher {
	return func(u utterance) bool {
		for _, p := range ps {
			if strings.Contains(u.text, p) {
				return true
			}
		}
		return false
	}
}

// words matches whole tokens. A trailing '*' turns the word into a prefix.
func words(ws ...string) Matcher {
	return func(u utterance) bool {
		return firstWord(u, ws...) != ""
	}
}

// exactly matches when the whole utterance, minus trailing punctuation, is
// one of the given strings.
func exactly(ss ...string) Matcher {
	return func(u utterance) bool {
		bare := strings.TrimRight(u.text, "!?.,")
		for _, s := range ss {
			if bare == s {
				return true
			}
		}
		return false
	}
}

func anyOf(ms ...Matcher) Matcher {
	return func(u utterance) bool {
		for _, m := range ms {
			if m(u) {
				return true
			}
		}
		return false
	}
}

func allOf(ms ...Matcher) Matcher {
	return func(u utterance) bool {
		for _, m := range ms {
			if !m(u) {
				return false
			}
		}
		return true
	}
}

// firstWord returns the first pattern (in argument order) that matches a
// token, or "".
func firstWord(u utterance, ws ...string) string {
	for _, w := range ws {
		prefix, isPrefix := strings.CutSuffix(w, "*")
		for _, t := range u.tokens {
			if t == w || (isPrefix && strings.HasPrefix(t, prefix)) {
				return w
			}
		}
	}
	return ""
}
