package keywords

import "strings"

const fallbackLimit = 5

// stopWords is the fixed set of filler words the fallback extractor discards.
// Deliberately a small enumerated list, not a locale-aware dictionary.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "with": {},
	"is": {}, "am": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "shall": {}, "should": {},
	"can": {}, "could": {}, "may": {}, "might": {}, "must": {},
	"that": {}, "this": {}, "these": {}, "those": {},
	"of": {}, "from": {}, "as": {}, "by": {}, "about": {}, "like": {},
	"through": {}, "over": {}, "before": {}, "after": {}, "between": {},
	"under": {}, "above": {}, "below": {}, "up": {}, "down": {},
	"into": {}, "onto": {}, "upon": {},
}

// Fallback extracts up to five keywords from text with a pure heuristic:
// lowercase, strip punctuation, split on whitespace, drop stop words and
// tokens of length <= 3, dedupe keeping first occurrence. It needs no model
// and is fully deterministic, so it serves as the extraction path whenever
// the classifier is absent or failing. Each keyword gets confidence 1.0.
func Fallback(text string) []Keyword {
	var out []Keyword
	seen := make(map[string]struct{})

	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = stripPunct(token)
		if len(token) <= 3 {
			continue
		}
		if _, stop := stopWords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, Plain(token))
		if len(out) == fallbackLimit {
			break
		}
	}
	return out
}

// stripPunct removes everything except letters, digits, and underscores.
func stripPunct(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}
