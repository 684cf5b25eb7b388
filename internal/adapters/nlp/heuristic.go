package nlp

import (
	"strings"
	"unicode"
)

// Heuristic is a gazetteer-free place tagger tuned for search phrasing:
// "ski resorts near amherst", "skiing in Lake Tahoe", "Killington area".
// It returns spans in order of appearance with duplicates removed.
type Heuristic struct {
	prepositions map[string]bool
	stop         map[string]bool
	// words that end a place ("Park City") but never start one
	notLeading map[string]bool
}

func NewHeuristic() *Heuristic {
	return &Heuristic{
		prepositions: set("near", "in", "around", "by", "outside", "at", "from", "to", "within"),
		stop: set(
			"a", "an", "the", "and", "or", "of", "for", "with", "me", "my", "i", "we", "us",
			"find", "show", "list", "best", "top", "good", "great", "cheap", "family", "nearby",
			"ski", "skiing", "snowboard", "snowboarding", "resort", "resorts", "area", "areas",
			"slope", "slopes", "places", "place", "spots", "spot", "hill", "hills", "trip",
			"weekend", "this", "next", "some", "any", "where", "what", "can", "go", "close",
			"please", "miles", "mile", "km", "kilometers",
		),
		notLeading: set("state", "city", "town", "county"),
	}
}

type token struct {
	word      string
	lower     string
	capital   bool
	endClause bool // followed by , ; . ! ?
}

// ExtractPlaces returns place mentions found in text.
func (e *Heuristic) ExtractPlaces(text string) []string {
	toks := tokenize(text)
	var out []string
	seen := map[string]bool{}
	add := func(span []token) {
		if len(span) == 0 {
			return
		}
		words := make([]string, len(span))
		for i, t := range span {
			words[i] = t.word
		}
		s := strings.Join(words, " ")
		if k := strings.ToLower(s); !seen[k] {
			seen[k] = true
			out = append(out, s)
		}
	}

	for i := 0; i < len(toks); {
		t := toks[i]
		// prepositional phrase: "near <place>"
		if e.prepositions[t.lower] && !t.endClause && i+1 < len(toks) {
			span := e.collect(toks[i+1:], false)
			if len(span) > 0 {
				add(span)
				i += 1 + len(span)
				continue
			}
		}
		// bare capitalized span anywhere: "Killington ski resorts"
		if t.capital && !e.stop[t.lower] && !e.notLeading[t.lower] && !e.prepositions[t.lower] {
			span := e.collect(toks[i:], true)
			add(span)
			i += max(len(span), 1)
			continue
		}
		i++
	}
	return out
}

// collect takes the leading run of place-like tokens. With capitalOnly set a
// lower-case word ends the run.
func (e *Heuristic) collect(toks []token, capitalOnly bool) []token {
	n := 0
	for _, t := range toks {
		if e.stop[t.lower] || e.prepositions[t.lower] || n == 0 && e.notLeading[t.lower] {
			break
		}
		if capitalOnly && !t.capital {
			break
		}
		if !hasLetter(t.word) {
			break
		}
		n++
		if t.endClause {
			break
		}
	}
	return toks[:n]
}

func tokenize(text string) []token {
	fields := strings.Fields(text)
	out := make([]token, 0, len(fields))
	for _, f := range fields {
		end := strings.ContainsAny(f[len(f)-1:], ",;.!?")
		w := strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) && r != '-' && r != '\''
		})
		w = strings.Trim(w, "-'")
		if w == "" {
			if end && len(out) > 0 {
				out[len(out)-1].endClause = true
			}
			continue
		}
		r := []rune(w)
		out = append(out, token{
			word:      w,
			lower:     strings.ToLower(w),
			capital:   unicode.IsUpper(r[0]),
			endClause: end,
		})
	}
	return out
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
