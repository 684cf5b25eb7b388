// Package nlp finds place mentions in short search queries.
package nlp

import (
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
	"github.com/rs/zerolog/log"
)

// placeLabels are the entity labels treated as places.
var placeLabels = map[string]bool{"GPE": true, "LOC": true}

// tagFunc returns the place entities a tagger found in text.
type tagFunc func(text string) ([]string, error)

// Extractor tags place entities with prose's named-entity model. Queries
// without capitals (the model keys on them) or with no place entity fall
// back to the Heuristic.
type Extractor struct {
	tag      tagFunc
	fallback *Heuristic
}

func NewExtractor() *Extractor {
	return &Extractor{tag: proseEntities, fallback: NewHeuristic()}
}

func (e *Extractor) ExtractPlaces(text string) []string {
	if !hasUpper(text) {
		return e.fallback.ExtractPlaces(text)
	}
	ents, err := e.tag(text)
	if err != nil {
		log.Debug().Err(err).Msg("entity tagging failed; using heuristic")
		return e.fallback.ExtractPlaces(text)
	}
	if len(ents) == 0 {
		return e.fallback.ExtractPlaces(text)
	}
	return ents
}

func proseEntities(text string) ([]string, error) {
	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return nil, err
	}
	var out []string
	seen := map[string]bool{}
	for _, ent := range doc.Entities() {
		if !placeLabels[ent.Label] {
			continue
		}
		name := strings.TrimSpace(ent.Text)
		if k := strings.ToLower(name); name != "" && !seen[k] {
			seen[k] = true
			out = append(out, name)
		}
	}
	return out, nil
}

func hasUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
