package domain

import (
	"strings"
	"unicode"
)

// SeedRating is the rating given to seeded resorts that have no provider data.
const SeedRating = 4.5

type SeedResort struct {
	Name string  `koanf:"name" json:"name"`
	Lat  float64 `koanf:"lat" json:"lat"`
	Lon  float64 `koanf:"lng" json:"lng"`
}

// Region is a named area with the query triggers that select it and the
// well-known resorts that must always be recalled for it.
type Region struct {
	Key      string       `koanf:"key" json:"key"`
	Triggers []string     `koanf:"triggers" json:"triggers"`
	Seeds    []SeedResort `koanf:"seeds" json:"seeds"`
}

// Geography holds every heuristic table the pipeline consults. It is built
// once at startup and read-only afterwards.
type Geography struct {
	Regions         []Region `koanf:"regions"`
	SearchKeywords  []string `koanf:"search_keywords"`
	IncludeKeywords []string `koanf:"include_keywords"`
	ExcludeKeywords []string `koanf:"exclude_keywords"`
}

// Keyword table kinds, as stored by GeographyRepository.
const (
	KeywordsSearch  = "search"
	KeywordsInclude = "include"
	KeywordsExclude = "exclude"
)

// DefaultGeography returns the built-in New England tables.
func DefaultGeography() Geography {
	return Geography{
		Regions: []Region{
			{
				Key:      "massachusetts",
				Triggers: []string{"massachusetts", "ma", "berkshire", "wachusett"},
				Seeds: []SeedResort{
					{Name: "Wachusett Mountain", Lat: 42.5026, Lon: -71.8868},
					{Name: "Berkshire East", Lat: 42.6187, Lon: -72.8743},
					{Name: "Jiminy Peak", Lat: 42.5559, Lon: -73.2926},
					{Name: "Nashoba Valley", Lat: 42.5412, Lon: -71.4431},
					{Name: "Blandford Ski Area", Lat: 42.1848, Lon: -72.9304},
				},
			},
			{
				Key:      "vermont",
				Triggers: []string{"vermont", "vt", "killington", "stowe"},
				Seeds: []SeedResort{
					{Name: "Killington Resort", Lat: 43.6262, Lon: -72.7968},
					{Name: "Stowe Mountain Resort", Lat: 44.5303, Lon: -72.7814},
					{Name: "Mount Snow", Lat: 42.9602, Lon: -72.9204},
					{Name: "Sugarbush Resort", Lat: 44.1359, Lon: -72.8944},
					{Name: "Okemo Mountain Resort", Lat: 43.4015, Lon: -72.7170},
				},
			},
			{
				Key:      "new hampshire",
				Triggers: []string{"new hampshire", "nh", "loon", "waterville"},
				Seeds: []SeedResort{
					{Name: "Loon Mountain", Lat: 44.0364, Lon: -71.6214},
					{Name: "Waterville Valley", Lat: 43.9653, Lon: -71.5275},
					{Name: "Bretton Woods", Lat: 44.2580, Lon: -71.4410},
					{Name: "Cannon Mountain", Lat: 44.1564, Lon: -71.6985},
					{Name: "Mount Sunapee", Lat: 43.3317, Lon: -72.0800},
				},
			},
			{
				Key:      "maine",
				Triggers: []string{"maine", "me", "sunday river", "sugarloaf"},
				Seeds: []SeedResort{
					{Name: "Sunday River", Lat: 44.4734, Lon: -70.8567},
					{Name: "Sugarloaf", Lat: 45.0314, Lon: -70.3131},
					{Name: "Saddleback Mountain", Lat: 44.9365, Lon: -70.5031},
					{Name: "Shawnee Peak", Lat: 44.0597, Lon: -70.8162},
					{Name: "Mount Abram", Lat: 44.3780, Lon: -70.7050},
				},
			},
		},
		SearchKeywords: []string{
			"ski resort", "ski area", "ski mountain", "ski hill", "ski center",
			"snow resort", "winter resort", "alpine resort", "mountain resort",
		},
		IncludeKeywords: []string{"ski", "snowboard", "mountain", "resort", "slope", "lift"},
		ExcludeKeywords: []string{
			"shop", "club", "sledding", "touring", "tubing", "hill", "lodge",
			"center", "parking", "cross-country", "cross country", "cabin",
			"rental", "store", "equipment", "repair", "school", "lesson",
		},
	}
}

// Region returns the region stored under key.
func (g Geography) Region(key string) (Region, bool) {
	for _, r := range g.Regions {
		if r.Key == key {
			return r, true
		}
	}
	return Region{}, false
}

// MatchRegion returns the first region whose trigger fires on text.
func (g Geography) MatchRegion(text string) (Region, bool) {
	r, _, ok := g.MatchTrigger(text)
	return r, ok
}

// MatchTrigger returns the first region whose trigger fires on text and the
// trigger that fired.
//
// Short all-letter triggers ("ma", "vt") are treated as postal abbreviations
// and only match as an upper-case standalone word, so "find me a hill" does
// not select Maine. Longer triggers match case-insensitively as whole words,
// with a plural "s" allowed ("Berkshires").
func (g Geography) MatchTrigger(text string) (Region, string, bool) {
	lower := strings.ToLower(text)
	for _, r := range g.Regions {
		for _, t := range r.Triggers {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if isAbbreviation(t) {
				if containsWord(text, strings.ToUpper(t), false) {
					return r, t, true
				}
				continue
			}
			if containsWord(lower, strings.ToLower(t), true) {
				return r, t, true
			}
		}
	}
	return Region{}, "", false
}

// NamesPlace reports whether trigger names a place inside the region (a
// resort or town) rather than the region itself or its abbreviation.
func (r Region) NamesPlace(trigger string) bool {
	t := strings.ToLower(strings.TrimSpace(trigger))
	return t != "" && t != r.Key && !isAbbreviation(t)
}

// SeedCandidates turns a region's seed table into candidates.
func (r Region) SeedCandidates() []Candidate {
	out := make([]Candidate, 0, len(r.Seeds))
	state := TitleCase(r.Key)
	for _, s := range r.Seeds {
		out = append(out, Candidate{
			Name:    s.Name,
			Address: s.Name + ", " + state,
			Rating:  SeedRating,
			Lat:     s.Lat,
			Lon:     s.Lon,
			Seeded:  true,
		})
	}
	return out
}

// TitleCase upper-cases the first letter of every space separated word.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		rs := []rune(w)
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	return strings.Join(words, " ")
}

func isAbbreviation(t string) bool {
	if len(t) > 3 {
		return false
	}
	for _, r := range t {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// containsWord finds needle in hay as a whole word. With plural set a
// trailing "s" is also accepted.
func containsWord(hay, needle string, plural bool) bool {
	for from := 0; from <= len(hay)-len(needle); {
		i := strings.Index(hay[from:], needle)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(needle)
		if boundaryBefore(hay, start) {
			if boundaryAfter(hay, end) {
				return true
			}
			if plural && end < len(hay) && (hay[end] == 's' || hay[end] == 'S') && boundaryAfter(hay, end+1) {
				return true
			}
		}
		from = start + 1
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	return !isWordByte(s[i-1])
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	return !isWordByte(s[i])
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
