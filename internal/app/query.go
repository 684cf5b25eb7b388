package app

import (
	"strings"

	"ski_resort_finder/internal/domain"
)

// MaxQueryLen bounds the text forwarded to extractors and providers.
const MaxQueryLen = 500

// NormalizeQuery trims and collapses whitespace. Blank input is rejected with
// domain.ErrEmptyQuery before any resolution happens.
func NormalizeQuery(q string) (string, error) {
	q = strings.Join(strings.Fields(q), " ")
	if q == "" {
		return "", domain.ErrEmptyQuery
	}
	if r := []rune(q); len(r) > MaxQueryLen {
		q = strings.TrimSpace(string(r[:MaxQueryLen]))
	}
	return q, nil
}
