package app_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ski_resort_finder/internal/app"
	"ski_resort_finder/internal/domain"
)

func TestNormalizeQuery(t *testing.T) {
	got, err := app.NormalizeQuery("  ski resorts \n near   Amherst ")
	require.NoError(t, err)
	assert.Equal(t, "ski resorts near Amherst", got)

	for _, blank := range []string{"", "   ", "\t\n"} {
		_, err := app.NormalizeQuery(blank)
		assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	}

	long, err := app.NormalizeQuery(strings.Repeat("é", app.MaxQueryLen+20))
	require.NoError(t, err)
	assert.Equal(t, app.MaxQueryLen, utf8.RuneCountInString(long))
}
