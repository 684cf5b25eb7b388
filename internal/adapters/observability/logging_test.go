package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONInProd(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger("prod", &buf)
	l.Info().Str("search_id", "abc").Msg("hello")

	var ev map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ev))
	assert.Equal(t, "hello", ev["message"])
	assert.Equal(t, "abc", ev["search_id"])
	assert.Equal(t, "ski-resort-finder", ev["service"])
}

func TestNewLogger_ConsoleInDev(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger("dev", &buf)
	l.Info().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(buf.Bytes()), "dev output should not be JSON")
}
