package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestComponentTagsEntries(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(zerolog.New(&buf), "gate")
	logger.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"component":"gate"`)
}
