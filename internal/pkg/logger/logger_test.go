package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
}

func TestIsPretty(t *testing.T) {
	assert.True(t, IsPretty("console"))
	assert.False(t, IsPretty("json"))
	assert.False(t, IsPretty(""))
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: InfoLevel, Output: &buf})
	defer Configure(Config{Level: InfoLevel, Pretty: true, Output: os.Stdout})

	log := Component("entitlements")
	log.Info().Str("studentId", "07").Msg("granted")
	Debug().Msg("hidden")

	out := buf.String()
	assert.Contains(t, out, `"component":"entitlements"`)
	assert.Contains(t, out, `"studentId":"07"`)
	assert.NotContains(t, out, "hidden")
}
