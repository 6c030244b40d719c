package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitLevels(t *testing.T) {
	var buf bytes.Buffer
	Init(false, &buf)
	t.Cleanup(func() { Init(false, nil) })

	l := With("test")
	l.Debug().Msg("hidden")
	l.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "component=")

	buf.Reset()
	Init(true, &buf)
	L().Debug().Msg("verbose")
	assert.Contains(t, buf.String(), "verbose")
}
