package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormatterWritesLines(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("json", &buf)
	require.NoError(t, err)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, f.WriteRecord(Record{CycleID: "c1", Heard: "フェリー", Intent: "navigation", Reply: "ok", Timestamp: at}))
	require.NoError(t, f.WriteEvent("job-started", "Calais -> London"))
	require.NoError(t, f.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var rec Record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "c1", rec.CycleID)
	assert.Equal(t, "フェリー", rec.Heard)
	assert.True(t, at.Equal(rec.Timestamp))
	assert.NotContains(t, lines[0], `"error"`)

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &ev))
	assert.Equal(t, "job-started", ev.Type)
}

func TestPlainTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("text", &buf)
	require.NoError(t, err)

	require.NoError(t, f.WriteRecord(Record{Reply: "again please", Timestamp: time.Now()}))
	assert.Contains(t, buf.String(), "(silence) -> again please")
}

func TestNewFormatterUnknown(t *testing.T) {
	_, err := NewFormatter("xml", &bytes.Buffer{})
	require.Error(t, err)
}

func TestConsoleOutput(t *testing.T) {
	var out, errOut bytes.Buffer
	c := NewConsoleOutput(ConsoleConfig{Writer: &out, ErrWriter: &errOut})

	require.NoError(t, c.Exchange("どこ", "reply"))
	c.Info("ready")
	c.Error("boom")

	assert.Equal(t, "\"どこ\" -> reply\n[INFO] ready\n", out.String())
	assert.Equal(t, "[ERROR] boom\n", errOut.String())
}
