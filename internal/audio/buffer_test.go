package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClipBufferFillsAndPads(t *testing.T) {
	b := NewClipBuffer([]byte{1, 2, 3, 4, 5})

	out := make([]byte, 3)
	assert.Equal(t, 3, b.Fill(out))
	assert.Equal(t, []byte{1, 2, 3}, out)
	assert.Equal(t, 2, b.Remaining())

	select {
	case <-b.Drained():
		t.Fatal("drained too early")
	default:
	}

	out = []byte{9, 9, 9}
	assert.Equal(t, 2, b.Fill(out))
	assert.Equal(t, []byte{4, 5, 0}, out)
	assert.Zero(t, b.Remaining())
	<-b.Drained()

	out = []byte{9, 9}
	assert.Zero(t, b.Fill(out))
	assert.Equal(t, []byte{0, 0}, out)
}

func TestClipBufferEmptyIsDrained(t *testing.T) {
	b := NewClipBuffer(nil)
	<-b.Drained()
}

func pcmFrame(level int16, samples int) []byte {
	frame := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		frame[i*2] = byte(level)
		frame[i*2+1] = byte(uint16(level) >> 8)
	}
	return frame
}

func TestVADNeedsConsecutiveFrames(t *testing.T) {
	vad := NewVAD(VADConfig{EnergyThreshold: 0.01, SpeechFrames: 2})
	loud := pcmFrame(16384, 32)
	quiet := pcmFrame(0, 32)

	assert.False(t, vad.Frame(loud))
	assert.False(t, vad.Frame(quiet))
	assert.False(t, vad.Frame(loud))
	assert.True(t, vad.Frame(loud))
	// once voiced, stays voiced for the capture
	assert.True(t, vad.Frame(quiet))

	assert.InDelta(t, 0.5, vad.Peak(), 0.001)
	assert.InDelta(t, 0.6, vad.VoicedRatio(), 0.001)
}

func TestVADSilence(t *testing.T) {
	vad := NewVAD(DefaultVADConfig())
	for i := 0; i < 10; i++ {
		vad.Frame(pcmFrame(50, 80))
	}
	assert.False(t, vad.Voiced())
	assert.Less(t, vad.Peak(), 0.01)
}

func TestRMS(t *testing.T) {
	assert.Zero(t, RMS(nil))
	assert.Zero(t, RMS([]byte{1}))
	assert.InDelta(t, 0.5, RMS(pcmFrame(-16384, 4)), 0.001)
}
