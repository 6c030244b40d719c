package audio

import (
	"encoding/binary"
	"math"
)

// VADConfig holds configuration for voice detection over one capture
type VADConfig struct {
	// EnergyThreshold is the RMS level (0..1) a frame must exceed to count as voiced.
	// Typical values: 0.005 to 0.05 (lower = more sensitive)
	EnergyThreshold float64

	// SpeechFrames is how many consecutive voiced frames mark the capture
	// as containing speech. At 50ms frames, 2 frames = 100ms.
	SpeechFrames int
}

func DefaultVADConfig() VADConfig {
	return VADConfig{
		EnergyThreshold: 0.01,
		SpeechFrames:    2,
	}
}

// VAD tracks whether a capture window contained speech. It does not cut
// the window short; recognition always gets the full window.
type VAD struct {
	config VADConfig
	run    int
	voiced bool
	peak   float64
	frames int
	loud   int
}

func NewVAD(config VADConfig) *VAD {
	if config.SpeechFrames < 1 {
		config.SpeechFrames = 1
	}
	return &VAD{config: config}
}

// Frame feeds one PCM16 little-endian frame and reports whether speech
// has been detected so far
func (v *VAD) Frame(pcm []byte) bool {
	energy := RMS(pcm)
	v.frames++
	v.peak = max(v.peak, energy)

	if energy > v.config.EnergyThreshold {
		v.loud++
		v.run++
		if v.run >= v.config.SpeechFrames {
			v.voiced = true
		}
	} else {
		v.run = 0
	}
	return v.voiced
}

func (v *VAD) Voiced() bool { return v.voiced }

// Peak is the loudest frame energy seen
func (v *VAD) Peak() float64 { return v.peak }

// VoicedRatio is the share of frames above the threshold
func (v *VAD) VoicedRatio() float64 {
	if v.frames == 0 {
		return 0
	}
	return float64(v.loud) / float64(v.frames)
}

// RMS returns the normalized root-mean-square level of PCM16 audio
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
