package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedWAV is returned for WAV data that is not 16-bit PCM.
var ErrUnsupportedWAV = errors.New("unsupported wav format")

// WAV is a decoded RIFF/WAVE PCM stream
type WAV struct {
	SampleRate    uint32
	Channels      uint32
	BitsPerSample uint32
	Data          []byte // interleaved little-endian samples
}

// Duration returns the playback length of the PCM data
func (w *WAV) Duration() time.Duration {
	frameSize := int(w.Channels * w.BitsPerSample / 8)
	if frameSize == 0 || w.SampleRate == 0 {
		return 0
	}
	frames := len(w.Data) / frameSize
	return time.Duration(frames) * time.Second / time.Duration(w.SampleRate)
}

const wavFormatPCM = 1

// ParseWAV decodes the RIFF container produced by the synthesis engine.
// Chunks other than "fmt " and "data" are skipped.
func ParseWAV(b []byte) (*WAV, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var (
		w      WAV
		format uint16
		hasFmt bool
	)

	pos := 12
	for pos+8 <= len(b) {
		id := string(b[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(b[pos+4 : pos+8]))
		pos += 8
		end := pos + size
		if size < 0 || end > len(b) {
			// tolerate a data chunk whose header overstates its size
			if id == "data" {
				end = len(b)
			} else {
				return nil, fmt.Errorf("truncated %q chunk", id)
			}
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			format = binary.LittleEndian.Uint16(b[pos : pos+2])
			w.Channels = uint32(binary.LittleEndian.Uint16(b[pos+2 : pos+4]))
			w.SampleRate = binary.LittleEndian.Uint32(b[pos+4 : pos+8])
			w.BitsPerSample = uint32(binary.LittleEndian.Uint16(b[pos+14 : pos+16]))
			hasFmt = true
		case "data":
			if !hasFmt {
				return nil, fmt.Errorf("data chunk before fmt chunk")
			}
			w.Data = b[pos:end]
			if format != wavFormatPCM || w.BitsPerSample != 16 || w.Channels == 0 {
				return nil, fmt.Errorf("%w: format=%d bits=%d channels=%d",
					ErrUnsupportedWAV, format, w.BitsPerSample, w.Channels)
			}
			return &w, nil
		}

		// chunks are word aligned
		pos = end + size%2
	}

	return nil, fmt.Errorf("no data chunk found")
}
