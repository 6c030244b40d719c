package stt

import "context"

// Result represents a speech recognition result
type Result struct {
	// Text is the recognized text
	Text string

	// Partial indicates if this is a partial result (still processing)
	// or a final result (utterance complete)
	Partial bool

	// Confidence is the average word confidence (0.0 to 1.0)
	Confidence float64
}

// Config holds configuration for the STT engine
type Config struct {
	// ModelPath is the path to the STT model directory
	ModelPath string

	// SampleRate is the audio sample rate in Hz
	SampleRate int

	// CompactText removes the spaces the recognizer puts between words.
	// Japanese models emit one token per word, which is not how the
	// language is written.
	CompactText bool
}

// Engine is the interface for speech-to-text engines
type Engine interface {
	// Initialize initializes the engine with the given configuration
	Initialize(config Config) error

	// ProcessAudio feeds 16-bit PCM audio and returns the current result
	ProcessAudio(ctx context.Context, audioData []byte) (*Result, error)

	// FinalResult flushes the decoder and returns what is left
	FinalResult() (*Result, error)

	// Reset discards any buffered audio
	Reset() error

	// Close releases resources
	Close() error

	// IsInitialized returns true if the engine is initialized
	IsInitialized() bool
}

// DefaultConfig returns a default STT configuration
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:   modelPath,
		SampleRate:  16000,
		CompactText: true,
	}
}
