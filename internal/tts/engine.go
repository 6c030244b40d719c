package tts

import (
	"context"
	"time"
)

// Player plays a synthesized WAV clip and returns once playback has finished
type Player interface {
	Play(ctx context.Context, wav []byte) error
}

// Config holds VOICEVOX gateway configuration
type Config struct {
	// ExecutablePath is the VOICEVOX engine binary launched when the
	// engine is not already reachable
	ExecutablePath string

	// BaseURL is the engine HTTP endpoint
	BaseURL string

	// Speaker is the default voice style id
	Speaker int

	// Timeout bounds a single HTTP request
	Timeout time.Duration

	// StartTimeout bounds how long StartEngine waits for readiness
	StartTimeout time.Duration

	// PollInterval is the readiness probe period during startup
	PollInterval time.Duration

	// Attempts and RetryDelay control Speak retries
	Attempts   int
	RetryDelay time.Duration

	// KillWait bounds how long Close waits for the engine to exit
	KillWait time.Duration
}

// DefaultConfig returns default gateway configuration
func DefaultConfig(executablePath string) Config {
	return Config{
		ExecutablePath: executablePath,
		BaseURL:        "http://127.0.0.1:50021",
		Speaker:        0,
		Timeout:        30 * time.Second,
		StartTimeout:   30 * time.Second,
		PollInterval:   time.Second,
		Attempts:       3,
		RetryDelay:     time.Second,
		KillWait:       3 * time.Second,
	}
}
