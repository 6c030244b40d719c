package stt

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/emmett/ferryvox/internal/audio"
	"github.com/emmett/ferryvox/internal/log"
)

// DefaultWindow is the fixed listening window of one capture
const DefaultWindow = 3000 * time.Millisecond

// CapturerFactory opens a fresh microphone capturer for each capture
type CapturerFactory func() (audio.Capturer, error)

// Session turns a fixed-duration microphone window into a transcript.
// Only one capture runs at a time.
type Session struct {
	engine      Engine
	newCapturer CapturerFactory
	vadConfig   audio.VADConfig
	log         zerolog.Logger

	mu sync.Mutex
}

// NewSession creates a recognition session over an initialized engine
func NewSession(engine Engine, newCapturer CapturerFactory) *Session {
	return &Session{
		engine:      engine,
		newCapturer: newCapturer,
		vadConfig:   audio.DefaultVADConfig(),
		log:         log.With("stt"),
	}
}

// Capture listens for window (or until ctx is done) and returns the best
// final transcript, or "" when nothing was recognized.
func (s *Session) Capture(ctx context.Context, window time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.Reset(); err != nil {
		return "", fmt.Errorf("failed to reset recognizer: %w", err)
	}

	capturer, err := s.newCapturer()
	if err != nil {
		return "", fmt.Errorf("failed to create capturer: %w", err)
	}

	captureCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := capturer.Start(captureCtx); err != nil {
		return "", fmt.Errorf("failed to start capture: %w", err)
	}
	s.log.Debug().Dur("window", window).Msg("listening")

	var (
		best    string
		samples = capturer.Samples()
		errs    = capturer.Errors()
		timer   = time.NewTimer(window)
		vad     = audio.NewVAD(s.vadConfig)
	)
	defer timer.Stop()

listen:
	for {
		select {
		case sample, ok := <-samples:
			if !ok {
				break listen
			}
			vad.Frame(sample.Data)
			result, err := s.engine.ProcessAudio(ctx, sample.Data)
			if err != nil {
				s.log.Warn().Err(err).Msg("recognizer rejected audio")
				continue
			}
			if result.Partial {
				if result.Text != "" {
					s.log.Debug().Str("partial", result.Text).Msg("recognizing")
				}
				continue
			}
			if text := strings.TrimSpace(result.Text); text != "" {
				best = text
			}
		case err, ok := <-errs:
			if ok {
				s.log.Debug().Err(err).Msg("capture warning")
			} else {
				errs = nil
			}
		case <-timer.C:
			break listen
		case <-ctx.Done():
			break listen
		}
	}

	if err := capturer.Stop(); err != nil {
		s.log.Warn().Err(err).Msg("failed to stop capture")
	}

	final, err := s.engine.FinalResult()
	if err != nil {
		return "", fmt.Errorf("failed to get final result: %w", err)
	}
	if text := strings.TrimSpace(final.Text); text != "" {
		best = text
	}

	if ctx.Err() != nil {
		return best, ctx.Err()
	}

	s.log.Debug().Str("text", best).Bool("voice_detected", vad.Voiced()).
		Float64("peak", vad.Peak()).Msg("capture finished")
	return best, nil
}

// Warmup runs one short throw-away capture so the first real request does
// not pay for device and decoder initialization.
func (s *Session) Warmup(ctx context.Context) error {
	_, err := s.Capture(ctx, 200*time.Millisecond)
	return err
}
