package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/gen2brain/malgo"
)

// MalgoPlayer plays synthesized WAV audio on the default output device.
// Each Play call opens and releases its own device.
type MalgoPlayer struct {
	// Tail is extra time the device stays open after the buffer drains,
	// so the final period reaches the speaker.
	Tail time.Duration
}

// NewMalgoPlayer creates a new malgo-based player
func NewMalgoPlayer() *MalgoPlayer {
	return &MalgoPlayer{Tail: 100 * time.Millisecond}
}

// Play decodes wav and blocks until it has been played or ctx is done
func (p *MalgoPlayer) Play(ctx context.Context, wav []byte) error {
	clip, err := ParseWAV(wav)
	if err != nil {
		return fmt.Errorf("failed to decode audio: %w", err)
	}
	if len(clip.Data) == 0 {
		return nil
	}

	buf := NewClipBuffer(clip.Data)

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
	}()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = clip.Channels
	deviceConfig.SampleRate = clip.SampleRate

	var callbacks malgo.DeviceCallbacks
	callbacks.Data = func(pOutputSample, pInputSamples []byte, framecount uint32) {
		buf.Fill(pOutputSample)
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	// Bound the wait in case the device never pulls data.
	deadline := time.NewTimer(clip.Duration() + 2*time.Second)
	defer deadline.Stop()

	select {
	case <-buf.Drained():
		if p.Tail > 0 {
			time.Sleep(p.Tail)
		}
	case <-ctx.Done():
		_ = device.Stop()
		return ctx.Err()
	case <-deadline.C:
		_ = device.Stop()
		return fmt.Errorf("playback did not finish within %s", clip.Duration()+2*time.Second)
	}

	if err := device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback device: %w", err)
	}
	return nil
}
