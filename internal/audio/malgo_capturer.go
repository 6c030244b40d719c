package audio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// MalgoCapturer implements the Capturer interface using malgo.
// A capturer is single use: once stopped, create a new one.
type MalgoCapturer struct {
	config       CaptureConfig
	device       *malgo.Device
	malgoContext *malgo.AllocatedContext
	samples      chan AudioSample
	errors       chan error
	running      bool
	stopped      bool
	mu           sync.RWMutex
	stopChan     chan struct{}
}

// NewMalgoCapturer creates a new malgo-based audio capturer
func NewMalgoCapturer(config CaptureConfig) (*MalgoCapturer, error) {
	bufferSize := config.SampleBufferSize
	if bufferSize <= 0 {
		bufferSize = 10
	}
	return &MalgoCapturer{
		config:   config,
		samples:  make(chan AudioSample, bufferSize),
		errors:   make(chan error, 10),
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins audio capture. Capture stops on its own when ctx is done.
func (m *MalgoCapturer) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running || m.stopped {
		m.mu.Unlock()
		return fmt.Errorf("capturer is already running or was stopped")
	}
	m.running = true
	m.mu.Unlock()

	fail := func(err error) error {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return err
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize malgo context: %w", err))
	}
	m.malgoContext = malgoCtx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16 // 16-bit signed integer
	deviceConfig.Capture.Channels = m.config.Channels
	deviceConfig.SampleRate = m.config.SampleRate
	deviceConfig.PeriodSizeInFrames = m.config.BufferFrames

	if m.config.DeviceID != "" {
		info, err := m.lookupDevice(m.config.DeviceID)
		if err != nil {
			m.releaseContext()
			return fail(err)
		}
		deviceConfig.Capture.DeviceID = info.ID.Pointer()
	}

	var callbacks malgo.DeviceCallbacks
	callbacks.Data = func(pOutputSample, pInputSamples []byte, framecount uint32) {
		// Copy the input samples to avoid data races
		dataCopy := make([]byte, len(pInputSamples))
		copy(dataCopy, pInputSamples)

		sample := AudioSample{
			Data:      dataCopy,
			Timestamp: time.Now(),
			Frames:    framecount,
		}

		select {
		case m.samples <- sample:
		default:
			select {
			case m.errors <- fmt.Errorf("sample buffer overflow, dropping frames"):
			default:
			}
		}
	}

	device, err := malgo.InitDevice(m.malgoContext.Context, deviceConfig, callbacks)
	if err != nil {
		m.releaseContext()
		return fail(fmt.Errorf("failed to initialize device: %w", err))
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		m.releaseContext()
		return fail(fmt.Errorf("failed to start device: %w", err))
	}

	go func() {
		select {
		case <-ctx.Done():
			_ = m.Stop()
		case <-m.stopChan:
		}
	}()

	return nil
}

// lookupDevice resolves a "capture-N" id or a case-insensitive name fragment
func (m *MalgoCapturer) lookupDevice(id string) (malgo.DeviceInfo, error) {
	infos, err := m.malgoContext.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceInfo{}, fmt.Errorf("failed to get devices: %w", err)
	}
	for i, info := range infos {
		if fmt.Sprintf("capture-%d", i) == id {
			return info, nil
		}
	}
	want := strings.ToLower(id)
	for _, info := range infos {
		if strings.Contains(strings.ToLower(info.Name()), want) {
			return info, nil
		}
	}
	return malgo.DeviceInfo{}, fmt.Errorf("capture device not found: %s", id)
}

func (m *MalgoCapturer) releaseContext() {
	if m.malgoContext != nil {
		_ = m.malgoContext.Uninit()
		m.malgoContext.Free()
		m.malgoContext = nil
	}
}

// Stop stops audio capture and closes the sample and error channels
func (m *MalgoCapturer) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.stopped = true
	m.mu.Unlock()

	close(m.stopChan)

	var stopErr error
	if m.device != nil {
		// Stop returns once the data callback can no longer fire.
		if err := m.device.Stop(); err != nil {
			stopErr = fmt.Errorf("failed to stop device: %w", err)
		}
		m.device.Uninit()
	}

	m.releaseContext()

	close(m.samples)
	close(m.errors)

	return stopErr
}

// Samples returns a channel that receives audio samples
func (m *MalgoCapturer) Samples() <-chan AudioSample {
	return m.samples
}

// Errors returns a channel that receives capture errors
func (m *MalgoCapturer) Errors() <-chan error {
	return m.errors
}

// IsRunning returns true if capture is currently active
func (m *MalgoCapturer) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}
