package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"
)

// VoskEngine implements the Engine interface using Vosk
type VoskEngine struct {
	model       *vosk.VoskModel
	recognizer  *vosk.VoskRecognizer
	config      Config
	mu          sync.Mutex
	initialized bool
}

// voskResult is the JSON document returned by the recognizer
type voskResult struct {
	Text   string `json:"text"`
	Result []struct {
		Conf  float64 `json:"conf"`
		End   float64 `json:"end"`
		Start float64 `json:"start"`
		Word  string  `json:"word"`
	} `json:"result,omitempty"`
	Partial string `json:"partial,omitempty"`
}

// NewVoskEngine creates a new Vosk STT engine
func NewVoskEngine() *VoskEngine {
	return &VoskEngine{}
}

// Initialize loads the model and creates a recognizer
func (v *VoskEngine) Initialize(config Config) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.initialized {
		return fmt.Errorf("engine already initialized")
	}

	vosk.SetLogLevel(-1)

	model, err := vosk.NewModel(config.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to load model from %s: %w", config.ModelPath, err)
	}
	if model == nil {
		return fmt.Errorf("failed to load model from %s: model returned nil", config.ModelPath)
	}

	recognizer, err := vosk.NewRecognizer(model, float64(config.SampleRate))
	if err != nil {
		model.Free()
		return fmt.Errorf("failed to create recognizer: %w", err)
	}
	// Best hypothesis only, with per-word confidences
	recognizer.SetMaxAlternatives(0)
	recognizer.SetWords(1)

	v.model = model
	v.recognizer = recognizer
	v.config = config
	v.initialized = true

	return nil
}

// ProcessAudio feeds audio and returns a final result when the recognizer
// detects an utterance boundary, otherwise the current partial hypothesis
func (v *VoskEngine) ProcessAudio(ctx context.Context, audioData []byte) (*Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return nil, fmt.Errorf("engine not initialized")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if v.recognizer.AcceptWaveform(audioData) > 0 {
		return v.parse(v.recognizer.Result(), false)
	}
	return v.parse(v.recognizer.PartialResult(), true)
}

// FinalResult flushes the recognizer
func (v *VoskEngine) FinalResult() (*Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return nil, fmt.Errorf("engine not initialized")
	}

	return v.parse(v.recognizer.FinalResult(), false)
}

func (v *VoskEngine) parse(doc string, partial bool) (*Result, error) {
	var raw voskResult
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}

	result := &Result{Partial: partial}
	if partial {
		result.Text = raw.Partial
	} else {
		result.Text = raw.Text
		result.Confidence = averageConfidence(raw)
	}
	if v.config.CompactText {
		result.Text = compact(result.Text)
	}
	return result, nil
}

// Reset discards audio buffered from the previous window
func (v *VoskEngine) Reset() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return fmt.Errorf("engine not initialized")
	}

	v.recognizer.Reset()
	return nil
}

// Close releases resources
func (v *VoskEngine) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return nil
	}

	if v.recognizer != nil {
		v.recognizer.Free()
		v.recognizer = nil
	}
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}

	v.initialized = false
	return nil
}

// IsInitialized returns true if the engine is initialized
func (v *VoskEngine) IsInitialized() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.initialized
}

func averageConfidence(result voskResult) float64 {
	if len(result.Result) == 0 {
		return 0.0
	}

	var sum float64
	for _, word := range result.Result {
		sum += word.Conf
	}
	return sum / float64(len(result.Result))
}

// compact joins recognizer tokens without separators
func compact(text string) string {
	return strings.Join(strings.Fields(text), "")
}
