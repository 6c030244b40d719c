package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/emmett/ferryvox/internal/config"
	"github.com/emmett/ferryvox/internal/input"
	"github.com/emmett/ferryvox/internal/log"
	"github.com/emmett/ferryvox/internal/routes"
	"github.com/emmett/ferryvox/internal/telemetry"
)

// State is the orchestrator's position in the interaction cycle
type State int32

const (
	WaitingForHotkey State = iota
	Capturing
	Processing
	Responding
	Exiting
)

func (s State) String() string {
	switch s {
	case Capturing:
		return "capturing"
	case Processing:
		return "processing"
	case Responding:
		return "responding"
	case Exiting:
		return "exiting"
	default:
		return "waiting"
	}
}

// Speaker says text aloud and reports whether it was played
type Speaker interface {
	Speak(ctx context.Context, text string, speaker int) bool
}

// Listener captures one listening window of speech
type Listener interface {
	Capture(ctx context.Context, window time.Duration) (string, error)
}

// TelemetryReader exposes the latest telemetry-derived session state
type TelemetryReader interface {
	Snapshot() telemetry.Snapshot
}

// RouteFinder resolves ferry routes; (nil, nil) means no route
type RouteFinder interface {
	Lookup(ctx context.Context, departure, arrival string) (*routes.Route, error)
}

// Answer describes one completed interaction cycle
type Answer struct {
	CycleID string
	Heard   string
	Intent  Intent
	Reply   string
	Err     error
	At      time.Time
}

// OrchestratorConfig holds timing, voice and wording of the cycle
type OrchestratorConfig struct {
	SpeakerID       int
	PollInterval    time.Duration
	CaptureWindow   time.Duration
	CaptureAttempts int
	Phrases         config.Phrases
	Classifier      *IntentClassifier
}

// DefaultOrchestratorConfig returns the standard cycle settings
func DefaultOrchestratorConfig() OrchestratorConfig {
	d := config.DefaultConfig()
	return OrchestratorConfig{
		SpeakerID:       d.Engine.Speaker,
		PollInterval:    100 * time.Millisecond,
		CaptureWindow:   3000 * time.Millisecond,
		CaptureAttempts: 2,
		Phrases:         d.Phrases,
		Classifier:      NewIntentClassifier(d.Intents.Exit, d.Intents.Navigation),
	}
}

// Orchestrator runs hotkey-triggered question and answer cycles
type Orchestrator struct {
	config    OrchestratorConfig
	speaker   Speaker
	listener  Listener
	telemetry TelemetryReader
	routes    RouteFinder
	keys      input.KeyPoller
	log       zerolog.Logger

	state   atomic.Int32
	stopped atomic.Bool

	mu       sync.Mutex
	onAnswer []func(Answer)
}

// NewOrchestrator wires the cycle to its collaborators
func NewOrchestrator(cfg OrchestratorConfig, speaker Speaker, listener Listener,
	tel TelemetryReader, finder RouteFinder, keys input.KeyPoller) *Orchestrator {
	defaults := DefaultOrchestratorConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.CaptureWindow <= 0 {
		cfg.CaptureWindow = defaults.CaptureWindow
	}
	if cfg.CaptureAttempts <= 0 {
		cfg.CaptureAttempts = defaults.CaptureAttempts
	}
	if cfg.Classifier == nil {
		cfg.Classifier = defaults.Classifier
	}

	return &Orchestrator{
		config:    cfg,
		speaker:   speaker,
		listener:  listener,
		telemetry: tel,
		routes:    finder,
		keys:      keys,
		log:       log.With("orchestrator"),
	}
}

// OnAnswer registers a callback invoked after every cycle
func (o *Orchestrator) OnAnswer(fn func(Answer)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onAnswer = append(o.onAnswer, fn)
}

// State returns the current cycle state
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
}

// Stop ends Run at the next poll tick. A cycle in progress stops at the
// next capture-window boundary; speech already started plays to the end.
func (o *Orchestrator) Stop() {
	o.stopped.Store(true)
}

// Run greets the driver and polls the hotkey until Stop, ctx cancellation
// or an exit request. Cancellation is observed like Stop: utterances and
// capture windows in flight are not cut off. The farewell is spoken before
// Run returns.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.setState(WaitingForHotkey)
	o.say(ctx, o.config.Phrases.Greeting)
	o.log.Info().Msg("waiting for hotkey")

	ticker := time.NewTicker(o.config.PollInterval)
	defer ticker.Stop()

	previous := false
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}
		if o.stopped.Load() {
			break loop
		}

		pressed := o.keys.Pressed()
		rising := pressed && !previous
		previous = pressed
		if !rising {
			continue
		}

		if exit := o.cycle(ctx); exit {
			break loop
		}
		// a key still held after the cycle does not start another one
		previous = o.keys.Pressed()
	}

	o.setState(Exiting)
	o.say(ctx, o.config.Phrases.Farewell)
	o.log.Info().Msg("stopped")
	return nil
}

// cycle runs one interaction and reports whether the driver asked to exit
func (o *Orchestrator) cycle(ctx context.Context) bool {
	answer := Answer{CycleID: uuid.NewString()}
	logger := o.log.With().Str("cycle", answer.CycleID).Logger()
	logger.Debug().Msg("hotkey pressed")

	err := guard(func() error {
		var err error
		answer.Heard, answer.Intent, answer.Reply, err = o.interact(ctx, logger)
		return err
	})
	if err != nil {
		logger.Error().Err(err).Msg("cycle failed")
		answer.Err = err
		answer.Reply = o.config.Phrases.Failure
	}

	if answer.Intent == IntentExit && err == nil {
		answer.At = time.Now()
		o.publish(answer)
		return true
	}

	o.setState(Responding)
	if err := guard(func() error {
		o.say(ctx, answer.Reply)
		return nil
	}); err != nil {
		logger.Error().Err(err).Msg("failed to respond")
	}
	answer.At = time.Now()
	o.publish(answer)

	o.setState(WaitingForHotkey)
	return false
}

// interact captures, classifies and composes the reply
func (o *Orchestrator) interact(ctx context.Context, logger zerolog.Logger) (heard string, intent Intent, reply string, err error) {
	o.setState(Capturing)
	heard, err = o.listen(ctx, logger)
	if err != nil {
		return "", IntentNone, "", err
	}
	if heard == "" {
		logger.Info().Msg("no speech recognized")
		return "", IntentNone, o.config.Phrases.NoSpeech, nil
	}

	o.setState(Processing)
	intent = o.config.Classifier.Classify(heard)
	logger.Info().Str("heard", heard).Str("intent", intent.String()).Msg("recognized")

	switch intent {
	case IntentExit:
		return heard, intent, o.config.Phrases.Farewell, nil
	case IntentNavigation:
		reply, err = o.navigate(context.WithoutCancel(ctx))
		return heard, intent, reply, err
	default:
		return heard, intent, o.config.Phrases.NotUnderstood, nil
	}
}

// listen prompts and captures, asking the driver to repeat once if
// nothing was recognized. Stop and cancellation are checked between
// windows only.
func (o *Orchestrator) listen(ctx context.Context, logger zerolog.Logger) (string, error) {
	window := context.WithoutCancel(ctx)
	for attempt := 0; attempt < o.config.CaptureAttempts; attempt++ {
		if attempt > 0 {
			if o.stopped.Load() || ctx.Err() != nil {
				break
			}
			o.say(ctx, o.config.Phrases.Repeat)
		}

		var (
			g    errgroup.Group
			text string
		)
		g.Go(func() error {
			return guard(func() error {
				o.say(ctx, o.config.Phrases.Prompt)
				return nil
			})
		})
		g.Go(func() error {
			return guard(func() error {
				t, err := o.listener.Capture(window, o.config.CaptureWindow)
				if err != nil {
					logger.Warn().Err(err).Int("attempt", attempt+1).Msg("capture failed")
				}
				text = strings.TrimSpace(t)
				return nil
			})
		})
		if err := g.Wait(); err != nil {
			return "", err
		}

		if text != "" {
			return text, nil
		}
		logger.Debug().Int("attempt", attempt+1).Msg("nothing heard")
	}
	return "", nil
}

// navigate answers "which ferry" from telemetry and the route table
func (o *Orchestrator) navigate(ctx context.Context) (string, error) {
	p := o.config.Phrases
	snap := o.telemetry.Snapshot()

	switch {
	case !snap.TelemetryReceived:
		return p.NoTelemetry, nil
	case !snap.JobActive:
		return p.NoJob, nil
	case snap.CitySource == "" || snap.CityDestination == "":
		return p.NoFerry, nil
	}

	route, err := o.routes.Lookup(ctx, snap.CitySource, snap.CityDestination)
	if err != nil {
		return "", fmt.Errorf("failed to look up route %s->%s: %w", snap.CitySource, snap.CityDestination, err)
	}
	if route == nil {
		o.log.Info().Str("from", snap.CitySource).Str("to", snap.CityDestination).Msg("no ferry on this leg")
		return p.NoFerry, nil
	}
	return FormatRoute(p.Route, route), nil
}

// FormatRoute fills {boarding} and {landing} in tmpl
func FormatRoute(tmpl string, route *routes.Route) string {
	return strings.NewReplacer(
		"{boarding}", route.BoardingPort,
		"{landing}", route.LandingPort,
	).Replace(tmpl)
}

// say plays text to the end even if ctx is cancelled meanwhile
func (o *Orchestrator) say(ctx context.Context, text string) {
	if text == "" {
		return
	}
	if !o.speaker.Speak(context.WithoutCancel(ctx), text, o.config.SpeakerID) {
		o.log.Warn().Str("text", text).Msg("utterance was not played")
	}
}

func (o *Orchestrator) publish(a Answer) {
	o.mu.Lock()
	callbacks := append([]func(Answer){}, o.onAnswer...)
	o.mu.Unlock()

	for _, fn := range callbacks {
		if err := guard(func() error { fn(a); return nil }); err != nil {
			o.log.Error().Err(err).Msg("answer callback failed")
		}
	}
}

// guard runs fn and turns a panic into an error
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
