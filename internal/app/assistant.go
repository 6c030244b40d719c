package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/emmett/ferryvox/internal/audio"
	"github.com/emmett/ferryvox/internal/config"
	"github.com/emmett/ferryvox/internal/input"
	"github.com/emmett/ferryvox/internal/log"
	"github.com/emmett/ferryvox/internal/models"
	"github.com/emmett/ferryvox/internal/output"
	"github.com/emmett/ferryvox/internal/routes"
	"github.com/emmett/ferryvox/internal/stt"
	"github.com/emmett/ferryvox/internal/telemetry"
	"github.com/emmett/ferryvox/internal/tts"
)

// Assistant builds the concrete adapters from configuration and runs the
// orchestrator over them
type Assistant struct {
	cfg        *config.Config
	status     *output.ConsoleOutput
	transcript output.Formatter
	log        zerolog.Logger

	gateway  *tts.Gateway
	engine   stt.Engine
	session  *stt.Session
	monitor  *telemetry.Monitor
	store    *routes.SQLiteStore
	resolver *routes.Resolver
	keys     *input.KeyState
	orch     *Orchestrator

	stopFeed context.CancelFunc
	feedDone chan struct{}
}

// NewAssistant creates an assistant; nothing is started until Start
func NewAssistant(cfg *config.Config, status *output.ConsoleOutput) *Assistant {
	if status == nil {
		status = output.DefaultConsoleOutput()
	}
	return &Assistant{
		cfg:    cfg,
		status: status,
		log:    log.With("assistant"),
	}
}

// Start brings every component up. Any error is fatal; call Close
// afterwards either way.
func (a *Assistant) Start(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	if err := a.openTranscript(); err != nil {
		return err
	}

	a.status.Info("Starting VOICEVOX engine...")
	gwConfig := tts.DefaultConfig(a.cfg.Engine.Path)
	gwConfig.BaseURL = a.cfg.Engine.URL
	gwConfig.Speaker = a.cfg.Engine.Speaker
	gwConfig.StartTimeout = secondsOr(a.cfg.Engine.TimeoutSeconds, gwConfig.StartTimeout)
	a.gateway = tts.NewGateway(gwConfig, audio.NewMalgoPlayer())
	if err := a.gateway.StartEngine(ctx); err != nil {
		return fmt.Errorf("failed to start synthesis engine: %w", err)
	}

	store, err := routes.OpenSQLite(a.cfg.Routes.Database)
	if err != nil {
		return err
	}
	a.store = store
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	a.resolver = routes.NewResolver(store)

	if err := a.startRecognition(ctx); err != nil {
		return err
	}

	a.monitor = telemetry.NewMonitor()
	a.monitor.OnEvent(a.reportJob)
	if a.cfg.Telemetry.URL != "" {
		feedCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		a.stopFeed = cancel
		a.feedDone = make(chan struct{})
		source := telemetry.NewWebSocketSource(a.cfg.Telemetry.URL)
		go func() {
			defer close(a.feedDone)
			if err := a.monitor.Feed(feedCtx, source); err != nil {
				a.log.Error().Err(err).Msg("telemetry feed stopped")
			}
		}()
	} else {
		a.status.Info("No telemetry URL configured; job questions will not be answered")
	}

	a.keys = input.NewKeyState()
	if err := a.keys.Start(ctx, a.cfg.Hotkey); err != nil {
		return err
	}

	orchConfig := DefaultOrchestratorConfig()
	orchConfig.SpeakerID = a.cfg.Engine.Speaker
	orchConfig.Phrases = a.cfg.Phrases
	orchConfig.Classifier = NewIntentClassifier(a.cfg.Intents.Exit, a.cfg.Intents.Navigation)
	a.orch = NewOrchestrator(orchConfig, a.gateway, a.session, a.monitor, a.resolver, a.keys)
	a.orch.OnAnswer(a.reportAnswer)

	a.status.Info(fmt.Sprintf("Ready. Press %s and ask which ferry to take.", a.cfg.Hotkey))
	return nil
}

func (a *Assistant) startRecognition(ctx context.Context) error {
	mgr, err := models.NewManager("")
	if err != nil {
		return err
	}
	modelPath, err := mgr.Path(a.cfg.Recognition.Model)
	if err != nil {
		return fmt.Errorf("%w (run 'ferryvox models download %s')", err, a.cfg.Recognition.Model)
	}

	devices := NewDeviceManager(nil)
	device, err := devices.Select(a.cfg.Recognition.Device)
	if err != nil {
		return err
	}
	a.status.Info(fmt.Sprintf("Using microphone: %s", device.Name))

	a.status.Info("Loading speech recognition model...")
	a.engine = stt.NewVoskEngine()
	if err := a.engine.Initialize(stt.DefaultConfig(modelPath)); err != nil {
		return fmt.Errorf("failed to initialize STT engine: %w", err)
	}

	captureConfig := audio.DefaultConfig()
	captureConfig.DeviceID = device.ID
	a.session = stt.NewSession(a.engine, func() (audio.Capturer, error) {
		return audio.NewCapturer(captureConfig)
	})

	if a.cfg.Recognition.Warmup {
		if err := a.session.Warmup(ctx); err != nil {
			a.log.Warn().Err(err).Msg("recognition warm-up failed")
		}
	}
	return nil
}

func (a *Assistant) openTranscript() error {
	path := a.cfg.Output.Transcript
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open transcript file: %w", err)
	}
	format := "json"
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		format = "text"
	}
	a.transcript, err = output.NewFormatter(format, f)
	if err != nil {
		f.Close()
		return err
	}
	return nil
}

func (a *Assistant) reportAnswer(ans Answer) {
	_ = a.status.Exchange(ans.Heard, ans.Reply)
	if a.transcript == nil {
		return
	}
	rec := output.Record{
		CycleID:   ans.CycleID,
		Heard:     ans.Heard,
		Intent:    ans.Intent.String(),
		Reply:     ans.Reply,
		Timestamp: ans.At,
	}
	if ans.Err != nil {
		rec.Error = ans.Err.Error()
	}
	if err := a.transcript.WriteRecord(rec); err != nil {
		a.log.Warn().Err(err).Msg("failed to write transcript")
	}
}

func (a *Assistant) reportJob(ev telemetry.Event) {
	msg := fmt.Sprintf("%s -> %s", ev.Snapshot.CitySource, ev.Snapshot.CityDestination)
	if ev.Kind == telemetry.JobEnded {
		msg = "delivery finished"
	}
	a.status.Info(fmt.Sprintf("%s: %s", ev.Kind, msg))
	if a.transcript != nil {
		if err := a.transcript.WriteEvent(ev.Kind.String(), msg); err != nil {
			a.log.Warn().Err(err).Msg("failed to write transcript")
		}
	}
}

// Run blocks in the interaction loop until exit, Stop or ctx cancellation
func (a *Assistant) Run(ctx context.Context) error {
	if a.orch == nil {
		return fmt.Errorf("assistant not started")
	}
	return a.orch.Run(ctx)
}

// Stop asks the interaction loop to finish
func (a *Assistant) Stop() {
	if a.orch != nil {
		a.orch.Stop()
	}
}

// Close releases everything Start acquired, in reverse order
func (a *Assistant) Close() error {
	var err error

	if a.keys != nil {
		a.keys.Stop()
	}
	if a.stopFeed != nil {
		a.stopFeed()
		<-a.feedDone
	}
	if a.engine != nil {
		err = multierr.Append(err, a.engine.Close())
	}
	if a.store != nil {
		err = multierr.Append(err, a.store.Close())
	}
	if a.gateway != nil {
		err = multierr.Append(err, a.gateway.Close())
	}
	if a.transcript != nil {
		err = multierr.Append(err, a.transcript.Close())
	}
	return err
}

func secondsOr(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
