package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/emmett/ferryvox/internal/httpc"
	"github.com/emmett/ferryvox/internal/log"
	"github.com/emmett/ferryvox/internal/retry"
)

// Gateway owns the VOICEVOX engine process and serializes spoken output.
// At most one utterance is synthesized or played at any time.
type Gateway struct {
	config Config
	client *http.Client
	player Player
	log    zerolog.Logger

	speakMu sync.Mutex

	procMu    sync.Mutex
	cmd       *exec.Cmd
	exited    chan struct{}
	closeOnce sync.Once
}

// NewGateway creates a gateway that plays audio through player
func NewGateway(config Config, player Player) *Gateway {
	defaults := DefaultConfig(config.ExecutablePath)
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.StartTimeout <= 0 {
		config.StartTimeout = defaults.StartTimeout
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.Attempts <= 0 {
		config.Attempts = defaults.Attempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaults.RetryDelay
	}
	if config.KillWait <= 0 {
		config.KillWait = defaults.KillWait
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Gateway{
		config: config,
		client: httpc.NewClient(config.Timeout),
		player: player,
		log:    log.With("tts"),
	}
}

// ValidateExecutable checks that path exists and names the VOICEVOX engine
func ValidateExecutable(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: engine path is empty", ErrEngineConfig)
	}
	base := strings.ToLower(filepath.Base(path))
	if !strings.Contains(base, "voicevox") {
		return fmt.Errorf("%w: %s is not a VOICEVOX executable", ErrEngineConfig, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEngineConfig, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrEngineConfig, path)
	}
	return nil
}

// StartEngine makes sure the engine answers the health probe, launching
// the configured executable if it is not already running.
func (g *Gateway) StartEngine(ctx context.Context) error {
	if err := ValidateExecutable(g.config.ExecutablePath); err != nil {
		return err
	}

	if err := g.Health(ctx); err == nil {
		g.log.Info().Str("url", g.config.BaseURL).Msg("engine already running")
		return nil
	}

	exited, err := g.launch()
	if err != nil {
		return err
	}

	g.log.Info().Str("path", g.config.ExecutablePath).Msg("waiting for engine")
	policy := retry.Policy{Delay: g.config.PollInterval, Timeout: g.config.StartTimeout}
	err = retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		select {
		case <-exited:
			return retry.Permanent(fmt.Errorf("%w: engine exited during startup", ErrEngineLaunchFailed))
		default:
		}
		return g.Health(ctx)
	})
	switch {
	case err == nil:
		g.log.Info().Msg("engine ready")
		return nil
	case errors.Is(err, ErrEngineLaunchFailed):
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("%w after %s: %v", ErrEngineTimeout, g.config.StartTimeout, err)
	}
}

func (g *Gateway) launch() (<-chan struct{}, error) {
	g.procMu.Lock()
	defer g.procMu.Unlock()

	if g.cmd != nil {
		return g.exited, nil
	}

	cmd := exec.Command(g.config.ExecutablePath)
	cmd.Dir = filepath.Dir(g.config.ExecutablePath)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineLaunchFailed, err)
	}

	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	g.cmd = cmd
	g.exited = exited
	g.log.Info().Int("pid", cmd.Process.Pid).Msg("engine launched")
	return exited, nil
}

// Health probes GET /version
func (g *Gateway) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.config.BaseURL+"/version", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("engine unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("engine health check returned %s", resp.Status)
	}
	return nil
}

// Speak synthesizes text with the given speaker and plays it.
// It reports whether the utterance was played and never returns an error.
func (g *Gateway) Speak(ctx context.Context, text string, speaker int) (ok bool) {
	if text == "" {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			g.log.Error().Interface("panic", r).Str("text", text).Msg("speak panicked")
			ok = false
		}
	}()

	g.speakMu.Lock()
	defer g.speakMu.Unlock()

	policy := retry.Policy{Attempts: g.config.Attempts, Delay: g.config.RetryDelay}
	err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		if attempt > 0 {
			g.log.Debug().Int("attempt", attempt+1).Str("text", text).Msg("retrying synthesis")
		}
		return g.speakOnce(ctx, text, speaker)
	})
	if err != nil {
		g.log.Error().Err(err).Str("text", text).Msg("failed to speak")
		return false
	}
	return true
}

func (g *Gateway) speakOnce(ctx context.Context, text string, speaker int) error {
	query, err := g.audioQuery(ctx, text, speaker)
	if err != nil {
		return err
	}
	wav, err := g.synthesis(ctx, query, speaker)
	if err != nil {
		return err
	}
	if err := g.player.Play(ctx, wav); err != nil {
		return fmt.Errorf("failed to play audio: %w", err)
	}
	return nil
}

func (g *Gateway) audioQuery(ctx context.Context, text string, speaker int) ([]byte, error) {
	params := url.Values{}
	params.Set("text", text)
	params.Set("speaker", strconv.Itoa(speaker))

	body, err := g.post(ctx, "/audio_query?"+params.Encode(), "", nil)
	if err != nil {
		return nil, fmt.Errorf("audio_query failed: %w", err)
	}
	return body, nil
}

func (g *Gateway) synthesis(ctx context.Context, query []byte, speaker int) ([]byte, error) {
	params := url.Values{}
	params.Set("speaker", strconv.Itoa(speaker))

	body, err := g.post(ctx, "/synthesis?"+params.Encode(), "application/json", query)
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}
	return body, nil
}

func (g *Gateway) post(ctx context.Context, path, contentType string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("engine returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	return data, nil
}

// Close terminates the engine process if this gateway launched it.
// It is safe to call more than once.
func (g *Gateway) Close() error {
	var err error
	g.closeOnce.Do(func() {
		g.procMu.Lock()
		cmd, exited := g.cmd, g.exited
		g.procMu.Unlock()

		if cmd == nil || cmd.Process == nil {
			return
		}

		if killErr := cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
			err = fmt.Errorf("failed to stop engine: %w", killErr)
		}

		select {
		case <-exited:
			g.log.Info().Msg("engine stopped")
		case <-time.After(g.config.KillWait):
			g.log.Warn().Dur("wait", g.config.KillWait).Msg("engine did not exit in time")
		}
	})
	return err
}
