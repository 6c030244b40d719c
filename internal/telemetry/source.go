package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/emmett/ferryvox/internal/log"
	"github.com/emmett/ferryvox/internal/retry"
)

// Source pushes ticks to handle until ctx is done
type Source interface {
	Run(ctx context.Context, handle func(Tick)) error
}

// Feed connects a source to a monitor. It returns when ctx is done.
func (m *Monitor) Feed(ctx context.Context, src Source) error {
	err := src.Run(ctx, func(t Tick) { m.Apply(t) })
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// WebSocketSource reads JSON ticks from a telemetry bridge and reconnects
// whenever the connection drops.
type WebSocketSource struct {
	URL string

	// ReconnectDelay is the pause between connection attempts
	ReconnectDelay time.Duration

	// ReadTimeout closes a silent connection; 0 disables it
	ReadTimeout time.Duration

	dialer *websocket.Dialer
	log    zerolog.Logger
}

// NewWebSocketSource creates a source for the given ws:// URL
func NewWebSocketSource(url string) *WebSocketSource {
	return &WebSocketSource{
		URL:            url,
		ReconnectDelay: 2 * time.Second,
		ReadTimeout:    30 * time.Second,
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:            log.With("telemetry"),
	}
}

// Run keeps a connection open and forwards every decoded tick
func (s *WebSocketSource) Run(ctx context.Context, handle func(Tick)) error {
	policy := retry.Policy{Delay: s.ReconnectDelay}
	return retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		err := s.session(ctx, handle)
		if ctx.Err() != nil {
			return retry.Permanent(ctx.Err())
		}
		s.log.Warn().Err(err).Int("attempt", attempt+1).Msg("telemetry connection lost, reconnecting")
		return err
	})
}

func (s *WebSocketSource) session(ctx context.Context, handle func(Tick)) error {
	conn, _, err := s.dialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to telemetry: %w", err)
	}
	defer conn.Close()
	s.log.Info().Str("url", s.URL).Msg("telemetry connected")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	for {
		if s.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))
		}
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read telemetry: %w", err)
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		var tick Tick
		if err := json.Unmarshal(data, &tick); err != nil {
			s.log.Debug().Err(err).Msg("skipping malformed tick")
			continue
		}
		handle(tick)
	}
}
