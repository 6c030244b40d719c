package tts

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeQuery = `{"accent_phrases":[],"speedScale":1.0}`

type fakeEngine struct {
	queries     atomic.Int32
	syntheses   atomic.Int32
	failQueries bool
	lastText    atomic.Value
	lastSpeaker atomic.Value
	bodies      chan string
}

func newFakeEngine(t *testing.T) (*fakeEngine, *httptest.Server) {
	t.Helper()
	fe := &fakeEngine{bodies: make(chan string, 64)}

	mux := http.NewServeMux()
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `"0.14.0"`)
	})
	mux.HandleFunc("/audio_query", func(w http.ResponseWriter, r *http.Request) {
		fe.queries.Add(1)
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		if fe.failQueries {
			http.Error(w, "engine busy", http.StatusInternalServerError)
			return
		}
		fe.lastText.Store(r.URL.Query().Get("text"))
		fe.lastSpeaker.Store(r.URL.Query().Get("speaker"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, fakeQuery)
	})
	mux.HandleFunc("/synthesis", func(w http.ResponseWriter, r *http.Request) {
		fe.syntheses.Add(1)
		body, _ := io.ReadAll(r.Body)
		fe.bodies <- string(body)
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFF-fake-wav"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fe, srv
}

type interval struct{ start, end time.Time }

type recordingPlayer struct {
	mu        sync.Mutex
	played    [][]byte
	intervals []interval
	active    int
	maxActive int
	hold      time.Duration
	err       error
}

func (p *recordingPlayer) Play(ctx context.Context, wav []byte) error {
	p.mu.Lock()
	p.active++
	if p.active > p.maxActive {
		p.maxActive = p.active
	}
	start := time.Now()
	p.mu.Unlock()

	time.Sleep(p.hold)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.active--
	p.played = append(p.played, wav)
	p.intervals = append(p.intervals, interval{start: start, end: time.Now()})
	return p.err
}

func testConfig(baseURL string) Config {
	cfg := DefaultConfig("")
	cfg.BaseURL = baseURL
	cfg.RetryDelay = time.Millisecond
	cfg.PollInterval = 10 * time.Millisecond
	cfg.KillWait = time.Second
	return cfg
}

func fakeExecutable(t *testing.T, name, script string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(script), mode))
	return path
}

func closedURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()
	return u
}

func TestSpeakSendsQueryThenSynthesis(t *testing.T) {
	fe, srv := newFakeEngine(t)
	player := &recordingPlayer{}
	g := NewGateway(testConfig(srv.URL), player)

	ok := g.Speak(context.Background(), "どうぞ", 3)
	require.True(t, ok)

	assert.Equal(t, "どうぞ", fe.lastText.Load())
	assert.Equal(t, "3", fe.lastSpeaker.Load())
	assert.Equal(t, fakeQuery, <-fe.bodies)
	require.Len(t, player.played, 1)
	assert.Equal(t, []byte("RIFF-fake-wav"), player.played[0])
}

func TestSpeakEmptyTextIsRejected(t *testing.T) {
	fe, srv := newFakeEngine(t)
	g := NewGateway(testConfig(srv.URL), &recordingPlayer{})

	assert.False(t, g.Speak(context.Background(), "", 0))
	assert.Zero(t, fe.queries.Load())
}

func TestSpeakRetriesThenGivesUp(t *testing.T) {
	fe, srv := newFakeEngine(t)
	fe.failQueries = true
	player := &recordingPlayer{}
	g := NewGateway(testConfig(srv.URL), player)

	assert.False(t, g.Speak(context.Background(), "もう一度お願いします", 1))
	assert.Equal(t, int32(3), fe.queries.Load())
	assert.Zero(t, fe.syntheses.Load())
	assert.Empty(t, player.played)
}

func TestSpeakRetriesPlaybackFailure(t *testing.T) {
	_, srv := newFakeEngine(t)
	player := &recordingPlayer{err: errors.New("device busy")}
	g := NewGateway(testConfig(srv.URL), player)

	assert.False(t, g.Speak(context.Background(), "test", 1))
	assert.Len(t, player.played, 3)
}

func TestSpeakNeverOverlaps(t *testing.T) {
	_, srv := newFakeEngine(t)
	player := &recordingPlayer{hold: 20 * time.Millisecond}
	g := NewGateway(testConfig(srv.URL), player)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, g.Speak(context.Background(), "hello", 0))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, player.maxActive)
	require.Len(t, player.intervals, 5)
	for i := 1; i < len(player.intervals); i++ {
		assert.False(t, player.intervals[i].start.Before(player.intervals[i-1].end),
			"playback %d started before %d ended", i, i-1)
	}
}

func TestHealth(t *testing.T) {
	_, srv := newFakeEngine(t)
	g := NewGateway(testConfig(srv.URL), &recordingPlayer{})
	require.NoError(t, g.Health(context.Background()))

	down := NewGateway(testConfig(closedURL(t)), &recordingPlayer{})
	require.Error(t, down.Health(context.Background()))
}

func TestStartEngineRejectsBadPath(t *testing.T) {
	cases := map[string]string{
		"empty":   "",
		"missing": filepath.Join(t.TempDir(), "voicevox"),
		"wrong":   fakeExecutable(t, "engine.exe", "", 0o755),
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(closedURL(t))
			cfg.ExecutablePath = path
			err := NewGateway(cfg, &recordingPlayer{}).StartEngine(context.Background())
			require.ErrorIs(t, err, ErrEngineConfig)
		})
	}
}

func TestStartEngineAlreadyRunning(t *testing.T) {
	_, srv := newFakeEngine(t)
	cfg := testConfig(srv.URL)
	cfg.ExecutablePath = fakeExecutable(t, "VOICEVOX", "", 0o644)

	g := NewGateway(cfg, &recordingPlayer{})
	require.NoError(t, g.StartEngine(context.Background()))
	assert.Nil(t, g.cmd)
	require.NoError(t, g.Close())
}

func TestStartEngineLaunchFailure(t *testing.T) {
	cfg := testConfig(closedURL(t))
	// not executable
	cfg.ExecutablePath = fakeExecutable(t, "voicevox_engine", "", 0o644)

	err := NewGateway(cfg, &recordingPlayer{}).StartEngine(context.Background())
	require.ErrorIs(t, err, ErrEngineLaunchFailed)
}

func TestStartEngineProcessExits(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script engine stub")
	}
	cfg := testConfig(closedURL(t))
	cfg.ExecutablePath = fakeExecutable(t, "voicevox", "#!/bin/sh\nexit 1\n", 0o755)

	g := NewGateway(cfg, &recordingPlayer{})
	err := g.StartEngine(context.Background())
	require.ErrorIs(t, err, ErrEngineLaunchFailed)
	require.NoError(t, g.Close())
}

func TestStartEngineTimeoutAndClose(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script engine stub")
	}
	cfg := testConfig(closedURL(t))
	cfg.ExecutablePath = fakeExecutable(t, "voicevox", "#!/bin/sh\nexec sleep 30\n", 0o755)
	cfg.StartTimeout = 200 * time.Millisecond

	g := NewGateway(cfg, &recordingPlayer{})
	err := g.StartEngine(context.Background())
	require.ErrorIs(t, err, ErrEngineTimeout)

	require.NotNil(t, g.cmd)
	require.NoError(t, g.Close())
	select {
	case <-g.exited:
	default:
		t.Fatal("engine process still running after Close")
	}

	// second Close is a no-op
	require.NoError(t, g.Close())
}
