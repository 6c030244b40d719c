// Package telemetry derives delivery-job state from the game telemetry feed.
package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/emmett/ferryvox/internal/log"
)

// Tick is one telemetry update pushed by the game
type Tick struct {
	CargoLoaded     bool   `json:"cargoLoaded"`
	CitySource      string `json:"citySource"`
	CityDestination string `json:"cityDestination"`
}

// State is the job state derived from ticks
type State int

const (
	Idle State = iota
	JobActive
)

func (s State) String() string {
	if s == JobActive {
		return "job-active"
	}
	return "idle"
}

// Snapshot is an immutable copy of the telemetry-derived session state.
// Readers always see a consistent city pair.
type Snapshot struct {
	Seq               uint64
	TelemetryReceived bool
	JobActive         bool
	CitySource        string
	CityDestination   string
	LastCargoLoaded   bool
	UpdatedAt         time.Time
}

// EventKind identifies a job transition
type EventKind int

const (
	JobStarted EventKind = iota
	JobEnded
	JobInfoChanged
)

func (k EventKind) String() string {
	switch k {
	case JobStarted:
		return "job-started"
	case JobEnded:
		return "job-ended"
	default:
		return "job-info-changed"
	}
}

// Event is emitted on job transitions
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
}

// Monitor applies ticks and publishes snapshots
type Monitor struct {
	mu        sync.Mutex
	current   Snapshot
	listeners []func(Event)

	snap atomic.Pointer[Snapshot]
	log  zerolog.Logger
}

// NewMonitor creates a monitor in the Idle state with no telemetry received
func NewMonitor() *Monitor {
	m := &Monitor{log: log.With("telemetry")}
	m.snap.Store(&Snapshot{})
	return m
}

// OnEvent registers a listener for job transitions.
// Listeners run on the goroutine calling Apply and must not block.
func (m *Monitor) OnEvent(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Apply folds a tick into the session state, publishes a new snapshot and
// returns the transition it caused, if any.
func (m *Monitor) Apply(t Tick) (Event, bool) {
	m.mu.Lock()

	next := m.current
	next.Seq++
	next.TelemetryReceived = true
	next.LastCargoLoaded = t.CargoLoaded
	next.UpdatedAt = time.Now()

	var (
		ev      Event
		emitted bool
	)

	switch {
	case !m.current.JobActive && t.CargoLoaded:
		next.JobActive = true
		next.CitySource = t.CitySource
		next.CityDestination = t.CityDestination
		ev, emitted = Event{Kind: JobStarted}, true
	case m.current.JobActive && !t.CargoLoaded:
		next.JobActive = false
		next.CitySource = ""
		next.CityDestination = ""
		ev, emitted = Event{Kind: JobEnded}, true
	case m.current.JobActive &&
		(t.CitySource != m.current.CitySource || t.CityDestination != m.current.CityDestination):
		next.CitySource = t.CitySource
		next.CityDestination = t.CityDestination
		ev, emitted = Event{Kind: JobInfoChanged}, true
	}

	m.current = next
	published := next
	m.snap.Store(&published)

	listeners := m.listeners
	m.mu.Unlock()

	if !emitted {
		return Event{}, false
	}

	ev.Snapshot = next
	m.log.Info().
		Str("event", ev.Kind.String()).
		Str("from", next.CitySource).
		Str("to", next.CityDestination).
		Msg("job state changed")
	for _, fn := range listeners {
		fn(ev)
	}
	return ev, true
}

// Snapshot returns the latest published state
func (m *Monitor) Snapshot() Snapshot {
	return *m.snap.Load()
}

// State returns the current job state
func (m *Monitor) State() State {
	if m.snap.Load().JobActive {
		return JobActive
	}
	return Idle
}
