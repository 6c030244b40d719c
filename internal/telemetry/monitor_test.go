package telemetry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorStartsEmpty(t *testing.T) {
	m := NewMonitor()
	snap := m.Snapshot()

	assert.False(t, snap.TelemetryReceived)
	assert.False(t, snap.JobActive)
	assert.Equal(t, Idle, m.State())
}

func TestMonitorJobLifecycle(t *testing.T) {
	m := NewMonitor()
	var events []EventKind
	m.OnEvent(func(ev Event) { events = append(events, ev.Kind) })

	// idle tick only marks telemetry as received
	_, emitted := m.Apply(Tick{})
	assert.False(t, emitted)
	assert.True(t, m.Snapshot().TelemetryReceived)
	assert.Equal(t, Idle, m.State())

	ev, emitted := m.Apply(Tick{CargoLoaded: true, CitySource: "Calais", CityDestination: "Dover"})
	require.True(t, emitted)
	assert.Equal(t, JobStarted, ev.Kind)
	assert.Equal(t, "Calais", ev.Snapshot.CitySource)
	assert.Equal(t, JobActive, m.State())

	// duplicate tick is tolerated without an event
	_, emitted = m.Apply(Tick{CargoLoaded: true, CitySource: "Calais", CityDestination: "Dover"})
	assert.False(t, emitted)

	ev, emitted = m.Apply(Tick{CargoLoaded: true, CitySource: "Calais", CityDestination: "London"})
	require.True(t, emitted)
	assert.Equal(t, JobInfoChanged, ev.Kind)
	assert.Equal(t, "London", m.Snapshot().CityDestination)
	assert.True(t, m.Snapshot().JobActive)

	ev, emitted = m.Apply(Tick{CargoLoaded: false, CitySource: "Calais", CityDestination: "London"})
	require.True(t, emitted)
	assert.Equal(t, JobEnded, ev.Kind)

	snap := m.Snapshot()
	assert.False(t, snap.JobActive)
	assert.Empty(t, snap.CitySource)
	assert.Empty(t, snap.CityDestination)
	assert.True(t, snap.TelemetryReceived)

	assert.Equal(t, []EventKind{JobStarted, JobInfoChanged, JobEnded}, events)
}

func TestMonitorCityChangeWhileIdleIsIgnored(t *testing.T) {
	m := NewMonitor()
	_, emitted := m.Apply(Tick{CitySource: "Rotterdam", CityDestination: "Hull"})
	assert.False(t, emitted)

	snap := m.Snapshot()
	assert.Empty(t, snap.CitySource)
	assert.Empty(t, snap.CityDestination)
}

func TestMonitorEveryTickPublishes(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < 3; i++ {
		m.Apply(Tick{})
	}
	assert.Equal(t, uint64(3), m.Snapshot().Seq)
}

func TestMonitorSnapshotsAreConsistent(t *testing.T) {
	m := NewMonitor()
	pairs := []Tick{
		{CargoLoaded: true, CitySource: "a1", CityDestination: "b1"},
		{CargoLoaded: true, CitySource: "a2", CityDestination: "b2"},
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				m.Apply(pairs[i%2])
			}
		}
	}()

	for i := 0; i < 2000; i++ {
		snap := m.Snapshot()
		if !snap.JobActive {
			continue
		}
		// a torn read would pair a1 with b2
		assert.Equal(t, snap.CitySource[1:], snap.CityDestination[1:])
	}
	close(stop)
	wg.Wait()
}
