package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/frost-haven/internal/colony"
	"github.com/talgya/frost-haven/internal/entropy"
)

func startEngine(t *testing.T, e *Engine) (cancel func(), done <-chan error) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- e.Run(ctx) }()
	require.Eventually(t, e.Running, time.Second, time.Millisecond)
	return stop, errc
}

func TestEngineSerializesActions(t *testing.T) {
	sim, _ := newTestSim(nil, entropy.Fixed(0.5))
	e := NewEngine(sim)
	e.Interval = time.Hour

	var mu sync.Mutex
	var saved []*colony.State
	e.OnSave = func(cp Checkpoint) {
		mu.Lock()
		defer mu.Unlock()
		saved = append(saved, cp.State)
	}

	cancel, done := startEngine(t, e)
	ctx := context.Background()

	v, err := e.Dispatch(ctx, Action{Kind: ActGather, Role: colony.RoleWood})
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.(Yield).Amount)

	_, err = e.Dispatch(ctx, Action{Kind: ActStoke})
	require.NoError(t, err)

	view, err := e.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11.0, view.State.Wood)
	assert.Equal(t, PhasePlaying, view.Phase)

	_, err = e.Dispatch(ctx, Action{Kind: ActRepair})
	assert.ErrorIs(t, err, ErrShelterIntact)

	cancel()
	require.NoError(t, <-done)
	assert.False(t, e.Running())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, saved, 1, "shutdown saves once")
	assert.Equal(t, 11.0, saved[0].Wood)
}

func TestEngineRejectsSecondRun(t *testing.T) {
	e := NewEngine(NewSimulation(nil, entropy.Fixed(0.5)))
	e.Interval = time.Hour
	cancel, done := startEngine(t, e)
	defer func() {
		cancel()
		<-done
	}()
	assert.Error(t, e.Run(context.Background()))
}

func TestEngineDoHonoursContext(t *testing.T) {
	e := NewEngine(NewSimulation(nil, entropy.Fixed(0.5)))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := e.Do(ctx, func(*Simulation) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngineDeliversScheduledEvent(t *testing.T) {
	st := colony.NewState()
	st.Day = 3
	sim, _ := newTestSim(st, entropy.Fixed(0.999))
	sim.DayLength = 1

	e := NewEngine(sim)
	e.Interval = time.Millisecond
	e.Source = ScenarioFunc(func(_ context.Context, day, survivors int) (*colony.Scenario, error) {
		return &colony.Scenario{
			Title:   "Frozen Lake",
			Options: []colony.Option{{Text: "Fish", Rewards: colony.Reward{Food: 10}}},
		}, nil
	})

	cancel, done := startEngine(t, e)
	defer func() {
		cancel()
		<-done
	}()
	ctx := context.Background()

	require.Eventually(t, func() bool {
		v, err := e.Snapshot(ctx)
		return err == nil && v.Event == EventAwaitingChoice
	}, 2*time.Second, 5*time.Millisecond)

	view, err := e.Snapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, view.Scenario)
	assert.Equal(t, "Frozen Lake", view.Scenario.Title)
	assert.Equal(t, 4, view.State.Day)

	// Ticks stay suspended while the choice is pending.
	time.Sleep(20 * time.Millisecond)
	again, err := e.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, view.Tick, again.Tick)

	_, err = e.Dispatch(ctx, Action{Kind: ActResolveEvent, Option: 0})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		v, err := e.Snapshot(ctx)
		return err == nil && v.Tick > view.Tick
	}, time.Second, 5*time.Millisecond)
}

func TestEngineReportsGameEndOnce(t *testing.T) {
	st := colony.NewState()
	st.Survivors = 1
	st.Hypothermia = 99.9
	st.Temperature = -30
	sim, _ := newTestSim(st, entropy.Fixed(0.999))

	e := NewEngine(sim)
	e.Interval = time.Millisecond
	ended := make(chan Phase, 4)
	e.OnEnd = func(p Phase, final *colony.State, _ []Event) {
		ended <- p
	}

	cancel, done := startEngine(t, e)
	defer func() {
		cancel()
		<-done
	}()

	select {
	case p := <-ended:
		assert.Equal(t, PhaseDefeat, p)
	case <-time.After(2 * time.Second):
		t.Fatal("game end not reported")
	}
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, ended)
}

// writeLog records the order in which the engine's writer ran callbacks.
type writeLog struct {
	mu    sync.Mutex
	order []string
}

func (w *writeLog) add(s string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.order = append(w.order, s)
}

func (w *writeLog) get() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.order...)
}

func TestEngineWritesEndAfterPendingSave(t *testing.T) {
	sim, _ := newTestSim(nil, entropy.Fixed(0.999))
	e := NewEngine(sim)
	e.Interval = time.Hour
	e.AutosaveEvery = time.Millisecond

	var writes writeLog
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	e.OnSave = func(cp Checkpoint) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		writes.add("save")
	}
	e.OnEnd = func(p Phase, final *colony.State, _ []Event) {
		writes.add("end")
	}

	cancel, done := startEngine(t, e)
	ctx := context.Background()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("autosave never started")
	}

	// The colony falls while the autosave of the living colony is still
	// being written.
	_, err := e.Do(ctx, func(s *Simulation) (any, error) {
		s.State.Survivors = 0
		return s.Step(), nil
	})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, writes.get(), "end report must wait for the pending save")

	close(release)
	require.Eventually(t, func() bool { return len(writes.get()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"save", "end"}, writes.get())

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"save", "end"}, writes.get(), "no save after the end")
}

func TestEngineRestartQueuesReset(t *testing.T) {
	st := colony.NewState()
	st.Wood = 99
	sim, _ := newTestSim(st, entropy.Fixed(0.999))
	sim.Injector.LastDay = 4
	e := NewEngine(sim)
	e.Interval = time.Hour

	var writes writeLog
	var last Checkpoint
	e.OnSave = func(cp Checkpoint) {
		writes.add("save")
		last = cp
	}
	e.OnEnd = func(Phase, *colony.State, []Event) { writes.add("end") }
	e.OnReset = func() { writes.add("reset") }

	cancel, done := startEngine(t, e)
	ctx := context.Background()

	_, err := e.Do(ctx, func(s *Simulation) (any, error) {
		s.State.Survivors = 0
		return s.Step(), nil
	})
	require.NoError(t, err)
	require.NoError(t, e.Restart(ctx))

	view, err := e.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, PhasePlaying, view.Phase)
	assert.Equal(t, colony.NewState().Wood, view.State.Wood)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"end", "reset", "save"}, writes.get())
	assert.Equal(t, colony.NewState().Wood, last.State.Wood)
	assert.Equal(t, 0, last.LastEventDay)
	require.NotEmpty(t, last.Log)
	assert.Equal(t, "System Online. Awaiting Orders.", last.Log[0].Description)
}

func TestEngineCheckpointCarriesEventDay(t *testing.T) {
	st := colony.NewState()
	st.Day = 8
	sim, _ := newTestSim(st, entropy.Fixed(0.999))
	sim.Tick = 41
	sim.Injector.LastDay = 8
	e := NewEngine(sim)
	e.Interval = time.Hour

	saved := make(chan Checkpoint, 1)
	e.OnSave = func(cp Checkpoint) { saved <- cp }

	cancel, done := startEngine(t, e)
	cancel()
	require.NoError(t, <-done)

	cp := <-saved
	assert.Equal(t, uint64(41), cp.Tick)
	assert.Equal(t, 8, cp.LastEventDay)
	assert.Equal(t, 8, cp.State.Day)
}
