// Package engine provides the tick-based colony simulation: the ordered
// per-tick stages, the action dispatcher, scheduled events and the loop
// that drives them at a fixed rate.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/talgya/frost-haven/internal/colony"
)

// Defaults for the run loop.
const (
	DefaultInterval        = 200 * time.Millisecond
	DefaultAutosave        = 5 * time.Second
	DefaultScenarioTimeout = 8 * time.Second

	writeQueue = 16
)

// Checkpoint is what an autosave hands to storage.
type Checkpoint struct {
	State        *colony.State
	Log          []Event // entries recorded since the previous save
	Tick         uint64
	LastEventDay int
}

// Engine drives a Simulation from a single goroutine. Ticks, actions,
// event content and autosaves are all serialized through Run, so the
// colony state is never touched concurrently.
type Engine struct {
	Sim             *Simulation
	Interval        time.Duration // base tick interval
	Speed           float64       // 1.0 = real time
	Source          ScenarioSource
	ScenarioTimeout time.Duration
	AutosaveEvery   time.Duration

	// Callbacks, populated during setup. OnChange runs on the loop
	// goroutine. OnSave, OnEnd and OnReset share one writer goroutine and
	// run in the order the loop queued them.
	OnChange func(View)
	OnSave   func(Checkpoint)
	OnEnd    func(p Phase, final *colony.State, log []Event)
	OnReset  func()

	commands  chan command
	scenarios chan scenarioResult
	writes    chan func()
	running   atomic.Bool
	saving    atomic.Bool // an autosave is queued or being written
	ended     bool
}

type command struct {
	fn    func(*Simulation) (any, error)
	reply chan reply
}

type reply struct {
	value any
	err   error
}

type scenarioResult struct {
	sc  *colony.Scenario
	err error
}

// NewEngine creates an engine with default timings.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{
		Sim:             sim,
		Interval:        DefaultInterval,
		Speed:           1.0,
		ScenarioTimeout: DefaultScenarioTimeout,
		AutosaveEvery:   DefaultAutosave,
		commands:        make(chan command),
		scenarios:       make(chan scenarioResult, 1),
	}
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

func (e *Engine) tickInterval() time.Duration {
	interval := e.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	if e.Speed > 0 {
		interval = time.Duration(float64(interval) / e.Speed)
	}
	return max(interval, time.Millisecond)
}

// Run starts the simulation loop. Blocks until ctx is cancelled, then
// queues a final save and waits for every queued write to finish.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine already running")
	}
	defer e.running.Store(false)

	interval := e.tickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var autosave <-chan time.Time
	if e.AutosaveEvery > 0 && e.OnSave != nil {
		t := time.NewTicker(e.AutosaveEvery)
		defer t.Stop()
		autosave = t.C
	}

	e.writes = make(chan func(), writeQueue)
	written := make(chan struct{})
	go func() {
		defer close(written)
		for fn := range e.writes {
			fn()
		}
	}()

	slog.Info("simulation engine started", "tick", e.Sim.Tick, "day", e.Sim.State.Day, "interval", interval)
	e.ended = e.Sim.Phase.Terminal()
	e.publish()

	for {
		select {
		case <-ctx.Done():
			e.save(true)
			close(e.writes)
			<-written
			slog.Info("simulation engine stopped", "tick", e.Sim.Tick, "day", e.Sim.State.Day)
			return nil
		case <-ticker.C:
			e.step(ctx)
		case cmd := <-e.commands:
			v, err := cmd.fn(e.Sim)
			cmd.reply <- reply{value: v, err: err}
			e.afterChange()
		case r := <-e.scenarios:
			e.Sim.DeliverScenario(r.sc, r.err)
			e.publish()
		case <-autosave:
			e.save(false)
		}
	}
}

// step advances one tick and starts an event fetch when one comes due.
func (e *Engine) step(ctx context.Context) {
	if e.Sim.Step() == OutcomeContinue && e.Sim.ScheduleEvent() {
		e.fetch(ctx, e.Sim.State.Day, e.Sim.State.Survivors)
	}
	e.afterChange()
}

func (e *Engine) fetch(ctx context.Context, day, survivors int) {
	timeout := e.ScenarioTimeout
	if timeout <= 0 {
		timeout = DefaultScenarioTimeout
	}
	go func() {
		fctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		sc, err := FetchScenario(fctx, e.Source, day, survivors)
		select {
		case e.scenarios <- scenarioResult{sc: sc, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (e *Engine) afterChange() {
	e.publish()
	phase := e.Sim.Phase
	if !phase.Terminal() {
		e.ended = false
		return
	}
	if e.ended {
		return
	}
	e.ended = true
	if e.OnEnd != nil {
		final := e.Sim.State.Clone()
		logs := e.Sim.DrainArchive()
		e.enqueue(func() { e.OnEnd(phase, final, logs) })
	}
}

func (e *Engine) publish() {
	if e.OnChange != nil {
		e.OnChange(e.Sim.View())
	}
}

// save queues a checkpoint. Snapshots are only taken mid-game. An autosave
// is skipped while the previous one is still pending; the final save is not.
func (e *Engine) save(final bool) {
	if e.OnSave == nil || e.Sim.Phase != PhasePlaying {
		return
	}
	if !e.saving.CompareAndSwap(false, true) && !final {
		return
	}
	cp := Checkpoint{
		State:        e.Sim.State.Clone(),
		Log:          e.Sim.DrainArchive(),
		Tick:         e.Sim.Tick,
		LastEventDay: e.Sim.Injector.LastDay,
	}
	e.enqueue(func() {
		defer e.saving.Store(false)
		e.OnSave(cp)
	})
}

// enqueue hands fn to the writer. Only the loop goroutine calls it, so
// writes keep the order of the changes that caused them.
func (e *Engine) enqueue(fn func()) {
	e.writes <- fn
}

// Restart replaces the colony with a fresh one on the loop. OnReset is
// queued behind any save or end report of the old colony.
func (e *Engine) Restart(ctx context.Context) error {
	_, err := e.Do(ctx, func(s *Simulation) (any, error) {
		s.Restart()
		if e.OnReset != nil {
			e.enqueue(e.OnReset)
		}
		return nil, nil
	})
	return err
}

// Do runs fn on the loop goroutine and waits for its result.
func (e *Engine) Do(ctx context.Context, fn func(*Simulation) (any, error)) (any, error) {
	cmd := command{fn: fn, reply: make(chan reply, 1)}
	select {
	case e.commands <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-cmd.reply:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dispatch submits an action to the loop.
func (e *Engine) Dispatch(ctx context.Context, a Action) (any, error) {
	return e.Do(ctx, func(s *Simulation) (any, error) {
		return s.Dispatch(a)
	})
}

// Snapshot returns the current view from the loop.
func (e *Engine) Snapshot(ctx context.Context) (View, error) {
	v, err := e.Do(ctx, func(s *Simulation) (any, error) {
		return s.View(), nil
	})
	if err != nil {
		return View{}, err
	}
	return v.(View), nil
}

// Chooser picks an option index for a scenario during headless runs.
type Chooser func(*colony.Scenario) int

// Advance runs up to ticks steps without a clock, fetching and resolving
// events inline. It stops early when the game ends.
func Advance(ctx context.Context, sim *Simulation, src ScenarioSource, ticks int, choose Chooser) Outcome {
	out := OutcomeContinue
	for i := 0; i < ticks; i++ {
		if ctx.Err() != nil {
			break
		}
		out = sim.Step()
		switch out {
		case OutcomeDefeat, OutcomeVictory:
			return out
		case OutcomeContinue:
			if !sim.ScheduleEvent() {
				continue
			}
			fctx, cancel := context.WithTimeout(ctx, DefaultScenarioTimeout)
			sc, err := FetchScenario(fctx, src, sim.State.Day, sim.State.Survivors)
			cancel()
			sim.DeliverScenario(sc, err)
		}
		if sim.Injector.Phase == EventAwaitingChoice {
			option := 0
			if choose != nil {
				option = choose(sim.Injector.Pending)
			}
			if err := sim.ResolveEvent(option); err != nil {
				_ = sim.ResolveEvent(0)
			}
		}
	}
	return out
}
