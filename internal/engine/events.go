// Scheduled branching events. The injector moves Idle -> Loading ->
// AwaitingChoice -> Idle, and ticks are suspended outside Idle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/frost-haven/internal/colony"
)

// ScenarioSource produces event content for the given day and headcount.
type ScenarioSource interface {
	Scenario(ctx context.Context, day, survivors int) (*colony.Scenario, error)
}

// ScenarioFunc adapts a function to ScenarioSource.
type ScenarioFunc func(ctx context.Context, day, survivors int) (*colony.Scenario, error)

// Scenario implements ScenarioSource.
func (f ScenarioFunc) Scenario(ctx context.Context, day, survivors int) (*colony.Scenario, error) {
	return f(ctx, day, survivors)
}

// EventPhase is the injector state.
type EventPhase string

const (
	EventIdle           EventPhase = "IDLE"
	EventLoading        EventPhase = "LOADING"
	EventAwaitingChoice EventPhase = "AWAITING_CHOICE"
)

// DefaultEventCadence is the day interval between events.
const DefaultEventCadence = 4

// Injector tracks the pending event.
type Injector struct {
	Phase   EventPhase       `json:"phase"`
	Pending *colony.Scenario `json:"pending,omitempty"`
	LastDay int              `json:"last_day"`
	Cadence int              `json:"cadence"`
}

// NewInjector returns an idle injector on the default cadence.
func NewInjector() *Injector {
	return &Injector{Phase: EventIdle, Cadence: DefaultEventCadence}
}

// Blocking reports whether ticks must wait.
func (in *Injector) Blocking() bool {
	return in.Phase != EventIdle
}

// Due reports whether an event should start on this day.
func (in *Injector) Due(day int) bool {
	cadence := max(1, in.Cadence)
	return in.Phase == EventIdle && day > 1 && day%cadence == 0 && day != in.LastDay
}

// ScheduleEvent enters Loading when an event is due and reports whether
// content should now be fetched.
func (s *Simulation) ScheduleEvent() bool {
	if s.Phase != PhasePlaying || !s.Injector.Due(s.State.Day) {
		return false
	}
	s.Injector.Phase = EventLoading
	s.Injector.LastDay = s.State.Day
	s.record("event", "Incoming transmission...")
	s.cue(CueEvent)
	slog.Info("event scheduled", "day", s.State.Day, "survivors", s.State.Survivors)
	return true
}

// DeliverScenario moves a loading injector to AwaitingChoice. Failed or
// invalid content is replaced locally, so the injector never stalls.
func (s *Simulation) DeliverScenario(sc *colony.Scenario, err error) {
	in := s.Injector
	if in.Phase != EventLoading {
		return
	}
	if err == nil {
		err = sc.Validate()
	}
	if err != nil {
		slog.Warn("event content unavailable, using fallback", "error", err)
		sc = s.fallbackScenario(err)
	}
	in.Pending = sc
	in.Phase = EventAwaitingChoice
	s.record("event", "%s", sc.Title)
}

func (s *Simulation) fallbackScenario(err error) *colony.Scenario {
	if errors.Is(err, context.DeadlineExceeded) || len(colony.FallbackScenarios) == 0 {
		sc := colony.SignalLost
		return &sc
	}
	sc := colony.FallbackScenarios[s.pick(len(colony.FallbackScenarios))]
	return &sc
}

// FetchScenario asks src for content, giving up when ctx ends even if src
// does not. A nil source fails.
func FetchScenario(ctx context.Context, src ScenarioSource, day, survivors int) (*colony.Scenario, error) {
	if src == nil {
		return nil, errors.New("no scenario source")
	}
	done := make(chan scenarioResult, 1)
	go func() {
		sc, err := src.Scenario(ctx, day, survivors)
		done <- scenarioResult{sc: sc, err: err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("fetch scenario: %w", r.err)
		}
		return r.sc, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch scenario: %w", ctx.Err())
	}
}
