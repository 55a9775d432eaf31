// Simulation ties the colony state to its collaborators and runs the
// per-tick stages in order.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/frost-haven/internal/colony"
	"github.com/talgya/frost-haven/internal/entropy"
	"github.com/talgya/frost-haven/internal/weather"
)

// Timing constants.
const (
	TicksPerSecond = 5
	TickMs         = 1000.0 / TicksPerSecond
	DayLengthTicks = 300
	MaxLogEntries  = 100
	DisplayedLog   = 2
)

// Phase is the game lifecycle state.
type Phase string

const (
	PhasePlaying Phase = "PLAYING"
	PhaseDefeat  Phase = "GAME_OVER"
	PhaseVictory Phase = "VICTORY"
)

// Terminal reports whether the game has ended.
func (p Phase) Terminal() bool {
	return p == PhaseDefeat || p == PhaseVictory
}

// Outcome is what a Step produced.
type Outcome int

const (
	OutcomeContinue  Outcome = iota // state advanced
	OutcomeSuspended                // an event choice is pending
	OutcomeDefeat
	OutcomeVictory
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeSuspended:
		return "suspended"
	case OutcomeDefeat:
		return "defeat"
	case OutcomeVictory:
		return "victory"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Climate supplies blizzard and cold-snap flags.
type Climate interface {
	Conditions(day int, timeOfDay float64) weather.Flags
}

// Event is one line of the colony log.
type Event struct {
	Tick        uint64 `json:"tick" db:"tick"`
	Day         int    `json:"day" db:"day"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "day", "death", "threat", "scout", ...
}

// Simulation holds the colony and everything that acts on it. It is not
// safe for concurrent use; Engine serializes access.
type Simulation struct {
	State *colony.State
	Phase Phase
	Tick  uint64
	Log   []Event // recent entries, newest last

	Rand     entropy.Source
	Climate  Climate // nil leaves the flags as they are
	Effects  EffectSink
	Cues     CueSink
	Muted    bool
	Injector *Injector

	// DayLength is ticks per day.
	DayLength int
	// NewID names missions and spawns.
	NewID func() string

	archive []Event
}

// NewSimulation wraps a state with default collaborators.
func NewSimulation(state *colony.State, rnd entropy.Source) *Simulation {
	if state == nil {
		state = colony.NewState()
	}
	if rnd == nil {
		rnd = entropy.Crypto{}
	}
	phase := PhasePlaying
	if state.Survivors <= 0 {
		phase = PhaseDefeat
	}
	return &Simulation{
		State:     state,
		Phase:     phase,
		Rand:      rnd,
		Effects:   discard{},
		Cues:      discard{},
		Injector:  NewInjector(),
		DayLength: DayLengthTicks,
		NewID:     uuid.NewString,
	}
}

// Step advances the colony by one tick.
func (s *Simulation) Step() Outcome {
	switch s.Phase {
	case PhaseDefeat:
		return OutcomeDefeat
	case PhaseVictory:
		return OutcomeVictory
	}
	if s.Injector.Blocking() {
		return OutcomeSuspended
	}
	if s.State.Survivors <= 0 {
		s.end(PhaseDefeat)
		return OutcomeDefeat
	}

	s.Tick++
	s.readClimate()
	dayBreak := s.advanceClock()
	m := s.modifiers()
	g := s.flowResources(m, dayBreak)
	s.updateFire(m)
	s.updateTemperature(m)
	s.structuralDecay(m)
	s.meteorShower()
	s.nightThreats(m)
	s.coldInjury()
	s.desertion()
	s.updateMission(g)
	s.decayCombo()
	s.advanceScout(m)
	s.decayBeacon()
	s.advanceFlare()
	s.updateSpawns()
	s.reconcile()
	s.evaluateAchievements()

	if dayBreak {
		s.dailyReport()
	}
	return OutcomeContinue
}

// random draws the next value from the injected source.
func (s *Simulation) random() float64 {
	return s.Rand.Float64()
}

// chance reports whether a p-probability roll succeeds. Each call draws.
func (s *Simulation) chance(p float64) bool {
	return s.random() < p
}

// pick returns an index in [0, n).
func (s *Simulation) pick(n int) int {
	return min(n-1, int(s.random()*float64(n)))
}

func (s *Simulation) record(category, format string, args ...any) {
	e := Event{
		Tick:        s.Tick,
		Day:         s.State.Day,
		Description: fmt.Sprintf(format, args...),
		Category:    category,
	}
	s.Log = append(s.Log, e)
	if len(s.Log) > MaxLogEntries {
		s.Log = s.Log[len(s.Log)-MaxLogEntries:]
	}
	s.archive = append(s.archive, e)
	slog.Debug("colony log", "category", category, "description", e.Description, "day", e.Day)
}

func (s *Simulation) float(text string, x, y float64, style Style) {
	s.Effects.Float(FloatText{Text: text, X: x, Y: y, Style: style})
}

func (s *Simulation) cue(c Cue) {
	if s.Muted {
		return
	}
	s.Cues.Cue(c)
}

// RecentLog returns up to n of the newest log entries, newest first.
func (s *Simulation) RecentLog(n int) []Event {
	n = min(n, len(s.Log))
	out := make([]Event, 0, n)
	for i := len(s.Log) - 1; i >= len(s.Log)-n; i-- {
		out = append(out, s.Log[i])
	}
	return out
}

// DrainArchive returns log entries recorded since the last drain.
func (s *Simulation) DrainArchive() []Event {
	out := s.archive
	s.archive = nil
	return out
}

// Restart replaces the colony with a fresh one.
func (s *Simulation) Restart() {
	s.State = colony.NewState()
	s.Phase = PhasePlaying
	s.Tick = 0
	s.Log = nil
	s.archive = nil
	cadence := s.Injector.Cadence
	s.Injector = NewInjector()
	s.Injector.Cadence = cadence
	s.record("system", "System Online. Awaiting Orders.")
}

func (s *Simulation) end(p Phase) {
	if s.Phase.Terminal() {
		return
	}
	s.Phase = p
	st := s.State
	switch p {
	case PhaseDefeat:
		s.record("system", "The colony has fallen on day %d.", st.Day)
		s.cue(CueDeath)
	case PhaseVictory:
		s.record("system", "Evacuated %d survivors on day %d.", st.Survivors, st.Day)
		s.cue(CueAchievement)
	}
	slog.Info("game over",
		"phase", p,
		"day", st.Day,
		"survivors", st.Survivors,
		"max_survivors", st.Stats.MaxSurvivors,
		"score", st.Score,
	)
}

func (s *Simulation) dailyReport() {
	st := s.State
	slog.Info("daily report",
		"day", st.Day,
		"survivors", st.Survivors,
		"sick", st.Sick,
		"wood", fmt.Sprintf("%.0f", st.Wood),
		"food", fmt.Sprintf("%.0f", st.Food),
		"temp", fmt.Sprintf("%.1f", st.Temperature),
		"fire", fmt.Sprintf("%.0f", st.FireLevel),
		"shelter", st.ShelterLevel,
		"beacon", fmt.Sprintf("%.0f%%", st.BeaconProgress),
	)
}
