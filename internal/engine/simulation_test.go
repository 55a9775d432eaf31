package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/frost-haven/internal/colony"
	"github.com/talgya/frost-haven/internal/entropy"
	"github.com/talgya/frost-haven/internal/weather"
)

func newTestSim(st *colony.State, rnd entropy.Source) (*Simulation, *recorder) {
	sim := NewSimulation(st, rnd)
	rec := &recorder{}
	sim.Effects = rec
	sim.Cues = rec
	ids := 0
	sim.NewID = func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}
	return sim, rec
}

func logContains(sim *Simulation, text string) bool {
	for _, e := range sim.Log {
		if strings.Contains(e.Description, text) {
			return true
		}
	}
	return false
}

func TestFireWorkerWarmsColony(t *testing.T) {
	st := colony.NewState()
	st.Workers.Fire = 1
	sim, _ := newTestSim(st, entropy.Fixed(0.999))

	prevTemp := st.Temperature
	for i := 0; i < 50; i++ {
		require.Equal(t, OutcomeContinue, sim.Step())
		assert.GreaterOrEqual(t, st.FireLevel, 0.0)
		assert.LessOrEqual(t, st.FireLevel, colony.MaxFire)
		assert.Greater(t, st.Temperature, prevTemp, "tick %d", i+1)
		prevTemp = st.Temperature
	}
	assert.Equal(t, uint64(50), sim.Tick)
	assert.InDelta(t, 125, st.FireLevel, 1e-9)
	assert.InDelta(t, 10, st.Wood, 1e-9)
	assert.Equal(t, 2, st.Idle())
}

func TestHypothermiaDeathEndsGameOnNextTick(t *testing.T) {
	st := colony.NewState()
	st.Survivors = 1
	st.Stats.MaxSurvivors = 1
	st.Hypothermia = 99.9
	st.Temperature = -30
	sim, rec := newTestSim(st, entropy.Fixed(0.999))

	require.Equal(t, OutcomeContinue, sim.Step())
	assert.Equal(t, 0, st.Survivors)
	assert.Equal(t, 0.0, st.Hypothermia)
	assert.True(t, logContains(sim, "FROZEN TO DEATH"))
	assert.True(t, rec.Heard(CueDeath))
	assert.Equal(t, PhasePlaying, sim.Phase)

	tick := sim.Tick
	assert.Equal(t, OutcomeDefeat, sim.Step())
	assert.Equal(t, PhaseDefeat, sim.Phase)
	assert.Equal(t, tick, sim.Tick)

	assert.Equal(t, OutcomeDefeat, sim.Step())
	assert.Equal(t, tick, sim.Tick)
}

func TestDayAdvancesOncePerWrap(t *testing.T) {
	st := colony.NewState()
	st.TimeOfDay = 99.9
	sim, _ := newTestSim(st, entropy.Fixed(0.999))

	sim.Step()
	assert.Equal(t, 2, st.Day)
	assert.Equal(t, 0.0, st.TimeOfDay)
	assert.Equal(t, 1, st.Stats.DaysSurvived)
	assert.True(t, logContains(sim, "Day 2. +14 Wood."))

	sim.DayLength = 1
	for i := 0; i < 3; i++ {
		sim.Step()
	}
	assert.Equal(t, 5, st.Day)
}

func TestWorkersNeverExceedHealthyPopulation(t *testing.T) {
	for _, seed := range []uint64{1, 7, 42, 1337} {
		st := colony.NewState()
		st.Wood, st.Food = 400, 400
		rnd := entropy.NewSeeded(seed)
		sim, _ := newTestSim(st, rnd)
		sim.DayLength = 60
		actions := []Action{
			{Kind: ActAssign, Role: colony.RoleWood, Delta: 1},
			{Kind: ActAssign, Role: colony.RoleFood, Delta: 1},
			{Kind: ActAssign, Role: colony.RoleFire, Delta: 1},
			{Kind: ActAssign, Role: colony.RoleFire, Delta: -1},
			{Kind: ActGather, Role: colony.RoleWood},
			{Kind: ActGather, Role: colony.RoleFood},
			{Kind: ActStoke},
			{Kind: ActScout},
			{Kind: ActFlare},
			{Kind: ActRepair},
			{Kind: ActShelter},
			{Kind: ActBeacon},
			{Kind: ActUpgrade, Upgrade: colony.UpgradeCoats},
			{Kind: ActCollectDrop},
			{Kind: ActCollectSpirit},
		}
		chooser := func(sc *colony.Scenario) int { return int(rnd.Float64() * float64(len(sc.Options))) }

		for i := 0; i < 3000 && !sim.Phase.Terminal(); i++ {
			a := actions[int(rnd.Float64()*float64(len(actions)))]
			_, _ = sim.Dispatch(a)
			Advance(context.Background(), sim, nil, 1, chooser)

			require.GreaterOrEqual(t, st.Wood, 0.0)
			require.GreaterOrEqual(t, st.Food, 0.0)
			require.GreaterOrEqual(t, st.FireLevel, 0.0)
			require.LessOrEqual(t, st.FireLevel, colony.MaxFire)
			require.GreaterOrEqual(t, st.Sick, 0)
			require.LessOrEqual(t, st.Sick, st.Survivors)
			require.LessOrEqual(t, st.Workers.Total(), st.Healthy(), "seed %d tick %d", seed, sim.Tick)
			require.GreaterOrEqual(t, st.Hypothermia, 0.0)
			require.LessOrEqual(t, st.Hypothermia, colony.MaxHypothermia)
			require.GreaterOrEqual(t, st.ShelterHealth, 0.0)
			require.LessOrEqual(t, st.ShelterHealth, colony.MaxShelterHealth)
			require.LessOrEqual(t, st.BeaconProgress, colony.MaxBeacon)
			require.LessOrEqual(t, st.ComboMultiplier, colony.MaxCombo)
			require.GreaterOrEqual(t, st.Stats.MaxSurvivors, st.Survivors)
		}
	}
}

func TestColdDesertionFreesAWorker(t *testing.T) {
	st := colony.NewState()
	st.Temperature = -50
	st.FireLevel = 0
	st.Workers.Food = 2
	// Shelter decay and sickness miss, then desertion hits the only staffed role.
	sim, _ := newTestSim(st, entropy.NewScript(0.999, 0.999, 0.999, 0.0, 0.0))

	sim.Step()
	assert.Equal(t, 1, st.Workers.Food)
	assert.True(t, logContains(sim, "Worker abandoned post due to cold!"))
}

func TestScoutReturnsWithArtifact(t *testing.T) {
	st := colony.NewState()
	st.ScoutRisk = colony.RiskHigh
	sim, _ := newTestSim(st, entropy.Fixed(0.999))
	require.NoError(t, sim.SendScout())
	assert.Equal(t, 1, st.Workers.Scout)
	assert.Equal(t, 5000.0, st.ScoutTimer)
	assert.Contains(t, Claimable(st), colony.AchievementID("SCOUT"))

	// 5000ms at 200ms per tick.
	for i := 0; i < 24; i++ {
		sim.Step()
	}
	require.Equal(t, 1, st.Workers.Scout)

	script := entropy.NewScript(0.999)
	sim.Rand = script
	// Shelter decay and mission rolls come first.
	script.Push(0.999, 0.999)
	// Find roll, artifact roll, artifact pick.
	script.Push(0.5, 0.1, 0.0)
	sim.Step()

	assert.Equal(t, 0, st.Workers.Scout)
	assert.Equal(t, []colony.ArtifactID{colony.ArtifactFrozenHeart}, st.Artifacts)
	assert.True(t, logContains(sim, "Scout found Frozen Heart!"))
}

type stubClimate weather.Flags

func (c stubClimate) Conditions(int, float64) weather.Flags { return weather.Flags(c) }

func TestClimateDrivesBlizzard(t *testing.T) {
	st := colony.NewState()
	st.BeaconProgress = 10
	sim, _ := newTestSim(st, entropy.Fixed(0.999))
	sim.Climate = stubClimate{Blizzard: true}

	sim.Step()
	assert.True(t, st.IsBlizzard)
	assert.True(t, logContains(sim, "Blizzard rolling in."))
	assert.InDelta(t, 10-0.2/TicksPerSecond, st.BeaconProgress, 1e-9)
	assert.Less(t, TargetTemperature(st), -60+st.FireLevel/2+1)

	sim.Climate = stubClimate{}
	sim.Step()
	assert.False(t, st.IsBlizzard)
	assert.True(t, logContains(sim, "The blizzard has passed."))
}

func TestRecentLogNewestFirst(t *testing.T) {
	sim, _ := newTestSim(nil, entropy.Fixed(0.5))
	for i := 0; i < MaxLogEntries+10; i++ {
		sim.record("test", "entry %d", i)
	}
	assert.Len(t, sim.Log, MaxLogEntries)
	recent := sim.RecentLog(DisplayedLog)
	require.Len(t, recent, 2)
	assert.Equal(t, "entry 109", recent[0].Description)
	assert.Equal(t, "entry 108", recent[1].Description)
	assert.Len(t, sim.DrainArchive(), MaxLogEntries+10)
	assert.Empty(t, sim.DrainArchive())
}

func TestInjectorSuspendsTicks(t *testing.T) {
	st := colony.NewState()
	st.Day = 4
	sim, _ := newTestSim(st, entropy.Fixed(0.999))

	require.True(t, sim.ScheduleEvent())
	assert.Equal(t, EventLoading, sim.Injector.Phase)
	tick := sim.Tick
	assert.Equal(t, OutcomeSuspended, sim.Step())
	assert.Equal(t, tick, sim.Tick)

	_, err := sim.Gather(colony.RoleWood)
	assert.ErrorIs(t, err, ErrEventPending)

	sim.DeliverScenario(nil, context.DeadlineExceeded)
	require.Equal(t, EventAwaitingChoice, sim.Injector.Phase)
	assert.Equal(t, colony.SignalLost.Title, sim.Injector.Pending.Title)
	assert.Equal(t, OutcomeSuspended, sim.Step())

	assert.ErrorIs(t, sim.ResolveEvent(3), ErrBadOption)
	require.NoError(t, sim.ResolveEvent(0))
	assert.Equal(t, EventIdle, sim.Injector.Phase)
	assert.Nil(t, sim.Injector.Pending)
	assert.False(t, sim.ScheduleEvent(), "one event per day")
	assert.Equal(t, OutcomeContinue, sim.Step())
}

func TestInjectorFallsBackOnBadContent(t *testing.T) {
	titles := map[string]bool{}
	for _, sc := range colony.FallbackScenarios {
		titles[sc.Title] = true
	}

	cases := []struct {
		name string
		sc   *colony.Scenario
		err  error
	}{
		{"error", nil, errors.New("upstream 500")},
		{"no options", &colony.Scenario{Title: "Empty"}, nil},
		{"too many options", &colony.Scenario{Title: "Crowded", Options: make([]colony.Option, 5)}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := colony.NewState()
			st.Day = 8
			sim, _ := newTestSim(st, entropy.Fixed(0.3))
			require.True(t, sim.ScheduleEvent())
			sim.DeliverScenario(tc.sc, tc.err)
			require.Equal(t, EventAwaitingChoice, sim.Injector.Phase)
			assert.True(t, titles[sim.Injector.Pending.Title], sim.Injector.Pending.Title)
		})
	}
}

func TestInjectorNotDueOnDayOne(t *testing.T) {
	in := NewInjector()
	assert.False(t, in.Due(1))
	assert.False(t, in.Due(3))
	assert.True(t, in.Due(4))
	in.LastDay = 4
	assert.False(t, in.Due(4))
	in.Cadence = 1
	in.LastDay = 0
	assert.False(t, in.Due(1))
	assert.True(t, in.Due(2))
}

func TestFetchScenarioHonoursDeadline(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	src := ScenarioFunc(func(context.Context, int, int) (*colony.Scenario, error) {
		<-block
		return nil, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := FetchScenario(ctx, src, 4, 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = FetchScenario(context.Background(), nil, 4, 3)
	assert.Error(t, err)
}

func TestAdvanceResolvesEventsInline(t *testing.T) {
	sim, _ := newTestSim(nil, entropy.Fixed(0.999))
	sim.DayLength = 1

	out := Advance(context.Background(), sim, nil, 10, func(*colony.Scenario) int { return 0 })
	assert.Equal(t, OutcomeContinue, out)
	assert.Equal(t, 11, sim.State.Day)
	assert.Equal(t, 8, sim.Injector.LastDay)
	assert.Equal(t, EventIdle, sim.Injector.Phase)
}

func TestRestart(t *testing.T) {
	st := colony.NewState()
	st.Survivors = 0
	sim, _ := newTestSim(st, entropy.Fixed(0.5))
	sim.Injector.Cadence = 2
	sim.Injector.LastDay = 6
	sim.record("death", "Last one out.")
	assert.Equal(t, PhaseDefeat, sim.Phase)

	sim.Restart()
	assert.Equal(t, PhasePlaying, sim.Phase)
	assert.Equal(t, colony.NewState(), sim.State)
	assert.Equal(t, uint64(0), sim.Tick)
	assert.Equal(t, 2, sim.Injector.Cadence)
	assert.Equal(t, 0, sim.Injector.LastDay)
	assert.True(t, logContains(sim, "System Online"))

	archived := sim.DrainArchive()
	require.Len(t, archived, 1)
	assert.Equal(t, "System Online. Awaiting Orders.", archived[0].Description)
}
