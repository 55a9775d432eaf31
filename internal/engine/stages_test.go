package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/frost-haven/internal/colony"
	"github.com/talgya/frost-haven/internal/entropy"
)

func countCategory(sim *Simulation, category string) int {
	n := 0
	for _, e := range sim.Log {
		if e.Category == category {
			n++
		}
	}
	return n
}

// nightState is a third-night colony with a dead fire.
func nightState() *colony.State {
	st := colony.NewState()
	st.Day = 3
	st.TimeOfDay = 10
	st.FireLevel = 0
	st.Survivors = 5
	st.Stats.MaxSurvivors = 5
	return st
}

func TestWolvesKeepRaidersAway(t *testing.T) {
	st := nightState()
	st.Food = 100
	// Every roll succeeds, so only the gating decides what happens.
	sim, _ := newTestSim(st, entropy.Fixed(0.0))

	sim.Step()
	assert.True(t, st.WolvesActive)
	assert.True(t, logContains(sim, "Wolf attack! Guard required!"))
	assert.False(t, logContains(sim, "Raiders took"))
	assert.False(t, logContains(sim, "Survivor taken by shadows."))
	assert.Equal(t, 1, countCategory(sim, "death"))
	assert.Equal(t, 4, st.Survivors)
}

func TestRaidWhenFireTooLowButNoWolves(t *testing.T) {
	st := nightState()
	st.FireLevel = 35
	st.Food = 100
	// Shelter decay misses, raid hits, 30 food stolen, nobody taken.
	sim, rec := newTestSim(st, entropy.NewScript(0.999, 0.999, 0.0, 0.5, 0.999))

	sim.Step()
	assert.False(t, st.WolvesActive)
	assert.True(t, logContains(sim, "Raiders took 30 food."))
	assert.Equal(t, 90.0, st.ShelterHealth)
	assert.Equal(t, 5, st.Survivors)
	assert.Less(t, st.Food, 70.0)
	assert.True(t, rec.Floated("RAID!"))
	assert.True(t, rec.Heard(CueAlert))
}

func TestWolvesStealWoodAndGuardsCutKillOdds(t *testing.T) {
	tests := []struct {
		name   string
		guards int
		roll   float64
		killed bool
	}{
		{name: "unguarded", guards: 0, roll: 0.015, killed: true},
		{name: "two short of safe", guards: 8, roll: 0.015, killed: false},
		{name: "two short of safe unlucky", guards: 8, roll: 0.005, killed: true},
		{name: "fully guarded", guards: 10, roll: 0.0, killed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := nightState()
			st.Survivors = 12
			st.Stats.MaxSurvivors = 12
			st.Workers.Wood = tt.guards
			st.Wood = 50
			// Shelter decay misses, theft hits, then the kill roll. With ten
			// guards there is no kill roll and the next draw goes elsewhere.
			sim, rec := newTestSim(st, entropy.NewScript(0.999, 0.999, 0.0, tt.roll))

			sim.Step()
			require.True(t, st.WolvesActive)
			assert.True(t, rec.Floated("-5 Wood"))
			gathered := float64(tt.guards) * workerYield / TicksPerSecond
			assert.InDelta(t, 50-wolfTheft+gathered, st.Wood, 1e-9)
			assert.Equal(t, tt.killed, logContains(sim, "Wolf attack!"))
			if tt.killed {
				assert.Equal(t, 11, st.Survivors)
			} else {
				assert.Equal(t, 12, st.Survivors)
			}
		})
	}
}

func TestMeteorShowerStartsHitsAndEnds(t *testing.T) {
	st := colony.NewState()
	st.Day = 4
	script := entropy.NewScript(0.999)
	sim, rec := newTestSim(st, script)

	// Shelter decay misses, shower starts, does not end, both hit rolls land.
	script.Push(0.999, 0.0, 0.999, 0.1, 0.1)
	sim.Step()
	assert.True(t, st.IsMeteorShower)
	assert.True(t, logContains(sim, "METEOR SHOWER INBOUND!"))
	assert.Equal(t, 100-meteorDamage, st.ShelterHealth)
	assert.True(t, rec.Heard(CueEvent))
	assert.True(t, rec.Heard(CueAlert))

	// The first hit roll passes but the second misses.
	script.Push(0.999, 0.999, 0.1, 0.5)
	sim.Step()
	assert.True(t, st.IsMeteorShower)
	assert.Equal(t, 100-meteorDamage, st.ShelterHealth)

	// Shower ends, so there are no hit rolls.
	script.Push(0.999, 0.0)
	sim.Step()
	assert.False(t, st.IsMeteorShower)
	assert.Equal(t, 100-meteorDamage, st.ShelterHealth)
}

func TestNoMeteorsBeforeDayFour(t *testing.T) {
	st := colony.NewState()
	st.Day = 3
	sim, _ := newTestSim(st, entropy.Fixed(0.0))

	sim.Step()
	assert.False(t, st.IsMeteorShower)
	assert.False(t, logContains(sim, "METEOR"))
}

func TestSicknessScalesWithCold(t *testing.T) {
	// At -20 the colony warms to about -17.26 this tick, so the odds are
	// about 0.0111.
	tests := []struct {
		name string
		roll float64
		sick bool
	}{
		{name: "under the odds", roll: 0.011, sick: true},
		{name: "over the odds", roll: 0.0115, sick: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := colony.NewState()
			st.Temperature = -20
			// Shelter decay misses, onset roll, then the sick-death roll.
			sim, rec := newTestSim(st, entropy.NewScript(0.999, 0.999, tt.roll, 0.999))

			sim.Step()
			if !tt.sick {
				assert.Equal(t, 0, st.Sick)
				return
			}
			assert.Equal(t, 1, st.Sick)
			assert.Equal(t, 3, st.Survivors)
			assert.True(t, logContains(sim, "Crew member ill."))
			assert.True(t, rec.Floated("SICKNESS!"))
		})
	}
}

func TestNoSicknessWithoutHealthySurvivors(t *testing.T) {
	st := colony.NewState()
	st.Temperature = -20
	st.Sick = 3
	sim, _ := newTestSim(st, entropy.NewScript(0.999, 0.999, 0.999))

	sim.Step()
	assert.Equal(t, 3, st.Sick)
	assert.False(t, logContains(sim, "Crew member ill."))
}

func TestSickRecoverInWarmth(t *testing.T) {
	st := colony.NewState()
	st.Temperature = 30
	st.Sick = 1
	// Shelter decay misses, recovery hits. Nobody is left sick, so there is
	// no sick-death roll.
	sim, _ := newTestSim(st, entropy.NewScript(0.999, 0.999, 0.0))

	sim.Step()
	assert.Equal(t, 0, st.Sick)
	assert.Equal(t, 3, st.Survivors)
	assert.True(t, logContains(sim, "A sick crew member recovered."))
}

func TestSickSurvivorCanSuccumb(t *testing.T) {
	st := colony.NewState()
	st.Sick = 1
	// Mild weather: no onset or recovery roll, only the sick-death roll.
	sim, rec := newTestSim(st, entropy.NewScript(0.999, 0.999, 0.0))

	sim.Step()
	assert.Equal(t, 0, st.Sick)
	assert.Equal(t, 2, st.Survivors)
	assert.True(t, logContains(sim, "A sick survivor succumbed."))
	assert.True(t, rec.Heard(CueDeath))
}

func TestMissionSpawnsFromRoll(t *testing.T) {
	tests := []struct {
		roll   float64
		kind   colony.MissionKind
		target float64
		ticks  int
		order  string
	}{
		{roll: 0.1, kind: colony.MissionGatherWood, target: 110, ticks: 150, order: "Order: Gather 110 Wood"},
		{roll: 0.5, kind: colony.MissionGatherFood, target: 110, ticks: 150, order: "Order: Gather 110 Food"},
		{roll: 0.9, kind: colony.MissionClicks, target: 30, ticks: 75, order: "Order: Manual Actions: 30"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			st := colony.NewState()
			// Shelter decay misses, mission hits, then the kind roll.
			sim, rec := newTestSim(st, entropy.NewScript(0.999, 0.999, 0.0, tt.roll))

			sim.Step()
			m := st.ActiveMission
			require.NotNil(t, m)
			assert.Equal(t, tt.kind, m.Kind)
			assert.Equal(t, tt.target, m.Target)
			assert.Equal(t, tt.ticks-1, m.TimeLeft)
			assert.Equal(t, "id-1", m.ID)
			assert.True(t, logContains(sim, tt.order))
			assert.True(t, rec.Heard(CueEvent))
		})
	}
}

func TestGatherMissionTracksPassiveYield(t *testing.T) {
	st := colony.NewState()
	st.Workers.Wood = 2
	st.ActiveMission = &colony.Mission{
		ID: "m", Kind: colony.MissionGatherWood, Target: 110, TimeLeft: 150,
		Reward: colony.Reward{Text: "SUPPLIES", Wood: missionReward, Food: missionReward},
	}
	sim, _ := newTestSim(st, entropy.Fixed(0.999))

	for i := 0; i < 5; i++ {
		sim.Step()
	}
	require.NotNil(t, st.ActiveMission)
	assert.InDelta(t, 5*2*workerYield/TicksPerSecond, st.ActiveMission.Current, 1e-9)
	assert.Equal(t, 145, st.ActiveMission.TimeLeft)
}

func TestClickMissionCompletesWithReward(t *testing.T) {
	st := colony.NewState()
	st.Wood = 50
	st.ActiveMission = &colony.Mission{
		ID: "m", Kind: colony.MissionClicks, Target: clicksTarget, Current: 28, TimeLeft: 40,
		Reward: colony.Reward{Text: "SUPPLIES", Wood: missionReward, Food: missionReward},
	}
	sim, rec := newTestSim(st, entropy.Fixed(0.999))

	_, err := sim.Gather(colony.RoleFood)
	require.NoError(t, err)
	require.NoError(t, sim.Stoke())
	assert.Equal(t, float64(clicksTarget), st.ActiveMission.Current)
	assert.Equal(t, 2, st.Stats.Clicks)

	wood, food := st.Wood, st.Food
	sim.Step()
	assert.Nil(t, st.ActiveMission)
	assert.True(t, logContains(sim, "Mission complete: SUPPLIES."))
	assert.Greater(t, st.Wood, wood+missionReward-1)
	assert.Greater(t, st.Food, food+missionReward-1)
	assert.True(t, rec.Floated("MISSION COMPLETE"))
}

func TestMissionExpires(t *testing.T) {
	st := colony.NewState()
	st.ActiveMission = &colony.Mission{
		ID: "m", Kind: colony.MissionGatherFood, Target: 110, TimeLeft: 1,
		Reward: colony.Reward{Text: "SUPPLIES", Wood: missionReward, Food: missionReward},
	}
	sim, _ := newTestSim(st, entropy.Fixed(0.999))

	sim.Step()
	assert.Nil(t, st.ActiveMission)
	assert.True(t, logContains(sim, "Mission Failed."))
	assert.Less(t, st.Food, 15.0)
}

func TestComboDecaysAfterWindow(t *testing.T) {
	st := colony.NewState()
	st.ComboMultiplier = 2
	st.ComboTimer = 2 * TickMs
	sim, _ := newTestSim(st, entropy.Fixed(0.999))

	sim.Step()
	assert.Equal(t, TickMs, st.ComboTimer)
	assert.Equal(t, 2.0, st.ComboMultiplier)

	sim.Step()
	assert.Equal(t, 0.0, st.ComboTimer)
	assert.Equal(t, 2.0, st.ComboMultiplier)

	sim.Step()
	assert.InDelta(t, 1.9, st.ComboMultiplier, 1e-9)

	for i := 0; i < 20; i++ {
		sim.Step()
	}
	assert.Equal(t, 1.0, st.ComboMultiplier)
}

func TestGatherRefreshesComboWindow(t *testing.T) {
	st := colony.NewState()
	sim, _ := newTestSim(st, entropy.Fixed(0.999))

	_, err := sim.Gather(colony.RoleWood)
	require.NoError(t, err)
	assert.InDelta(t, 1.1, st.ComboMultiplier, 1e-9)
	assert.Equal(t, comboWindowMs, st.ComboTimer)
}

func TestOverloadThreshold(t *testing.T) {
	tests := []struct {
		name     string
		combo    float64
		shard    bool
		overload bool
	}{
		{name: "below default", combo: 4.7, overload: false},
		{name: "at default", combo: 4.8, overload: true},
		{name: "shard lowers threshold", combo: 4.0, shard: true, overload: true},
		{name: "below shard threshold", combo: 3.9, shard: true, overload: false},
		{name: "no shard at four", combo: 4.0, overload: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := colony.NewState()
			st.ComboMultiplier = tt.combo
			st.ComboTimer = comboWindowMs
			if tt.shard {
				st.Artifacts = append(st.Artifacts, colony.ArtifactChronoShard)
			}
			assert.Equal(t, tt.overload, CurrentRates(st).Overload)

			sim, _ := newTestSim(st, entropy.Fixed(0.999))
			wood := st.Wood
			sim.Step()
			bonus := 0.0
			if tt.overload {
				bonus = 1
			}
			assert.InDelta(t, wood+bonus, st.Wood, 1e-9)
		})
	}
}
