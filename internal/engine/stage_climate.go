// Clock, climate and the multipliers every later stage reads.
package engine

import (
	"math"

	"github.com/talgya/frost-haven/internal/colony"
)

// Per-second rates.
const (
	workerYield      = 0.8
	fireWorkerBurn   = 0.5
	fireWorkerHeat   = 5.0
	fireWorkerEmber  = 6.0
	hungerPerHead    = 0.25
	hungerGrowth     = 0.05
	overheatAbove    = 120.0
	overheatMult     = 1.5
	blizzardPenalty  = 0.5
	gatherPerLevel   = 0.2
	scoutPerLevel    = 0.15
	ancientMapMult   = 1.3
	frozenHeartMult  = 0.85
	overloadDefault  = 4.8
	overloadChrono   = 4.0
	coolingPerTwoDay = 0.8
)

// modifiers are resolved once per tick from artifacts, upgrades and
// conditions.
type modifiers struct {
	night       bool
	woodMult    float64
	foodMult    float64
	insulation  float64
	scoutSpeed  float64
	overload    bool
	fireWorkers int     // workers that actually feed the fire
	workerHeat  float64 // per fire worker per second
	fireDecay   float64 // per second
}

func (s *Simulation) readClimate() {
	if s.Climate == nil {
		return
	}
	st := s.State
	f := s.Climate.Conditions(st.Day, st.TimeOfDay)
	if f.Blizzard != st.IsBlizzard {
		if f.Blizzard {
			s.record("threat", "Blizzard rolling in.")
			s.float("BLIZZARD", 50, 30, StyleDanger)
			s.cue(CueAlert)
		} else {
			s.record("threat", "The blizzard has passed.")
		}
	}
	if f.ColdSnap && !st.ColdSnap {
		s.record("threat", "Cold snap! Temperatures are plunging.")
		s.float("COLD SNAP", 50, 25, StyleDanger)
		s.cue(CueAlert)
	}
	st.IsBlizzard = f.Blizzard
	st.ColdSnap = f.ColdSnap
}

// advanceClock moves time forward and reports whether a new day began.
// The clock resets to zero on wrap, so one tick adds at most one day.
func (s *Simulation) advanceClock() bool {
	st := s.State
	st.TimeOfDay += 100 / float64(max(1, s.DayLength))
	if st.TimeOfDay < 100 {
		return false
	}
	st.TimeOfDay = 0
	st.Day++
	st.Stats.DaysSurvived++
	return true
}

func (s *Simulation) modifiers() modifiers {
	return resolveModifiers(s.State)
}

func resolveModifiers(st *colony.State) modifiers {
	m := modifiers{night: st.IsNight()}

	gather := 1.0
	if st.FireLevel > overheatAbove {
		gather *= overheatMult
	}
	if st.IsBlizzard {
		gather *= blizzardPenalty
	}
	m.woodMult = (1 + float64(st.Level(colony.UpgradeAxes))*gatherPerLevel) * gather
	m.foodMult = (1 + float64(st.Level(colony.UpgradeTraps))*gatherPerLevel) * gather
	m.insulation = float64(st.Level(colony.UpgradeCoats))

	m.scoutSpeed = 1 + float64(st.Level(colony.UpgradeShoes))*scoutPerLevel
	if st.Has(colony.ArtifactAncientMap) {
		m.scoutSpeed *= ancientMapMult
	}

	threshold := overloadDefault
	if st.Has(colony.ArtifactChronoShard) {
		threshold = overloadChrono
	}
	m.overload = st.ComboMultiplier >= threshold

	if st.Wood > 0 {
		m.fireWorkers = st.Workers.Fire
	}
	m.workerHeat = fireWorkerHeat
	if st.Has(colony.ArtifactEverEmber) {
		m.workerHeat = fireWorkerEmber
	}

	switch {
	case st.ColdSnap:
		m.fireDecay = 15
	case st.IsBlizzard:
		m.fireDecay = 8
	case m.night:
		m.fireDecay = 5
	default:
		m.fireDecay = 2.5
	}
	if st.Has(colony.ArtifactFrozenHeart) {
		m.fireDecay *= frozenHeartMult
	}
	return m
}

// TargetTemperature is the temperature the colony drifts toward.
func TargetTemperature(st *colony.State) float64 {
	return targetTemperature(st, resolveModifiers(st))
}

func targetTemperature(st *colony.State, m modifiers) float64 {
	var base float64
	switch {
	case st.ColdSnap:
		base = -80
	case st.IsBlizzard:
		base = -60
	case m.night:
		base = -40
	default:
		base = -15
	}
	cooling := math.Floor(float64(st.Day)/2) * coolingPerTwoDay
	efficiency := math.Max(0.1, st.ShelterHealth/colony.MaxShelterHealth)
	shelter := float64(st.ShelterLevel-1) * 5 * efficiency
	return base - cooling + shelter + st.FireLevel/2 + m.insulation
}
