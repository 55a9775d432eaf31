// Resource flow, fire and temperature.
package engine

import (
	"fmt"

	"github.com/talgya/frost-haven/internal/colony"
)

// gains are the passive yields of one tick, used for mission progress.
type gains struct {
	wood, food float64
}

func (s *Simulation) flowResources(m modifiers, dayBreak bool) gains {
	st := s.State
	g := gains{
		wood: float64(st.Workers.Wood) * workerYield * m.woodMult / TicksPerSecond,
		food: float64(st.Workers.Food) * workerYield * m.foodMult / TicksPerSecond,
	}

	hunger := 1 + float64(st.Day)*hungerGrowth
	eaten := float64(st.Survivors) * hungerPerHead * hunger / TicksPerSecond
	burned := float64(m.fireWorkers) * fireWorkerBurn / TicksPerSecond

	var bonus float64
	if m.overload {
		bonus = 1
		if s.Tick%TicksPerSecond == 0 {
			s.float("OVERLOAD!", 50, 40, StyleCritical)
		}
	}

	st.AddWood(g.wood + bonus - burned)
	st.AddFood(g.food + bonus - eaten)
	st.Stats.TotalWoodGathered += g.wood
	st.Stats.TotalFoodGathered += g.food

	if dayBreak {
		b := 10 + st.Day*2
		st.AddWood(float64(b))
		s.record("day", "Day %d. +%d Wood.", st.Day, b)
		s.float(fmt.Sprintf("DAY %d", st.Day), 50, 40, StyleInfo)
		s.cue(CueAchievement)
	}
	return g
}

func (s *Simulation) updateFire(m modifiers) {
	heat := float64(m.fireWorkers) * m.workerHeat / TicksPerSecond
	s.State.AddFire(heat - m.fireDecay/TicksPerSecond)
}

func (s *Simulation) updateTemperature(m modifiers) {
	st := s.State
	target := targetTemperature(st, m)
	inertia := 0.05
	if st.ColdSnap {
		inertia = 0.2
	}
	st.Temperature += (target - st.Temperature) * inertia
}

// Rates are the current net flows per second, as a HUD would show them.
type Rates struct {
	Wood        float64 `json:"wood"`
	Food        float64 `json:"food"`
	Fire        float64 `json:"fire"`
	Target      float64 `json:"target_temperature"`
	Overload    bool    `json:"overload"`
	Overheating bool    `json:"overheating"`
}

// CurrentRates computes net flows without touching the state.
func CurrentRates(st *colony.State) Rates {
	m := resolveModifiers(st)
	hunger := 1 + float64(st.Day)*hungerGrowth
	r := Rates{
		Wood:        float64(st.Workers.Wood)*workerYield*m.woodMult - float64(m.fireWorkers)*fireWorkerBurn,
		Food:        float64(st.Workers.Food)*workerYield*m.foodMult - float64(st.Survivors)*hungerPerHead*hunger,
		Fire:        float64(m.fireWorkers)*m.workerHeat - m.fireDecay,
		Target:      targetTemperature(st, m),
		Overload:    m.overload,
		Overheating: st.FireLevel > overheatAbove,
	}
	if m.overload {
		r.Wood += TicksPerSecond
		r.Food += TicksPerSecond
	}
	return r
}
