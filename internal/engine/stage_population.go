// Sickness, hypothermia, desertion and workforce reconciliation.
package engine

import (
	"math"

	"github.com/talgya/frost-haven/internal/colony"
)

const (
	sickBelow        = 5.0
	sickRate         = 0.0005
	recoverAbove     = 15.0
	recoverRate      = 0.001
	sickDeathChance  = 0.0005
	hypothermiaBelow = 6.0
	hypothermiaRise  = 0.3
	hypothermiaFall  = 4.0
	desertBelow      = -20.0
	desertChance     = 0.02
)

func (s *Simulation) coldInjury() {
	st := s.State
	t := st.Temperature

	if t < sickBelow && st.Healthy() > 0 && s.chance((sickBelow-t)*sickRate) {
		st.Sick++
		s.record("sickness", "Crew member ill.")
		s.float("SICKNESS!", 50, 50, StyleDanger)
	}
	if t > recoverAbove && st.Sick > 0 && s.chance((t-recoverAbove)*recoverRate) {
		st.Sick--
		s.record("sickness", "A sick crew member recovered.")
		s.float("RECOVERED", 50, 50, StyleReward)
	}
	if st.Sick > 0 && s.chance(sickDeathChance) {
		st.Sick--
		s.kill("A sick survivor succumbed.")
		s.float("SUCCUMBED", 50, 50, StyleDanger)
	}

	if t < hypothermiaBelow {
		st.Hypothermia = math.Min(colony.MaxHypothermia, st.Hypothermia+hypothermiaRise)
	} else {
		st.Hypothermia = math.Max(0, st.Hypothermia-hypothermiaFall)
	}
	if st.Hypothermia >= colony.MaxHypothermia {
		st.Hypothermia = 0
		s.kill("FROZEN TO DEATH")
		s.float("FROZEN", 50, 50, StyleDanger)
	}
}

// desertion sends one worker from a staffed post back to idle.
func (s *Simulation) desertion() {
	st := s.State
	if st.Temperature >= desertBelow || !s.chance(desertChance) {
		return
	}
	var staffed []colony.Role
	for _, r := range []colony.Role{colony.RoleWood, colony.RoleFood, colony.RoleFire} {
		if st.Workers.Get(r) > 0 {
			staffed = append(staffed, r)
		}
	}
	if len(staffed) == 0 {
		return
	}
	st.Workers.Add(staffed[s.pick(len(staffed))], -1)
	s.record("threat", "Worker abandoned post due to cold!")
	s.float("TOO COLD!", 50, 50, StyleInfo)
}

// reconcile restores the population invariants after anything that
// changes headcount.
func (s *Simulation) reconcile() {
	st := s.State
	st.Survivors = max(0, st.Survivors)
	st.Sick = colony.Clamp(st.Sick, 0, st.Survivors)
	st.ShedWorkers(st.WolvesActive)
	st.Stats.MaxSurvivors = max(st.Stats.MaxSurvivors, st.Survivors)
}
