// Shelter wear, meteor showers, wolves and raids.
package engine

import (
	"fmt"
	"math"
)

const (
	meteorFromDay  = 3
	meteorStart    = 1.0 / (90 * TicksPerSecond)
	meteorEnd      = 1.0 / (15 * TicksPerSecond)
	meteorDamage   = 15.0
	wolfFireBelow  = 30.0
	raidFireBelow  = 40.0
	threatFromDay  = 2
	wolfTheft      = 5.0
	wolfGuardsSafe = 10
	raidChance     = 0.5 / TicksPerSecond
	raidDamage     = 10.0
)

func (s *Simulation) structuralDecay(m modifiers) {
	st := s.State
	p := 0.02
	switch {
	case st.IsBlizzard:
		p = 0.3
	case m.night:
		p = 0.1
	}
	if s.chance(p) {
		s.damageShelter(0.5)
	}
}

func (s *Simulation) damageShelter(amount float64) {
	st := s.State
	st.ShelterHealth = math.Max(0, st.ShelterHealth-amount)
}

func (s *Simulation) meteorShower() {
	st := s.State
	if !st.IsMeteorShower && st.Day > meteorFromDay && s.chance(meteorStart) {
		st.IsMeteorShower = true
		s.record("threat", "METEOR SHOWER INBOUND!")
		s.float("METEORS", 50, 30, StyleDanger)
		s.cue(CueEvent)
	}
	if st.IsMeteorShower && s.chance(meteorEnd) {
		st.IsMeteorShower = false
	}
	if st.IsMeteorShower && s.chance(0.2) && s.chance(0.3) {
		s.damageShelter(meteorDamage)
		s.float(fmt.Sprintf("-%.0f HP", meteorDamage), 50, 60, StyleDanger)
		s.cue(CueAlert)
	}
}

// nightThreats runs the wolf checks, or the raid check when no pack is
// circling. At most one of them can cost a life per tick.
func (s *Simulation) nightThreats(m modifiers) {
	st := s.State
	st.WolvesActive = m.night && st.FireLevel < wolfFireBelow && st.Day > threatFromDay
	if st.WolvesActive {
		if s.chance(0.1) {
			st.AddWood(-wolfTheft)
			s.float("-5 Wood", 20, 50, StyleDanger)
		}
		danger := max(0, wolfGuardsSafe-st.Workers.Wood)
		if danger > 0 && s.chance(float64(danger)*0.005) {
			s.kill("Wolf attack! Guard required!")
			s.float("KILLED BY WOLVES", 50, 50, StyleDanger)
		}
	}

	if m.night && !st.WolvesActive && st.FireLevel < raidFireBelow && st.Day > threatFromDay && s.chance(raidChance) {
		stolen := math.Min(st.Food, math.Floor(s.random()*40+10))
		st.AddFood(-stolen)
		s.damageShelter(raidDamage)
		s.record("threat", "Raiders took %.0f food.", stolen)
		s.float("RAID!", 50, 50, StyleDanger)
		s.float(fmt.Sprintf("-%.0f HP", raidDamage), 50, 60, StyleDanger)
		s.cue(CueAlert)
		if st.Survivors > 1 && s.chance(0.1) {
			s.kill("Survivor taken by shadows.")
		}
	}
}

// kill removes one survivor and logs why.
func (s *Simulation) kill(reason string) {
	st := s.State
	if st.Survivors <= 0 {
		return
	}
	st.Survivors--
	s.record("death", "%s", reason)
	s.cue(CueDeath)
}
