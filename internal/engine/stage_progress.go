// Missions, combo decay, scouting, beacon and flares.
package engine

import (
	"fmt"
	"math"

	"github.com/talgya/frost-haven/internal/colony"
)

const (
	missionChance   = 1.0 / (15 * TicksPerSecond)
	missionSeconds  = 30
	clicksSeconds   = 15
	clicksTarget    = 30
	missionReward   = 150.0
	comboStep       = 0.1
	comboWindowMs   = 3000.0
	beaconBlizzard  = 0.2 / TicksPerSecond
	flareRecruitOdd = 0.5
)

func (s *Simulation) updateMission(g gains) {
	st := s.State
	if st.ActiveMission == nil && s.chance(missionChance) {
		st.ActiveMission = s.newMission()
		s.record("mission", "Order: %s", st.ActiveMission.Description)
		s.cue(CueEvent)
	}

	m := st.ActiveMission
	if m == nil {
		return
	}
	m.TimeLeft--
	switch m.Kind {
	case colony.MissionGatherWood:
		m.Current += g.wood
	case colony.MissionGatherFood:
		m.Current += g.food
	}

	switch {
	case m.Done():
		st.Apply(m.Reward)
		st.ActiveMission = nil
		s.record("mission", "Mission complete: %s.", m.Reward.Text)
		s.float("MISSION COMPLETE", 50, 40, StyleReward)
		s.cue(CueAchievement)
	case m.TimeLeft <= 0:
		st.ActiveMission = nil
		s.record("mission", "Mission Failed.")
	}
}

func (s *Simulation) newMission() *colony.Mission {
	st := s.State
	m := &colony.Mission{
		ID:       s.NewID(),
		TimeLeft: missionSeconds * TicksPerSecond,
		Reward:   colony.Reward{Text: "SUPPLIES", Wood: missionReward, Food: missionReward},
	}
	roll := s.random()
	switch {
	case roll < 0.33:
		m.Kind = colony.MissionGatherWood
		m.Target = float64(100 + st.Day*10)
		m.Description = fmt.Sprintf("Gather %.0f Wood", m.Target)
	case roll < 0.66:
		m.Kind = colony.MissionGatherFood
		m.Target = float64(100 + st.Day*10)
		m.Description = fmt.Sprintf("Gather %.0f Food", m.Target)
	default:
		m.Kind = colony.MissionClicks
		m.Target = clicksTarget
		m.Description = fmt.Sprintf("Manual Actions: %d", clicksTarget)
		m.TimeLeft = clicksSeconds * TicksPerSecond
	}
	return m
}

func (s *Simulation) decayCombo() {
	st := s.State
	if st.ComboTimer > 0 {
		st.ComboTimer = math.Max(0, st.ComboTimer-TickMs)
		return
	}
	if st.ComboMultiplier > 1 {
		st.ComboMultiplier = math.Max(1, st.ComboMultiplier-comboStep)
	}
}

func (s *Simulation) advanceScout(m modifiers) {
	st := s.State
	if st.Workers.Scout <= 0 {
		return
	}
	st.ScoutTimer -= TickMs * m.scoutSpeed
	if st.ScoutTimer > 0 {
		return
	}
	st.ScoutTimer = 0
	s.resolveScout()
	st.Workers.Scout = 0
}

func (s *Simulation) resolveScout() {
	st := s.State
	p := st.ScoutRisk.Profile()
	mult := (1 + float64(st.Day)*0.1) * p.RewardMult

	roll := s.random()
	switch {
	case roll < p.Death:
		s.kill("Scout died.")
		s.float("SCOUT LOST", 50, 50, StyleDanger)
	case roll < p.Find:
		var missing []colony.ArtifactDef
		for _, a := range colony.Artifacts {
			if !st.Has(a.ID) {
				missing = append(missing, a)
			}
		}
		if len(missing) > 0 && s.chance(p.Artifact) {
			art := missing[s.pick(len(missing))]
			st.Artifacts = append(st.Artifacts, art.ID)
			s.record("scout", "Scout found %s!", art.Name)
			s.float("ARTIFACT!", 50, 40, StyleReward)
			s.cue(CueAchievement)
			return
		}
		wood := s.random() < 0.5
		amt := math.Floor((s.random()*80 + 30) * mult)
		if wood {
			st.AddWood(amt)
			s.record("scout", "Scout found %.0f Wood.", amt)
		} else {
			st.AddFood(amt)
			s.record("scout", "Scout found %.0f Food.", amt)
		}
	default:
		s.record("scout", "Scout found nothing.")
	}
}

func (s *Simulation) decayBeacon() {
	st := s.State
	if st.IsBlizzard && st.BeaconProgress > 0 {
		st.BeaconProgress = math.Max(0, st.BeaconProgress-beaconBlizzard)
	}
}

func (s *Simulation) advanceFlare() {
	st := s.State
	if st.SignalTimer <= 0 {
		return
	}
	st.SignalTimer -= TickMs
	if st.SignalTimer > 0 {
		return
	}
	st.SignalTimer = 0
	if s.chance(flareRecruitOdd) && st.Survivors < st.Capacity() {
		st.Survivors++
		s.record("signal", "Flare success! +1 Survivor")
		s.float("RECRUITED", 50, 30, StyleReward)
		return
	}
	s.record("signal", "Flare failed.")
}
