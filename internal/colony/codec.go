// Snapshot encoding. Decoding starts from the initial colony so any field
// missing from the snapshot keeps its starting value.
package colony

import (
	"encoding/json"
	"fmt"
	"math"
)

// Encode serializes the state as a flat JSON record.
func Encode(s *State) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// Decode restores a state from a snapshot, filling absent fields with
// initial values and resetting transient threats and timers.
func Decode(data []byte) (*State, error) {
	s := NewState()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	s.Normalize()
	s.ResetTransient()
	return s, nil
}

// ResetTransient clears per-session effects that are not carried across
// a reload.
func (s *State) ResetTransient() {
	s.ComboMultiplier = 1
	s.ComboTimer = 0
	s.SignalTimer = 0
	s.SupplyDrop = nil
	s.FireSpirit = nil
	s.GoldenSnowflake = nil
	s.IsMeteorShower = false
	s.WolvesActive = false
}

// Normalize repairs out-of-range or missing values in place.
func (s *State) Normalize() {
	if s.Upgrades == nil {
		s.Upgrades = make(map[UpgradeID]int, len(Upgrades))
	}
	for _, u := range Upgrades {
		s.Upgrades[u.ID] = max(0, s.Upgrades[u.ID])
	}
	if s.Artifacts == nil {
		s.Artifacts = []ArtifactID{}
	}
	if s.Achievements == nil {
		s.Achievements = []AchievementID{}
	}
	if s.UnlockedAchievements == nil {
		s.UnlockedAchievements = []AchievementID{}
	}
	switch s.ScoutRisk {
	case RiskLow, RiskMed, RiskHigh:
	default:
		s.ScoutRisk = RiskMed
	}

	s.Wood = finite(math.Max(0, s.Wood))
	s.Food = finite(math.Max(0, s.Food))
	s.FireLevel = Clamp(finite(s.FireLevel), 0, MaxFire)
	s.Hypothermia = Clamp(finite(s.Hypothermia), 0, MaxHypothermia)
	s.ShelterHealth = Clamp(finite(s.ShelterHealth), 0, MaxShelterHealth)
	s.BeaconProgress = Clamp(finite(s.BeaconProgress), 0, MaxBeacon)
	s.ComboMultiplier = Clamp(finite(s.ComboMultiplier), 1, MaxCombo)
	s.Temperature = finite(s.Temperature)
	s.ShelterLevel = Clamp(s.ShelterLevel, 1, MaxShelterLevel)
	s.Day = max(1, s.Day)
	if s.TimeOfDay < 0 || s.TimeOfDay >= 100 || math.IsNaN(s.TimeOfDay) {
		s.TimeOfDay = 0
	}
	s.ScoutTimer = math.Max(0, finite(s.ScoutTimer))

	s.Survivors = max(0, s.Survivors)
	s.Sick = Clamp(s.Sick, 0, s.Survivors)
	s.Workers.Wood = max(0, s.Workers.Wood)
	s.Workers.Food = max(0, s.Workers.Food)
	s.Workers.Fire = max(0, s.Workers.Fire)
	s.Workers.Scout = max(0, s.Workers.Scout)
	s.ShedWorkers(false)
	s.Stats.MaxSurvivors = max(s.Stats.MaxSurvivors, s.Survivors)
}

// ShedWorkers unassigns workers until the workforce fits the healthy
// population. Wood workers guard against wolves, so while guarding they
// are released after fire workers instead of first.
func (s *State) ShedWorkers(guarding bool) {
	order := []Role{RoleWood, RoleFood, RoleFire, RoleScout}
	if guarding {
		order = []Role{RoleFood, RoleFire, RoleWood, RoleScout}
	}
	excess := s.Workers.Total() - s.Healthy()
	for _, r := range order {
		if excess <= 0 {
			return
		}
		n := min(excess, s.Workers.Get(r))
		s.Workers.Add(r, -n)
		excess -= n
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
