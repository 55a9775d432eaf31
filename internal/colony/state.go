// Package colony defines the colony state record shared by the engine,
// the dispatcher and the persistence layer.
package colony

import (
	"math"
	"slices"
)

// Role is a worker assignment.
type Role string

const (
	RoleWood  Role = "wood"
	RoleFood  Role = "food"
	RoleFire  Role = "fire"
	RoleScout Role = "scout"
)

// Workers counts survivors assigned to each role.
type Workers struct {
	Wood  int `json:"wood"`
	Food  int `json:"food"`
	Fire  int `json:"fire"`
	Scout int `json:"scout"`
}

// Total returns the number of assigned survivors.
func (w Workers) Total() int {
	return w.Wood + w.Food + w.Fire + w.Scout
}

// Get returns the count for a role. Unknown roles report 0.
func (w Workers) Get(r Role) int {
	switch r {
	case RoleWood:
		return w.Wood
	case RoleFood:
		return w.Food
	case RoleFire:
		return w.Fire
	case RoleScout:
		return w.Scout
	}
	return 0
}

// Add adjusts a role's count by delta, flooring at zero.
func (w *Workers) Add(r Role, delta int) {
	var p *int
	switch r {
	case RoleWood:
		p = &w.Wood
	case RoleFood:
		p = &w.Food
	case RoleFire:
		p = &w.Fire
	case RoleScout:
		p = &w.Scout
	default:
		return
	}
	*p = max(0, *p+delta)
}

// Stats are monotonic counters kept for the end screen.
type Stats struct {
	TotalWoodGathered float64 `json:"total_wood_gathered"`
	TotalFoodGathered float64 `json:"total_food_gathered"`
	MaxSurvivors      int     `json:"max_survivors"`
	DaysSurvived      int     `json:"days_survived"`
	Clicks            int     `json:"clicks"`
}

// Reward is a fixed-shape resource delta. Zero fields mean no change.
type Reward struct {
	Text      string  `json:"text,omitempty"`
	Wood      float64 `json:"wood,omitempty"`
	Food      float64 `json:"food,omitempty"`
	Survivors int     `json:"survivors,omitempty"`
	TempBoost float64 `json:"temp_boost,omitempty"`
	FireLevel float64 `json:"fire_level,omitempty"`
	Score     int     `json:"score,omitempty"`
}

// MissionKind names the goal of a timed mission.
type MissionKind string

const (
	MissionGatherWood MissionKind = "GATHER_WOOD"
	MissionGatherFood MissionKind = "GATHER_FOOD"
	MissionClicks     MissionKind = "CLICKS"
)

// Mission is a timed objective. TimeLeft counts ticks.
type Mission struct {
	ID          string      `json:"id"`
	Kind        MissionKind `json:"type"`
	Description string      `json:"description"`
	Target      float64     `json:"target"`
	Current     float64     `json:"current"`
	TimeLeft    int         `json:"time_left"`
	Reward      Reward      `json:"reward"`
}

// Done reports whether the target has been reached.
func (m *Mission) Done() bool {
	return m.Current >= m.Target
}

// SpawnKind distinguishes collectible types.
type SpawnKind string

const (
	SpawnWood SpawnKind = "WOOD"
	SpawnFood SpawnKind = "FOOD"
)

// Spawn is a transient collectible at a normalized 0..100 position.
// Kind is only meaningful for supply drops. TTL counts ticks.
type Spawn struct {
	ID   string    `json:"id"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
	Kind SpawnKind `json:"kind,omitempty"`
	TTL  int       `json:"ttl"`
}

// State is the single mutable colony record.
type State struct {
	Wood      float64 `json:"wood"`
	Food      float64 `json:"food"`
	Survivors int     `json:"survivors"`
	Sick      int     `json:"sick"`

	Temperature float64 `json:"temperature"`
	FireLevel   float64 `json:"fire_level"`
	Hypothermia float64 `json:"hypothermia"`

	Day       int     `json:"day"`
	TimeOfDay float64 `json:"time_of_day"`

	ShelterLevel  int     `json:"shelter_level"`
	ShelterHealth float64 `json:"shelter_health"`

	Workers   Workers   `json:"workers"`
	ScoutRisk ScoutRisk `json:"scout_risk"`

	IsBlizzard     bool `json:"is_blizzard"`
	IsMeteorShower bool `json:"is_meteor_shower"`
	WolvesActive   bool `json:"wolves_active"`
	ColdSnap       bool `json:"cold_snap"`

	ScoutTimer  float64 `json:"scout_timer"`
	SignalTimer float64 `json:"signal_timer"`
	ComboTimer  float64 `json:"combo_timer"`

	ComboMultiplier float64 `json:"combo_multiplier"`

	Upgrades             map[UpgradeID]int `json:"upgrades"`
	BeaconProgress       float64           `json:"beacon_progress"`
	Artifacts            []ArtifactID      `json:"artifacts"`
	Achievements         []AchievementID   `json:"achievements"`
	UnlockedAchievements []AchievementID   `json:"unlocked_achievements"`

	SupplyDrop      *Spawn `json:"supply_drop"`
	FireSpirit      *Spawn `json:"fire_spirit"`
	GoldenSnowflake *Spawn `json:"golden_snowflake"`

	ActiveMission *Mission `json:"active_mission"`

	Stats Stats `json:"stats"`
	Score int   `json:"score"`
}

// NewState returns the starting colony.
func NewState() *State {
	return &State{
		Wood:            15,
		Food:            15,
		Survivors:       3,
		Temperature:     10,
		FireLevel:       100,
		Day:             1,
		TimeOfDay:       30,
		ShelterLevel:    1,
		ShelterHealth:   100,
		ScoutRisk:       RiskMed,
		ComboMultiplier: 1,
		Upgrades: map[UpgradeID]int{
			UpgradeAxes:  0,
			UpgradeTraps: 0,
			UpgradeCoats: 0,
			UpgradeShoes: 0,
		},
		Artifacts:            []ArtifactID{},
		Achievements:         []AchievementID{},
		UnlockedAchievements: []AchievementID{},
		Stats:                Stats{MaxSurvivors: 3},
	}
}

// Healthy returns the survivors fit to work.
func (s *State) Healthy() int {
	return max(0, s.Survivors-s.Sick)
}

// Idle returns the healthy survivors not assigned to any role. Both the
// dispatcher and the reconciliation stage use it.
func (s *State) Idle() int {
	return max(0, s.Healthy()-s.Workers.Total())
}

// IsNight reports whether the clock is in the cold part of the day.
func (s *State) IsNight() bool {
	return s.TimeOfDay < 20 || s.TimeOfDay > 80
}

// Capacity returns the population cap of the current shelter tier.
func (s *State) Capacity() int {
	return ShelterTier(s.ShelterLevel).Capacity
}

// Level returns an upgrade's level.
func (s *State) Level(id UpgradeID) int {
	return s.Upgrades[id]
}

// Has reports whether an artifact has been found.
func (s *State) Has(id ArtifactID) bool {
	return slices.Contains(s.Artifacts, id)
}

// Unlocked reports whether an achievement is eligible to claim or claimed.
func (s *State) Unlocked(id AchievementID) bool {
	return slices.Contains(s.UnlockedAchievements, id)
}

// Claimed reports whether an achievement's reward has been granted.
func (s *State) Claimed(id AchievementID) bool {
	return slices.Contains(s.Achievements, id)
}

// AddWood adjusts wood, keeping it non-negative.
func (s *State) AddWood(delta float64) {
	s.Wood = math.Max(0, s.Wood+delta)
}

// AddFood adjusts food, keeping it non-negative.
func (s *State) AddFood(delta float64) {
	s.Food = math.Max(0, s.Food+delta)
}

// AddFire adjusts the fire, keeping it in range.
func (s *State) AddFire(delta float64) {
	s.FireLevel = Clamp(s.FireLevel+delta, 0, MaxFire)
}

// Apply adds a reward's deltas to the state. Survivors never drop below 0;
// the caller reconciles the workforce afterwards.
func (s *State) Apply(r Reward) {
	s.AddWood(r.Wood)
	s.AddFood(r.Food)
	s.Survivors = max(0, s.Survivors+r.Survivors)
	s.Temperature += r.TempBoost
	s.AddFire(r.FireLevel)
	s.Score += r.Score
}

// Clone returns a deep copy suitable for handing to another goroutine.
func (s *State) Clone() *State {
	c := *s
	c.Upgrades = make(map[UpgradeID]int, len(s.Upgrades))
	for k, v := range s.Upgrades {
		c.Upgrades[k] = v
	}
	c.Artifacts = slices.Clone(s.Artifacts)
	c.Achievements = slices.Clone(s.Achievements)
	c.UnlockedAchievements = slices.Clone(s.UnlockedAchievements)
	if s.SupplyDrop != nil {
		v := *s.SupplyDrop
		c.SupplyDrop = &v
	}
	if s.FireSpirit != nil {
		v := *s.FireSpirit
		c.FireSpirit = &v
	}
	if s.GoldenSnowflake != nil {
		v := *s.GoldenSnowflake
		c.GoldenSnowflake = &v
	}
	if s.ActiveMission != nil {
		v := *s.ActiveMission
		c.ActiveMission = &v
	}
	return &c
}
