// Static tables: shelter tiers, upgrades, artifacts, achievements, scouting.
package colony

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Limits and fixed costs.
const (
	MaxFire          = 150.0
	MaxShelterHealth = 100.0
	MaxHypothermia   = 100.0
	MaxBeacon        = 100.0
	MaxCombo         = 5.0
	MaxShelterLevel  = 5

	StokeCost       = 5.0
	StokeHeat       = 30.0
	StokeHeatEmber  = 40.0
	RepairCost      = 20.0
	RepairAmount    = 20.0
	FlareCost       = 60.0
	FlareDurationMs = 8000.0
	BeaconWoodCost  = 50.0
	BeaconFoodCost  = 30.0
	BeaconStep      = 5.0
)

// Clamp bounds v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Tier describes one shelter level.
type Tier struct {
	Level    int
	Name     string
	Cost     float64 // wood needed to reach this tier
	Capacity int
}

var shelterTiers = [...]Tier{
	{Level: 1, Name: "Campfire", Cost: 0, Capacity: 3},
	{Level: 2, Name: "Outpost", Cost: 100, Capacity: 6},
	{Level: 3, Name: "Colony", Cost: 350, Capacity: 12},
	{Level: 4, Name: "Fortress", Cost: 1000, Capacity: 25},
	{Level: 5, Name: "Citadel", Cost: 5000, Capacity: 50},
}

// ShelterTier returns the tier for a level, clamped to the known range.
func ShelterTier(level int) Tier {
	return shelterTiers[Clamp(level, 1, MaxShelterLevel)-1]
}

// UpgradeID names a purchasable upgrade.
type UpgradeID string

const (
	UpgradeAxes  UpgradeID = "AXES"
	UpgradeTraps UpgradeID = "TRAPS"
	UpgradeCoats UpgradeID = "COATS"
	UpgradeShoes UpgradeID = "SHOES"
)

// UpgradeDef holds an upgrade's pricing.
type UpgradeDef struct {
	ID       UpgradeID
	Name     string
	Desc     string
	BaseWood float64
	BaseFood float64
	CostMult float64
}

// Upgrades lists every upgrade in display order.
var Upgrades = []UpgradeDef{
	{ID: UpgradeAxes, Name: "Steel Axes", Desc: "+20% Wood gathering", BaseWood: 50, BaseFood: 25, CostMult: 1.8},
	{ID: UpgradeTraps, Name: "Hunting Traps", Desc: "+20% Food gathering", BaseWood: 25, BaseFood: 50, CostMult: 1.8},
	{ID: UpgradeCoats, Name: "Fur Coats", Desc: "+1°C insulation", BaseWood: 100, BaseFood: 100, CostMult: 2.2},
	{ID: UpgradeShoes, Name: "Snow Shoes", Desc: "Scouts 15% faster", BaseWood: 60, BaseFood: 40, CostMult: 1.5},
}

// LookupUpgrade finds an upgrade by id.
func LookupUpgrade(id UpgradeID) (UpgradeDef, bool) {
	for _, u := range Upgrades {
		if u.ID == id {
			return u, true
		}
	}
	return UpgradeDef{}, false
}

// Cost returns the wood and food price of the next level.
func (u UpgradeDef) Cost(level int) (wood, food float64) {
	m := math.Pow(u.CostMult, float64(level))
	return math.Floor(u.BaseWood * m), math.Floor(u.BaseFood * m)
}

// ArtifactID names a permanent modifier found by scouts.
type ArtifactID string

const (
	ArtifactFrozenHeart ArtifactID = "FROZEN_HEART"
	ArtifactAncientMap  ArtifactID = "ANCIENT_MAP"
	ArtifactChronoShard ArtifactID = "CHRONO_SHARD"
	ArtifactEverEmber   ArtifactID = "EVER_EMBER"
	ArtifactLuckyCoin   ArtifactID = "LUCKY_COIN"
)

// ArtifactDef describes an artifact.
type ArtifactDef struct {
	ID   ArtifactID
	Name string
	Desc string
}

// Artifacts lists every artifact.
var Artifacts = []ArtifactDef{
	{ID: ArtifactFrozenHeart, Name: "Frozen Heart", Desc: "Fire decays 15% slower"},
	{ID: ArtifactAncientMap, Name: "Ancient Map", Desc: "Scouts travel 30% faster"},
	{ID: ArtifactChronoShard, Name: "Chrono Shard", Desc: "Overload triggers at 4.0x"},
	{ID: ArtifactEverEmber, Name: "Ever Ember", Desc: "Stoking and fire workers burn hotter"},
	{ID: ArtifactLuckyCoin, Name: "Lucky Coin", Desc: "Critical chance doubled"},
}

// LookupArtifact finds an artifact by id.
func LookupArtifact(id ArtifactID) (ArtifactDef, bool) {
	for _, a := range Artifacts {
		if a.ID == id {
			return a, true
		}
	}
	return ArtifactDef{}, false
}

// AchievementID names an achievement.
type AchievementID string

// AchievementDef pairs a predicate with its reward.
type AchievementDef struct {
	ID        AchievementID
	Title     string
	Desc      string
	Condition func(*State) bool
	Reward    Reward
}

// Achievements lists every achievement.
var Achievements = []AchievementDef{
	{
		ID: "FIRST_FLAME", Title: "Keeper of the Flame", Desc: "Raise the fire above 110",
		Condition: func(s *State) bool { return s.FireLevel > 110 },
		Reward:    Reward{Text: "+25 Wood", Wood: 25},
	},
	{
		ID: "SURVIVOR_5", Title: "Hardened", Desc: "Survive 5 days",
		Condition: func(s *State) bool { return s.Day >= 5 },
		Reward:    Reward{Text: "+50 Food", Food: 50},
	},
	{
		ID: "SCOUT", Title: "Into the White", Desc: "Send out a scout",
		Condition: func(s *State) bool { return s.Workers.Scout > 0 },
		Reward:    Reward{Text: "+30 Food", Food: 30},
	},
	{
		ID: "BEACON_START", Title: "Signal Fire", Desc: "Start building the beacon",
		Condition: func(s *State) bool { return s.BeaconProgress > 0 },
		Reward:    Reward{Text: "+100 Wood", Wood: 100},
	},
	{
		ID: "HOARDER", Title: "Hoarder", Desc: "Stockpile 500 wood",
		Condition: func(s *State) bool { return s.Wood >= 500 },
		Reward:    Reward{Text: "+50 Food", Food: 50},
	},
	{
		ID: "POPULATION", Title: "Community", Desc: "Shelter 10 survivors",
		Condition: func(s *State) bool { return s.Survivors >= 10 },
		Reward:    Reward{Text: "+200 Wood", Wood: 200},
	},
	{
		ID: "MAX_FIRE", Title: "Inferno", Desc: "Push the fire to its limit",
		Condition: func(s *State) bool { return s.FireLevel >= 149 },
		Reward:    Reward{Text: "+100 Wood", Wood: 100},
	},
}

// LookupAchievement finds an achievement by id.
func LookupAchievement(id AchievementID) (AchievementDef, bool) {
	for _, a := range Achievements {
		if a.ID == id {
			return a, true
		}
	}
	return AchievementDef{}, false
}

// ScoutRisk selects a scouting tier.
type ScoutRisk string

const (
	RiskLow  ScoutRisk = "LOW"
	RiskMed  ScoutRisk = "MED"
	RiskHigh ScoutRisk = "HIGH"
)

// Next rotates LOW -> MED -> HIGH -> LOW.
func (r ScoutRisk) Next() ScoutRisk {
	switch r {
	case RiskLow:
		return RiskMed
	case RiskMed:
		return RiskHigh
	default:
		return RiskLow
	}
}

// ScoutProfile holds the odds for one risk tier.
type ScoutProfile struct {
	Death      float64
	Find       float64 // cumulative with Death
	RewardMult float64
	DurationMs float64
	Artifact   float64 // chance a find is an artifact
}

// Profile returns the odds for a tier. Unknown tiers use MED.
func (r ScoutRisk) Profile() ScoutProfile {
	switch r {
	case RiskLow:
		return ScoutProfile{Death: 0.02, Find: 0.5, RewardMult: 0.6, DurationMs: 3000, Artifact: 0.05}
	case RiskHigh:
		return ScoutProfile{Death: 0.25, Find: 0.85, RewardMult: 2, DurationMs: 5000, Artifact: 0.3}
	default:
		return ScoutProfile{Death: 0.1, Find: 0.7, RewardMult: 1, DurationMs: 4000, Artifact: 0.05}
	}
}
