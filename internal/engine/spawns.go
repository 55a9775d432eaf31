// Transient collectibles: supply drops, fire spirits, golden snowflakes.
package engine

import "github.com/talgya/frost-haven/internal/colony"

const (
	supplyDropChance   = 1.0 / (60 * TicksPerSecond)
	fireSpiritChance   = 1.0 / (30 * TicksPerSecond)
	snowflakeChance    = 1.0 / (300 * TicksPerSecond)
	supplyDropTTL      = 15 * TicksPerSecond
	fireSpiritTTL      = 8 * TicksPerSecond
	snowflakeTTL       = 5 * TicksPerSecond
	fireSpiritAbove    = 50.0 // hypothermia needed before spirits appear
	spawnMargin        = 10.0
	spawnArea          = 80.0
	supplyDropBase     = 50
	supplyDropSpread   = 50
	fireSpiritWood     = 50.0
	fireSpiritWarmth   = 20.0
	snowflakeResources = 200.0
	snowflakeScore     = 1000
)

func (s *Simulation) updateSpawns() {
	st := s.State
	st.SupplyDrop = age(st.SupplyDrop)
	st.FireSpirit = age(st.FireSpirit)
	st.GoldenSnowflake = age(st.GoldenSnowflake)

	if st.SupplyDrop == nil && s.chance(supplyDropChance) {
		kind := colony.SpawnFood
		if s.random() < 0.5 {
			kind = colony.SpawnWood
		}
		st.SupplyDrop = s.spawn(kind, supplyDropTTL)
		s.record("spawn", "A supply drop is falling.")
		s.float("SUPPLY DROP", st.SupplyDrop.X, st.SupplyDrop.Y, StyleInfo)
	}
	if st.FireSpirit == nil && st.Hypothermia > fireSpiritAbove && s.chance(fireSpiritChance) {
		st.FireSpirit = s.spawn("", fireSpiritTTL)
		s.float("FIRE SPIRIT", st.FireSpirit.X, st.FireSpirit.Y, StyleFire)
	}
	if st.GoldenSnowflake == nil && s.chance(snowflakeChance) {
		st.GoldenSnowflake = s.spawn("", snowflakeTTL)
	}
}

func (s *Simulation) spawn(kind colony.SpawnKind, ttl int) *colony.Spawn {
	return &colony.Spawn{
		ID:   s.NewID(),
		X:    spawnMargin + s.random()*spawnArea,
		Y:    spawnMargin + s.random()*spawnArea,
		Kind: kind,
		TTL:  ttl,
	}
}

// age counts a spawn down and drops it when it expires.
func age(sp *colony.Spawn) *colony.Spawn {
	if sp == nil {
		return nil
	}
	sp.TTL--
	if sp.TTL <= 0 {
		return nil
	}
	return sp
}
