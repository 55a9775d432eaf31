// Action dispatcher. Every action validates first and then applies fully,
// or returns a rejection and leaves the state untouched.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/frost-haven/internal/colony"
)

// Rejection reasons.
var (
	ErrNotPlaying       = errors.New("game is not in progress")
	ErrEventPending     = errors.New("an event is awaiting a choice")
	ErrNoEvent          = errors.New("no event is awaiting a choice")
	ErrBadOption        = errors.New("no such option")
	ErrInsufficient     = errors.New("insufficient resources")
	ErrNoIdle           = errors.New("no idle survivors")
	ErrNoWorkers        = errors.New("no workers in that role")
	ErrBadRole          = errors.New("role cannot be assigned")
	ErrScoutOut         = errors.New("scout already deployed")
	ErrFlareInFlight    = errors.New("flare already in flight")
	ErrShelterIntact    = errors.New("shelter already at full health")
	ErrMaxLevel         = errors.New("shelter at maximum tier")
	ErrUnknown          = errors.New("unknown id")
	ErrNotUnlocked      = errors.New("achievement not unlocked")
	ErrAlreadyClaimed   = errors.New("achievement already claimed")
	ErrNoSpawn          = errors.New("nothing to collect")
	ErrBeaconComplete   = errors.New("beacon already complete")
	ErrBeaconIncomplete = errors.New("beacon not complete")
)

var rejectLabels = []struct {
	err   error
	label string
}{
	{ErrInsufficient, "MISSING MATS"},
	{ErrNoIdle, "NO IDLE SURVIVORS"},
	{ErrScoutOut, "SCOUT AWAY"},
	{ErrFlareInFlight, "FLARE IN FLIGHT"},
	{ErrShelterIntact, "SHELTER INTACT"},
	{ErrMaxLevel, "MAX TIER"},
	{ErrBeaconIncomplete, "BEACON INCOMPLETE"},
}

// Fixed action constants.
const (
	CriticalChance = 0.05
	JackpotChance  = 0.01
	CriticalMult   = 5.0
	JackpotMult    = 10.0
)

// act runs fn when the game accepts actions. On success the workforce is
// reconciled and achievements re-evaluated; on failure the player gets a
// rejection cue.
func (s *Simulation) act(name string, allowDuringEvent bool, fn func() error) error {
	var err error
	switch {
	case s.Phase != PhasePlaying:
		err = ErrNotPlaying
	case !allowDuringEvent && s.Injector.Blocking():
		err = ErrEventPending
	default:
		err = fn()
	}
	if err != nil {
		s.reject(err)
		return fmt.Errorf("%s: %w", name, err)
	}
	s.reconcile()
	s.evaluateAchievements()
	return nil
}

func (s *Simulation) reject(err error) {
	label := "CAN'T DO THAT"
	for _, r := range rejectLabels {
		if errors.Is(err, r.err) {
			label = r.label
			break
		}
	}
	s.float(label, 50, 50, StyleReject)
	s.cue(CueAlert)
	slog.Debug("action rejected", "reason", err)
}

// countClick records a manual action for stats and click missions.
func (s *Simulation) countClick() {
	st := s.State
	st.Stats.Clicks++
	if m := st.ActiveMission; m != nil && m.Kind == colony.MissionClicks {
		m.Current++
	}
}

// AssignWorker moves delta survivors into (or out of) a production role.
func (s *Simulation) AssignWorker(role colony.Role, delta int) error {
	return s.act("assign worker", false, func() error {
		st := s.State
		switch role {
		case colony.RoleWood, colony.RoleFood, colony.RoleFire:
		default:
			return ErrBadRole
		}
		if delta > 0 && st.Idle() < delta {
			return ErrNoIdle
		}
		if delta < 0 && st.Workers.Get(role) < -delta {
			return ErrNoWorkers
		}
		st.Workers.Add(role, delta)
		s.cue(CueClick)
		return nil
	})
}

// Yield describes a manual gather.
type Yield struct {
	Resource colony.Role `json:"resource"`
	Amount   float64     `json:"amount"`
	Critical bool        `json:"critical"`
	Jackpot  bool        `json:"jackpot"`
}

// Gather collects wood or food by hand. The crit roll is drawn before the
// jackpot roll; a jackpot overrides a crit.
func (s *Simulation) Gather(resource colony.Role) (Yield, error) {
	y := Yield{Resource: resource}
	err := s.act("gather", false, func() error {
		st := s.State
		var level int
		switch resource {
		case colony.RoleWood:
			level = st.Level(colony.UpgradeAxes)
		case colony.RoleFood:
			level = st.Level(colony.UpgradeTraps)
		default:
			return ErrBadRole
		}

		critChance := CriticalChance
		if st.ComboMultiplier > 4 {
			critChance *= 2
		}
		if st.Has(colony.ArtifactLuckyCoin) {
			critChance *= 2
		}
		mult := 1.0
		if s.chance(critChance) {
			y.Critical = true
			mult = CriticalMult
		}
		if s.chance(JackpotChance) {
			y.Critical, y.Jackpot = true, true
			mult = JackpotMult
		}
		overheat := 1.0
		if st.FireLevel > overheatAbove {
			overheat = overheatMult
		}

		y.Amount = (1 + float64(level)*0.5) * st.ComboMultiplier * mult * overheat
		x, style := 20.0, StyleWood
		if resource == colony.RoleWood {
			st.AddWood(y.Amount)
			st.Stats.TotalWoodGathered += y.Amount
		} else {
			st.AddFood(y.Amount)
			st.Stats.TotalFoodGathered += y.Amount
			x, style = 80, StyleFood
		}
		st.ComboMultiplier = math.Min(colony.MaxCombo, st.ComboMultiplier+comboStep)
		st.ComboTimer = comboWindowMs
		s.countClick()

		switch {
		case y.Jackpot:
			s.float(fmt.Sprintf("JACKPOT! +%.0f", y.Amount), x, 65, StyleJackpot)
			s.cue(CueJackpot)
		case y.Critical:
			s.float(fmt.Sprintf("CRIT! +%.0f", y.Amount), x, 65, StyleCritical)
			s.cue(CueCritical)
		default:
			s.float(fmt.Sprintf("+%.1f", y.Amount), x, 65, style)
			s.cue(CueGather)
		}
		return nil
	})
	return y, err
}

// Stoke feeds the fire by hand.
func (s *Simulation) Stoke() error {
	return s.act("stoke", false, func() error {
		st := s.State
		if st.Wood < colony.StokeCost {
			return ErrInsufficient
		}
		heat := colony.StokeHeat
		if st.Has(colony.ArtifactEverEmber) {
			heat = colony.StokeHeatEmber
		}
		st.AddWood(-colony.StokeCost)
		st.AddFire(heat)
		s.countClick()
		s.float("FUEL ADDED", 50, 60, StyleFire)
		s.cue(CueStoke)
		return nil
	})
}

// RepairShelter patches the shelter.
func (s *Simulation) RepairShelter() error {
	return s.act("repair shelter", false, func() error {
		st := s.State
		if st.ShelterHealth >= colony.MaxShelterHealth {
			return ErrShelterIntact
		}
		if st.Wood < colony.RepairCost {
			return ErrInsufficient
		}
		st.AddWood(-colony.RepairCost)
		st.ShelterHealth = math.Min(colony.MaxShelterHealth, st.ShelterHealth+colony.RepairAmount)
		s.float(fmt.Sprintf("+%.0f HP", colony.RepairAmount), 50, 60, StyleReward)
		s.cue(CueCraft)
		return nil
	})
}

// SendScout dispatches an idle survivor at the current risk tier.
func (s *Simulation) SendScout() error {
	return s.act("send scout", false, func() error {
		st := s.State
		if st.Workers.Scout > 0 {
			return ErrScoutOut
		}
		if st.Idle() <= 0 {
			return ErrNoIdle
		}
		st.Workers.Scout = 1
		st.ScoutTimer = st.ScoutRisk.Profile().DurationMs
		s.record("scout", "Scout deployed (%s risk).", st.ScoutRisk)
		s.cue(CueClick)
		return nil
	})
}

// CycleScoutRisk rotates the scouting tier.
func (s *Simulation) CycleScoutRisk() (colony.ScoutRisk, error) {
	err := s.act("cycle scout risk", false, func() error {
		s.State.ScoutRisk = s.State.ScoutRisk.Next()
		s.cue(CueClick)
		return nil
	})
	return s.State.ScoutRisk, err
}

// LaunchFlare fires a signal flare that may recruit a survivor.
func (s *Simulation) LaunchFlare() error {
	return s.act("launch flare", false, func() error {
		st := s.State
		if st.SignalTimer > 0 {
			return ErrFlareInFlight
		}
		if st.Wood < colony.FlareCost {
			return ErrInsufficient
		}
		st.AddWood(-colony.FlareCost)
		st.SignalTimer = colony.FlareDurationMs
		s.float("FLARE LAUNCHED", 50, 20, StyleInfo)
		s.cue(CueCraft)
		return nil
	})
}

// PurchaseUpgrade buys the next level of an upgrade.
func (s *Simulation) PurchaseUpgrade(id colony.UpgradeID) error {
	return s.act("purchase upgrade", false, func() error {
		st := s.State
		def, ok := colony.LookupUpgrade(id)
		if !ok {
			return fmt.Errorf("%w: upgrade %q", ErrUnknown, id)
		}
		level := st.Level(id)
		wood, food := def.Cost(level)
		if st.Wood < wood || st.Food < food {
			return ErrInsufficient
		}
		st.AddWood(-wood)
		st.AddFood(-food)
		st.Upgrades[id] = level + 1
		s.record("upgrade", "Upgraded %s to Lv %d", def.Name, level+1)
		s.float("UPGRADE COMPLETE", 50, 50, StyleReward)
		s.cue(CueCraft)
		return nil
	})
}

// UpgradeShelter expands the shelter to the next tier.
func (s *Simulation) UpgradeShelter() error {
	return s.act("upgrade shelter", false, func() error {
		st := s.State
		if st.ShelterLevel >= colony.MaxShelterLevel {
			return ErrMaxLevel
		}
		next := colony.ShelterTier(st.ShelterLevel + 1)
		if st.Wood < next.Cost {
			return ErrInsufficient
		}
		st.AddWood(-next.Cost)
		st.ShelterLevel = next.Level
		s.record("upgrade", "Base Expanded: %s.", next.Name)
		s.float("BASE EXPANDED", 50, 50, StyleReward)
		s.cue(CueUpgrade)
		return nil
	})
}

// ContributeBeacon spends resources on the rescue beacon.
func (s *Simulation) ContributeBeacon() error {
	return s.act("contribute beacon", false, func() error {
		st := s.State
		if st.BeaconProgress >= colony.MaxBeacon {
			return ErrBeaconComplete
		}
		if st.Wood < colony.BeaconWoodCost || st.Food < colony.BeaconFoodCost {
			return ErrInsufficient
		}
		st.AddWood(-colony.BeaconWoodCost)
		st.AddFood(-colony.BeaconFoodCost)
		st.BeaconProgress = math.Min(colony.MaxBeacon, st.BeaconProgress+colony.BeaconStep)
		s.float(fmt.Sprintf("+%.0f%% SIGNAL", colony.BeaconStep), 50, 50, StyleReward)
		s.cue(CueCraft)
		if st.BeaconProgress >= colony.MaxBeacon {
			s.record("signal", "The beacon is lit. Rescue can be called.")
		}
		return nil
	})
}

// Evacuate ends the game in victory once the beacon is complete.
func (s *Simulation) Evacuate() error {
	return s.act("evacuate", false, func() error {
		if s.State.BeaconProgress < colony.MaxBeacon {
			return ErrBeaconIncomplete
		}
		s.end(PhaseVictory)
		return nil
	})
}

// ClaimAchievement grants an unlocked achievement's reward once. Claimed
// ids stay in the unlocked list.
func (s *Simulation) ClaimAchievement(id colony.AchievementID) error {
	return s.act("claim achievement", true, func() error {
		st := s.State
		def, ok := colony.LookupAchievement(id)
		if !ok {
			return fmt.Errorf("%w: achievement %q", ErrUnknown, id)
		}
		if !st.Unlocked(id) {
			return ErrNotUnlocked
		}
		if st.Claimed(id) {
			return ErrAlreadyClaimed
		}
		st.Achievements = append(st.Achievements, id)
		st.Apply(def.Reward)
		s.float(def.Reward.Text, 50, 50, StyleReward)
		s.cue(CueAchievement)
		return nil
	})
}

// CollectSupplyDrop picks up the supply drop.
func (s *Simulation) CollectSupplyDrop() error {
	return s.act("collect supply drop", false, func() error {
		st := s.State
		drop := st.SupplyDrop
		if drop == nil {
			return ErrNoSpawn
		}
		amt := float64(supplyDropBase + s.pick(supplyDropSpread))
		if drop.Kind == colony.SpawnWood {
			st.AddWood(amt)
			s.float(fmt.Sprintf("+%.0f Wood", amt), drop.X, drop.Y, StyleWood)
		} else {
			st.AddFood(amt)
			s.float(fmt.Sprintf("+%.0f Food", amt), drop.X, drop.Y, StyleFood)
		}
		st.SupplyDrop = nil
		s.cue(CueCraft)
		return nil
	})
}

// CollectFireSpirit catches the fire spirit.
func (s *Simulation) CollectFireSpirit() error {
	return s.act("collect fire spirit", false, func() error {
		st := s.State
		if st.FireSpirit == nil {
			return ErrNoSpawn
		}
		st.FireSpirit = nil
		st.Hypothermia = 0
		st.Temperature = math.Max(st.Temperature, fireSpiritWarmth)
		st.AddWood(fireSpiritWood)
		s.float("WARMTH RESTORED!", 50, 50, StyleFire)
		s.cue(CueAchievement)
		return nil
	})
}

// CollectGoldenSnowflake catches the golden snowflake.
func (s *Simulation) CollectGoldenSnowflake() error {
	return s.act("collect golden snowflake", false, func() error {
		st := s.State
		if st.GoldenSnowflake == nil {
			return ErrNoSpawn
		}
		st.GoldenSnowflake = nil
		st.AddWood(snowflakeResources)
		st.AddFood(snowflakeResources)
		st.Score += snowflakeScore
		s.float("GOLD RUSH!", 50, 40, StyleJackpot)
		s.cue(CueJackpot)
		return nil
	})
}

// ResolveEvent applies the chosen option and resumes ticking.
func (s *Simulation) ResolveEvent(option int) error {
	return s.act("resolve event", true, func() error {
		in := s.Injector
		if in.Phase != EventAwaitingChoice || in.Pending == nil {
			return ErrNoEvent
		}
		if option < 0 || option >= len(in.Pending.Options) {
			return fmt.Errorf("%w: %d", ErrBadOption, option)
		}
		o := in.Pending.Options[option]
		s.State.Apply(o.Rewards)
		in.Pending = nil
		in.Phase = EventIdle
		s.record("event", "%s", o.Consequence)
		s.cue(CueClick)
		return nil
	})
}
