package engine

import (
	"fmt"

	"github.com/talgya/frost-haven/internal/colony"
)

// ActionKind names a dispatcher operation on the wire.
type ActionKind string

const (
	ActAssign           ActionKind = "assign"
	ActGather           ActionKind = "gather"
	ActStoke            ActionKind = "stoke"
	ActRepair           ActionKind = "repair"
	ActScout            ActionKind = "scout"
	ActCycleRisk        ActionKind = "cycle_risk"
	ActFlare            ActionKind = "flare"
	ActUpgrade          ActionKind = "upgrade"
	ActShelter          ActionKind = "shelter"
	ActBeacon           ActionKind = "beacon"
	ActEvacuate         ActionKind = "evacuate"
	ActClaim            ActionKind = "claim"
	ActCollectDrop      ActionKind = "collect_drop"
	ActCollectSpirit    ActionKind = "collect_spirit"
	ActCollectSnowflake ActionKind = "collect_snowflake"
	ActResolveEvent     ActionKind = "resolve_event"
)

// Action is a serialized dispatcher call. Only the fields the kind needs
// are read.
type Action struct {
	Kind        ActionKind           `json:"kind"`
	Role        colony.Role          `json:"role,omitempty"`
	Delta       int                  `json:"delta,omitempty"`
	Upgrade     colony.UpgradeID     `json:"upgrade,omitempty"`
	Achievement colony.AchievementID `json:"achievement,omitempty"`
	Option      int                  `json:"option,omitempty"`
}

// Dispatch routes an Action to its operation. The result is the gather
// yield or the new scout risk where those apply, otherwise nil.
func (s *Simulation) Dispatch(a Action) (any, error) {
	switch a.Kind {
	case ActAssign:
		return nil, s.AssignWorker(a.Role, a.Delta)
	case ActGather:
		return s.Gather(a.Role)
	case ActStoke:
		return nil, s.Stoke()
	case ActRepair:
		return nil, s.RepairShelter()
	case ActScout:
		return nil, s.SendScout()
	case ActCycleRisk:
		return s.CycleScoutRisk()
	case ActFlare:
		return nil, s.LaunchFlare()
	case ActUpgrade:
		return nil, s.PurchaseUpgrade(a.Upgrade)
	case ActShelter:
		return nil, s.UpgradeShelter()
	case ActBeacon:
		return nil, s.ContributeBeacon()
	case ActEvacuate:
		return nil, s.Evacuate()
	case ActClaim:
		return nil, s.ClaimAchievement(a.Achievement)
	case ActCollectDrop:
		return nil, s.CollectSupplyDrop()
	case ActCollectSpirit:
		return nil, s.CollectFireSpirit()
	case ActCollectSnowflake:
		return nil, s.CollectGoldenSnowflake()
	case ActResolveEvent:
		return nil, s.ResolveEvent(a.Option)
	}
	return nil, fmt.Errorf("%w: action %q", ErrUnknown, a.Kind)
}
