package engine

import "github.com/talgya/frost-haven/internal/colony"

// View is a read-only snapshot handed to renderers and transports.
type View struct {
	State     *colony.State          `json:"state"`
	Phase     Phase                  `json:"phase"`
	Tick      uint64                 `json:"tick"`
	Idle      int                    `json:"idle"`
	Capacity  int                    `json:"capacity"`
	Night     bool                   `json:"night"`
	Rates     Rates                  `json:"rates"`
	Log       []Event                `json:"log"`
	Event     EventPhase             `json:"event_phase"`
	Scenario  *colony.Scenario       `json:"scenario,omitempty"`
	Claimable []colony.AchievementID `json:"claimable,omitempty"`
}

// View copies everything a client needs to draw a frame.
func (s *Simulation) View() View {
	st := s.State.Clone()
	v := View{
		State:     st,
		Phase:     s.Phase,
		Tick:      s.Tick,
		Idle:      st.Idle(),
		Capacity:  st.Capacity(),
		Night:     st.IsNight(),
		Rates:     CurrentRates(st),
		Log:       s.RecentLog(DisplayedLog),
		Event:     s.Injector.Phase,
		Claimable: Claimable(st),
	}
	if p := s.Injector.Pending; p != nil {
		sc := *p
		v.Scenario = &sc
	}
	return v
}
