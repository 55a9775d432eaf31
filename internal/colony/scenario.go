// Branching event content.
package colony

import (
	"errors"
	"fmt"
	"strings"
)

// Option is one choice in a scenario.
type Option struct {
	Text        string `json:"text"`
	Consequence string `json:"consequence"`
	Rewards     Reward `json:"rewards"`
}

// Scenario is a titled situation with options to choose from.
type Scenario struct {
	Title    string   `json:"title"`
	Scenario string   `json:"scenario"`
	Options  []Option `json:"options"`
}

// MaxOptions bounds how many choices a scenario may offer.
const MaxOptions = 4

// Validate rejects scenarios the player could not resolve.
func (sc *Scenario) Validate() error {
	if sc == nil {
		return errors.New("nil scenario")
	}
	if strings.TrimSpace(sc.Title) == "" {
		return errors.New("scenario has no title")
	}
	if len(sc.Options) == 0 || len(sc.Options) > MaxOptions {
		return fmt.Errorf("scenario has %d options", len(sc.Options))
	}
	for i, o := range sc.Options {
		if strings.TrimSpace(o.Text) == "" {
			return fmt.Errorf("option %d has no text", i)
		}
	}
	return nil
}

// SignalLost is shown when event content never arrives.
var SignalLost = Scenario{
	Title:    "Signal Lost",
	Scenario: "Atmospheric interference prevents data.",
	Options:  []Option{{Text: "Wait", Consequence: "Nothing happened."}},
}

// FallbackScenarios is the local content used when no generator is
// reachable.
var FallbackScenarios = []Scenario{
	{
		Title:    "Wandering Trader",
		Scenario: "A masked figure emerges from the blizzard, pulling a sled laden with crates. They offer a trade.",
		Options: []Option{
			{Text: "Trade Wood for Food", Consequence: "The trader nods and swaps supplies.", Rewards: Reward{Wood: -30, Food: 50}},
			{Text: "Trade Food for Wood", Consequence: "The trader grunts in approval.", Rewards: Reward{Food: -30, Wood: 50}},
			{Text: "Drive them away", Consequence: "They vanish into the snow."},
		},
	},
	{
		Title:    "Abandoned Cache",
		Scenario: "Your scouts spot a half-buried supply crate. It looks unstable.",
		Options: []Option{
			{Text: "Dig it out carefully", Consequence: "It takes time, but you find supplies.", Rewards: Reward{Wood: 20, Food: 20}},
			{Text: "Smash it open", Consequence: "Some supplies were damaged.", Rewards: Reward{Wood: 10}},
			{Text: "Ignore it", Consequence: "Not worth the risk."},
		},
	},
	{
		Title:    "Sick Survivor",
		Scenario: "A survivor stumbles into camp, coughing violently.",
		Options: []Option{
			{Text: "Take them in (-20 Food)", Consequence: "They recover and join you.", Rewards: Reward{Food: -20, Survivors: 1}},
			{Text: "Turn them away", Consequence: "You preserve your supplies."},
		},
	},
	{
		Title:    "Wolf Pack",
		Scenario: "Glowing eyes surround the camp perimeter at night.",
		Options: []Option{
			{Text: "Use Fire to scare them", Consequence: "It burns fuel, but they flee.", Rewards: Reward{Wood: -20, FireLevel: -10}},
			{Text: "Fight them off", Consequence: "You lose some food to the raid.", Rewards: Reward{Food: -30}},
		},
	},
}
