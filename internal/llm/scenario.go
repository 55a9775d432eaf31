// Event scenario generation. Every few days the colony faces a choice
// written by Haiku; bad or missing output falls back to local content.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/talgya/frost-haven/internal/colony"
	"github.com/talgya/frost-haven/internal/entropy"
)

// Bounds on what one option may grant or take.
const (
	maxResourceSwing = 200
	maxSurvivorSwing = 2
	maxTempSwing     = 20
	maxFireSwing     = 50
)

// ScenarioWriter asks Haiku for event content.
type ScenarioWriter struct {
	Client *Client
}

// NewScenarioWriter returns a writer, or nil when the client is disabled.
func NewScenarioWriter(client *Client) *ScenarioWriter {
	if !client.Enabled() {
		return nil
	}
	return &ScenarioWriter{Client: client}
}

// Scenario implements engine.ScenarioSource.
func (w *ScenarioWriter) Scenario(ctx context.Context, day, survivors int) (*colony.Scenario, error) {
	if w == nil || !w.Client.Enabled() {
		return nil, ErrDisabled
	}
	text, err := w.Client.Complete(ctx, scenarioSystemPrompt, buildScenarioPrompt(day, survivors), 700)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	return parseScenario(text)
}

const scenarioSystemPrompt = `You write events for a frozen-wasteland survival game in the style of "Whiteout Survival". A small band of survivors huddles around a fire, short on wood and food.

Respond ONLY with a single JSON object:
- "title": a short event title
- "scenario": 1-3 atmospheric sentences describing the situation
- "options": 2 to 4 choices, each with
  - "text": the choice as the player sees it
  - "consequence": one sentence describing what happens
  - "rewards": an object with any of "wood", "food", "survivors", "tempBoost", "fireLevel" (numbers, negative for losses)

Choices should be tough: gains should usually cost something.`

func buildScenarioPrompt(day, survivors int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "It is day %d. The colony has %d survivors.\n", day, survivors)
	switch {
	case survivors <= 1:
		b.WriteString("Only one soul remains. Keep the stakes personal.\n")
	case day >= 10:
		b.WriteString("The cold has deepened for many days. Make the choice harsh.\n")
	}
	b.WriteString("Generate a survival choice scenario. Respond with a single JSON object.")
	return b.String()
}

// wireScenario mirrors the JSON the model is asked for.
type wireScenario struct {
	Title    string `json:"title"`
	Scenario string `json:"scenario"`
	Options  []struct {
		Text        string `json:"text"`
		Consequence string `json:"consequence"`
		Rewards     struct {
			Wood      float64 `json:"wood"`
			Food      float64 `json:"food"`
			Survivors float64 `json:"survivors"`
			TempBoost float64 `json:"tempBoost"`
			FireLevel float64 `json:"fireLevel"`
		} `json:"rewards"`
	} `json:"options"`
}

func parseScenario(response string) (*colony.Scenario, error) {
	// Find JSON object in response.
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var w wireScenario
	if err := json.Unmarshal([]byte(response[start:end+1]), &w); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	sc := &colony.Scenario{
		Title:    strings.TrimSpace(w.Title),
		Scenario: strings.TrimSpace(w.Scenario),
	}
	for _, o := range w.Options {
		if len(sc.Options) == colony.MaxOptions {
			break
		}
		r := o.Rewards
		sc.Options = append(sc.Options, colony.Option{
			Text:        strings.TrimSpace(o.Text),
			Consequence: strings.TrimSpace(o.Consequence),
			Rewards: colony.Reward{
				Wood:      bound(r.Wood, maxResourceSwing),
				Food:      bound(r.Food, maxResourceSwing),
				Survivors: int(math.Round(bound(r.Survivors, maxSurvivorSwing))),
				TempBoost: bound(r.TempBoost, maxTempSwing),
				FireLevel: bound(r.FireLevel, maxFireSwing),
			},
		})
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return sc, nil
}

func bound(v, limit float64) float64 {
	return colony.Clamp(v, -limit, limit)
}

// Fallback serves the built-in scenarios. It is the source used when no
// API key is configured.
type Fallback struct {
	Rand entropy.Source
}

// Scenario implements engine.ScenarioSource.
func (f Fallback) Scenario(context.Context, int, int) (*colony.Scenario, error) {
	if len(colony.FallbackScenarios) == 0 {
		sc := colony.SignalLost
		return &sc, nil
	}
	rnd := f.Rand
	if rnd == nil {
		rnd = entropy.Crypto{}
	}
	n := len(colony.FallbackScenarios)
	i := min(n-1, int(rnd.Float64()*float64(n)))
	sc := colony.FallbackScenarios[i]
	sc.Options = append([]colony.Option(nil), sc.Options...)
	return &sc, nil
}
