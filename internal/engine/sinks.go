// Outbound collaborators: floating text, audio cues and the colony log.
package engine

// Style tags a floating text for the renderer.
type Style string

const (
	StyleWood     Style = "wood"
	StyleFood     Style = "food"
	StyleFire     Style = "fire"
	StyleCritical Style = "critical"
	StyleJackpot  Style = "jackpot"
	StyleDanger   Style = "danger"
	StyleInfo     Style = "info"
	StyleReward   Style = "reward"
	StyleReject   Style = "reject"
)

// FloatText is a transient label at a normalized 0..100 screen position.
type FloatText struct {
	Text  string  `json:"text"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Style Style   `json:"style"`
}

// EffectSink receives floating text requests. No acknowledgment.
type EffectSink interface {
	Float(FloatText)
}

// Cue names an audio trigger.
type Cue string

const (
	CueGather      Cue = "gather"
	CueCraft       Cue = "craft"
	CueCritical    Cue = "critical"
	CueJackpot     Cue = "jackpot"
	CueAchievement Cue = "achievement"
	CueDeath       Cue = "death"
	CueAlert       Cue = "alert"
	CueStoke       Cue = "stoke"
	CueEvent       Cue = "event"
	CueClick       Cue = "click"
	CueUpgrade     Cue = "upgrade"
)

// CueSink receives fire-and-forget audio triggers.
type CueSink interface {
	Cue(Cue)
}

// EffectFunc adapts a function to EffectSink.
type EffectFunc func(FloatText)

// Float implements EffectSink.
func (f EffectFunc) Float(t FloatText) { f(t) }

// CueFunc adapts a function to CueSink.
type CueFunc func(Cue)

// Cue implements CueSink.
func (f CueFunc) Cue(c Cue) { f(c) }

type discard struct{}

func (discard) Float(FloatText) {}
func (discard) Cue(Cue)         {}
