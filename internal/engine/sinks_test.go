package engine

import "strings"

// recorder collects effects and cues in memory.
type recorder struct {
	Floats []FloatText
	Cues   []Cue
}

func (r *recorder) Float(t FloatText) { r.Floats = append(r.Floats, t) }

func (r *recorder) Cue(c Cue) { r.Cues = append(r.Cues, c) }

// Heard reports whether a cue was recorded.
func (r *recorder) Heard(c Cue) bool {
	for _, got := range r.Cues {
		if got == c {
			return true
		}
	}
	return false
}

// Floated reports whether a floating text containing text was emitted.
func (r *recorder) Floated(text string) bool {
	for _, f := range r.Floats {
		if strings.Contains(f.Text, text) {
			return true
		}
	}
	return false
}

func (r *recorder) Reset() {
	r.Floats = nil
	r.Cues = nil
}
