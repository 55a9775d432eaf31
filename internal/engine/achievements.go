package engine

import "github.com/talgya/frost-haven/internal/colony"

// evaluateAchievements unlocks every achievement whose predicate now holds.
// Unlocking grants nothing; rewards wait for an explicit claim.
func (s *Simulation) evaluateAchievements() []colony.AchievementID {
	st := s.State
	var unlocked []colony.AchievementID
	for _, a := range colony.Achievements {
		if st.Unlocked(a.ID) || !a.Condition(st) {
			continue
		}
		st.UnlockedAchievements = append(st.UnlockedAchievements, a.ID)
		unlocked = append(unlocked, a.ID)
		s.record("achievement", "Achievement unlocked: %s", a.Title)
		s.float(a.Title, 50, 20, StyleReward)
		s.cue(CueAchievement)
	}
	return unlocked
}

// Claimable lists unlocked achievements whose reward has not been taken.
func Claimable(st *colony.State) []colony.AchievementID {
	var out []colony.AchievementID
	for _, id := range st.UnlockedAchievements {
		if !st.Claimed(id) {
			out = append(out, id)
		}
	}
	return out
}
