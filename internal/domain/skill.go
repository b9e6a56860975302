package domain

import "time"

// SkillExperience is a user's accumulated experience in one skill.
// Level is always LevelFromExp(Exp); it is stored so listings need no recomputation.
type SkillExperience struct {
	Name      string    `json:"name"`
	Exp       int64     `json:"exp"`
	Level     int       `json:"level"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// GlobalSkill is an entry of the shared skill catalog.
type GlobalSkill struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// CustomSkill is a skill name a user introduced that is not in the global catalog.
type CustomSkill struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// SkillGain is the outcome of adding experience to one skill.
type SkillGain struct {
	Name          string
	PreviousExp   int64
	Exp           int64
	PreviousLevel int
	Level         int
}

// LeveledUp reports whether the gain crossed at least one level boundary.
func (g SkillGain) LeveledUp() bool {
	return g.Level > g.PreviousLevel
}
