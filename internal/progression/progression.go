// Package progression holds the experience curve and battle reward math.
//
// Required experience to advance from level L to L+1 is floor(L^1.5 * 50).
// Levels are capped at MaxLevel. All functions are pure.
package progression

import "math"

// MaxLevel is the highest reachable level.
const MaxLevel = 9999

// ExpForLevel returns the experience needed to advance from level to level+1.
// Returns 0 for levels below 1.
func ExpForLevel(level int) int64 {
	if level < 1 {
		return 0
	}
	return int64(math.Floor(math.Pow(float64(level), 1.5) * 50))
}

// LevelFromExp returns the level reached with totalExp cumulative experience.
// Non-positive totals are level 1.
func LevelFromExp(totalExp int64) int {
	if totalExp <= 0 {
		return 1
	}

	level := 1
	var threshold int64
	for level < MaxLevel {
		threshold += ExpForLevel(level)
		if totalExp < threshold {
			break
		}
		level++
	}
	return level
}

// DefeatBonus returns the bonus experience for finishing a book: 10% of its
// pages, rounded down.
func DefeatBonus(totalPages int) int64 {
	if totalPages <= 0 {
		return 0
	}
	return int64(math.Floor(float64(totalPages) * 0.1))
}

// Progress describes how far a total sits inside its current level.
type Progress struct {
	Level           int   `json:"level"`
	CurrentLevelExp int64 `json:"currentLevelExp"`
	ExpToNextLevel  int64 `json:"expToNextLevel"`
}

// ProgressFor computes the level for totalExp along with the experience
// earned inside that level and the amount the level requires.
// At MaxLevel ExpToNextLevel is 0.
func ProgressFor(totalExp int64) Progress {
	level := LevelFromExp(totalExp)

	var accumulated int64
	for l := 1; l < level; l++ {
		accumulated += ExpForLevel(l)
	}

	current := max(totalExp-accumulated, 0)

	next := ExpForLevel(level)
	if level >= MaxLevel {
		next = 0
	}

	return Progress{
		Level:           level,
		CurrentLevelExp: current,
		ExpToNextLevel:  next,
	}
}

// DragonRank grades a book's dragon by page count, from 1 (<=200 pages) to 5 (>700).
func DragonRank(totalPages int) int {
	switch {
	case totalPages <= 200:
		return 1
	case totalPages <= 300:
		return 2
	case totalPages <= 500:
		return 3
	case totalPages <= 700:
		return 4
	default:
		return 5
	}
}
