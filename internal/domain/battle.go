package domain

import "time"

// MaxMemoLength bounds the free-text memo of a battle log, in characters.
const MaxMemoLength = 500

// BattleLog records one reading session against a book. Logs are immutable.
type BattleLog struct {
	ID        string    `json:"id"`
	BookID    string    `json:"bookId"`
	UserID    string    `json:"userId"`
	PagesRead int       `json:"pagesRead"`
	Memo      string    `json:"memo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewBattleLog creates a log stamped with the current time.
func NewBattleLog(id, userID, bookID string, pagesRead int, memo string) *BattleLog {
	return &BattleLog{
		ID:        id,
		BookID:    bookID,
		UserID:    userID,
		PagesRead: pagesRead,
		Memo:      memo,
		CreatedAt: Now(),
	}
}

// SkillResult reports how one skill changed after a battle.
type SkillResult struct {
	SkillName     string `json:"skillName"`
	ExpGained     int64  `json:"expGained"`
	TotalExp      int64  `json:"totalExp"`
	PreviousLevel int    `json:"previousLevel"`
	CurrentLevel  int    `json:"currentLevel"`
	LeveledUp     bool   `json:"leveledUp"`
}

// BattleResult is everything a recorded battle produced.
type BattleResult struct {
	Log          *BattleLog    `json:"log"`
	Book         *Book         `json:"book"`
	Defeat       bool          `json:"defeat"`
	ExpGained    int64         `json:"expGained"`
	DefeatBonus  int64         `json:"defeatBonus"`
	SkillResults []SkillResult `json:"skillResults"`
}
