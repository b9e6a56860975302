package store

import (
	"fmt"
	"strings"
	"time"
)

// Partition and sort key segments of the single-table layout.
//
//	PK USER#<userId>  SK BOOK#<bookId>
//	PK USER#<userId>  SK BOOK#<bookId>#LOG#<timestamp>#<logId>
//	PK USER#<userId>  SK SKILL#<name>
//	PK USER#<userId>  SK CUSTOM_SKILL#<name>
//	PK GLOBAL         SK SKILL#<name>
const (
	userPrefix        = "USER#"
	GlobalPK          = "GLOBAL"
	BookPrefix        = "BOOK#"
	logSegment        = "#LOG#"
	SkillPrefix       = "SKILL#"
	CustomSkillPrefix = "CUSTOM_SKILL#"
)

// logTimeLayout is ISO-8601 with fixed millisecond width, so lexicographic
// order of log sort keys is chronological order.
const logTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// KeyKind identifies the entity a sort key addresses.
type KeyKind int

// Sort key kinds.
const (
	KindUnknown KeyKind = iota
	KindBook
	KindBattleLog
	KindSkill
	KindCustomSkill
)

// String returns the kind name used in logs and inspection output.
func (k KeyKind) String() string {
	switch k {
	case KindBook:
		return "book"
	case KindBattleLog:
		return "battle_log"
	case KindSkill:
		return "skill"
	case KindCustomSkill:
		return "custom_skill"
	default:
		return "unknown"
	}
}

// UserPK is the partition of everything a user owns.
func UserPK(userID string) string {
	return userPrefix + userID
}

// BookSK addresses a book.
func BookSK(bookID string) string {
	return BookPrefix + bookID
}

// BattleLogPrefix selects every log of a book.
func BattleLogPrefix(bookID string) string {
	return BookPrefix + bookID + logSegment
}

// BattleLogSK addresses one log. The log id breaks ties between logs
// created in the same millisecond.
func BattleLogSK(bookID string, createdAt time.Time, logID string) string {
	return BattleLogPrefix(bookID) + createdAt.UTC().Format(logTimeLayout) + "#" + logID
}

// SkillSK addresses a skill experience record under a user, or a catalog
// entry under GlobalPK.
func SkillSK(name string) string {
	return SkillPrefix + name
}

// CustomSkillSK addresses a user's custom skill registration.
func CustomSkillSK(name string) string {
	return CustomSkillPrefix + name
}

// SortKey is a parsed sort key.
type SortKey struct {
	Kind      KeyKind
	BookID    string
	Name      string
	CreatedAt time.Time
	LogID     string
}

// ParseSortKey decodes a sort key produced by this package.
func ParseSortKey(sk string) (SortKey, error) {
	switch {
	case strings.HasPrefix(sk, CustomSkillPrefix):
		name := strings.TrimPrefix(sk, CustomSkillPrefix)
		if name == "" {
			return SortKey{}, fmt.Errorf("custom skill key %q has no name", sk)
		}
		return SortKey{Kind: KindCustomSkill, Name: name}, nil

	case strings.HasPrefix(sk, SkillPrefix):
		name := strings.TrimPrefix(sk, SkillPrefix)
		if name == "" {
			return SortKey{}, fmt.Errorf("skill key %q has no name", sk)
		}
		return SortKey{Kind: KindSkill, Name: name}, nil

	case strings.HasPrefix(sk, BookPrefix):
		rest := strings.TrimPrefix(sk, BookPrefix)
		bookID, logPart, isLog := strings.Cut(rest, logSegment)
		if bookID == "" {
			return SortKey{}, fmt.Errorf("book key %q has no id", sk)
		}
		if !isLog {
			return SortKey{Kind: KindBook, BookID: bookID}, nil
		}

		ts, logID, ok := strings.Cut(logPart, "#")
		if !ok || logID == "" {
			return SortKey{}, fmt.Errorf("log key %q has no id", sk)
		}
		createdAt, err := time.Parse(logTimeLayout, ts)
		if err != nil {
			return SortKey{}, fmt.Errorf("log key %q has a bad timestamp: %w", sk, err)
		}
		return SortKey{Kind: KindBattleLog, BookID: bookID, CreatedAt: createdAt, LogID: logID}, nil
	}

	return SortKey{}, fmt.Errorf("unrecognized sort key %q", sk)
}

// KindOf returns the kind of sk, or KindUnknown when it does not parse.
func KindOf(sk string) KeyKind {
	parsed, err := ParseSortKey(sk)
	if err != nil {
		return KindUnknown
	}
	return parsed.Kind
}

// ValidateBookID rejects ids that would corrupt the key layout.
func ValidateBookID(bookID string) error {
	if bookID == "" {
		return fmt.Errorf("book id is required")
	}
	if strings.ContainsAny(bookID, "#\x00") {
		return fmt.Errorf("book id %q contains a reserved character", bookID)
	}
	return nil
}
