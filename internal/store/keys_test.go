package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyConstruction(t *testing.T) {
	ts := time.Date(2024, 3, 5, 7, 8, 9, 123_000_000, time.UTC)

	assert.Equal(t, "USER#u1", UserPK("u1"))
	assert.Equal(t, "BOOK#b1", BookSK("b1"))
	assert.Equal(t, "BOOK#b1#LOG#", BattleLogPrefix("b1"))
	assert.Equal(t, "BOOK#b1#LOG#2024-03-05T07:08:09.123Z#l1", BattleLogSK("b1", ts, "l1"))
	assert.Equal(t, "SKILL#Go", SkillSK("Go"))
	assert.Equal(t, "CUSTOM_SKILL#Go", CustomSkillSK("Go"))
}

func TestKeyPrefixesAreDisjoint(t *testing.T) {
	assert.False(t, strings.HasPrefix(CustomSkillSK("x"), SkillPrefix))
	assert.False(t, strings.HasPrefix(SkillSK("x"), CustomSkillPrefix))
	assert.True(t, strings.HasPrefix(BattleLogSK("b1", time.Now(), "l"), BookPrefix),
		"log keys share the book prefix, so book listings must filter by kind")
}

func TestBattleLogSK_OrdersChronologically(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	earlier := BattleLogSK("b1", base.Add(999*time.Millisecond), "z")
	later := BattleLogSK("b1", base.Add(time.Second), "a")
	assert.Less(t, earlier, later)

	// Same millisecond: the id breaks the tie.
	assert.Less(t, BattleLogSK("b1", base, "0001"), BattleLogSK("b1", base, "0002"))

	// Non-UTC inputs are normalized.
	tokyo := time.FixedZone("JST", 9*3600)
	assert.Equal(t, BattleLogSK("b1", base, "x"), BattleLogSK("b1", base.In(tokyo), "x"))
}

func TestParseSortKey(t *testing.T) {
	ts := time.Date(2024, 3, 5, 7, 8, 9, 123_000_000, time.UTC)

	tests := []struct {
		name string
		sk   string
		want SortKey
	}{
		{"book", "BOOK#b1", SortKey{Kind: KindBook, BookID: "b1"}},
		{"log", BattleLogSK("b1", ts, "l1"), SortKey{Kind: KindBattleLog, BookID: "b1", CreatedAt: ts, LogID: "l1"}},
		{"skill", "SKILL#Go", SortKey{Kind: KindSkill, Name: "Go"}},
		{"skill with hash", "SKILL#C#", SortKey{Kind: KindSkill, Name: "C#"}},
		{"custom skill", "CUSTOM_SKILL#Zig", SortKey{Kind: KindCustomSkill, Name: "Zig"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSortKey(tt.sk)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.Equal(t, tt.want.BookID, got.BookID)
			assert.Equal(t, tt.want.Name, got.Name)
			assert.Equal(t, tt.want.LogID, got.LogID)
			assert.True(t, tt.want.CreatedAt.Equal(got.CreatedAt))
			assert.Equal(t, tt.want.Kind, KindOf(tt.sk))
		})
	}
}

func TestParseSortKey_Rejects(t *testing.T) {
	for _, sk := range []string{
		"",
		"BOOK#",
		"SKILL#",
		"CUSTOM_SKILL#",
		"BOOK#b1#LOG#notatime#id",
		"BOOK#b1#LOG#2024-03-05T07:08:09.123Z",
		"SESSION#x",
	} {
		t.Run(sk, func(t *testing.T) {
			_, err := ParseSortKey(sk)
			assert.Error(t, err)
			assert.Equal(t, KindUnknown, KindOf(sk))
		})
	}
}

func TestValidateBookID(t *testing.T) {
	assert.NoError(t, ValidateBookID("V1StGXR8_Z5jdHi6B-myT"))
	assert.Error(t, ValidateBookID(""))
	assert.Error(t, ValidateBookID("a#b"))
	assert.Error(t, ValidateBookID("a\x00b"))
}
