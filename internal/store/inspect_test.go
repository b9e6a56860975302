package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsundokudragon/dragon-server/internal/domain"
	"github.com/tsundokudragon/dragon-server/internal/store"
)

func TestInspect(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	createBook(t, s, "u1", "b1", 100)
	createBook(t, s, "u1", "b2", 100)
	require.NoError(t, s.CreateBattleLog(ctx, domain.NewBattleLog("l1", "u1", "b1", 5, "")))
	_, err := s.AddSkillExp(ctx, "u1", "Go", 5)
	require.NoError(t, err)
	require.NoError(t, s.PutCustomSkill(ctx, "u1", "Go"))
	require.NoError(t, s.PutGlobalSkill(ctx, domain.GlobalSkill{Name: "SF", Category: "Fiction"}))

	var visited int
	stats, err := store.Inspect(ctx, s.Table(), func(store.Item) error {
		visited++
		return nil
	})
	require.NoError(t, err)

	require.Len(t, stats, 2)
	assert.Equal(t, store.GlobalPK, stats[0].PK)
	assert.Equal(t, 1, stats[0].Counts[store.KindSkill])

	assert.Equal(t, store.UserPK("u1"), stats[1].PK)
	assert.Equal(t, map[store.KeyKind]int{
		store.KindBook:        2,
		store.KindBattleLog:   1,
		store.KindSkill:       1,
		store.KindCustomSkill: 1,
	}, stats[1].Counts)
	assert.Equal(t, 5, stats[1].Total)
	assert.Equal(t, 6, visited)
}

type opaqueTable struct{ store.Table }

func TestInspect_Unsupported(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.Inspect(context.Background(), opaqueTable{s.Table()}, nil)
	assert.ErrorIs(t, err, store.ErrScanUnsupported)
}
