package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tsundokudragon/dragon-server/internal/domain"
	"github.com/tsundokudragon/dragon-server/internal/store"
	"github.com/tsundokudragon/dragon-server/internal/validation"
)

// testRetries is generous so concurrency tests never exhaust their retries.
const testRetries = 100

type testServices struct {
	store   *store.Store
	table   *faultyTable
	books   *BookService
	battles *BattleService
	skills  *SkillService
}

func setupTestServices(t *testing.T) (*testServices, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "service-test-*")
	require.NoError(t, err)

	tbl, err := store.OpenBadger(filepath.Join(tmpDir, "test.db"), nil)
	require.NoError(t, err)

	faulty := &faultyTable{Table: tbl}
	testStore := store.New(faulty, nil, store.Options{CursorSecret: []byte("test-secret")})

	logger := slog.New(slog.DiscardHandler)
	v := validation.New()

	svc := &testServices{
		store:   testStore,
		table:   faulty,
		books:   NewBookService(testStore, v, testRetries, logger),
		battles: NewBattleService(testStore, v, testRetries, logger),
		skills:  NewSkillService(testStore, logger),
	}

	cleanup := func() {
		testStore.Close()
		os.RemoveAll(tmpDir)
	}

	return svc, cleanup
}

// putBook stores book "b1" in an arbitrary state.
func putBook(t *testing.T, s *store.Store, userID string, mutate func(b *domain.Book)) *domain.Book {
	t.Helper()
	book := domain.NewBook("b1", userID, "Test Book", 100)
	if mutate != nil {
		mutate(book)
	}
	require.NoError(t, s.CreateBook(context.Background(), book))
	return book
}

var errInjected = errors.New("injected failure")

// faultyTable fails selected writes to exercise partial failures.
type faultyTable struct {
	store.Table
	failLogWrites bool
	failSkill     string
}

func (f *faultyTable) Put(ctx context.Context, item store.Item, opts ...store.PutOption) error {
	if f.failLogWrites && store.KindOf(item.SK) == store.KindBattleLog {
		return errInjected
	}
	return f.Table.Put(ctx, item, opts...)
}

func (f *faultyTable) AtomicAdd(ctx context.Context, in store.AddInput) (store.AddOutput, error) {
	if f.failSkill != "" && in.SK == store.SkillSK(f.failSkill) {
		return store.AddOutput{}, errInjected
	}
	return f.Table.AtomicAdd(ctx, in)
}
