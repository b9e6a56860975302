// Package storetest is the conformance suite every store.Table backend must pass.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsundokudragon/dragon-server/internal/store"
)

// Opener returns a fresh, empty table. The suite closes it.
type Opener func(t *testing.T) store.Table

// Run executes the conformance suite against tables produced by open.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, tbl store.Table)
	}{
		{"PutGet", testPutGet},
		{"GetMissing", testGetMissing},
		{"PutIfAbsent", testPutIfAbsent},
		{"PutIfVersion", testPutIfVersion},
		{"QueryOrder", testQueryOrder},
		{"QueryPartitionIsolation", testQueryPartitionIsolation},
		{"QueryPagination", testQueryPagination},
		{"QueryDescendingPagination", testQueryDescendingPagination},
		{"QueryFilter", testQueryFilter},
		{"QueryMultibytePrefix", testQueryMultibytePrefix},
		{"AtomicAdd", testAtomicAdd},
		{"AtomicAddConcurrent", testAtomicAddConcurrent},
		{"Count", testCount},
		{"PutBatch", testPutBatch},
		{"CanceledContext", testCanceledContext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := open(t)
			t.Cleanup(func() { _ = tbl.Close() })
			tt.fn(t, tbl)
		})
	}
}

func item(t *testing.T, pk, sk string, attrs map[string]any) store.Item {
	t.Helper()
	a, err := store.MarshalAttributes(attrs)
	require.NoError(t, err)
	return store.Item{Key: store.Key{PK: pk, SK: sk}, Attrs: a}
}

func put(t *testing.T, tbl store.Table, items ...store.Item) {
	t.Helper()
	for _, it := range items {
		require.NoError(t, tbl.Put(context.Background(), it))
	}
}

func sortKeys(items []store.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.SK
	}
	return out
}

func testPutGet(t *testing.T, tbl store.Table) {
	ctx := context.Background()
	put(t, tbl, item(t, "USER#u1", "BOOK#b1", map[string]any{"title": "Dune", "totalPages": 412}))

	got, err := tbl.Get(ctx, store.Key{PK: "USER#u1", SK: "BOOK#b1"})
	require.NoError(t, err)

	var book struct {
		Title      string `json:"title"`
		TotalPages int    `json:"totalPages"`
	}
	require.NoError(t, got.Attrs.Decode(&book))
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, 412, book.TotalPages)

	// Upsert replaces the whole item.
	put(t, tbl, item(t, "USER#u1", "BOOK#b1", map[string]any{"title": "Dune Messiah"}))
	got, err = tbl.Get(ctx, store.Key{PK: "USER#u1", SK: "BOOK#b1"})
	require.NoError(t, err)
	_, hasPages := got.Attrs["totalPages"]
	assert.False(t, hasPages)
}

func testGetMissing(t *testing.T, tbl store.Table) {
	_, err := tbl.Get(context.Background(), store.Key{PK: "USER#u1", SK: "BOOK#nope"})
	assert.ErrorIs(t, err, store.ErrItemNotFound)
}

func testPutIfAbsent(t *testing.T, tbl store.Table) {
	ctx := context.Background()
	first := item(t, "USER#u1", "CUSTOM_SKILL#Go", map[string]any{"name": "Go"})

	require.NoError(t, tbl.Put(ctx, first, store.IfAbsent()))
	err := tbl.Put(ctx, first, store.IfAbsent())
	assert.ErrorIs(t, err, store.ErrConditionFailed)
}

func testPutIfVersion(t *testing.T, tbl store.Table) {
	ctx := context.Background()
	key := "BOOK#b1"

	// Missing item never satisfies a version condition.
	err := tbl.Put(ctx, item(t, "USER#u1", key, map[string]any{"version": 2}), store.IfVersion("version", 1))
	require.ErrorIs(t, err, store.ErrConditionFailed)

	put(t, tbl, item(t, "USER#u1", key, map[string]any{"version": 1}))

	require.NoError(t, tbl.Put(ctx, item(t, "USER#u1", key, map[string]any{"version": 2}), store.IfVersion("version", 1)))

	// Stale writer loses.
	err = tbl.Put(ctx, item(t, "USER#u1", key, map[string]any{"version": 2}), store.IfVersion("version", 1))
	require.ErrorIs(t, err, store.ErrConditionFailed)

	got, err := tbl.Get(ctx, store.Key{PK: "USER#u1", SK: key})
	require.NoError(t, err)
	v, ok, err := got.Attrs.Int64("version")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), v)
}

func testQueryOrder(t *testing.T, tbl store.Table) {
	ctx := context.Background()
	put(t, tbl,
		item(t, "USER#u1", "SKILL#c", nil),
		item(t, "USER#u1", "SKILL#a", nil),
		item(t, "USER#u1", "SKILL#b", nil),
	)

	out, err := tbl.Query(ctx, store.QueryInput{PK: "USER#u1", Prefix: "SKILL#"})
	require.NoError(t, err)
	assert.Equal(t, []string{"SKILL#a", "SKILL#b", "SKILL#c"}, sortKeys(out.Items))
	assert.Nil(t, out.LastKey)

	out, err = tbl.Query(ctx, store.QueryInput{PK: "USER#u1", Prefix: "SKILL#", Descending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"SKILL#c", "SKILL#b", "SKILL#a"}, sortKeys(out.Items))
}

func testQueryPartitionIsolation(t *testing.T, tbl store.Table) {
	ctx := context.Background()
	put(t, tbl,
		item(t, "USER#u1", "SKILL#Go", nil),
		item(t, "USER#u1", "CUSTOM_SKILL#Zig", nil),
		item(t, "USER#u10", "SKILL#Rust", nil),
		item(t, "USER#u", "SKILL#C", nil),
		item(t, "GLOBAL", "SKILL#Python", nil),
	)

	out, err := tbl.Query(ctx, store.QueryInput{PK: "USER#u1", Prefix: "SKILL#"})
	require.NoError(t, err)
	assert.Equal(t, []string{"SKILL#Go"}, sortKeys(out.Items))

	out, err = tbl.Query(ctx, store.QueryInput{PK: "USER#u1", Prefix: "SKILL#", Descending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"SKILL#Go"}, sortKeys(out.Items))

	out, err = tbl.Query(ctx, store.QueryInput{PK: "GLOBAL", Prefix: "SKILL#"})
	require.NoError(t, err)
	assert.Equal(t, []string{"SKILL#Python"}, sortKeys(out.Items))
}

func fiveLogs(t *testing.T, tbl store.Table) []string {
	t.Helper()
	var sks []string
	for i := range 5 {
		sk := fmt.Sprintf("BOOK#b1#LOG#2024-01-0%dT00:00:00.000Z#id%d", i+1, i)
		sks = append(sks, sk)
		put(t, tbl, item(t, "USER#u1", sk, map[string]any{"pagesRead": i + 1}))
	}
	// Neighbours that must never leak into the range.
	put(t, tbl,
		item(t, "USER#u1", "BOOK#b1", map[string]any{"title": "book"}),
		item(t, "USER#u1", "BOOK#b2#LOG#2024-01-01T00:00:00.000Z#x", nil),
	)
	return sks
}

func collectPages(t *testing.T, tbl store.Table, in store.QueryInput) ([]string, int) {
	t.Helper()
	var all []string
	pages := 0
	for {
		out, err := tbl.Query(context.Background(), in)
		require.NoError(t, err)
		pages++
		require.LessOrEqual(t, len(out.Items), in.Limit)
		all = append(all, sortKeys(out.Items)...)
		if out.LastKey == nil {
			return all, pages
		}
		assert.Equal(t, out.Items[len(out.Items)-1].Key, *out.LastKey)
		in.StartAfter = out.LastKey
		require.Less(t, pages, 10, "pagination did not terminate")
	}
}

func testQueryPagination(t *testing.T, tbl store.Table) {
	sks := fiveLogs(t, tbl)

	got, pages := collectPages(t, tbl, store.QueryInput{PK: "USER#u1", Prefix: "BOOK#b1#LOG#", Limit: 2})
	assert.Equal(t, sks, got)
	assert.Equal(t, 3, pages)

	// A page that ends exactly on the last item reports no more items.
	out, err := tbl.Query(context.Background(), store.QueryInput{PK: "USER#u1", Prefix: "BOOK#b1#LOG#", Limit: 5})
	require.NoError(t, err)
	assert.Len(t, out.Items, 5)
	assert.Nil(t, out.LastKey)
}

func testQueryDescendingPagination(t *testing.T, tbl store.Table) {
	sks := fiveLogs(t, tbl)
	sort.Sort(sort.Reverse(sort.StringSlice(sks)))

	got, pages := collectPages(t, tbl, store.QueryInput{PK: "USER#u1", Prefix: "BOOK#b1#LOG#", Limit: 2, Descending: true})
	assert.Equal(t, sks, got)
	assert.Equal(t, 3, pages)
}

func testQueryFilter(t *testing.T, tbl store.Table) {
	put(t, tbl,
		item(t, "USER#u1", "BOOK#a", nil),
		item(t, "USER#u1", "BOOK#a#LOG#2024-01-01T00:00:00.000Z#1", nil),
		item(t, "USER#u1", "BOOK#a#LOG#2024-01-02T00:00:00.000Z#2", nil),
		item(t, "USER#u1", "BOOK#b", nil),
		item(t, "USER#u1", "BOOK#c", nil),
	)

	booksOnly := func(it store.Item) bool { return store.KindOf(it.SK) == store.KindBook }
	got, _ := collectPages(t, tbl, store.QueryInput{PK: "USER#u1", Prefix: store.BookPrefix, Limit: 2, Filter: booksOnly})
	assert.Equal(t, []string{"BOOK#a", "BOOK#b", "BOOK#c"}, got)
}

func testQueryMultibytePrefix(t *testing.T, tbl store.Table) {
	put(t, tbl,
		item(t, "USER#u1", "SKILL#読書", nil),
		item(t, "USER#u1", "SKILL#読書会", nil),
		item(t, "USER#u1", "SKILL#読む", nil),
	)

	out, err := tbl.Query(context.Background(), store.QueryInput{PK: "USER#u1", Prefix: "SKILL#読書"})
	require.NoError(t, err)
	assert.Equal(t, []string{"SKILL#読書", "SKILL#読書会"}, sortKeys(out.Items))
}

func testAtomicAdd(t *testing.T, tbl store.Table) {
	ctx := context.Background()
	key := store.Key{PK: "USER#u1", SK: "SKILL#Go"}
	derive := func(v int64) map[string]any {
		return map[string]any{"name": "Go", "double": v * 2}
	}

	out, err := tbl.AtomicAdd(ctx, store.AddInput{Key: key, Field: "exp", Delta: 30, Derive: derive})
	require.NoError(t, err)
	assert.Equal(t, store.AddOutput{Previous: 0, Value: 30, Created: true}, out)

	out, err = tbl.AtomicAdd(ctx, store.AddInput{Key: key, Field: "exp", Delta: 25, Derive: derive})
	require.NoError(t, err)
	assert.Equal(t, store.AddOutput{Previous: 30, Value: 55}, out)

	got, err := tbl.Get(ctx, key)
	require.NoError(t, err)
	exp, _, err := got.Attrs.Int64("exp")
	require.NoError(t, err)
	double, _, err := got.Attrs.Int64("double")
	require.NoError(t, err)
	assert.Equal(t, int64(55), exp)
	assert.Equal(t, int64(110), double)
}

func testAtomicAddConcurrent(t *testing.T, tbl store.Table) {
	ctx := context.Background()
	key := store.Key{PK: "USER#u1", SK: "SKILL#Go"}
	const workers = 50

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		previous []int64
	)
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := tbl.AtomicAdd(ctx, store.AddInput{Key: key, Field: "exp", Delta: 1})
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			previous = append(previous, out.Previous)
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := tbl.Get(ctx, key)
	require.NoError(t, err)
	exp, _, err := got.Attrs.Int64("exp")
	require.NoError(t, err)
	assert.Equal(t, int64(workers), exp)

	// Every increment observed a distinct previous value.
	sort.Slice(previous, func(i, j int) bool { return previous[i] < previous[j] })
	for i, p := range previous {
		assert.Equal(t, int64(i), p)
	}
}

func testCount(t *testing.T, tbl store.Table) {
	fiveLogs(t, tbl)
	ctx := context.Background()

	n, err := tbl.Count(ctx, "USER#u1", "BOOK#b1#LOG#")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = tbl.Count(ctx, "USER#u1", "BOOK#")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = tbl.Count(ctx, "USER#nobody", "BOOK#")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testPutBatch(t *testing.T, tbl store.Table) {
	bp, ok := tbl.(store.BatchPutter)
	if !ok {
		t.Skip("table does not support batch writes")
	}

	var items []store.Item
	for _, name := range []string{"Go", "Rust", "Python"} {
		items = append(items, item(t, store.GlobalPK, store.SkillSK(name), map[string]any{"name": name}))
	}
	require.NoError(t, bp.PutBatch(context.Background(), items))

	n, err := tbl.Count(context.Background(), store.GlobalPK, store.SkillPrefix)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func testCanceledContext(t *testing.T, tbl store.Table) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tbl.Get(ctx, store.Key{PK: "USER#u1", SK: "BOOK#b1"})
	assert.ErrorIs(t, err, context.Canceled)

	err = tbl.Put(ctx, item(t, "USER#u1", "BOOK#b1", nil))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = tbl.Query(ctx, store.QueryInput{PK: "USER#u1"})
	assert.ErrorIs(t, err, context.Canceled)
}
