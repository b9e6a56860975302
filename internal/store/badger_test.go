package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tsundokudragon/dragon-server/internal/store"
	"github.com/tsundokudragon/dragon-server/internal/store/storetest"
)

func TestBadgerTable_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Table {
		tbl, err := store.OpenBadger(filepath.Join(t.TempDir(), "badger"), nil)
		require.NoError(t, err)
		return tbl
	})
}

func TestBadgerTable_InMemoryConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Table {
		tbl, err := store.OpenBadger("", nil)
		require.NoError(t, err)
		return tbl
	})
}
