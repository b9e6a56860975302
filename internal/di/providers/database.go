package providers

import (
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/tsundokudragon/dragon-server/internal/config"
	"github.com/tsundokudragon/dragon-server/internal/logger"
	"github.com/tsundokudragon/dragon-server/internal/store"
	"github.com/tsundokudragon/dragon-server/internal/store/bbolt"
	"github.com/tsundokudragon/dragon-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
	log *logger.Logger
}

// Shutdown implements do.ShutdownerWithError.
func (h *StoreHandle) Shutdown() error {
	if err := h.Close(); err != nil {
		h.log.Error("failed to close store", "error", err)
		return err
	}
	return nil
}

// ProvideStore opens the configured backend and builds the store on top of it.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Store.DataPath, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	table, err := OpenTable(cfg.Store.Backend, cfg.StorePath(), log)
	if err != nil {
		return nil, err
	}

	s := store.New(table, log.Logger, store.Options{
		CursorSecret:        []byte(cfg.Store.CursorSecret),
		GlobalSkillCacheTTL: cfg.Store.GlobalSkillCacheTTL,
	})

	log.Debug("store ready", "backend", cfg.Store.Backend, "path", cfg.StorePath())

	return &StoreHandle{Store: s, log: log}, nil
}

// OpenTable opens the table of the named backend at path.
func OpenTable(backend, path string, log *logger.Logger) (store.Table, error) {
	switch backend {
	case config.BackendBadger:
		return store.OpenBadger(path, log.Logger)
	case config.BackendSQLite:
		return sqlite.Open(path, log.Logger)
	case config.BackendBBolt:
		return bbolt.Open(path, log.Logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
