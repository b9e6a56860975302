// Package store maps the reading tracker's entities onto one key-value
// table addressed by partition and sort key, and implements cursor
// pagination over it.
package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tsundokudragon/dragon-server/internal/domain"
)

// DefaultGlobalSkillCacheTTL is how long the global catalog is served from memory.
const DefaultGlobalSkillCacheTTL = 5 * time.Minute

// globalSkillsCacheKey is the only key of the catalog cache; the catalog is
// always read whole.
const globalSkillsCacheKey = "all"

// Options configures a Store.
type Options struct {
	// CursorSecret signs pagination cursors. Required.
	CursorSecret []byte
	// GlobalSkillCacheTTL bounds the staleness of the cached global catalog.
	// Zero selects DefaultGlobalSkillCacheTTL.
	GlobalSkillCacheTTL time.Duration
}

// Store provides the entity operations of the reading tracker on top of a Table.
type Store struct {
	table   Table
	logger  *slog.Logger
	cursors *CursorCodec

	// Global catalog cache. Only PutGlobalSkills invalidates it. catalogGen
	// counts catalog writes so a read that overlapped a write is not cached.
	globalSkills *expirable.LRU[string, []domain.GlobalSkill]
	catalogMu    sync.Mutex
	catalogGen   uint64

	// Generic entities
	Books        *Entity[domain.Book]
	BattleLogs   *Entity[domain.BattleLog]
	Skills       *Entity[domain.SkillExperience]
	CustomSkills *Entity[domain.CustomSkill]
	GlobalSkills *Entity[domain.GlobalSkill]
}

// New creates a Store over table. The store takes ownership of the table and
// closes it on Close.
func New(table Table, logger *slog.Logger, opts Options) *Store {
	ttl := opts.GlobalSkillCacheTTL
	if ttl <= 0 {
		ttl = DefaultGlobalSkillCacheTTL
	}

	s := &Store{
		table:        table,
		logger:       logger,
		cursors:      NewCursorCodec(opts.CursorSecret),
		globalSkills: expirable.NewLRU[string, []domain.GlobalSkill](1, nil, ttl),
	}

	s.Books = NewEntity[domain.Book](s, KindBook)
	s.BattleLogs = NewEntity[domain.BattleLog](s, KindBattleLog)
	s.Skills = NewEntity[domain.SkillExperience](s, KindSkill)
	s.CustomSkills = NewEntity[domain.CustomSkill](s, KindCustomSkill)
	s.GlobalSkills = NewEntity[domain.GlobalSkill](s, KindSkill)

	return s
}

// Table exposes the underlying table for inspection tooling.
func (s *Store) Table() Table {
	return s.table
}

// Close releases the underlying table.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Debug("closing store")
	}
	return s.table.Close()
}
