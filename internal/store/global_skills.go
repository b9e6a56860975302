package store

import (
	"context"
	"log/slog"
	"slices"

	"github.com/tsundokudragon/dragon-server/internal/domain"
)

// BatchPutter is implemented by tables that can write many unconditional
// items in one round trip.
type BatchPutter interface {
	PutBatch(ctx context.Context, items []Item) error
}

// ListGlobalSkills returns the shared skill catalog in name order. The
// catalog is served from memory for the configured TTL.
func (s *Store) ListGlobalSkills(ctx context.Context) ([]domain.GlobalSkill, error) {
	if cached, ok := s.globalSkills.Get(globalSkillsCacheKey); ok {
		return slices.Clone(cached), nil
	}

	s.catalogMu.Lock()
	gen := s.catalogGen
	s.catalogMu.Unlock()

	skills, err := s.GlobalSkills.All(ctx, GlobalPK, SkillPrefix)
	if err != nil {
		return nil, wrapStorage(err, "list global skills")
	}

	catalog := make([]domain.GlobalSkill, 0, len(skills))
	for _, gs := range skills {
		catalog = append(catalog, *gs)
	}

	s.catalogMu.Lock()
	if s.catalogGen == gen {
		s.globalSkills.Add(globalSkillsCacheKey, catalog)
	}
	s.catalogMu.Unlock()

	return slices.Clone(catalog), nil
}

// PutGlobalSkill adds or replaces a catalog entry. Only seeding and
// administration write the catalog.
func (s *Store) PutGlobalSkill(ctx context.Context, skill domain.GlobalSkill) error {
	return s.PutGlobalSkills(ctx, []domain.GlobalSkill{skill})
}

// PutGlobalSkills writes several catalog entries, batched when the table
// supports it.
func (s *Store) PutGlobalSkills(ctx context.Context, skills []domain.GlobalSkill) error {
	defer s.invalidateGlobalSkills()

	items := make([]Item, 0, len(skills))
	for _, skill := range skills {
		attrs, err := MarshalAttributes(skill)
		if err != nil {
			return err
		}
		items = append(items, Item{Key: Key{PK: GlobalPK, SK: SkillSK(skill.Name)}, Attrs: attrs})
	}

	if bp, ok := s.table.(BatchPutter); ok && len(items) > 1 {
		if err := bp.PutBatch(ctx, items); err != nil {
			return wrapStorage(err, "put global skills")
		}
	} else {
		for _, item := range items {
			if err := s.table.Put(ctx, item); err != nil {
				return wrapStorage(err, "put global skill")
			}
		}
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "global skills written",
			slog.Int("count", len(items)),
		)
	}
	return nil
}

// invalidateGlobalSkills drops the cached catalog and makes reads that
// started before the call skip caching their result.
func (s *Store) invalidateGlobalSkills() {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.catalogGen++
	s.globalSkills.Purge()
}
