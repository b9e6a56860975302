package store

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tsundokudragon/dragon-server/internal/domain"
)

// ListCustomSkills returns the skills a user introduced, in name order.
func (s *Store) ListCustomSkills(ctx context.Context, userID string) ([]*domain.CustomSkill, error) {
	skills, err := s.CustomSkills.All(ctx, UserPK(userID), CustomSkillPrefix)
	if err != nil {
		return nil, wrapStorage(err, "list custom skills")
	}
	return skills, nil
}

// PutCustomSkill records a custom skill for a user. Writing an existing name
// again only refreshes its createdAt.
func (s *Store) PutCustomSkill(ctx context.Context, userID, name string) error {
	skill := &domain.CustomSkill{Name: name, CreatedAt: domain.Now()}
	if err := s.CustomSkills.Put(ctx, Key{PK: UserPK(userID), SK: CustomSkillSK(name)}, skill); err != nil {
		return wrapStorage(err, "put custom skill")
	}
	return nil
}

// RegisterCustomSkills records the names that are neither in the global
// catalog nor already registered for the user. It reads the catalog and the
// user's custom skills once each, then writes the new names concurrently.
// Returns the names written.
func (s *Store) RegisterCustomSkills(ctx context.Context, userID string, names []string) ([]string, error) {
	names = domain.NormalizeSkillNames(names)
	if len(names) == 0 {
		return nil, nil
	}

	g, gctx := errgroup.WithContext(ctx)

	var global []domain.GlobalSkill
	var custom []*domain.CustomSkill
	g.Go(func() error {
		var err error
		global, err = s.ListGlobalSkills(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		custom, err = s.ListCustomSkills(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(global)+len(custom))
	for _, gs := range global {
		known[gs.Name] = struct{}{}
	}
	for _, cs := range custom {
		known[cs.Name] = struct{}{}
	}

	var fresh []string
	for _, name := range names {
		if _, ok := known[name]; !ok {
			fresh = append(fresh, name)
		}
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	g, gctx = errgroup.WithContext(ctx)
	for _, name := range fresh {
		g.Go(func() error {
			return s.PutCustomSkill(gctx, userID, name)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "custom skills registered",
			slog.String("user_id", userID),
			slog.Any("skills", fresh),
		)
	}
	return fresh, nil
}
