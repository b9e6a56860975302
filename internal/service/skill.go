package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/tsundokudragon/dragon-server/internal/domain"
	"github.com/tsundokudragon/dragon-server/internal/progression"
	"github.com/tsundokudragon/dragon-server/internal/store"
)

// topSkillCount is the number of skills shown in a user's status.
const topSkillCount = 3

// SkillView is a skill experience record with its position inside the current level.
type SkillView struct {
	domain.SkillExperience
	Progress progression.Progress `json:"progress"`
}

// SkillsOverview lists every skill name a user can pick and the user's experience.
type SkillsOverview struct {
	GlobalSkills  []string    `json:"globalSkills"`
	UserSkills    []string    `json:"userSkills"`
	UserSkillExps []SkillView `json:"userSkillExps"`
}

// UserStatus summarizes a user's reading.
type UserStatus struct {
	CompletedCount int         `json:"completedCount"`
	TotalPagesRead int         `json:"totalPagesRead"`
	TopSkills      []SkillView `json:"topSkills"`
}

// SkillService serves skill listings and per-user summaries.
type SkillService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewSkillService creates a new skill service.
func NewSkillService(store *store.Store, logger *slog.Logger) *SkillService {
	return &SkillService{
		store:  store,
		logger: logger,
	}
}

// GetSkills fetches the global catalog, the user's custom skills and the
// user's experience records concurrently.
func (s *SkillService) GetSkills(ctx context.Context, userID string) (*SkillsOverview, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var (
		global []domain.GlobalSkill
		custom []*domain.CustomSkill
		exps   []*domain.SkillExperience
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		global, err = s.store.ListGlobalSkills(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		custom, err = s.store.ListCustomSkills(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		exps, err = s.store.ListSkillExps(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	overview := &SkillsOverview{
		GlobalSkills:  make([]string, 0, len(global)),
		UserSkills:    make([]string, 0, len(custom)),
		UserSkillExps: skillViews(exps),
	}
	for _, gs := range global {
		overview.GlobalSkills = append(overview.GlobalSkills, gs.Name)
	}
	for _, cs := range custom {
		overview.UserSkills = append(overview.UserSkills, cs.Name)
	}
	return overview, nil
}

// GetUserStatus counts completed books, sums the pages read across books
// that are not archived, and picks the top skills by level then experience.
func (s *SkillService) GetUserStatus(ctx context.Context, userID string) (*UserStatus, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var (
		books []*domain.Book
		exps  []*domain.SkillExperience
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		books, err = s.store.ListAllBooks(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		exps, err = s.store.ListSkillExps(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	status := &UserStatus{}
	for _, b := range books {
		if b.Status == domain.BookStatusArchived {
			continue
		}
		if b.Status == domain.BookStatusCompleted {
			status.CompletedCount++
		}
		status.TotalPagesRead += b.CurrentPage
	}

	views := skillViews(exps)
	slices.SortStableFunc(views, func(a, b SkillView) int {
		if c := cmp.Compare(b.Level, a.Level); c != 0 {
			return c
		}
		return cmp.Compare(b.Exp, a.Exp)
	})
	status.TopSkills = views[:min(topSkillCount, len(views))]

	s.logger.Debug("user status computed",
		"user_id", userID,
		"books", len(books),
		"skills", len(exps),
	)
	return status, nil
}

func skillViews(exps []*domain.SkillExperience) []SkillView {
	views := make([]SkillView, 0, len(exps))
	for _, e := range exps {
		views = append(views, SkillView{
			SkillExperience: *e,
			Progress:        progression.ProgressFor(e.Exp),
		})
	}
	return views
}
