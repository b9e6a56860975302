package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tsundokudragon/dragon-server/internal/domain"
	domainerrors "github.com/tsundokudragon/dragon-server/internal/errors"
	"github.com/tsundokudragon/dragon-server/internal/id"
	"github.com/tsundokudragon/dragon-server/internal/progression"
	"github.com/tsundokudragon/dragon-server/internal/store"
	"github.com/tsundokudragon/dragon-server/internal/validation"
)

// RecordBattleInput describes one reading session.
type RecordBattleInput struct {
	PagesRead int    `json:"pagesRead" validate:"gt=0"`
	Memo      string `json:"memo,omitempty" validate:"max=500"`
}

// BattleService records reading sessions and the progression they earn.
type BattleService struct {
	store     *store.Store
	validator *validation.Validator
	books     bookMutator
	logger    *slog.Logger
}

// NewBattleService creates a new battle service. maxRetries bounds the
// replays of a battle that lost a concurrent update to its book.
func NewBattleService(store *store.Store, validator *validation.Validator, maxRetries int, logger *slog.Logger) *BattleService {
	return &BattleService{
		store:     store,
		validator: validator,
		books:     newBookMutator(store, maxRetries),
		logger:    logger,
	}
}

// RecordBattle applies a reading session to a book.
//
// The pages are clamped to the pages left, the book is written first
// (conditionally on its version, replayed on conflicts), then the battle log,
// then every skill of the book gains the pages read plus the defeat bonus
// when the book was finished. Failures after the book write are reported as
// PARTIAL_FAILURE; completed steps are not rolled back.
func (s *BattleService) RecordBattle(ctx context.Context, userID, bookID string, input RecordBattleInput) (*domain.BattleResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	var attack domain.Attack
	book, err := s.books.mutate(ctx, userID, bookID, func(b *domain.Book) error {
		if !b.CanAttack() {
			return domainerrors.InvalidState("book is not in reading status")
		}
		if b.RemainingPages() == 0 {
			return domainerrors.ValidationWithDetails("validation failed", map[string]string{
				"pagesRead": "book has no pages left to read",
			})
		}
		attack = b.Attack(input.PagesRead)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logID, err := id.NewLogID()
	if err != nil {
		return nil, s.partialFailure(ctx, book, err, "battle log id generation failed", nil)
	}

	log := domain.NewBattleLog(logID, userID, bookID, attack.PagesRead, input.Memo)
	if err := s.store.CreateBattleLog(ctx, log); err != nil {
		return nil, s.partialFailure(ctx, book, err, "book updated but battle log write failed", nil)
	}

	var bonus int64
	if attack.Defeated {
		bonus = progression.DefeatBonus(book.TotalPages)
	}
	expGained := int64(attack.PagesRead) + bonus

	results, failed, err := s.gainSkillExp(ctx, userID, book.Skills, expGained)
	if err != nil {
		return nil, s.partialFailure(ctx, book, err, "battle recorded but skill experience update failed", failed)
	}

	s.logger.Info("battle recorded",
		"user_id", userID,
		"book_id", bookID,
		"pages_read", attack.PagesRead,
		"defeated", attack.Defeated,
		"exp_gained", expGained,
	)

	return &domain.BattleResult{
		Log:          log,
		Book:         book,
		Defeat:       attack.Defeated,
		ExpGained:    expGained,
		DefeatBonus:  bonus,
		SkillResults: results,
	}, nil
}

// gainSkillExp adds exp to every skill concurrently. Results keep the order
// of skills. On failure the names of the skills that failed are returned
// alongside the first error.
func (s *BattleService) gainSkillExp(ctx context.Context, userID string, skills []string, exp int64) ([]domain.SkillResult, []string, error) {
	results := make([]domain.SkillResult, len(skills))
	errs := make([]error, len(skills))

	var wg sync.WaitGroup
	for i, name := range skills {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gain, err := s.store.AddSkillExp(ctx, userID, name, exp)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = domain.SkillResult{
				SkillName:     gain.Name,
				ExpGained:     exp,
				TotalExp:      gain.Exp,
				PreviousLevel: gain.PreviousLevel,
				CurrentLevel:  gain.Level,
				LeveledUp:     gain.LeveledUp(),
			}
		}()
	}
	wg.Wait()

	var failed []string
	var first error
	for i, err := range errs {
		if err != nil {
			failed = append(failed, skills[i])
			if first == nil {
				first = err
			}
		}
	}
	return results, failed, first
}

func (s *BattleService) partialFailure(ctx context.Context, book *domain.Book, err error, msg string, failedSkills []string) error {
	completed := []string{"update_book"}
	failed := []string{"create_battle_log"}
	if failedSkills != nil {
		completed = append(completed, "create_battle_log")
		failed = nil
		for _, name := range failedSkills {
			failed = append(failed, "add_skill_exp:"+name)
		}
	}

	s.logger.ErrorContext(ctx, "battle partially applied",
		"user_id", book.UserID,
		"book_id", book.ID,
		"book_version", book.Version,
		"completed", completed,
		"failed", failed,
		"error", err,
	)

	return domainerrors.PartialFailure(err, msg, map[string]any{
		"bookId":    book.ID,
		"completed": completed,
		"failed":    failed,
	})
}

// GetBookLogs returns a page of a book's battle logs, newest first, with the
// total number of logs.
func (s *BattleService) GetBookLogs(ctx context.Context, userID, bookID string, params store.PaginationParams) (*store.PaginatedResult[*domain.BattleLog], error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetBook(ctx, userID, bookID); err != nil {
		return nil, err
	}
	return s.store.ListBattleLogs(ctx, userID, bookID, params)
}
