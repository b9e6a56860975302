package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tsundokudragon/dragon-server/internal/domain"
)

// DefaultLogPageLimit is the page size of log listings when none is requested.
const DefaultLogPageLimit = 20

// CreateBattleLog appends an immutable battle log under its book.
func (s *Store) CreateBattleLog(ctx context.Context, log *domain.BattleLog) error {
	if err := ValidateBookID(log.BookID); err != nil {
		return fmt.Errorf("create battle log: %w", err)
	}

	key := Key{
		PK: UserPK(log.UserID),
		SK: BattleLogSK(log.BookID, log.CreatedAt, log.ID),
	}
	if err := s.BattleLogs.Create(ctx, key, log); err != nil {
		return wrapStorage(err, "create battle log")
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "battle log created",
			slog.String("user_id", log.UserID),
			slog.String("book_id", log.BookID),
			slog.String("log_id", log.ID),
			slog.Int("pages_read", log.PagesRead),
		)
	}
	return nil
}

// ListBattleLogs returns one page of a book's logs, newest first.
// Total carries the number of logs the book has.
func (s *Store) ListBattleLogs(ctx context.Context, userID, bookID string, params PaginationParams) (*PaginatedResult[*domain.BattleLog], error) {
	if params.Limit <= 0 {
		params.Limit = DefaultLogPageLimit
	}

	result, err := s.BattleLogs.page(ctx, pageQuery[domain.BattleLog]{
		pk:         UserPK(userID),
		prefix:     BattleLogPrefix(bookID),
		params:     params,
		descending: true,
	})
	if err != nil {
		return nil, wrapStorage(err, "list battle logs")
	}

	total, err := s.CountBattleLogs(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	result.Total = total

	return result, nil
}

// CountBattleLogs returns the number of logs recorded against a book.
func (s *Store) CountBattleLogs(ctx context.Context, userID, bookID string) (int, error) {
	n, err := s.table.Count(ctx, UserPK(userID), BattleLogPrefix(bookID))
	if err != nil {
		return 0, wrapStorage(err, "count battle logs")
	}
	return n, nil
}
