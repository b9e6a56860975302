package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/tsundokudragon/dragon-server/internal/domain"
)

// versionField is the attribute guarding conditional book writes.
const versionField = "version"

// Book Operations

// CreateBook stores a new book. Fails if the user already has a book with the same id.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	if err := ValidateBookID(book.ID); err != nil {
		return fmt.Errorf("create book: %w", err)
	}

	key := Key{PK: UserPK(book.UserID), SK: BookSK(book.ID)}
	if err := s.Books.Create(ctx, key, book); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return fmt.Errorf("create book %s: %w", book.ID, err)
		}
		return wrapStorage(err, "create book")
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "book created",
			slog.String("user_id", book.UserID),
			slog.String("book_id", book.ID),
			slog.String("title", book.Title),
			slog.Int("total_pages", book.TotalPages),
		)
	}
	return nil
}

// GetBook retrieves a user's book by id.
func (s *Store) GetBook(ctx context.Context, userID, bookID string) (*domain.Book, error) {
	if ValidateBookID(bookID) != nil {
		return nil, ErrBookNotFound
	}

	book, err := s.Books.Get(ctx, Key{PK: UserPK(userID), SK: BookSK(bookID)})
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, wrapStorage(err, "get book")
	}
	return book, nil
}

// UpdateBook writes book if the stored version still equals expectedVersion.
// Returns ErrVersionConflict when another writer got there first.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book, expectedVersion int64) error {
	key := Key{PK: UserPK(book.UserID), SK: BookSK(book.ID)}

	err := s.Books.Put(ctx, key, book, IfVersion(versionField, expectedVersion))
	if errors.Is(err, ErrConditionFailed) {
		if s.logger != nil {
			s.logger.LogAttrs(ctx, slog.LevelDebug, "book version conflict",
				slog.String("user_id", book.UserID),
				slog.String("book_id", book.ID),
				slog.Int64("expected_version", expectedVersion),
			)
		}
		return ErrVersionConflict
	}
	if err != nil {
		return wrapStorage(err, "update book")
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "book updated",
			slog.String("user_id", book.UserID),
			slog.String("book_id", book.ID),
			slog.String("status", string(book.Status)),
			slog.Int64("version", book.Version),
		)
	}
	return nil
}

// ListBooks returns one page of a user's books in id order. When statuses
// are given only books in one of them are returned.
func (s *Store) ListBooks(ctx context.Context, userID string, params PaginationParams, statuses ...domain.BookStatus) (*PaginatedResult[*domain.Book], error) {
	q := pageQuery[domain.Book]{
		pk:     UserPK(userID),
		prefix: BookPrefix,
		params: params,
	}
	if len(statuses) > 0 {
		q.keep = func(b *domain.Book) bool {
			return slices.Contains(statuses, b.Status)
		}
	}

	result, err := s.Books.page(ctx, q)
	if err != nil {
		return nil, wrapStorage(err, "list books")
	}
	return result, nil
}

// ListAllBooks returns every book of a user. Used for per-user aggregates.
func (s *Store) ListAllBooks(ctx context.Context, userID string) ([]*domain.Book, error) {
	books, err := s.Books.All(ctx, UserPK(userID), BookPrefix)
	if err != nil {
		return nil, wrapStorage(err, "list all books")
	}
	return books, nil
}
