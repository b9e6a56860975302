// Package service implements the reading tracker's operations: book
// lifecycle, battles, and skill progression.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tsundokudragon/dragon-server/internal/domain"
	domainerrors "github.com/tsundokudragon/dragon-server/internal/errors"
	"github.com/tsundokudragon/dragon-server/internal/id"
	"github.com/tsundokudragon/dragon-server/internal/store"
	"github.com/tsundokudragon/dragon-server/internal/validation"
)

// CreateBookInput is the data needed to register a book.
type CreateBookInput struct {
	Title      string   `json:"title" validate:"required,max=200"`
	ISBN       string   `json:"isbn,omitempty" validate:"omitempty,max=20"`
	TotalPages int      `json:"totalPages" validate:"gt=0"`
	Skills     []string `json:"skills,omitempty" validate:"omitempty,max=20,dive,skillname"`
}

// UpdateBookInput carries the fields to change. Nil fields are left as they
// are. A non-nil Skills, even an empty one, replaces the skill tags.
type UpdateBookInput struct {
	Title      *string  `json:"title,omitempty" validate:"omitnil,min=1,max=200"`
	ISBN       *string  `json:"isbn,omitempty" validate:"omitnil,max=20"`
	TotalPages *int     `json:"totalPages,omitempty" validate:"omitnil,gt=0"`
	Skills     []string `json:"skills,omitempty" validate:"omitempty,max=20,dive,skillname"`
}

// bookFilter narrows a book listing.
type bookFilter struct {
	Statuses []domain.BookStatus `json:"status" validate:"dive,bookstatus"`
}

// BookService orchestrates book operations.
type BookService struct {
	store     *store.Store
	validator *validation.Validator
	books     bookMutator
	logger    *slog.Logger
}

// NewBookService creates a new book service. maxRetries bounds the replays
// of a write that lost a concurrent update; zero selects DefaultMaxRetries.
func NewBookService(store *store.Store, validator *validation.Validator, maxRetries int, logger *slog.Logger) *BookService {
	return &BookService{
		store:     store,
		validator: validator,
		books:     newBookMutator(store, maxRetries),
		logger:    logger,
	}
}

// CreateBook registers a new book in the reading state and records any of
// its skills that are new to the user.
func (s *BookService) CreateBook(ctx context.Context, userID string, input CreateBookInput) (*domain.Book, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	bookID, err := id.NewBookID()
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate book id")
	}

	book := domain.NewBook(bookID, userID, input.Title, input.TotalPages)
	book.ISBN = input.ISBN
	book.SetSkills(input.Skills)

	if err := s.store.CreateBook(ctx, book); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Wrap(err, domainerrors.CodeConflict, "book id collision")
		}
		return nil, err
	}

	if err := s.registerSkills(ctx, book); err != nil {
		return nil, err
	}

	return book, nil
}

// GetBook returns one of the user's books.
func (s *BookService) GetBook(ctx context.Context, userID, bookID string) (*domain.Book, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.store.GetBook(ctx, userID, bookID)
}

// ListBooks returns a page of the user's books, optionally restricted to
// the given statuses.
func (s *BookService) ListBooks(ctx context.Context, userID string, params store.PaginationParams, statuses ...domain.BookStatus) (*store.PaginatedResult[*domain.Book], error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(bookFilter{Statuses: statuses}); err != nil {
		return nil, err
	}
	return s.store.ListBooks(ctx, userID, params, statuses...)
}

// UpdateBook changes the provided fields of a book that is not archived.
func (s *BookService) UpdateBook(ctx context.Context, userID, bookID string, input UpdateBookInput) (*domain.Book, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	book, err := s.books.mutate(ctx, userID, bookID, func(b *domain.Book) error {
		if !b.CanEdit() {
			return domainerrors.InvalidState("cannot update archived book")
		}
		if input.TotalPages != nil {
			if *input.TotalPages < b.CurrentPage {
				return domainerrors.ValidationWithDetails("validation failed", map[string]string{
					"totalPages": "must not be less than the current page",
				})
			}
			// A dragon in battle keeps at least one hit point; it is only
			// defeated by an attack.
			if b.Status == domain.BookStatusReading && *input.TotalPages == b.CurrentPage {
				return domainerrors.ValidationWithDetails("validation failed", map[string]string{
					"totalPages": "must be greater than the current page while reading",
				})
			}
		}

		if input.Title != nil {
			b.Title = *input.Title
		}
		if input.ISBN != nil {
			b.ISBN = *input.ISBN
		}
		if input.TotalPages != nil {
			b.TotalPages = *input.TotalPages
		}
		if input.Skills != nil {
			b.SetSkills(input.Skills)
		}
		b.Touch()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book updated",
		"user_id", userID,
		"book_id", bookID,
		"version", book.Version,
	)

	if input.Skills != nil {
		if err := s.registerSkills(ctx, book); err != nil {
			return nil, err
		}
	}
	return book, nil
}

// ArchiveBook moves a book to the terminal archived state.
func (s *BookService) ArchiveBook(ctx context.Context, userID, bookID string) (*domain.Book, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	book, err := s.books.mutate(ctx, userID, bookID, func(b *domain.Book) error {
		if !b.CanArchive() {
			return domainerrors.InvalidState("book is already archived")
		}
		b.Archive()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book archived", "user_id", userID, "book_id", bookID)
	return book, nil
}

// ResetBook starts a new round on a completed book.
func (s *BookService) ResetBook(ctx context.Context, userID, bookID string) (*domain.Book, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	book, err := s.books.mutate(ctx, userID, bookID, func(b *domain.Book) error {
		if !b.CanReset() {
			return domainerrors.InvalidState("can only reset completed books")
		}
		b.Reset()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book reset", "user_id", userID, "book_id", bookID, "round", book.Round)
	return book, nil
}

// registerSkills records the book's skills in the user's custom-skill
// registry. The book is already stored, so a failure here is partial.
func (s *BookService) registerSkills(ctx context.Context, book *domain.Book) error {
	if len(book.Skills) == 0 {
		return nil
	}

	if _, err := s.store.RegisterCustomSkills(ctx, book.UserID, book.Skills); err != nil {
		s.logger.Error("custom skill registration failed",
			"user_id", book.UserID,
			"book_id", book.ID,
			"skills", book.Skills,
			"error", err,
		)
		return domainerrors.PartialFailure(err, "book saved but skill registration failed", map[string]any{
			"bookId":    book.ID,
			"completed": []string{"save_book"},
			"failed":    []string{"register_custom_skills"},
		})
	}
	return nil
}

func requireUser(userID string) error {
	if userID == "" {
		return domainerrors.ValidationWithDetails("validation failed", map[string]string{"userId": "is required"})
	}
	return nil
}
