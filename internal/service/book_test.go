package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsundokudragon/dragon-server/internal/domain"
	domainerrors "github.com/tsundokudragon/dragon-server/internal/errors"
	"github.com/tsundokudragon/dragon-server/internal/store"
)

func ptr[T any](v T) *T { return &v }

func TestCreateBook(t *testing.T) {
	svc, cleanup := setupTestServices(t)
	defer cleanup()
	ctx := context.Background()

	book, err := svc.books.CreateBook(ctx, "u1", CreateBookInput{
		Title:      "Dune",
		ISBN:       "9780441013593",
		TotalPages: 412,
		Skills:     []string{"SF", " SF ", "Worldbuilding"},
	})
	require.NoError(t, err)

	assert.Len(t, book.ID, 21)
	assert.Equal(t, "u1", book.UserID)
	assert.Equal(t, 0, book.CurrentPage)
	assert.Equal(t, domain.BookStatusReading, book.Status)
	assert.Equal(t, 1, book.Round)
	assert.Equal(t, []string{"SF", "Worldbuilding"}, book.Skills)

	stored, err := svc.books.GetBook(ctx, "u1", book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Title, stored.Title)
	assert.Equal(t, "9780441013593", stored.ISBN)

	custom, err := svc.store.ListCustomSkills(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, custom, 2)
}

func TestCreateBook_Validation(t *testing.T) {
	svc, cleanup := setupTestServices(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateBookInput
	}{
		{"missing title", CreateBookInput{TotalPages: 10}},
		{"zero pages", CreateBookInput{Title: "x"}},
		{"negative pages", CreateBookInput{Title: "x", TotalPages: -1}},
		{"blank skill", CreateBookInput{Title: "x", TotalPages: 1, Skills: []string{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.books.CreateBook(ctx, "u1", tt.input)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
		})
	}
}

func TestCreateBook_SkipsGlobalSkills(t *testing.T) {
	svc, cleanup := setupTestServices(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, svc.store.PutGlobalSkill(ctx, domain.GlobalSkill{Name: "SF", Category: "Fiction"}))

	_, err := svc.books.CreateBook(ctx, "u1", CreateBookInput{Title: "a", TotalPages: 1, Skills: []string{"SF", "Zig"}})
	require.NoError(t, err)
	_, err = svc.books.CreateBook(ctx, "u1", CreateBookInput{Title: "b", TotalPages: 1, Skills: []string{"Zig"}})
	require.NoError(t, err)

	custom, err := svc.store.ListCustomSkills(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, custom, 1, "registering the same skill twice keeps one record")
	assert.Equal(t, "Zig", custom[0].Name)
}

func TestListBooks(t *testing.T) {
	svc, cleanup := setupTestServices(t)
	defer cleanup()
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		_, err := svc.books.CreateBook(ctx, "u1", CreateBookInput{Title: title, TotalPages: 10})
		require.NoError(t, err)
	}

	page, err := svc.books.ListBooks(ctx, "u1", store.PaginationParams{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.False(t, page.HasMore)

	page, err = svc.books.ListBooks(ctx, "u1", store.PaginationParams{}, domain.BookStatusCompleted)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = svc.books.ListBooks(ctx, "u1", store.PaginationParams{}, domain.BookStatusReading, domain.BookStatus("paused"))
	require.ErrorIs(t, err, domainerrors.ErrValidation)
	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, map[string]string{"status[1]": "must be one of: reading completed archived"}, domainErr.Details)
}

func TestUpdateBook(t *testing.T) {
	svc, cleanup := setupTestServices(t)
	defer cleanup()
	ctx := context.Background()

	book := putBook(t, svc.store, "u1", func(b *domain.Book) {
		b.CurrentPage = 40
		b.Skills = []string{"SF"}
	})

	updated, err := svc.books.UpdateBook(ctx, "u1", book.ID, UpdateBookInput{
		Title:      ptr("Renamed"),
		TotalPages: ptr(120),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, 120, updated.TotalPages)
	assert.Equal(t, []string{"SF"}, updated.Skills, "omitted fields are kept")
	assert.Equal(t, book.Version+1, updated.Version)

	updated, err = svc.books.UpdateBook(ctx, "u1", book.ID, UpdateBookInput{Skills: []string{}})
	require.NoError(t, err)
	assert.Empty(t, updated.Skills)
	assert.Equal(t, "Renamed", updated.Title)
}

func TestUpdateBook_Rejects(t *testing.T) {
	svc, cleanup := setupTestServices(t)
	defer cleanup()
	ctx := context.Background()

	book := putBook(t, svc.store, "u1", func(b *domain.Book) {
		b.CurrentPage = 40
	})

	_, err := svc.books.UpdateBook(ctx, "u1", book.ID, UpdateBookInput{TotalPages: ptr(39)})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = svc.books.UpdateBook(ctx, "u1", book.ID, UpdateBookInput{Title: ptr("")})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = svc.books.UpdateBook(ctx, "u1", "missing", UpdateBookInput{Title: ptr("x")})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = svc.books.ArchiveBook(ctx, "u1", book.ID)
	require.NoError(t, err)

	_, err = svc.books.UpdateBook(ctx, "u1", book.ID, UpdateBookInput{Title: ptr("x")})
	require.ErrorIs(t, err, domainerrors.ErrInvalidState)
	assert.Contains(t, err.Error(), "cannot update archived book")
}

func TestUpdateBook_ReadingBookKeepsPagesLeft(t *testing.T) {
	svc, cleanup := setupTestServices(t)
	defer cleanup()
	ctx := context.Background()

	book := putBook(t, svc.store, "u1", func(b *domain.Book) {
		b.CurrentPage = 40
	})

	_, err := svc.books.UpdateBook(ctx, "u1", book.ID, UpdateBookInput{TotalPages: ptr(40)})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	stored, err := svc.store.GetBook(ctx, "u1", book.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, stored.TotalPages)
	assert.Equal(t, domain.BookStatusReading, stored.Status)

	updated, err := svc.books.UpdateBook(ctx, "u1", book.ID, UpdateBookInput{TotalPages: ptr(41)})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.RemainingPages())
}

func TestUpdateBook_CompletedBookAtCurrentPage(t *testing.T) {
	svc, cleanup := setupTestServices(t)
	defer cleanup()
	ctx := context.Background()

	book := putBook(t, svc.store, "u1", func(b *domain.Book) {
		b.CurrentPage = 100
		b.Status = domain.BookStatusCompleted
	})

	updated, err := svc.books.UpdateBook(ctx, "u1", book.ID, UpdateBookInput{TotalPages: ptr(100), Title: ptr("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, domain.BookStatusCompleted, updated.Status)
}

func TestArchiveBook(t *testing.T) {
	for _, status := range []domain.BookStatus{domain.BookStatusReading, domain.BookStatusCompleted} {
		t.Run(string(status), func(t *testing.T) {
			svc, cleanup := setupTestServices(t)
			defer cleanup()
			ctx := context.Background()

			book := putBook(t, svc.store, "u1", func(b *domain.Book) { b.Status = status })

			archived, err := svc.books.ArchiveBook(ctx, "u1", book.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.BookStatusArchived, archived.Status)

			_, err = svc.books.ArchiveBook(ctx, "u1", book.ID)
			require.ErrorIs(t, err, domainerrors.ErrInvalidState)
			assert.Contains(t, err.Error(), "book is already archived")
		})
	}
}

func TestResetBook(t *testing.T) {
	svc, cleanup := setupTestServices(t)
	defer cleanup()
	ctx := context.Background()

	book := putBook(t, svc.store, "u1", func(b *domain.Book) {
		b.CurrentPage = 100
		b.Status = domain.BookStatusCompleted
	})

	reset, err := svc.books.ResetBook(ctx, "u1", book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reset.CurrentPage)
	assert.Equal(t, 2, reset.Round)
	assert.Equal(t, domain.BookStatusReading, reset.Status)

	// Reading books cannot be reset.
	_, err = svc.books.ResetBook(ctx, "u1", book.ID)
	require.ErrorIs(t, err, domainerrors.ErrInvalidState)
	assert.Contains(t, err.Error(), "can only reset completed books")
}

func TestResetBook_RejectsArchived(t *testing.T) {
	svc, cleanup := setupTestServices(t)
	defer cleanup()

	book := putBook(t, svc.store, "u1", func(b *domain.Book) { b.Status = domain.BookStatusArchived })

	_, err := svc.books.ResetBook(context.Background(), "u1", book.ID)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidState)
}

func TestBookLifecycle_FullRound(t *testing.T) {
	svc, cleanup := setupTestServices(t)
	defer cleanup()
	ctx := context.Background()

	book, err := svc.books.CreateBook(ctx, "u1", CreateBookInput{Title: "Short", TotalPages: 30, Skills: []string{"Poetry"}})
	require.NoError(t, err)

	result, err := svc.battles.RecordBattle(ctx, "u1", book.ID, RecordBattleInput{PagesRead: 30})
	require.NoError(t, err)
	require.True(t, result.Defeat)

	book, err = svc.books.ResetBook(ctx, "u1", book.ID)
	require.NoError(t, err)

	result, err = svc.battles.RecordBattle(ctx, "u1", book.ID, RecordBattleInput{PagesRead: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Book.Round)
	assert.Equal(t, 10, result.Book.CurrentPage)

	logs, err := svc.battles.GetBookLogs(ctx, "u1", book.ID, store.PaginationParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, logs.Total)
}
