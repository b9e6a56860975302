package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/tsundokudragon/dragon-server/internal/domain"
	"github.com/tsundokudragon/dragon-server/internal/store"
)

// DefaultMaxRetries bounds how often a book write that lost an optimistic
// concurrency race is replayed.
const DefaultMaxRetries = 5

// bookMutator performs read-modify-write cycles on a book, each write
// conditional on the version that was read.
type bookMutator struct {
	store      *store.Store
	maxRetries uint
}

func newBookMutator(s *store.Store, maxRetries int) bookMutator {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return bookMutator{store: s, maxRetries: uint(maxRetries)}
}

// mutate loads the book, applies fn, and writes the result. When another
// writer changed the book in between, the whole cycle is replayed with
// backoff; fn therefore must derive everything from the book it is given.
// Errors from fn and from loading are returned as is. Exhausted retries
// return a CONFLICT error.
func (m bookMutator) mutate(ctx context.Context, userID, bookID string, fn func(*domain.Book) error) (*domain.Book, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 5 * time.Millisecond
	policy.MaxInterval = 100 * time.Millisecond

	return backoff.Retry(ctx, func() (*domain.Book, error) {
		book, err := m.store.GetBook(ctx, userID, bookID)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		expected := book.Version
		if err := fn(book); err != nil {
			return nil, backoff.Permanent(err)
		}

		if err := m.store.UpdateBook(ctx, book, expected); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return book, nil
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(m.maxRetries))
}
