package store

import (
	"context"
	"errors"

	domainerrors "github.com/tsundokudragon/dragon-server/internal/errors"
)

var (
	// ErrBookNotFound is returned when a user has no book with the requested id.
	ErrBookNotFound = domainerrors.NotFound("book not found")

	// ErrVersionConflict is returned when a conditional book write lost a race.
	// It matches domainerrors.ErrConflict under errors.Is.
	ErrVersionConflict = domainerrors.Conflict("book was modified concurrently")
)

// wrapStorage converts a backend failure into a domain error.
// Cancellation and domain errors pass through unchanged.
func wrapStorage(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return domainerrors.StorageUnavailable(err, op)
}
