// Package id generates identifiers for books and battle logs.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NewBookID creates a book identifier using NanoID.
//
// NanoIDs are URL-friendly and compact (21 characters), which keeps the
// BOOK# sort keys short.
//
// Returns an error if the system has insufficient entropy for secure random generation.
func NewBookID() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return id, nil
}

// NewLogID creates a battle log identifier.
//
// UUIDv7 values are time-ordered and monotonic within the process, so when
// two logs share a millisecond timestamp the id still breaks the tie in
// creation order.
func NewLogID() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuidv7: %w", err)
	}
	return u.String(), nil
}
