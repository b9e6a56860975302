// Package domain contains the core entities of the reading tracker: books
// (dragons), battle logs, and skill progression records.
package domain

import (
	"slices"
	"strings"
)

// BookStatus is the lifecycle state of a book.
type BookStatus string

// Book statuses.
const (
	// BookStatusReading books can be attacked and edited.
	BookStatusReading BookStatus = "reading"
	// BookStatusCompleted books were defeated. They can be reset for another round.
	BookStatusCompleted BookStatus = "completed"
	// BookStatusArchived is terminal. Archived books are the soft-deleted ones.
	BookStatusArchived BookStatus = "archived"
)

// Valid reports whether s is a known status.
func (s BookStatus) Valid() bool {
	switch s {
	case BookStatusReading, BookStatusCompleted, BookStatusArchived:
		return true
	}
	return false
}

// Book is a book registered by a user. Its page count is the dragon's HP.
type Book struct {
	Timestamps
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	ISBN        string     `json:"isbn,omitempty"`
	TotalPages  int        `json:"totalPages"`
	CurrentPage int        `json:"currentPage"`
	Status      BookStatus `json:"status"`
	Skills      []string   `json:"skills"`
	Round       int        `json:"round"`
	// Version increases on every write and guards concurrent updates.
	Version int64 `json:"version"`
}

// NewBook creates a book in the reading state at page 0 of round 1.
func NewBook(id, userID, title string, totalPages int) *Book {
	b := &Book{
		ID:         id,
		UserID:     userID,
		Title:      title,
		TotalPages: totalPages,
		Status:     BookStatusReading,
		Skills:     []string{},
		Round:      1,
		Version:    1,
	}
	b.InitTimestamps()
	return b
}

// RemainingPages is the dragon's remaining HP.
func (b *Book) RemainingPages() int {
	return max(b.TotalPages-b.CurrentPage, 0)
}

// CanAttack reports whether a reading session may be recorded.
func (b *Book) CanAttack() bool {
	return b.Status == BookStatusReading
}

// CanEdit reports whether title, pages, or skills may change.
func (b *Book) CanEdit() bool {
	return b.Status != BookStatusArchived
}

// CanArchive reports whether the book may move to archived.
func (b *Book) CanArchive() bool {
	return b.Status != BookStatusArchived
}

// CanReset reports whether the book may start a new round.
func (b *Book) CanReset() bool {
	return b.Status == BookStatusCompleted
}

// Attack applies a reading event of pagesRead pages.
// The page count is clamped to the remaining pages, so an attack never
// overshoots. The caller must check CanAttack first.
func (b *Book) Attack(pagesRead int) Attack {
	actual := min(max(pagesRead, 0), b.RemainingPages())

	b.CurrentPage += actual
	defeated := b.CurrentPage >= b.TotalPages
	if defeated {
		b.Status = BookStatusCompleted
	} else {
		b.Status = BookStatusReading
	}
	b.bump()

	return Attack{PagesRead: actual, Defeated: defeated}
}

// Archive moves the book to the terminal archived state.
func (b *Book) Archive() {
	b.Status = BookStatusArchived
	b.bump()
}

// Reset starts a new round on a completed book.
func (b *Book) Reset() {
	b.CurrentPage = 0
	b.Round++
	b.Status = BookStatusReading
	b.bump()
}

// SetSkills replaces the skill tags, dropping blanks and duplicates while
// keeping the first-seen order.
func (b *Book) SetSkills(skills []string) {
	b.Skills = NormalizeSkillNames(skills)
}

// Touch marks the book as modified.
func (b *Book) Touch() {
	b.bump()
}

func (b *Book) bump() {
	b.Timestamps.Touch()
	b.Version++
}

// Clone returns a deep copy of the book.
func (b *Book) Clone() *Book {
	c := *b
	c.Skills = slices.Clone(b.Skills)
	return &c
}

// Attack is the outcome of applying a reading event to a book.
type Attack struct {
	// PagesRead is the clamped number of pages actually applied.
	PagesRead int
	// Defeated is true when the attack brought the book to its last page.
	Defeated bool
}

// NormalizeSkillNames trims names, drops blanks, and removes duplicates.
func NormalizeSkillNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
