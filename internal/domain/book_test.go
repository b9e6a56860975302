package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBook(t *testing.T) {
	b := NewBook("b1", "u1", "Dune", 412)

	assert.Equal(t, BookStatusReading, b.Status)
	assert.Equal(t, 0, b.CurrentPage)
	assert.Equal(t, 1, b.Round)
	assert.Equal(t, int64(1), b.Version)
	assert.Empty(t, b.Skills)
	assert.False(t, b.CreatedAt.IsZero())
	assert.Equal(t, b.CreatedAt, b.UpdatedAt)
}

func TestBook_Attack_Clamps(t *testing.T) {
	b := NewBook("b1", "u1", "Dune", 100)
	b.CurrentPage = 90

	out := b.Attack(50)

	assert.Equal(t, 10, out.PagesRead)
	assert.True(t, out.Defeated)
	assert.Equal(t, 100, b.CurrentPage)
	assert.Equal(t, BookStatusCompleted, b.Status)
	assert.Equal(t, int64(2), b.Version)
}

func TestBook_Attack_NoClamp(t *testing.T) {
	b := NewBook("b1", "u1", "Dune", 100)
	b.CurrentPage = 30

	out := b.Attack(20)

	assert.Equal(t, 20, out.PagesRead)
	assert.False(t, out.Defeated)
	assert.Equal(t, 50, b.CurrentPage)
	assert.Equal(t, BookStatusReading, b.Status)
}

func TestBook_StatusGuards(t *testing.T) {
	tests := []struct {
		status     BookStatus
		canAttack  bool
		canEdit    bool
		canArchive bool
		canReset   bool
	}{
		{BookStatusReading, true, true, true, false},
		{BookStatusCompleted, false, true, true, true},
		{BookStatusArchived, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			b := &Book{Status: tt.status}
			assert.Equal(t, tt.canAttack, b.CanAttack())
			assert.Equal(t, tt.canEdit, b.CanEdit())
			assert.Equal(t, tt.canArchive, b.CanArchive())
			assert.Equal(t, tt.canReset, b.CanReset())
		})
	}
}

func TestBook_Reset(t *testing.T) {
	b := NewBook("b1", "u1", "Dune", 100)
	b.Attack(100)

	b.Reset()

	assert.Equal(t, 0, b.CurrentPage)
	assert.Equal(t, 2, b.Round)
	assert.Equal(t, BookStatusReading, b.Status)
}

func TestBook_CloneIsDeep(t *testing.T) {
	b := NewBook("b1", "u1", "Dune", 100)
	b.SetSkills([]string{"Go"})

	c := b.Clone()
	c.Skills[0] = "Rust"

	assert.Equal(t, "Go", b.Skills[0])
}

func TestNormalizeSkillNames(t *testing.T) {
	got := NormalizeSkillNames([]string{" Go ", "", "Rust", "Go", "  "})
	assert.Equal(t, []string{"Go", "Rust"}, got)
}

func TestBookStatus_Valid(t *testing.T) {
	assert.True(t, BookStatusReading.Valid())
	assert.False(t, BookStatus("lost").Valid())
}

func TestSkillGain_LeveledUp(t *testing.T) {
	assert.True(t, SkillGain{PreviousLevel: 1, Level: 2}.LeveledUp())
	assert.False(t, SkillGain{PreviousLevel: 2, Level: 2}.LeveledUp())
}
