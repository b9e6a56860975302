package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsundokudragon/dragon-server/internal/domain"
	"github.com/tsundokudragon/dragon-server/internal/service"
)

type harness struct {
	t       *testing.T
	backend string
	dataDir string
}

func newHarness(t *testing.T, backend string) *harness {
	t.Helper()
	return &harness{t: t, backend: backend, dataDir: t.TempDir()}
}

// run executes one CLI invocation and returns stdout and stderr.
func (h *harness) run(args ...string) (string, string, error) {
	h.t.Helper()
	base := []string{
		"--env", "development",
		"--log-level", "error",
		"--backend", h.backend,
		"--data-path", h.dataDir,
		"--env-file", filepath.Join(h.dataDir, "missing.env"),
	}
	var stdout, stderr bytes.Buffer
	err := Execute(context.Background(), append(base, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, errOut, err := h.run(args...)
	require.NoError(h.t, err, errOut)
	return out
}

func TestRootCmd_Structure(t *testing.T) {
	root := newRootCmd(&app{})
	assert.Equal(t, "tsundoku", root.Use)
	assert.NotEmpty(t, root.Short)
	assert.NotEmpty(t, root.Long)

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Subset(t, names, []string{"book", "attack", "logs", "skills", "status"})

	book, _, err := root.Find([]string{"book"})
	require.NoError(t, err)
	var bookNames []string
	for _, cmd := range book.Commands() {
		bookNames = append(bookNames, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"add", "list", "show", "edit", "archive", "reset"}, bookNames)
}

func TestCLI_ReadingRound(t *testing.T) {
	for _, backend := range []string{"badger", "sqlite", "bbolt"} {
		t.Run(backend, func(t *testing.T) {
			h := newHarness(t, backend)

			out := h.mustRun("--user", "u1", "--json", "book", "add",
				"--title", "Concurrency in Go", "--pages", "100", "--skill", "Go")
			var book domain.Book
			require.NoError(t, json.Unmarshal([]byte(out), &book))
			assert.Equal(t, "Concurrency in Go", book.Title)

			out = h.mustRun("--user", "u1", "--json", "attack", book.ID, "--pages", "150", "--memo", "all of it")
			var result domain.BattleResult
			require.NoError(t, json.Unmarshal([]byte(out), &result))
			assert.True(t, result.Defeat)
			assert.Equal(t, 100, result.Log.PagesRead)
			assert.Equal(t, int64(110), result.ExpGained)

			out = h.mustRun("--user", "u1", "logs", book.ID)
			assert.Contains(t, out, "1 battles")
			assert.Contains(t, out, "all of it")

			out = h.mustRun("--user", "u1", "--json", "status")
			var status service.UserStatus
			require.NoError(t, json.Unmarshal([]byte(out), &status))
			assert.Equal(t, 1, status.CompletedCount)
			assert.Equal(t, 100, status.TotalPagesRead)
			require.Len(t, status.TopSkills, 1)
			assert.Equal(t, int64(110), status.TopSkills[0].Exp)

			out = h.mustRun("--user", "u1", "skills")
			assert.Contains(t, out, "Yours:   Go")

			out = h.mustRun("--user", "u1", "book", "reset", book.ID)
			assert.Contains(t, out, "Round 2 begins")

			out = h.mustRun("--user", "u1", "book", "list", "--status", "reading")
			assert.Contains(t, out, "Concurrency in Go")
		})
	}
}

func TestCLI_Edit(t *testing.T) {
	h := newHarness(t, "badger")

	out := h.mustRun("--user", "u1", "--json", "book", "add", "--title", "Draft", "--pages", "50", "--skill", "Writing")
	var book domain.Book
	require.NoError(t, json.Unmarshal([]byte(out), &book))

	out = h.mustRun("--user", "u1", "--json", "book", "edit", book.ID, "--title", "Final", "--clear-skills")
	var edited domain.Book
	require.NoError(t, json.Unmarshal([]byte(out), &edited))
	assert.Equal(t, "Final", edited.Title)
	assert.Equal(t, 50, edited.TotalPages)
	assert.Empty(t, edited.Skills)

	h.mustRun("--user", "u1", "book", "archive", book.ID)

	_, errOut, err := h.run("--user", "u1", "book", "edit", book.ID, "--title", "Again")
	require.Error(t, err)
	assert.Contains(t, errOut, "INVALID_STATE")
	assert.Contains(t, errOut, "cannot update archived book")
}

func TestCLI_Errors(t *testing.T) {
	h := newHarness(t, "badger")

	_, errOut, err := h.run("status")
	require.ErrorIs(t, err, errUserRequired)
	assert.Contains(t, errOut, "--user is required")

	_, errOut, err = h.run("--user", "u1", "book", "add", "--title", "No pages")
	require.Error(t, err)
	assert.Contains(t, errOut, "VALIDATION")
	assert.Contains(t, errOut, "totalPages")

	_, errOut, err = h.run("--user", "u1", "book", "show", "nope")
	require.Error(t, err)
	assert.Contains(t, errOut, "NOT_FOUND")

	_, _, err = h.run("--user", "u1", "--backend", "redis", "status")
	require.Error(t, err)
}
