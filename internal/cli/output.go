package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/tsundokudragon/dragon-server/internal/domain"
	"github.com/tsundokudragon/dragon-server/internal/progression"
)

// render prints v as indented JSON when --json is set, otherwise calls text.
func (a *app) render(w io.Writer, v any, text func(io.Writer)) error {
	if !a.asJSON {
		text(w)
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printBook(w io.Writer, b *domain.Book) {
	fmt.Fprintf(w, "%s  %s\n", b.ID, b.Title)
	fmt.Fprintf(w, "  status: %s (round %d)\n", b.Status, b.Round)
	fmt.Fprintf(w, "  hp:     %s %d/%d\n", hpBar(b, 20), b.RemainingPages(), b.TotalPages)
	fmt.Fprintf(w, "  rank:   %d\n", progression.DragonRank(b.TotalPages))
	if b.ISBN != "" {
		fmt.Fprintf(w, "  isbn:   %s\n", b.ISBN)
	}
	if len(b.Skills) > 0 {
		fmt.Fprintf(w, "  skills: %s\n", strings.Join(b.Skills, ", "))
	}
}

// hpBar draws the dragon's remaining HP as a bar of width cells.
func hpBar(b *domain.Book, width int) string {
	filled := 0
	if b.TotalPages > 0 {
		filled = b.RemainingPages() * width / b.TotalPages
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func printLog(w io.Writer, l *domain.BattleLog) {
	fmt.Fprintf(w, "%s  %3d pages", l.CreatedAt.Local().Format("2006-01-02 15:04"), l.PagesRead)
	if l.Memo != "" {
		fmt.Fprintf(w, "  %s", l.Memo)
	}
	fmt.Fprintln(w)
}

func printSkill(w io.Writer, name string, level int, p progression.Progress) {
	fmt.Fprintf(w, "  %-24s Lv.%-4d %d/%d\n", name, level, p.CurrentLevelExp, p.ExpToNextLevel)
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	return slices.Sorted(maps.Keys(m))
}
