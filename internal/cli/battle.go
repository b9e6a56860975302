package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tsundokudragon/dragon-server/internal/service"
	"github.com/tsundokudragon/dragon-server/internal/store"
)

func newAttackCmd(a *app) *cobra.Command {
	var input service.RecordBattleInput

	cmd := &cobra.Command{
		Use:     "attack <book-id>",
		Aliases: []string{"read"},
		Short:   "Record a reading session against a book",
		Example: `  tsundoku attack -u me V1StGXR8_Z5jdHi6B-myT --pages 30 --memo "chapter 3"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.user()
			if err != nil {
				return err
			}
			result, err := a.battles().RecordBattle(cmd.Context(), userID, args[0], input)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), result, func(w io.Writer) {
				b := result.Book
				fmt.Fprintf(w, "You dealt %d damage to %s. HP %s %d/%d\n",
					result.Log.PagesRead, b.Title, hpBar(b, 20), b.RemainingPages(), b.TotalPages)
				if result.Defeat {
					fmt.Fprintf(w, "The dragon is defeated! Bonus +%d exp\n", result.DefeatBonus)
				}
				for _, sr := range result.SkillResults {
					fmt.Fprintf(w, "  %s +%d exp (total %d)", sr.SkillName, sr.ExpGained, sr.TotalExp)
					if sr.LeveledUp {
						fmt.Fprintf(w, "  LEVEL UP %d -> %d", sr.PreviousLevel, sr.CurrentLevel)
					}
					fmt.Fprintln(w)
				}
			})
		},
	}

	f := cmd.Flags()
	f.IntVarP(&input.PagesRead, "pages", "p", 0, "Pages read in this session")
	f.StringVarP(&input.Memo, "memo", "m", "", "Note about the session")
	return cmd
}

func newLogsCmd(a *app) *cobra.Command {
	var params store.PaginationParams

	cmd := &cobra.Command{
		Use:   "logs <book-id>",
		Short: "Show a book's battle log, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.user()
			if err != nil {
				return err
			}
			page, err := a.battles().GetBookLogs(cmd.Context(), userID, args[0], params)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), page, func(w io.Writer) {
				fmt.Fprintf(w, "%d battles\n", page.Total)
				for _, l := range page.Items {
					printLog(w, l)
				}
				if page.HasMore {
					fmt.Fprintf(w, "\nOlder battles: --cursor %s\n", page.NextCursor)
				}
			})
		},
	}

	f := cmd.Flags()
	f.IntVar(&params.Limit, "limit", store.DefaultLogPageLimit, "Logs per page")
	f.StringVar(&params.Cursor, "cursor", "", "Cursor from a previous page")
	return cmd
}
