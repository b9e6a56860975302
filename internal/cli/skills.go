package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newSkillsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "skills",
		Short: "List selectable skills and your experience in each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.user()
			if err != nil {
				return err
			}
			overview, err := a.skills().GetSkills(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), overview, func(w io.Writer) {
				fmt.Fprintf(w, "Catalog: %s\n", orNone(overview.GlobalSkills))
				fmt.Fprintf(w, "Yours:   %s\n", orNone(overview.UserSkills))
				if len(overview.UserSkillExps) > 0 {
					fmt.Fprintln(w, "Experience:")
				}
				for _, s := range overview.UserSkillExps {
					printSkill(w, s.Name, s.Level, s.Progress)
				}
			})
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize your reading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.user()
			if err != nil {
				return err
			}
			status, err := a.skills().GetUserStatus(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), status, func(w io.Writer) {
				fmt.Fprintf(w, "Dragons defeated: %d\n", status.CompletedCount)
				fmt.Fprintf(w, "Pages read:       %d\n", status.TotalPagesRead)
				if len(status.TopSkills) > 0 {
					fmt.Fprintln(w, "Top skills:")
				}
				for _, s := range status.TopSkills {
					printSkill(w, s.Name, s.Level, s.Progress)
				}
			})
		},
	}
}

func orNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
