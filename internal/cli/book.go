package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tsundokudragon/dragon-server/internal/domain"
	"github.com/tsundokudragon/dragon-server/internal/service"
	"github.com/tsundokudragon/dragon-server/internal/store"
)

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage the books on your pile",
	}
	cmd.AddCommand(
		newBookAddCmd(a),
		newBookListCmd(a),
		newBookShowCmd(a),
		newBookEditCmd(a),
		newBookArchiveCmd(a),
		newBookResetCmd(a),
	)
	return cmd
}

func newBookAddCmd(a *app) *cobra.Command {
	var input service.CreateBookInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a book as a new dragon",
		Example: `  tsundoku book add -u me --title "The Go Programming Language" --pages 380 \
    --skill Go --skill "Systems Programming"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.user()
			if err != nil {
				return err
			}
			book, err := a.books().CreateBook(cmd.Context(), userID, input)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), book, func(w io.Writer) {
				fmt.Fprintln(w, "A new dragon appears!")
				printBook(w, book)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&input.Title, "title", "", "Book title")
	f.IntVar(&input.TotalPages, "pages", 0, "Total number of pages")
	f.StringVar(&input.ISBN, "isbn", "", "ISBN")
	f.StringArrayVar(&input.Skills, "skill", nil, "Skill the book trains (repeatable)")
	return cmd
}

func newBookListCmd(a *app) *cobra.Command {
	var (
		statuses []string
		params   store.PaginationParams
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books, one page at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.user()
			if err != nil {
				return err
			}

			filter := make([]domain.BookStatus, 0, len(statuses))
			for _, s := range statuses {
				filter = append(filter, domain.BookStatus(s))
			}

			page, err := a.books().ListBooks(cmd.Context(), userID, params, filter...)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), page, func(w io.Writer) {
				if len(page.Items) == 0 {
					fmt.Fprintln(w, "No books found.")
				}
				for _, b := range page.Items {
					printBook(w, b)
				}
				if page.HasMore {
					fmt.Fprintf(w, "\nMore books: --cursor %s\n", page.NextCursor)
				}
			})
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&statuses, "status", nil, "Only show books with these statuses (reading, completed, archived)")
	f.IntVar(&params.Limit, "limit", 20, "Books per page")
	f.StringVar(&params.Cursor, "cursor", "", "Cursor from a previous page")
	return cmd
}

func newBookShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <book-id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.user()
			if err != nil {
				return err
			}
			book, err := a.books().GetBook(cmd.Context(), userID, args[0])
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), book, func(w io.Writer) {
				printBook(w, book)
			})
		},
	}
}

func newBookEditCmd(a *app) *cobra.Command {
	var (
		title, isbn string
		pages       int
		skills      []string
		clearSkills bool
	)

	cmd := &cobra.Command{
		Use:   "edit <book-id>",
		Short: "Change a book's title, ISBN, page count or skills",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.user()
			if err != nil {
				return err
			}

			var input service.UpdateBookInput
			f := cmd.Flags()
			if f.Changed("title") {
				input.Title = &title
			}
			if f.Changed("isbn") {
				input.ISBN = &isbn
			}
			if f.Changed("pages") {
				input.TotalPages = &pages
			}
			switch {
			case clearSkills:
				input.Skills = []string{}
			case f.Changed("skill"):
				input.Skills = skills
			}

			book, err := a.books().UpdateBook(cmd.Context(), userID, args[0], input)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), book, func(w io.Writer) {
				printBook(w, book)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&title, "title", "", "New title")
	f.StringVar(&isbn, "isbn", "", "New ISBN")
	f.IntVar(&pages, "pages", 0, "New total page count")
	f.StringArrayVar(&skills, "skill", nil, "Replace the skills (repeatable)")
	f.BoolVar(&clearSkills, "clear-skills", false, "Remove every skill")
	cmd.MarkFlagsMutuallyExclusive("skill", "clear-skills")
	return cmd
}

func newBookArchiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <book-id>",
		Short: "Archive a book for good",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.user()
			if err != nil {
				return err
			}
			book, err := a.books().ArchiveBook(cmd.Context(), userID, args[0])
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), book, func(w io.Writer) {
				fmt.Fprintf(w, "%s was archived.\n", book.Title)
			})
		},
	}
}

func newBookResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <book-id>",
		Short: "Revive a defeated dragon for another round",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.user()
			if err != nil {
				return err
			}
			book, err := a.books().ResetBook(cmd.Context(), userID, args[0])
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), book, func(w io.Writer) {
				fmt.Fprintf(w, "%s rises again! Round %d begins.\n", book.Title, book.Round)
			})
		},
	}
}
