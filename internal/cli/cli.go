// Package cli provides the tsundoku command-line interface over the reading
// tracker services.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/tsundokudragon/dragon-server/internal/config"
	"github.com/tsundokudragon/dragon-server/internal/di"
	domainerrors "github.com/tsundokudragon/dragon-server/internal/errors"
	"github.com/tsundokudragon/dragon-server/internal/service"
)

var errUserRequired = errors.New("--user is required")

// app holds the state shared by all commands of one invocation.
type app struct {
	flags    config.Overrides
	envFile  string
	userID   string
	asJSON   bool
	injector *do.RootScope
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "tsundoku",
		Short: "Fight your reading pile one dragon at a time",
		Long: `Tsundoku Dragon turns unread books into dragons.

Every book is a dragon whose HP is its page count. Record reading
sessions as attacks, defeat dragons to earn bonus experience, and
level up the skills your books teach.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			a.injector = di.NewContainer(config.LoadOptions{
				EnvFile: a.envFile,
				Flags:   a.flags,
			})
			_, err := do.Invoke[*config.Config](a.injector)
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.userID, "user", "u", "", "User whose books to act on")
	pf.BoolVar(&a.asJSON, "json", false, "Print results as JSON")
	pf.StringVar(&a.envFile, "env-file", ".env", "Path to .env file")
	pf.StringVar(&a.flags.Environment, "env", "", "Environment (development, staging, production)")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&a.flags.StoreBackend, "backend", "", "Storage backend (badger, sqlite, bbolt)")
	pf.StringVar(&a.flags.DataPath, "data-path", "", "Directory for database files")

	root.AddCommand(
		newBookCmd(a),
		newAttackCmd(a),
		newLogsCmd(a),
		newSkillsCmd(a),
		newStatusCmd(a),
	)

	return root
}

// Execute runs the CLI with args and reports failures on stderr. The store
// is closed before Execute returns.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	a.shutdown()
	if err != nil {
		printError(stderr, err)
	}
	return err
}

// shutdown releases the store. Safe to call when nothing was opened.
// Close failures are logged by the store handle.
func (a *app) shutdown() {
	if a.injector == nil {
		return
	}
	injector := a.injector
	a.injector = nil
	injector.Shutdown()
}

func (a *app) user() (string, error) {
	if a.userID == "" {
		return "", errUserRequired
	}
	return a.userID, nil
}

func (a *app) books() *service.BookService {
	return do.MustInvoke[*service.BookService](a.injector)
}

func (a *app) battles() *service.BattleService {
	return do.MustInvoke[*service.BattleService](a.injector)
}

func (a *app) skills() *service.SkillService {
	return do.MustInvoke[*service.SkillService](a.injector)
}

func printError(w io.Writer, err error) {
	var domainErr *domainerrors.Error
	if !errors.As(err, &domainErr) {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}

	fmt.Fprintf(w, "error [%s]: %v\n", domainErr.Code, domainErr)
	switch details := domainErr.Details.(type) {
	case map[string]string:
		for _, field := range sortedKeys(details) {
			fmt.Fprintf(w, "  %s: %s\n", field, details[field])
		}
	case map[string]any:
		for _, key := range sortedKeys(details) {
			fmt.Fprintf(w, "  %s: %v\n", key, details[key])
		}
	}
}
