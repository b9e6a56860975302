// Package main is the tsundoku CLI: register books, record reading battles
// and follow skill progression from the terminal.
//
// Usage:
//
//	tsundoku -u me book add --title "SICP" --pages 657 --skill Lisp
//	tsundoku -u me attack <book-id> --pages 25
//	tsundoku -u me status
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tsundokudragon/dragon-server/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		os.Exit(1)
	}
}
