// Package main prints the contents of a tsundoku table: item counts per
// partition and entity kind, and optionally the raw rows of one partition.
//
// Usage:
//
//	go run ./cmd/dbinspect
//	go run ./cmd/dbinspect -backend bbolt -user me -prefix BOOK#
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/tsundokudragon/dragon-server/internal/config"
	"github.com/tsundokudragon/dragon-server/internal/di/providers"
	"github.com/tsundokudragon/dragon-server/internal/logger"
	"github.com/tsundokudragon/dragon-server/internal/store"
)

var (
	envFile  = flag.String("env-file", ".env", "Path to .env file")
	backend  = flag.String("backend", "", "Storage backend (badger, sqlite, bbolt)")
	dataPath = flag.String("data-path", "", "Directory for database files")
	userID   = flag.String("user", "", "Print the rows of this user's partition")
	global   = flag.Bool("global", false, "Print the rows of the global partition")
	prefix   = flag.String("prefix", "", "Only print rows whose sort key starts with this prefix")
)

var kinds = []store.KeyKind{
	store.KindBook,
	store.KindBattleLog,
	store.KindSkill,
	store.KindCustomSkill,
	store.KindUnknown,
}

func main() {
	flag.Parse()

	cfg, err := config.Load(config.LoadOptions{
		EnvFile: *envFile,
		Flags:   config.Overrides{StoreBackend: *backend, DataPath: *dataPath},
	})
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if _, err := os.Stat(cfg.StorePath()); err != nil {
		log.Fatalf("No database at %s: %v", cfg.StorePath(), err)
	}

	table, err := providers.OpenTable(cfg.Store.Backend, cfg.StorePath(), logger.Discard())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer table.Close()

	var partition string
	switch {
	case *global:
		partition = store.GlobalPK
	case *userID != "":
		partition = store.UserPK(*userID)
	}

	fmt.Println("=== Database Inspection ===")
	fmt.Printf("Backend: %s\nPath:    %s\n\n", cfg.Store.Backend, cfg.StorePath())

	stats, err := store.Inspect(context.Background(), table, func(item store.Item) error {
		if partition == "" || item.PK != partition || !strings.HasPrefix(item.SK, *prefix) {
			return nil
		}
		attrs, err := item.Attrs.Encode()
		if err != nil {
			return err
		}
		fmt.Printf("%-60s %s\n", item.SK, attrs)
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating database: %v", err)
	}
	if partition != "" {
		fmt.Println()
	}

	fmt.Println("=== Summary ===")
	total := 0
	for _, p := range stats {
		fmt.Printf("%s (%d items)\n", p.PK, p.Total)
		for _, k := range kinds {
			if n := p.Counts[k]; n > 0 {
				fmt.Printf("  %-14s %d\n", k, n)
			}
		}
		total += p.Total
	}
	fmt.Printf("\nPartitions: %d\nItems:      %d\n", len(stats), total)
}
