// Package main seeds the global skill catalog.
//
// The built-in catalog is used unless -catalog points to a JSON file holding
// an array of {"name", "category"} objects. Seeding is idempotent: existing
// entries are overwritten.
//
// Usage:
//
//	go run ./cmd/seed
//	go run ./cmd/seed -backend sqlite -data-path ./data -catalog skills.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/samber/do/v2"

	"github.com/tsundokudragon/dragon-server/internal/config"
	"github.com/tsundokudragon/dragon-server/internal/di"
	"github.com/tsundokudragon/dragon-server/internal/di/providers"
	"github.com/tsundokudragon/dragon-server/internal/domain"
	"github.com/tsundokudragon/dragon-server/internal/logger"
	"github.com/tsundokudragon/dragon-server/internal/validation"
)

var (
	envFile     = flag.String("env-file", ".env", "Path to .env file")
	backend     = flag.String("backend", "", "Storage backend (badger, sqlite, bbolt)")
	dataPath    = flag.String("data-path", "", "Directory for database files")
	catalogFile = flag.String("catalog", "", "JSON file with the catalog (default: built-in catalog)")
)

func main() {
	flag.Parse()

	injector := di.NewContainer(config.LoadOptions{
		EnvFile: *envFile,
		Flags:   config.Overrides{StoreBackend: *backend, DataPath: *dataPath},
	})
	log, err := do.Invoke[*logger.Logger](injector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	skills, err := loadCatalog(*catalogFile)
	if err != nil {
		log.Fatal("failed to load catalog", "error", err)
	}
	if err := validateCatalog(skills); err != nil {
		log.Fatal("invalid catalog", "error", err)
	}

	s := do.MustInvoke[*providers.StoreHandle](injector)
	defer injector.Shutdown()

	fmt.Printf("Seeding %d global skills...\n", len(skills))
	if err := s.PutGlobalSkills(context.Background(), skills); err != nil {
		log.Error("seeding failed", "error", err)
		injector.Shutdown()
		os.Exit(1)
	}

	for _, skill := range skills {
		fmt.Printf("  ✓ %s (%s)\n", skill.Name, skill.Category)
	}
	fmt.Printf("\nDone! Seeded %d skills.\n", len(skills))
}

func loadCatalog(path string) ([]domain.GlobalSkill, error) {
	if path == "" {
		return domain.DefaultSkillCatalog(), nil
	}

	data, err := os.ReadFile(path) //#nosec G304 -- Catalog path from operator input is expected
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var skills []domain.GlobalSkill
	if err := json.Unmarshal(data, &skills); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return skills, nil
}

type catalogEntry struct {
	Name     string `validate:"skillname"`
	Category string `validate:"required"`
}

// validateCatalog trims names and rejects unusable names and duplicates
// before anything is written.
func validateCatalog(skills []domain.GlobalSkill) error {
	v := validation.New()
	seen := make([]string, 0, len(skills))
	for i, skill := range skills {
		name := strings.TrimSpace(skill.Name)
		if err := v.Validate(catalogEntry{Name: name, Category: skill.Category}); err != nil {
			return fmt.Errorf("skill %q: %w", skill.Name, err)
		}
		skills[i].Name = name
		if slices.Contains(seen, name) {
			return fmt.Errorf("skill %q is listed twice", name)
		}
		seen = append(seen, name)
	}
	return nil
}
