package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"finances/internal/core"

	"gopkg.in/yaml.v3"
)

// Seed lists the starter categories per type, as read from a YAML file:
//
//	income:
//	  - Salary
//	expense:
//	  - Food
//	  - Rent
type Seed struct {
	Income  []string `yaml:"income"`
	Expense []string `yaml:"expense"`
}

// LoadSeed reads a seed file. Blank names and duplicates within a type are
// dropped.
func LoadSeed(path string) (Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed file: %w", err)
	}
	var s Seed
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	s.Income = dedupe(s.Income)
	s.Expense = dedupe(s.Expense)
	return s, nil
}

// Len is the number of categories in the seed.
func (s Seed) Len() int {
	return len(s.Income) + len(s.Expense)
}

// SeedCategories inserts the seed when the categories table is empty and
// reports how many categories were added. Existing data is never touched.
func (r *SQLiteRepository) SeedCategories(ctx context.Context, s Seed) (int, error) {
	if s.Len() == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	n, err := q.CountCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	if n > 0 {
		slog.DebugContext(ctx, "Categories already present, skipping seed", "count", n)
		return 0, nil
	}

	added := 0
	for _, group := range []struct {
		kind  core.Kind
		names []string
	}{
		{core.KindIncome, s.Income},
		{core.KindExpense, s.Expense},
	} {
		for _, name := range group.names {
			if _, err := q.CreateCategory(ctx, name, group.kind.String()); err != nil {
				return 0, fmt.Errorf("seed category %q: %w", name, err)
			}
			added++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}

	slog.InfoContext(ctx, "Seeded categories", "count", added)
	return added, nil
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
