package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finances/internal/core"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSeed(t *testing.T) {
	path := writeSeed(t, `
income:
  - Salary
  - " Salary "
expense:
  - Food
  - ""
  - Rent
`)
	s, err := LoadSeed(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Salary"}, s.Income)
	assert.Equal(t, []string{"Food", "Rent"}, s.Expense)
	assert.Equal(t, 3, s.Len())

	_, err = LoadSeed(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadSeed(writeSeed(t, "income: [unterminated"))
	assert.Error(t, err)
}

func TestSeedCategories(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	seed := Seed{Income: []string{"Salary"}, Expense: []string{"Food", "Rent"}}

	added, err := r.SeedCategories(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	expenses, err := r.ListCategories(ctx, core.KindExpense)
	require.NoError(t, err)
	assert.Len(t, expenses, 2)

	added, err = r.SeedCategories(ctx, seed)
	require.NoError(t, err)
	assert.Zero(t, added)

	n, err := r.CountCategories(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestSeedCategories_Empty(t *testing.T) {
	r := newTestRepo(t)
	added, err := r.SeedCategories(context.Background(), Seed{})
	require.NoError(t, err)
	assert.Zero(t, added)
}
