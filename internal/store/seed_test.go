package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
)

func TestLoadSeedDefault(t *testing.T) {
	s, err := LoadSeed("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSeed(), s)
	require.NoError(t, s.Validate())
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `accounts:
  - name: Cash
    initial_balance: 2500
categories:
  - name: Food
    type: expense
    monthly_limit: 10000
  - name: Salary
    type: income
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, s.Accounts, 1)
	assert.Equal(t, core.Money(2500), s.Accounts[0].InitialBalance)
	require.Len(t, s.Categories, 2)
	require.NotNil(t, s.Categories[0].MonthlyLimit)
	assert.Equal(t, core.Money(10000), *s.Categories[0].MonthlyLimit)
	assert.Nil(t, s.Categories[1].MonthlyLimit)
	assert.Equal(t, core.Income, s.Categories[1].Type)
}

func TestLoadSeedRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - name: X\n    type: other\n"), 0o644))
	_, err := LoadSeed(path)
	assert.ErrorIs(t, err, core.ErrInvalidCategoryType)

	_, err = LoadSeed(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
