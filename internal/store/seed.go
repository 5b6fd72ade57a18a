package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"budget/internal/core"
)

// Seed is the initial content of an empty store.
type Seed struct {
	Accounts   []SeedAccount  `yaml:"accounts"`
	Categories []SeedCategory `yaml:"categories"`
}

type SeedAccount struct {
	Name           string     `yaml:"name"`
	InitialBalance core.Money `yaml:"initial_balance"`
}

type SeedCategory struct {
	Name         string            `yaml:"name"`
	Type         core.CategoryType `yaml:"type"`
	MonthlyLimit *core.Money       `yaml:"monthly_limit,omitempty"`
}

func limit(m core.Money) *core.Money { return &m }

// DefaultSeed returns the built-in accounts and categories.
func DefaultSeed() Seed {
	return Seed{
		Accounts: []SeedAccount{
			{Name: "Espèces"},
			{Name: "Carte Djamo"},
			{Name: "Wave"},
			{Name: "Mobile Money"},
		},
		Categories: []SeedCategory{
			{Name: "Alimentation", Type: core.Expense, MonthlyLimit: limit(150000)},
			{Name: "Transport", Type: core.Expense, MonthlyLimit: limit(50000)},
			{Name: "Logement", Type: core.Expense, MonthlyLimit: limit(300000)},
			{Name: "Loisirs", Type: core.Expense, MonthlyLimit: limit(40000)},
			{Name: "Salaire", Type: core.Income},
			{Name: "Abonnements", Type: core.Expense, MonthlyLimit: limit(20000)},
			{Name: "Santé", Type: core.Expense, MonthlyLimit: limit(30000)},
			{Name: "Éducation", Type: core.Expense, MonthlyLimit: limit(100000)},
			{Name: core.TransferCategoryName, Type: core.Expense},
		},
	}
}

// LoadSeed reads a YAML seed file. An empty path yields DefaultSeed.
func LoadSeed(path string) (Seed, error) {
	if path == "" {
		return DefaultSeed(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed file: %w", err)
	}
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Seed{}, fmt.Errorf("invalid seed file %s: %w", path, err)
	}
	return s, nil
}

func (s Seed) Validate() error {
	for _, a := range s.Accounts {
		if err := (core.Account{Name: a.Name, InitialBalance: a.InitialBalance}).Validate(); err != nil {
			return fmt.Errorf("account %q: %w", a.Name, err)
		}
	}
	for _, c := range s.Categories {
		if err := (core.Category{Name: c.Name, Type: c.Type, MonthlyLimit: c.MonthlyLimit}).Validate(); err != nil {
			return fmt.Errorf("category %q: %w", c.Name, err)
		}
	}
	return nil
}

// ApplySeed fills st with seed when the store has neither accounts nor
// categories. It reports whether anything was written.
func ApplySeed(ctx context.Context, st Store, seed Seed) (bool, error) {
	applied := false
	err := st.Update(ctx, func(tx Tx) error {
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		categories, err := tx.ListCategories(ctx)
		if err != nil {
			return err
		}
		if len(accounts) > 0 || len(categories) > 0 {
			return nil
		}
		for _, a := range seed.Accounts {
			if _, err := tx.AddAccount(ctx, core.Account{Name: a.Name, InitialBalance: a.InitialBalance}); err != nil {
				return fmt.Errorf("seed account %q: %w", a.Name, err)
			}
		}
		for _, c := range seed.Categories {
			cat := core.Category{Name: c.Name, Type: c.Type, MonthlyLimit: c.MonthlyLimit}
			if _, err := tx.AddCategory(ctx, cat); err != nil {
				return fmt.Errorf("seed category %q: %w", c.Name, err)
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if applied {
		slog.InfoContext(ctx, "Store seeded",
			"accounts", len(seed.Accounts),
			"categories", len(seed.Categories))
	}
	return applied, nil
}
