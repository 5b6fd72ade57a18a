package core

import (
	"errors"
	"strings"
	"time"
)

// TransferCategoryName is the system category carried by both legs of a transfer.
const TransferCategoryName = "Transfert"

const (
	Income  CategoryType = "income"
	Expense CategoryType = "expense"
)

const maxDescriptionLen = 200

type (
	CategoryType string

	Account struct {
		ID             int64  `json:"id"`
		Name           string `json:"name"`
		InitialBalance Money  `json:"initialBalance"`
	}

	Category struct {
		ID   int64        `json:"id"`
		Name string       `json:"name"`
		Type CategoryType `json:"type"`
		// MonthlyLimit activates budget tracking when set.
		MonthlyLimit *Money `json:"monthlyLimit"`
	}

	Transaction struct {
		ID          int64     `json:"id"`
		Date        time.Time `json:"date"`
		AccountID   int64     `json:"accountId"`
		CategoryID  int64     `json:"categoryId"`
		Amount      Money     `json:"amount"` // negative leaves the account
		Description string    `json:"description"`
		TransferID  string    `json:"transferId,omitempty"`
	}
)

var (
	ErrZeroDate            = errors.New("date cannot be zero")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrZeroAmount          = errors.New("amount cannot be zero")
	ErrEmptyName           = errors.New("empty name")
	ErrInvalidCategoryType = errors.New("invalid category type")
	ErrInvalidLimit        = errors.New("monthly limit cannot be negative")
	ErrInvalidReference    = errors.New("invalid account or category reference")
	ErrSignMismatch        = errors.New("amount sign does not match category type")
	ErrDescriptionTooLong  = errors.New("description too long (max 200 characters)")
	ErrSameAccount         = errors.New("transfer source and destination must differ")
	ErrTransferIntegrity   = errors.New("transfer legs are inconsistent")
	ErrTransferNotFound    = errors.New("transfer not found")
)

func (t CategoryType) Valid() bool {
	return t == Income || t == Expense
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return ErrInvalidCategoryType
	}
	if c.MonthlyLimit != nil && *c.MonthlyLimit < 0 {
		return ErrInvalidLimit
	}
	return nil
}

// IsTransfer reports whether c is the system transfer category. Names are
// unique regardless of case, so any casing of the reserved name counts.
func (c Category) IsTransfer() bool {
	return strings.EqualFold(strings.TrimSpace(c.Name), TransferCategoryName)
}

// HasBudget reports whether the category carries a usable monthly limit.
func (c Category) HasBudget() bool {
	return c.MonthlyLimit != nil && *c.MonthlyLimit > 0
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	if t.Amount == 0 {
		return ErrZeroAmount
	}
	if t.AccountID <= 0 || t.CategoryID <= 0 {
		return ErrInvalidReference
	}
	if len(t.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

// CheckSign enforces the write-time sign convention for ordinary transactions:
// income categories take positive amounts, expense categories negative ones.
// Transfer legs are exempt.
func (t Transaction) CheckSign(c Category) error {
	if t.TransferID != "" || c.IsTransfer() {
		return nil
	}
	if c.Type == Income && t.Amount < 0 {
		return ErrSignMismatch
	}
	if c.Type == Expense && t.Amount > 0 {
		return ErrSignMismatch
	}
	return nil
}
