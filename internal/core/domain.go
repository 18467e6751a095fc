package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

const maxDescriptionLen = 200

type (
	// Kind tags both categories and transactions as income or expense.
	Kind string

	Category struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Type Kind   `json:"type"`
	}

	Transaction struct {
		ID          int64           `json:"id"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		CategoryID  int64           `json:"category_id"`
		// CategoryName is only filled by listing reads and stays empty when
		// the referenced category no longer exists.
		CategoryName string    `json:"category_name,omitempty"`
		Type         Kind      `json:"type"`
		Date         time.Time `json:"date"`
	}

	// TransactionParams carries the user-editable fields of a transaction.
	TransactionParams struct {
		Amount      decimal.Decimal
		Description string
		CategoryID  int64
		Type        Kind
		Date        time.Time
	}
)

// ParseKind maps user input onto a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

func (k Kind) Validate() error {
	switch k {
	case KindIncome, KindExpense:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
}

func (k Kind) String() string {
	return string(k)
}

// ValidateCategory checks the fields required to create a category.
func ValidateCategory(name string, kind Kind) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	return kind.Validate()
}

func (p TransactionParams) Validate() error {
	if err := ValidateAmount(p.Amount); err != nil {
		return err
	}
	if len(strings.TrimSpace(p.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(p.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if p.CategoryID <= 0 {
		return ErrInvalidCategory
	}
	if err := p.Type.Validate(); err != nil {
		return err
	}
	if p.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Apply returns a copy of t carrying the values of p.
func (p TransactionParams) Apply(t Transaction) Transaction {
	t.Amount = p.Amount
	t.Description = p.Description
	t.CategoryID = p.CategoryID
	t.Type = p.Type
	t.Date = p.Date
	return t
}
