package core

import "errors"

// Validation errors are returned before any storage call is made.
var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyName          = errors.New("empty category name")
	ErrInvalidKind        = errors.New("invalid type: must be income or expense")
	ErrInvalidCategory    = errors.New("invalid category id")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidWindow      = errors.New("invalid date window")
	ErrInvalidOrder       = errors.New("invalid sort order")
	ErrInvalidPolicy      = errors.New("invalid category delete policy")
	ErrInvalidIdentifier  = errors.New("invalid identifier")
)

// Domain errors raised by the repository and service layers.
var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrCategoryInUse       = errors.New("category is referenced by existing transactions")
	ErrTypeMismatch        = errors.New("transaction type does not match category type")
)

// IsValidation reports whether err stems from rejected user input.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount, ErrEmptyDescription, ErrDescriptionTooLong, ErrEmptyName,
		ErrInvalidKind, ErrInvalidCategory, ErrInvalidDate, ErrInvalidWindow,
		ErrInvalidOrder, ErrInvalidIdentifier, ErrTypeMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
