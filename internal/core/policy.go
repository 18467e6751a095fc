package core

import (
	"fmt"
	"strings"
)

// DeletePolicy decides what deleting a category does to the transactions
// that still reference it.
type DeletePolicy string

const (
	// PolicyRestrict refuses the delete with ErrCategoryInUse.
	PolicyRestrict DeletePolicy = "restrict"
	// PolicyCascade removes the referencing transactions too.
	PolicyCascade DeletePolicy = "cascade"
	// PolicyOrphan deletes the category and leaves dangling category ids.
	PolicyOrphan DeletePolicy = "orphan"
)

func ParseDeletePolicy(s string) (DeletePolicy, error) {
	p := DeletePolicy(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PolicyRestrict, PolicyCascade, PolicyOrphan:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}

func (p DeletePolicy) String() string {
	return string(p)
}
