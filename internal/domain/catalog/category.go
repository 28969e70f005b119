package catalog

import (
	"strings"

	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"golang.org/x/text/cases"
)

// Kind splits the menu in two: prepared food and beverages
type Kind string

const (
	KindFood     Kind = "FOOD"
	KindBeverage Kind = "BEVERAGE"
)

// IsValid reports whether the kind is one of the known values
func (k Kind) IsValid() bool {
	return k == KindFood || k == KindBeverage
}

// Category groups products of a single kind
type Category struct {
	ID          string
	Name        string
	Kind        Kind
	Description string
}

// NameKey is the comparison key for category names: unique within a kind,
// compared without regard to case or surrounding whitespace.
func NameKey(kind Kind, name string) string {
	return string(kind) + "\x00" + cases.Fold().String(strings.TrimSpace(name))
}

// Validate checks the category's own fields
func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return shared.NewDomainError("INVALID_INPUT", "Category name cannot be empty")
	}
	if len(c.Name) > 100 {
		return shared.NewDomainError("INVALID_INPUT", "Category name cannot exceed 100 characters")
	}
	if !c.Kind.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", "Category kind must be FOOD or BEVERAGE")
	}
	return nil
}

// CheckCategoryUnique rejects c when another category of the same kind
// already carries the same name.
func CheckCategoryUnique(existing []Category, c Category) error {
	key := NameKey(c.Kind, c.Name)
	for _, other := range existing {
		if other.ID == c.ID && c.ID != "" {
			continue
		}
		if NameKey(other.Kind, other.Name) == key {
			return shared.ErrDuplicateName
		}
	}
	return nil
}

// CheckCategoryDeletable rejects deletion while any product references the category
func CheckCategoryDeletable(products []Product, categoryID string) error {
	for _, p := range products {
		if p.CategoryID == categoryID {
			return shared.ErrCategoryInUse
		}
	}
	return nil
}
