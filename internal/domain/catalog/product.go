package catalog

import (
	"strings"

	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product is a sellable menu item. Deleting a product never touches
// historical sales, which carry their own snapshot of its fields.
type Product struct {
	ID          string
	Code        string
	Name        string
	Description string
	Price       decimal.Decimal
	Kind        Kind
	CategoryID  string
	ImageRef    string
}

// Validate checks the product's own fields
func (p Product) Validate() error {
	if strings.TrimSpace(p.Code) == "" {
		return shared.NewDomainError("INVALID_INPUT", "Product code cannot be empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		return shared.NewDomainError("INVALID_INPUT", "Product name cannot be empty")
	}
	if p.Price.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "Product price cannot be negative")
	}
	if !p.Kind.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", "Product kind must be FOOD or BEVERAGE")
	}
	if strings.TrimSpace(p.CategoryID) == "" {
		return shared.NewDomainError("INVALID_INPUT", "Product category is required")
	}
	return nil
}

// CheckProductCodeUnique rejects p when another product already uses its code
func CheckProductCodeUnique(existing []Product, p Product) error {
	code := strings.ToUpper(strings.TrimSpace(p.Code))
	for _, other := range existing {
		if other.ID == p.ID && p.ID != "" {
			continue
		}
		if strings.ToUpper(strings.TrimSpace(other.Code)) == code {
			return shared.ErrDuplicateCode
		}
	}
	return nil
}
