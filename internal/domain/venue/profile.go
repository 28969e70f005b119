package venue

import (
	"strconv"
	"strings"

	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
)

// Profile is the business profile singleton
type Profile struct {
	Name       string
	Phone      string
	LogoRef    string
	TableCount int
}

// Validate checks the profile fields
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return shared.NewDomainError("INVALID_INPUT", "Business name cannot be empty")
	}
	if p.TableCount < 1 {
		return shared.NewDomainError("INVALID_INPUT", "Table count must be at least 1")
	}
	return nil
}

// ValidTable reports whether tableID is one of "1".."TableCount"
func (p Profile) ValidTable(tableID string) bool {
	n, err := strconv.Atoi(tableID)
	if err != nil || strconv.Itoa(n) != tableID {
		return false
	}
	return n >= 1 && n <= p.TableCount
}

// Tables lists every valid table id in floor order
func (p Profile) Tables() []string {
	ids := make([]string, 0, p.TableCount)
	for i := 1; i <= p.TableCount; i++ {
		ids = append(ids, strconv.Itoa(i))
	}
	return ids
}
