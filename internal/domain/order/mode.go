package order

import "strings"

// Mode is the table's order-mode
type Mode string

const (
	ModeLocal    Mode = "LOCAL"
	ModeTakeaway Mode = "TAKEAWAY"
	ModeDelivery Mode = "DELIVERY"
)

// IsValid checks if the mode is a known Mode
func (m Mode) IsValid() bool {
	switch m {
	case ModeLocal, ModeTakeaway, ModeDelivery:
		return true
	}
	return false
}

// ParseMode is lenient: unknown or empty values fall back to ModeLocal
func ParseMode(s string) Mode {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if m.IsValid() {
		return m
	}
	return ModeLocal
}

// TableMeta is the per-table customer and order-mode. Every line of the
// table carries the same pair.
type TableMeta struct {
	CustomerName string
	Mode         Mode
}
