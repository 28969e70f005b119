package order

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Line is one open order row of a table.
//
// LocalID is assigned once, on the client, and never changes; it is the
// handle every caller keys on. DurableID is empty until the server has
// acknowledged the line and is then patched in place.
type Line struct {
	LocalID   string
	DurableID string
	TableID   string
	ProductID string
	Quantity  int
	UserID    string
	Note      string
	CreatedAt time.Time // restamped when the line goes to the kitchen
	Status    Status
	Mode      Mode

	// joined from the product on every snapshot
	ProductCode string
	ProductName string
	UnitPrice   decimal.Decimal
}

// HasNote reports whether the line carries a non-blank note
func (l Line) HasNote() bool {
	return strings.TrimSpace(l.Note) != ""
}

// Mergeable reports whether another unit of productID may be folded into l
func (l Line) Mergeable(productID string) bool {
	return l.ProductID == productID && l.Status == StatusUncommitted && !l.HasNote()
}

// Subtotal is quantity times the joined unit price
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Acked reports whether the server has assigned a durable id
func (l Line) Acked() bool {
	return l.DurableID != ""
}

// Total is the running total of a table: the line subtotals plus fee when
// the table is in delivery mode. A free table totals zero in any mode.
func Total(lines []Line, mode Mode, fee decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	if len(lines) == 0 {
		return total
	}
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	if mode == ModeDelivery {
		total = total.Add(fee)
	}
	return total
}
