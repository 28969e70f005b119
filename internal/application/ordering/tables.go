package ordering

import (
	"strings"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/application/mirror"
	"github.com/chrisfalcon1208/apprest/internal/domain/order"
	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SetCustomerName sets the customer of a table. It may be set before the
// first line is added.
func (s *Service) SetCustomerName(tableID, name string) error {
	name = strings.TrimSpace(name)
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_INPUT", "Customer name cannot exceed 200 characters")
	}
	return s.editMeta(tableID, func(m *order.TableMeta) {
		m.CustomerName = name
	})
}

// SetOrderMode sets the order-mode of a table and every line on it
func (s *Service) SetOrderMode(tableID string, mode order.Mode) error {
	if !mode.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", "Order mode must be LOCAL, TAKEAWAY or DELIVERY")
	}
	return s.editMeta(tableID, func(m *order.TableMeta) {
		m.Mode = mode
	})
}

func (s *Service) editMeta(tableID string, fn func(m *order.TableMeta)) error {
	if err := s.signedIn(); err != nil {
		return err
	}
	err := s.store.Update(func(tx *mirror.Tx) error {
		if err := checkTable(tx, tableID); err != nil {
			return err
		}
		meta := tx.Meta(tableID)
		fn(&meta)
		tx.SetMeta(tableID, meta)
		for _, l := range tx.Lines(tableID) {
			l.Mode = meta.Mode
		}
		tx.HoldMeta(tableID)
		return nil
	})
	if err != nil {
		return err
	}

	s.submitMeta(tableID)
	return nil
}

// Meta returns a table's customer and order-mode
func (s *Service) Meta(tableID string) order.TableMeta {
	return s.store.Meta(tableID)
}

// Occupied reports whether the table has any open line
func (s *Service) Occupied(tableID string) bool {
	return len(s.store.Lines(tableID)) > 0
}

// HasUnsent reports whether any line of the table has not gone to the kitchen
func (s *Service) HasUnsent(tableID string) bool {
	for _, l := range s.store.Lines(tableID) {
		if l.Status == order.StatusUncommitted {
			return true
		}
	}
	return false
}

// TableTotal is the running total of a table, delivery surcharge included
func (s *Service) TableTotal(tableID string) decimal.Decimal {
	var total decimal.Decimal
	s.store.View(func(tx *mirror.Tx) {
		total = order.Total(derefLines(tx.Lines(tableID)), tx.Meta(tableID).Mode, tx.DeliveryFee())
	})
	return total
}

// TableSummary is one tile of the floor overview
type TableSummary struct {
	TableID      string
	Occupied     bool
	Total        decimal.Decimal
	Items        int
	WaiterID     string
	HasUnsent    bool
	Mode         order.Mode
	CustomerName string
	OpenedAt     time.Time
}

// Overview summarises every table of the floor plan in order
func (s *Service) Overview() []TableSummary {
	var out []TableSummary
	s.store.View(func(tx *mirror.Tx) {
		for _, id := range tx.Profile().Tables() {
			lines := derefLines(tx.Lines(id))
			meta := tx.Meta(id)
			sum := TableSummary{
				TableID:      id,
				Occupied:     len(lines) > 0,
				Mode:         meta.Mode,
				CustomerName: meta.CustomerName,
				Total:        order.Total(lines, meta.Mode, tx.DeliveryFee()),
			}
			for i, l := range lines {
				sum.Items += l.Quantity
				if l.Status == order.StatusUncommitted {
					sum.HasUnsent = true
				}
				if i == 0 || l.CreatedAt.Before(sum.OpenedAt) {
					sum.OpenedAt = l.CreatedAt
					sum.WaiterID = l.UserID
				}
			}
			out = append(out, sum)
		}
	})
	return out
}

func derefLines(ptrs []*order.Line) []order.Line {
	out := make([]order.Line, len(ptrs))
	for i, l := range ptrs {
		out[i] = *l
	}
	return out
}
