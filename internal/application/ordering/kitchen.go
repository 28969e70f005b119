package ordering

import (
	"sort"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/application/mirror"
	"github.com/chrisfalcon1208/apprest/internal/domain/order"
	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"go.uber.org/zap"
)

// SendToKitchen queues every uncommitted line of the table at once and
// stamps them with the send time, which the kitchen queue is ordered by. It
// returns how many lines were sent; zero is not an error.
func (s *Service) SendToKitchen(tableID string) (int, error) {
	if err := s.signedIn(); err != nil {
		return 0, err
	}
	var sent []order.Line
	now := s.now()
	err := s.store.Update(func(tx *mirror.Tx) error {
		for _, l := range tx.Lines(tableID) {
			if l.Status != order.StatusUncommitted {
				continue
			}
			l.Status = order.StatusQueued
			l.CreatedAt = now
			tx.Touch()
			tx.Hold(l.LocalID)
			sent = append(sent, *l)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, l := range sent {
		s.submitSave(l, "SendToKitchen")
	}
	if len(sent) > 0 {
		s.logger.Info("order sent to kitchen", zap.String("table_id", tableID), zap.Int("lines", len(sent)))
	}
	return len(sent), nil
}

// AdvanceLine moves one kitchen line a single step forward. Uncommitted lines
// only leave that state through SendToKitchen.
func (s *Service) AdvanceLine(localID string) (order.Line, error) {
	return s.moveLine(localID, "AdvanceLine", func(st order.Status) (order.Status, bool) {
		if st == order.StatusUncommitted {
			return "", false
		}
		return st.Next()
	})
}

// RevertLine moves a kitchen line one step back (preparing to queued, ready
// to preparing)
func (s *Service) RevertLine(localID string) (order.Line, error) {
	return s.moveLine(localID, "RevertLine", order.Status.Previous)
}

func (s *Service) moveLine(localID, action string, step func(order.Status) (order.Status, bool)) (order.Line, error) {
	if err := s.signedIn(); err != nil {
		return order.Line{}, err
	}
	var result order.Line
	err := s.store.Update(func(tx *mirror.Tx) error {
		l := tx.Line(localID)
		if l == nil {
			return shared.NewDomainError("NOT_FOUND", "Order line not found")
		}
		next, ok := step(l.Status)
		if !ok {
			return shared.NewDomainError("INVALID_STATE", "Line cannot move from "+l.Status.String())
		}
		l.Status = next
		tx.Touch()
		tx.Hold(l.LocalID)
		result = *l
		return nil
	})
	if err != nil {
		return order.Line{}, err
	}

	s.submitStatus(result, action)
	return result, nil
}

// AdvanceTable moves every line of the table currently in state from one
// step forward, and returns how many moved
func (s *Service) AdvanceTable(tableID string, from order.Status) (int, error) {
	if err := s.signedIn(); err != nil {
		return 0, err
	}
	if from == order.StatusUncommitted {
		return 0, shared.NewDomainError("INVALID_STATE", "Use send to kitchen for uncommitted lines")
	}
	next, ok := from.Next()
	if !ok {
		return 0, shared.NewDomainError("INVALID_STATE", "Lines cannot move from "+from.String())
	}

	var moved []order.Line
	err := s.store.Update(func(tx *mirror.Tx) error {
		for _, l := range tx.Lines(tableID) {
			if l.Status != from {
				continue
			}
			l.Status = next
			tx.Touch()
			tx.Hold(l.LocalID)
			moved = append(moved, *l)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, l := range moved {
		s.submitStatus(l, "AdvanceTable")
	}
	return len(moved), nil
}

// Ticket is one table's group on the kitchen display
type Ticket struct {
	TableID      string
	Mode         order.Mode
	CustomerName string
	Lines        []order.Line
	Since        time.Time
}

// KitchenQueue returns the lines currently in the kitchen grouped per table,
// the table waiting longest first
func (s *Service) KitchenQueue() []Ticket {
	byTable := make(map[string]*Ticket)
	var tickets []*Ticket

	s.store.View(func(tx *mirror.Tx) {
		for _, l := range tx.AllLines() {
			if !l.Status.InKitchen() {
				continue
			}
			t, ok := byTable[l.TableID]
			if !ok {
				meta := tx.Meta(l.TableID)
				t = &Ticket{TableID: l.TableID, Mode: meta.Mode, CustomerName: meta.CustomerName, Since: l.CreatedAt}
				byTable[l.TableID] = t
				tickets = append(tickets, t)
			}
			t.Lines = append(t.Lines, *l)
			if l.CreatedAt.Before(t.Since) {
				t.Since = l.CreatedAt
			}
		}
	})

	out := make([]Ticket, 0, len(tickets))
	for _, t := range tickets {
		sort.SliceStable(t.Lines, func(i, j int) bool { return t.Lines[i].CreatedAt.Before(t.Lines[j].CreatedAt) })
		out = append(out, *t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Since.Before(out[j].Since) })
	return out
}
