// Package ordering is the order lifecycle engine: optimistic edits of the open
// orders of every table, mirrored to the server in the background.
package ordering

import (
	"strings"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/application/background"
	"github.com/chrisfalcon1208/apprest/internal/application/mirror"
	"github.com/chrisfalcon1208/apprest/internal/application/remote"
	"github.com/chrisfalcon1208/apprest/internal/domain/order"
	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserSource names the signed-in user stamped on new lines
type UserSource interface {
	UserID() string
}

// Service handles order line operations. Every method validates, mutates the
// mirror and queues the matching remote request, and returns without waiting
// for the network.
type Service struct {
	store  *mirror.Store
	gw     remote.Gateway
	jobs   *background.Dispatcher
	users  UserSource
	logger *zap.Logger

	newID func() string
	now   func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithIDGenerator overrides the local placeholder id generator
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// WithClock overrides the clock used for line timestamps
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		s.now = fn
	}
}

// NewService creates a new ordering Service
func NewService(
	store *mirror.Store,
	gw remote.Gateway,
	jobs *background.Dispatcher,
	users UserSource,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		store:  store,
		gw:     gw,
		jobs:   jobs,
		users:  users,
		logger: logger.Named("ordering"),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// signedIn rejects edits made without a session; their background writes
// could never reach the server
func (s *Service) signedIn() error {
	if s.users.UserID() == "" {
		return shared.ErrNoSession
	}
	return nil
}

// checkTable rejects tables outside the venue's floor plan
func checkTable(tx *mirror.Tx, tableID string) error {
	if !tx.Loaded() {
		return shared.ErrNotLoaded
	}
	if !tx.Profile().ValidTable(tableID) {
		return shared.ErrInvalidTable
	}
	return nil
}

// AddItem adds quantity units of a product to a table. An uncommitted line of
// the same product without a note absorbs the units; otherwise a new line is
// created. The whole find-or-create runs under one mirror update, so rapid
// repeated calls always land on the same line.
func (s *Service) AddItem(tableID, productID string, quantity int) (order.Line, error) {
	if err := s.signedIn(); err != nil {
		return order.Line{}, err
	}
	if quantity < 1 {
		return order.Line{}, shared.ErrInvalidQuantity
	}

	var result order.Line
	err := s.store.Update(func(tx *mirror.Tx) error {
		if err := checkTable(tx, tableID); err != nil {
			return err
		}
		product, ok := tx.Product(productID)
		if !ok {
			return shared.ErrProductNotFound
		}

		// Merge into an existing line when possible
		for _, l := range tx.Lines(tableID) {
			if l.Mergeable(productID) {
				l.Quantity += quantity
				tx.Touch()
				tx.Hold(l.LocalID)
				result = *l
				return nil
			}
		}

		l := &order.Line{
			LocalID:     s.newID(),
			TableID:     tableID,
			ProductID:   productID,
			Quantity:    quantity,
			UserID:      s.users.UserID(),
			CreatedAt:   s.now(),
			Status:      order.StatusUncommitted,
			Mode:        tx.Meta(tableID).Mode,
			ProductCode: product.Code,
			ProductName: product.Name,
			UnitPrice:   product.Price,
		}
		tx.Insert(l)
		tx.Hold(l.LocalID)
		result = *l
		return nil
	})
	if err != nil {
		return order.Line{}, err
	}

	s.submitSave(result, "AddItem")
	return result, nil
}

// SetQuantity sets a line's quantity to an exact value of at least 1
func (s *Service) SetQuantity(localID string, quantity int) (order.Line, error) {
	if quantity < 1 {
		return order.Line{}, shared.ErrInvalidQuantity
	}
	return s.editLine(localID, "SetQuantity", func(l *order.Line) error {
		l.Quantity = quantity
		return nil
	})
}

// Increment adds one unit to a line
func (s *Service) Increment(localID string) (order.Line, error) {
	return s.editLine(localID, "Increment", func(l *order.Line) error {
		l.Quantity++
		return nil
	})
}

// Decrement removes one unit from a line. It never takes a line below 1;
// removing a line is DeleteLine.
func (s *Service) Decrement(localID string) (order.Line, error) {
	return s.editLine(localID, "Decrement", func(l *order.Line) error {
		if l.Quantity <= 1 {
			return shared.ErrMinQuantity
		}
		l.Quantity--
		return nil
	})
}

// UpdateNote replaces a line's note
func (s *Service) UpdateNote(localID, note string) (order.Line, error) {
	note = strings.TrimSpace(note)
	if len(note) > 500 {
		return order.Line{}, shared.NewDomainError("INVALID_INPUT", "Note cannot exceed 500 characters")
	}
	return s.editLine(localID, "UpdateNote", func(l *order.Line) error {
		l.Note = note
		return nil
	})
}

// editLine applies fn to a line under one mirror update and queues its save
func (s *Service) editLine(localID, action string, fn func(l *order.Line) error) (order.Line, error) {
	if err := s.signedIn(); err != nil {
		return order.Line{}, err
	}
	var result order.Line
	err := s.store.Update(func(tx *mirror.Tx) error {
		l := tx.Line(localID)
		if l == nil {
			return shared.NewDomainError("NOT_FOUND", "Order line not found")
		}
		if err := fn(l); err != nil {
			return err
		}
		tx.Touch()
		tx.Hold(l.LocalID)
		result = *l
		return nil
	})
	if err != nil {
		return order.Line{}, err
	}

	s.submitSave(result, action)
	return result, nil
}

// DeleteLine removes one line from its table, in any state
func (s *Service) DeleteLine(localID string) error {
	if err := s.signedIn(); err != nil {
		return err
	}
	var removed *order.Line
	err := s.store.Update(func(tx *mirror.Tx) error {
		removed = tx.Remove(localID)
		if removed == nil {
			return shared.NewDomainError("NOT_FOUND", "Order line not found")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.submitDelete(removed.TableID, localID)
	return nil
}

// ClearTable removes every line of a table and forgets its metadata
func (s *Service) ClearTable(tableID string) error {
	if err := s.signedIn(); err != nil {
		return err
	}
	var localIDs []string
	err := s.store.Update(func(tx *mirror.Tx) error {
		lines := tx.Lines(tableID)
		if len(lines) == 0 {
			return shared.ErrEmptyTable
		}
		for _, l := range lines {
			tx.Remove(l.LocalID)
			localIDs = append(localIDs, l.LocalID)
		}
		tx.ClearMeta(tableID)
		return nil
	})
	if err != nil {
		return err
	}

	s.submitClear(tableID, localIDs)
	return nil
}

// Lines returns the open lines of a table, oldest first
func (s *Service) Lines(tableID string) []order.Line {
	return s.store.Lines(tableID)
}
