// Package checkout settles a table: it turns the open order into a numbered
// sale, frees the table at once and commits the sale in the background.
package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/application/background"
	"github.com/chrisfalcon1208/apprest/internal/application/mirror"
	"github.com/chrisfalcon1208/apprest/internal/application/remote"
	"github.com/chrisfalcon1208/apprest/internal/domain/order"
	"github.com/chrisfalcon1208/apprest/internal/domain/sale"
	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCustomer is used when neither the table nor the config name one
const DefaultCustomer = "General Public"

// UserSource names the signed-in cashier
type UserSource interface {
	UserID() string
}

// Service closes tables
type Service struct {
	store  *mirror.Store
	gw     remote.Gateway
	jobs   *background.Dispatcher
	users  UserSource
	logger *zap.Logger

	defaultCustomer string
	newID           func() string
	now             func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithDefaultCustomer sets the customer name used when the table has none
func WithDefaultCustomer(name string) Option {
	return func(s *Service) {
		if strings.TrimSpace(name) != "" {
			s.defaultCustomer = strings.TrimSpace(name)
		}
	}
}

// WithClock overrides the sale timestamp clock
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		s.now = fn
	}
}

// NewService creates a new checkout Service
func NewService(
	store *mirror.Store,
	gw remote.Gateway,
	jobs *background.Dispatcher,
	users UserSource,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		store:           store,
		gw:              gw,
		jobs:            jobs,
		users:           users,
		logger:          logger.Named("checkout"),
		defaultCustomer: DefaultCustomer,
		newID:           uuid.NewString,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// closedTable is what the commit job needs to undo a refused close
type closedTable struct {
	lines []*order.Line
	meta  order.TableMeta
}

// CloseTable settles a table against the raw amount tendered. Payment is
// checked before anything changes; on success the table is empty when
// CloseTable returns and the sale is committed in the background. The
// returned sale carries a provisional sequence number.
func (s *Service) CloseTable(tableID, tendered string) (sale.Sale, error) {
	if s.users.UserID() == "" {
		return sale.Sale{}, shared.ErrNoSession
	}
	amount, err := sale.ParseTendered(tendered)
	if err != nil {
		return sale.Sale{}, err
	}

	var (
		built  *sale.Sale
		closed closedTable
	)
	err = s.store.Update(func(tx *mirror.Tx) error {
		ptrs := tx.Lines(tableID)
		lines := make([]order.Line, len(ptrs))
		for i, l := range ptrs {
			lines[i] = *l
		}
		meta := tx.Meta(tableID)

		customer := strings.TrimSpace(meta.CustomerName)
		if customer == "" {
			customer = s.defaultCustomer
		}

		// Validate and build before touching the mirror
		sl, err := sale.Build(sale.Input{
			ID:           s.newID(),
			TableID:      tableID,
			CustomerName: customer,
			UserID:       s.users.UserID(),
			Mode:         meta.Mode,
			Lines:        lines,
			DeliveryFee:  tx.DeliveryFee(),
			Tendered:     amount,
			Now:          s.now(),
		})
		if err != nil {
			return err
		}
		sl.Sequence = tx.NextSequence()

		for _, l := range ptrs {
			tx.Remove(l.LocalID)
		}
		tx.ClearMeta(tableID)
		tx.AddSale(sl)

		built = sl
		closed = closedTable{lines: ptrs, meta: meta}
		return nil
	})
	if err != nil {
		return sale.Sale{}, err
	}

	receipt := copySale(built)
	s.logger.Info("table closed",
		zap.String("table_id", tableID),
		zap.String("sale_id", receipt.LocalID),
		zap.Int64("sequence", receipt.Sequence),
		zap.String("total", receipt.Total.StringFixed(2)),
	)
	s.submitCommit(copySale(built), closed)
	return receipt, nil
}

func (s *Service) submitCommit(payload sale.Sale, closed closedTable) {
	s.jobs.Submit(background.Job{
		Key:  payload.TableID,
		Name: "CommitSale",
		Run: func(ctx context.Context) error {
			defer func() {
				for _, l := range closed.lines {
					s.store.ReleaseDelete(l.LocalID)
				}
				s.store.ReleaseSale(payload.LocalID)
			}()

			ack, err := s.gw.CommitSale(ctx, payload)
			if err == nil {
				s.store.AckSale(payload.LocalID, ack.ID, ack.Sequence)
				return nil
			}
			if remote.IsDefinitive(err) {
				s.reopen(payload, closed, err)
			}
			return fmt.Errorf("commit sale %s: %w", payload.LocalID, err)
		},
	})
}

// reopen handles a sale the server positively refused. The server only
// clears a table inside the commit itself, so its open lines are still
// there; the local table is restored to match unless it has been reused.
func (s *Service) reopen(payload sale.Sale, closed closedTable, cause error) {
	s.logger.Error("sale refused after table was closed",
		zap.String("table_id", payload.TableID),
		zap.String("sale_id", payload.LocalID),
		zap.Int64("sequence", payload.Sequence),
		zap.String("total", payload.Total.StringFixed(2)),
		zap.Any("sale", payload),
		zap.Error(cause),
	)

	s.store.DropSale(payload.LocalID)
	if !s.store.RestoreTable(payload.TableID, closed.lines, closed.meta) {
		s.logger.Warn("table reused before the refusal arrived, lines not restored",
			zap.String("table_id", payload.TableID),
			zap.String("sale_id", payload.LocalID),
		)
		return
	}

	// lines whose create never reached the server are sent again
	for _, l := range closed.lines {
		s.resubmitLine(payload.TableID, l.LocalID)
	}
}

func (s *Service) resubmitLine(tableID, localID string) {
	_ = s.store.Update(func(tx *mirror.Tx) error {
		tx.Hold(localID)
		return nil
	})
	s.jobs.Submit(background.Job{
		Key:  tableID,
		Name: "RestoreLine",
		Run: func(ctx context.Context) error {
			defer s.store.Release(localID)
			ws, ok := s.store.PendingWrite(localID)
			if !ok || ws.Line.DurableID != "" {
				return nil
			}
			if durable := s.store.DurableID(localID); durable != "" {
				// acknowledged while the table was closed
				s.store.AckLine(localID, durable)
				return nil
			}
			id, err := s.gw.SaveLine(ctx, remote.LineWrite{
				TableID:      ws.Line.TableID,
				ProductID:    ws.Line.ProductID,
				Quantity:     ws.Line.Quantity,
				UserID:       ws.Line.UserID,
				Note:         ws.Line.Note,
				CreatedAt:    ws.Line.CreatedAt,
				Status:       ws.Line.Status,
				Mode:         ws.Meta.Mode,
				CustomerName: ws.Meta.CustomerName,
			})
			if err != nil {
				return fmt.Errorf("restore line %s: %w", localID, err)
			}
			s.store.AckLine(localID, id)
			return nil
		},
	})
}

// History returns the known sales, highest sequence first
func (s *Service) History() []sale.Sale {
	return s.store.Sales()
}

func copySale(sl *sale.Sale) sale.Sale {
	c := *sl
	c.Details = append([]sale.DetailLine(nil), sl.Details...)
	return c
}
