package ordering

import (
	"context"
	"errors"
	"fmt"

	"github.com/chrisfalcon1208/apprest/internal/application/background"
	"github.com/chrisfalcon1208/apprest/internal/application/mirror"
	"github.com/chrisfalcon1208/apprest/internal/application/remote"
	"github.com/chrisfalcon1208/apprest/internal/domain/order"
)

// Background requests are keyed by table, so a line's create always reaches
// the server before its later updates and deletes. Payloads are read from
// the mirror when the request runs, not when it is queued.

func (s *Service) submitSave(l order.Line, action string) {
	s.jobs.Submit(background.Job{
		Key:  l.TableID,
		Name: action,
		Run: func(ctx context.Context) error {
			defer s.store.Release(l.LocalID)
			return s.saveLine(ctx, l.LocalID)
		},
	})
}

func (s *Service) saveLine(ctx context.Context, localID string) error {
	ws, ok := s.store.PendingWrite(localID)
	if !ok {
		// removed locally before the request ran
		return nil
	}
	id, err := s.gw.SaveLine(ctx, toWrite(ws))
	if err != nil {
		return fmt.Errorf("save line %s: %w", localID, err)
	}
	if ws.Line.DurableID == "" {
		s.store.AckLine(localID, id)
	}
	return nil
}

func (s *Service) submitStatus(l order.Line, action string) {
	s.jobs.Submit(background.Job{
		Key:  l.TableID,
		Name: action,
		Run: func(ctx context.Context) error {
			defer s.store.Release(l.LocalID)
			ws, ok := s.store.PendingWrite(l.LocalID)
			if !ok {
				return nil
			}
			if ws.Line.DurableID == "" {
				// the create never landed; send the whole line instead
				return s.saveLine(ctx, l.LocalID)
			}
			if err := s.gw.SetLineStatus(ctx, ws.Line.DurableID, ws.Line.Status); err != nil {
				return fmt.Errorf("set status of line %s: %w", l.LocalID, err)
			}
			return nil
		},
	})
}

func (s *Service) submitDelete(tableID, localID string) {
	s.jobs.Submit(background.Job{
		Key:  tableID,
		Name: "DeleteLine",
		Run: func(ctx context.Context) error {
			defer s.store.ReleaseDelete(localID)
			durable := s.store.DurableID(localID)
			if durable == "" {
				return nil
			}
			err := s.gw.DeleteLine(ctx, durable)
			if err != nil && !errors.Is(err, remote.ErrNotFound) {
				return fmt.Errorf("delete line %s: %w", localID, err)
			}
			return nil
		},
	})
}

func (s *Service) submitClear(tableID string, localIDs []string) {
	s.jobs.Submit(background.Job{
		Key:  tableID,
		Name: "ClearTable",
		Run: func(ctx context.Context) error {
			defer func() {
				for _, id := range localIDs {
					s.store.ReleaseDelete(id)
				}
			}()
			if err := s.gw.ClearTable(ctx, tableID); err != nil {
				return fmt.Errorf("clear table %s: %w", tableID, err)
			}
			return nil
		},
	})
}

func (s *Service) submitMeta(tableID string) {
	s.jobs.Submit(background.Job{
		Key:  tableID,
		Name: "SetTableMeta",
		Run: func(ctx context.Context) error {
			defer s.store.ReleaseMeta(tableID)
			if err := s.gw.SetTableMeta(ctx, tableID, s.store.Meta(tableID)); err != nil {
				return fmt.Errorf("set metadata of table %s: %w", tableID, err)
			}
			return nil
		},
	})
}

func toWrite(ws mirror.WriteState) remote.LineWrite {
	return remote.LineWrite{
		ID:           ws.Line.DurableID,
		TableID:      ws.Line.TableID,
		ProductID:    ws.Line.ProductID,
		Quantity:     ws.Line.Quantity,
		UserID:       ws.Line.UserID,
		Note:         ws.Line.Note,
		CreatedAt:    ws.Line.CreatedAt,
		Status:       ws.Line.Status,
		Mode:         ws.Meta.Mode,
		CustomerName: ws.Meta.CustomerName,
	}
}
