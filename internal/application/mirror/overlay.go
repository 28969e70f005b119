package mirror

import (
	"github.com/chrisfalcon1208/apprest/internal/application/remote"
	"github.com/chrisfalcon1208/apprest/internal/domain/catalog"
	"github.com/chrisfalcon1208/apprest/internal/domain/identity"
	"github.com/chrisfalcon1208/apprest/internal/domain/order"
	"github.com/chrisfalcon1208/apprest/internal/domain/sale"
)

// WriteState is what a background save needs about one line
type WriteState struct {
	Line order.Line
	Meta order.TableMeta
}

// PendingWrite returns the current state of a line for an outbound save.
// It is read when the request executes, not when it was queued, so a save
// queued behind a create carries the durable id the create returned.
func (s *Store) PendingWrite(localID string) (WriteState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lineLocked(localID)
	if l == nil {
		return WriteState{}, false
	}
	return WriteState{Line: *l, Meta: s.metaLocked(l.TableID)}, true
}

// DurableID returns the server id known for a local line id, including lines
// already removed from the open set.
func (s *Store) DurableID(localID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l := s.lineLocked(localID); l != nil && l.DurableID != "" {
		return l.DurableID
	}
	for d, local := range s.byDurable {
		if local == localID {
			return d
		}
	}
	return ""
}

// AckLine patches the server-assigned id into the line in place. A copy of
// the same server line already pulled in by a snapshot is dropped.
func (s *Store) AckLine(localID, durableID string) {
	if durableID == "" {
		return
	}
	s.mu.Lock()
	if other, ok := s.byDurable[durableID]; ok && other != localID {
		for i, l := range s.lines {
			if l.LocalID == other {
				s.lines = append(s.lines[:i:i], s.lines[i+1:]...)
				break
			}
		}
	}
	s.byDurable[durableID] = localID
	if l := s.lineLocked(localID); l != nil && l.DurableID == "" {
		l.DurableID = durableID
	}
	c := s.commit(SourceAck)
	s.mu.Unlock()
	s.notify(c)
}

// Release ends one hold taken with Tx.Hold
func (s *Store) Release(localID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	decr(s.held, localID)
}

// ReleaseMeta ends one hold taken with Tx.HoldMeta
func (s *Store) ReleaseMeta(tableID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	decr(s.heldMeta, tableID)
}

// ReleaseDelete ends one removal mark set by Tx.Remove
func (s *Store) ReleaseDelete(localID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if decr(s.deleting, localID) > 0 || s.lineLocked(localID) != nil {
		return
	}
	for d, local := range s.byDurable {
		if local == localID {
			delete(s.byDurable, d)
		}
	}
}

// AckSale moves a local sale onto its server id and sequence
func (s *Store) AckSale(localID, id string, sequence int64) {
	s.mu.Lock()
	for _, sl := range s.sales {
		if sl.LocalID == localID {
			sl.Rebind(id, sequence)
			break
		}
	}
	s.sortSalesLocked()
	c := s.commit(SourceAck)
	s.mu.Unlock()
	s.notify(c)
}

// ReleaseSale ends the hold taken by Tx.AddSale
func (s *Store) ReleaseSale(localID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	decr(s.heldSales, localID)
}

// DropSale removes a sale the server definitively refused
func (s *Store) DropSale(localID string) {
	s.mu.Lock()
	for i, sl := range s.sales {
		if sl.LocalID == localID {
			s.sales = append(s.sales[:i:i], s.sales[i+1:]...)
			break
		}
	}
	c := s.commit(SourceAck)
	s.mu.Unlock()
	s.notify(c)
}

// RestoreTable puts removed lines back, provided the table has not been
// reused in the meantime. It reports whether the lines were restored.
func (s *Store) RestoreTable(tableID string, lines []*order.Line, meta order.TableMeta) bool {
	s.mu.Lock()
	for _, l := range s.lines {
		if l.TableID == tableID {
			s.mu.Unlock()
			return false
		}
	}
	for _, l := range lines {
		s.lines = append(s.lines, l)
		if l.DurableID != "" {
			s.byDurable[l.DurableID] = l.LocalID
		}
	}
	s.meta[tableID] = &tableMeta{TableMeta: meta}
	c := s.commit(SourceLocal)
	s.mu.Unlock()
	s.notify(c)
	return true
}

// ApplySnapshot replaces every top-level collection with the snapshot's,
// overlaying whatever local writes are still queued or in flight:
//
//   - a held line keeps its local fields and is kept even if absent
//   - a line being deleted is not brought back
//   - held table metadata, and draft metadata of empty tables, is kept
//   - held sales the snapshot does not contain yet are kept
//
// Lines already in the mirror are updated in place, so their identity is
// stable across snapshots. The caller validates the snapshot first.
func (s *Store) ApplySnapshot(snap *remote.Snapshot) {
	s.ApplySnapshotAt(s.Epoch(), snap)
}

// ApplySnapshotAt applies snap only if the store has not been reset since
// epoch was read, and reports whether it did. A pull started before a logout
// must not reload the mirror after it.
func (s *Store) ApplySnapshotAt(epoch uint64, snap *remote.Snapshot) bool {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false
	}

	s.profile = snap.Profile
	s.users = append([]identity.User(nil), snap.Users...)
	s.categories = append([]catalog.Category(nil), snap.Categories...)
	s.products = append([]catalog.Product(nil), snap.Products...)
	s.reindexProductsLocked()

	next := make([]*order.Line, 0, len(snap.Lines))
	placed := make(map[string]bool, len(snap.Lines))
	serverMeta := make(map[string]order.TableMeta)

	for _, r := range snap.Lines {
		local, known := s.byDurable[r.ID]
		if known && s.deleting[local] > 0 {
			continue
		}
		var l *order.Line
		if known {
			l = s.lineLocked(local)
		} else {
			local = r.ID
			s.byDurable[r.ID] = local
		}
		if l == nil {
			l = &order.Line{LocalID: local, DurableID: r.ID}
		}
		if s.held[l.LocalID] == 0 {
			l.TableID = r.TableID
			l.ProductID = r.ProductID
			l.Quantity = r.Quantity
			l.UserID = r.UserID
			l.Note = r.Note
			l.CreatedAt = r.CreatedAt
			l.Status = r.Status
			l.Mode = r.Mode
		}
		if _, ok := serverMeta[r.TableID]; !ok {
			serverMeta[r.TableID] = order.TableMeta{CustomerName: r.CustomerName, Mode: r.Mode}
		}
		next = append(next, l)
		placed[l.LocalID] = true
	}
	for _, l := range s.lines {
		if !placed[l.LocalID] && s.held[l.LocalID] > 0 {
			next = append(next, l)
			placed[l.LocalID] = true
		}
	}
	for _, l := range next {
		s.joinLocked(l)
	}
	s.lines = next

	s.rebuildMetaLocked(serverMeta)
	s.mergeSalesLocked(snap.Sales)

	s.loaded = true
	c := s.commit(SourceSnapshot)
	s.mu.Unlock()
	s.notify(c)
	return true
}

func (s *Store) joinLocked(l *order.Line) {
	if p, ok := s.productLocked(l.ProductID); ok {
		l.ProductCode = p.Code
		l.ProductName = p.Name
		l.UnitPrice = p.Price
	}
}

func (s *Store) rebuildMetaLocked(serverMeta map[string]order.TableMeta) {
	occupied := make(map[string]bool)
	for _, l := range s.lines {
		occupied[l.TableID] = true
	}

	meta := make(map[string]*tableMeta)
	for table := range occupied {
		local, hasLocal := s.meta[table]
		switch server, hasServer := serverMeta[table]; {
		case hasLocal && s.heldMeta[table] > 0:
			meta[table] = &tableMeta{TableMeta: local.TableMeta}
		case hasServer:
			meta[table] = &tableMeta{TableMeta: server}
		case hasLocal:
			meta[table] = &tableMeta{TableMeta: local.TableMeta}
		}
	}
	for table, local := range s.meta {
		if occupied[table] {
			continue
		}
		if local.draft || s.heldMeta[table] > 0 {
			meta[table] = &tableMeta{TableMeta: local.TableMeta, draft: true}
		}
	}
	s.meta = meta

	// a table has a single order-mode, whatever individual rows say
	for _, l := range s.lines {
		if m, ok := s.meta[l.TableID]; ok && m.Mode.IsValid() {
			l.Mode = m.Mode
		}
	}
}

func (s *Store) mergeSalesLocked(incoming []sale.Sale) {
	localOf := make(map[string]string, len(s.sales))
	for _, sl := range s.sales {
		localOf[sl.ID] = sl.LocalID
	}

	known := make(map[string]bool, len(incoming))
	sales := make([]*sale.Sale, 0, len(incoming))
	for i := range incoming {
		sl := incoming[i]
		sl.Details = append([]sale.DetailLine(nil), incoming[i].Details...)
		// a sale closed here keeps the local id it was handed out under
		if local, ok := localOf[sl.ID]; ok {
			sl.LocalID = local
		} else if sl.LocalID == "" {
			sl.LocalID = sl.ID
		}
		sl.Acked = true
		known[sl.ID] = true
		sales = append(sales, &sl)
	}
	for _, sl := range s.sales {
		if s.heldSales[sl.LocalID] > 0 && !known[sl.ID] {
			sales = append(sales, sl)
		}
	}
	s.sales = sales
	s.sortSalesLocked()
}

func decr(m map[string]int, key string) int {
	n := m[key] - 1
	if n <= 0 {
		delete(m, key)
		return 0
	}
	m[key] = n
	return n
}
