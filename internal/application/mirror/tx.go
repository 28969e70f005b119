package mirror

import (
	"github.com/chrisfalcon1208/apprest/internal/domain/catalog"
	"github.com/chrisfalcon1208/apprest/internal/domain/order"
	"github.com/chrisfalcon1208/apprest/internal/domain/sale"
	"github.com/chrisfalcon1208/apprest/internal/domain/venue"
	"github.com/shopspring/decimal"
)

// Tx is the handle passed to Update and View. Pointers it hands out are only
// valid inside the callback.
type Tx struct {
	s        *Store
	dirty    bool
	readOnly bool
}

func (tx *Tx) write() {
	if tx.readOnly {
		panic("mirror: mutation inside View")
	}
	tx.dirty = true
}

// Loaded reports whether a snapshot has been applied
func (tx *Tx) Loaded() bool { return tx.s.loaded }

// Profile returns the business profile
func (tx *Tx) Profile() venue.Profile { return tx.s.profile }

// DeliveryFee is the delivery surcharge
func (tx *Tx) DeliveryFee() decimal.Decimal { return tx.s.deliveryFee }

// Product looks a product up by id
func (tx *Tx) Product(id string) (catalog.Product, bool) {
	return tx.s.productLocked(id)
}

// Products returns the catalog
func (tx *Tx) Products() []catalog.Product {
	return append([]catalog.Product(nil), tx.s.products...)
}

// Categories returns every category
func (tx *Tx) Categories() []catalog.Category {
	return append([]catalog.Category(nil), tx.s.categories...)
}

// Lines returns the live lines of a table, oldest first
func (tx *Tx) Lines(tableID string) []*order.Line {
	var out []*order.Line
	for _, l := range tx.s.lines {
		if l.TableID == tableID {
			out = append(out, l)
		}
	}
	return out
}

// AllLines returns every live line
func (tx *Tx) AllLines() []*order.Line {
	return append([]*order.Line(nil), tx.s.lines...)
}

// Line returns the live line with the given local id, or nil
func (tx *Tx) Line(localID string) *order.Line {
	return tx.s.lineLocked(localID)
}

// Touch records that a line returned by Lines or Line was modified in place
func (tx *Tx) Touch() {
	tx.write()
}

// Insert adds a line to the open set
func (tx *Tx) Insert(l *order.Line) {
	tx.write()
	tx.s.lines = append(tx.s.lines, l)
	if m, ok := tx.s.meta[l.TableID]; ok {
		m.draft = false
	}
}

// Remove takes a line out of the open set and marks it as being deleted, so
// snapshots taken before the deletion lands do not bring it back. The mark
// is cleared by ReleaseDelete.
func (tx *Tx) Remove(localID string) *order.Line {
	for i, l := range tx.s.lines {
		if l.LocalID != localID {
			continue
		}
		tx.write()
		tx.s.lines = append(tx.s.lines[:i:i], tx.s.lines[i+1:]...)
		tx.s.deleting[localID]++
		if m, ok := tx.s.meta[l.TableID]; ok && !tx.occupied(l.TableID) {
			m.draft = true
		}
		return l
	}
	return nil
}

func (tx *Tx) occupied(tableID string) bool {
	for _, l := range tx.s.lines {
		if l.TableID == tableID {
			return true
		}
	}
	return false
}

// Meta returns the table's customer and order-mode
func (tx *Tx) Meta(tableID string) order.TableMeta {
	return tx.s.metaLocked(tableID)
}

// SetMeta replaces the table's metadata
func (tx *Tx) SetMeta(tableID string, m order.TableMeta) {
	tx.write()
	tx.s.meta[tableID] = &tableMeta{TableMeta: m, draft: !tx.occupied(tableID)}
}

// ClearMeta forgets the table's metadata
func (tx *Tx) ClearMeta(tableID string) {
	tx.write()
	delete(tx.s.meta, tableID)
}

// Hold marks a line as having a background write queued; snapshots will not
// overwrite its fields or drop it until Release.
func (tx *Tx) Hold(localID string) {
	tx.s.held[localID]++
}

// HoldMeta marks the table's metadata as having a write queued
func (tx *Tx) HoldMeta(tableID string) {
	tx.s.heldMeta[tableID]++
}

// Sales returns the live sale list, highest sequence first
func (tx *Tx) Sales() []*sale.Sale {
	return append([]*sale.Sale(nil), tx.s.sales...)
}

// AddSale records a locally closed sale and holds it until its commit is
// released.
func (tx *Tx) AddSale(sl *sale.Sale) {
	tx.write()
	tx.s.sales = append(tx.s.sales, sl)
	tx.s.sortSalesLocked()
	tx.s.heldSales[sl.LocalID]++
}

// NextSequence issues a provisional sale number: one past the highest number
// known or previously issued by this store.
func (tx *Tx) NextSequence() int64 {
	next := tx.s.maxIssued
	for _, sl := range tx.s.sales {
		if sl.Sequence > next {
			next = sl.Sequence
		}
	}
	next++
	tx.s.maxIssued = next
	return next
}
