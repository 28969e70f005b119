// Package mirror holds the in-memory copy of server-authoritative state that
// one client context works against.
package mirror

import (
	"sort"
	"sync"

	"github.com/chrisfalcon1208/apprest/internal/domain/catalog"
	"github.com/chrisfalcon1208/apprest/internal/domain/identity"
	"github.com/chrisfalcon1208/apprest/internal/domain/order"
	"github.com/chrisfalcon1208/apprest/internal/domain/sale"
	"github.com/chrisfalcon1208/apprest/internal/domain/venue"
	"github.com/shopspring/decimal"
)

// Source tells observers what produced a change
type Source string

const (
	SourceLocal    Source = "local"
	SourceSnapshot Source = "snapshot"
	SourceAck      Source = "ack"
	SourceSession  Source = "session"
)

// Change is delivered to observers after every committed mutation
type Change struct {
	Version uint64
	Source  Source
}

type tableMeta struct {
	order.TableMeta
	// draft is meta set on a table with no lines yet; it survives snapshots
	// until the table gets its first line.
	draft bool
}

// Store is the state mirror. Every mutation goes through Update (or one of
// the ack/release helpers used by background requests) and runs entirely
// under the store's lock, so a read-modify-write such as the add-item merge
// can never interleave with another mutation.
type Store struct {
	mu sync.Mutex

	loaded     bool
	profile    venue.Profile
	users      []identity.User
	categories []catalog.Category
	products   []catalog.Product
	productIdx map[string]int
	sales      []*sale.Sale
	lines      []*order.Line
	meta       map[string]*tableMeta

	// durable id -> local id, kept for every acknowledged line
	byDurable map[string]string
	// in-flight bookkeeping; see overlay.go
	held      map[string]int // local line id -> writes queued or in flight
	deleting  map[string]int // local line id -> removals queued or in flight
	heldMeta  map[string]int // table id -> meta writes queued or in flight
	heldSales map[string]int // local sale id -> commits queued or in flight
	maxIssued int64

	version     uint64
	epoch       uint64 // bumped by Reset; a snapshot fetched under an older epoch is stale
	deliveryFee decimal.Decimal

	obsMu     sync.Mutex
	observers []func(Change)
}

// New creates an empty store. fee is the delivery surcharge.
func New(fee decimal.Decimal) *Store {
	return &Store{
		productIdx:  make(map[string]int),
		meta:        make(map[string]*tableMeta),
		byDurable:   make(map[string]string),
		held:        make(map[string]int),
		deleting:    make(map[string]int),
		heldMeta:    make(map[string]int),
		heldSales:   make(map[string]int),
		deliveryFee: fee,
	}
}

// Subscribe registers an observer. Observers run after the lock is released,
// on the goroutine that made the change.
func (s *Store) Subscribe(fn func(Change)) {
	s.obsMu.Lock()
	s.observers = append(s.observers, fn)
	s.obsMu.Unlock()
}

func (s *Store) notify(c Change) {
	s.obsMu.Lock()
	obs := make([]func(Change), len(s.observers))
	copy(obs, s.observers)
	s.obsMu.Unlock()
	for _, fn := range obs {
		fn(c)
	}
}

// Update runs fn as one atomic mutation. If fn returns an error nothing it
// did is rolled back, so fn must validate before it mutates.
func (s *Store) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	tx := &Tx{s: s}
	err := fn(tx)
	var c Change
	if tx.dirty {
		s.version++
		c = Change{Version: s.version, Source: SourceLocal}
	}
	s.mu.Unlock()

	if tx.dirty {
		s.notify(c)
	}
	return err
}

// View runs fn with a consistent read of the store
func (s *Store) View(fn func(tx *Tx)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&Tx{s: s, readOnly: true})
}

// commit bumps the version under the lock and returns the change to publish
func (s *Store) commit(src Source) Change {
	s.version++
	return Change{Version: s.version, Source: src}
}

// Version increases with every committed change
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Epoch identifies the current session generation of the store. Capture it
// before fetching a snapshot and pass it to ApplySnapshotAt.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Loaded reports whether at least one snapshot has been applied
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// DeliveryFee is the surcharge added to delivery tables
func (s *Store) DeliveryFee() decimal.Decimal {
	return s.deliveryFee
}

// Profile returns the business profile
func (s *Store) Profile() (venue.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile, s.loaded
}

// Users returns the redacted user list
func (s *Store) Users() []identity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]identity.User(nil), s.users...)
}

// Categories returns every category
func (s *Store) Categories() []catalog.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.Category(nil), s.categories...)
}

// Products returns the catalog
func (s *Store) Products() []catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.Product(nil), s.products...)
}

// Product looks a product up by id
func (s *Store) Product(id string) (catalog.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.productLocked(id)
}

func (s *Store) productLocked(id string) (catalog.Product, bool) {
	i, ok := s.productIdx[id]
	if !ok {
		return catalog.Product{}, false
	}
	return s.products[i], true
}

// Lines returns copies of the open lines of one table, oldest first
func (s *Store) Lines(tableID string) []order.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []order.Line
	for _, l := range s.lines {
		if l.TableID == tableID {
			out = append(out, *l)
		}
	}
	return out
}

// AllLines returns copies of every open line
func (s *Store) AllLines() []order.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]order.Line, 0, len(s.lines))
	for _, l := range s.lines {
		out = append(out, *l)
	}
	return out
}

// Line returns a copy of one line by its local id
func (s *Store) Line(localID string) (order.Line, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l := s.lineLocked(localID); l != nil {
		return *l, true
	}
	return order.Line{}, false
}

func (s *Store) lineLocked(localID string) *order.Line {
	for _, l := range s.lines {
		if l.LocalID == localID {
			return l
		}
	}
	return nil
}

// Meta returns the table's customer and order-mode
func (s *Store) Meta(tableID string) order.TableMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metaLocked(tableID)
}

func (s *Store) metaLocked(tableID string) order.TableMeta {
	if m, ok := s.meta[tableID]; ok {
		return m.TableMeta
	}
	return order.TableMeta{Mode: order.ModeLocal}
}

// Sales returns copies of the known sales, highest sequence first
func (s *Store) Sales() []sale.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sale.Sale, 0, len(s.sales))
	for _, sl := range s.sales {
		out = append(out, copySale(sl))
	}
	return out
}

// Sale returns one sale by id
func (s *Store) Sale(id string) (sale.Sale, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sl := range s.sales {
		if sl.ID == id {
			return copySale(sl), true
		}
	}
	return sale.Sale{}, false
}

// Reset drops everything, as on logout
func (s *Store) Reset() {
	s.mu.Lock()
	s.loaded = false
	s.profile = venue.Profile{}
	s.users = nil
	s.categories = nil
	s.products = nil
	s.productIdx = make(map[string]int)
	s.sales = nil
	s.lines = nil
	s.meta = make(map[string]*tableMeta)
	s.byDurable = make(map[string]string)
	s.held = make(map[string]int)
	s.deleting = make(map[string]int)
	s.heldMeta = make(map[string]int)
	s.heldSales = make(map[string]int)
	s.maxIssued = 0
	s.epoch++
	c := s.commit(SourceSession)
	s.mu.Unlock()
	s.notify(c)
}

func copySale(sl *sale.Sale) sale.Sale {
	c := *sl
	c.Details = append([]sale.DetailLine(nil), sl.Details...)
	return c
}

func (s *Store) sortSalesLocked() {
	sort.SliceStable(s.sales, func(i, j int) bool {
		return s.sales[i].Sequence > s.sales[j].Sequence
	})
}

func (s *Store) reindexProductsLocked() {
	s.productIdx = make(map[string]int, len(s.products))
	for i, p := range s.products {
		s.productIdx[p.ID] = i
	}
}
