package mirror

import (
	"sync"
	"testing"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/application/remote"
	"github.com/chrisfalcon1208/apprest/internal/domain/catalog"
	"github.com/chrisfalcon1208/apprest/internal/domain/order"
	"github.com/chrisfalcon1208/apprest/internal/domain/sale"
	"github.com/chrisfalcon1208/apprest/internal/domain/venue"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 4, 13, 0, 0, 0, time.UTC)

func baseSnapshot() *remote.Snapshot {
	return &remote.Snapshot{
		Profile:    venue.Profile{Name: "La Fonda", TableCount: 8},
		Categories: []catalog.Category{{ID: "c1", Name: "Platos", Kind: catalog.KindFood}},
		Products: []catalog.Product{
			{ID: "A", Code: "A01", Name: "Enchiladas", Price: decimal.RequireFromString("20.00"), Kind: catalog.KindFood, CategoryID: "c1"},
			{ID: "B", Code: "B01", Name: "Horchata", Price: decimal.RequireFromString("15.00"), Kind: catalog.KindFood, CategoryID: "c1"},
		},
	}
}

func record(id, table, product string, qty int, status order.Status) remote.LineRecord {
	return remote.LineRecord{ID: id, TableID: table, ProductID: product, Quantity: qty, Status: status, Mode: order.ModeLocal, CreatedAt: t0}
}

func newLoaded(t *testing.T) *Store {
	t.Helper()
	s := New(decimal.NewFromInt(10))
	s.ApplySnapshot(baseSnapshot())
	require.True(t, s.Loaded())
	return s
}

func insertLocal(t *testing.T, s *Store, localID, table, product string, qty int, hold bool) {
	t.Helper()
	require.NoError(t, s.Update(func(tx *Tx) error {
		p, _ := tx.Product(product)
		tx.Insert(&order.Line{LocalID: localID, TableID: table, ProductID: product, Quantity: qty,
			Status: order.StatusUncommitted, Mode: order.ModeLocal, UnitPrice: p.Price, ProductName: p.Name})
		if hold {
			tx.Hold(localID)
		}
		return nil
	}))
}

func TestApplySnapshot_JoinsProducts(t *testing.T) {
	s := New(decimal.NewFromInt(10))
	snap := baseSnapshot()
	snap.Lines = []remote.LineRecord{record("d1", "5", "A", 3, order.StatusQueued)}
	s.ApplySnapshot(snap)

	lines := s.Lines("5")
	require.Len(t, lines, 1)
	assert.Equal(t, "d1", lines[0].LocalID)
	assert.Equal(t, "d1", lines[0].DurableID)
	assert.Equal(t, "Enchiladas", lines[0].ProductName)
	assert.True(t, lines[0].UnitPrice.Equal(decimal.NewFromInt(20)))

	p, ok := s.Profile()
	assert.True(t, ok)
	assert.Equal(t, 8, p.TableCount)
}

func TestApplySnapshot_UpdatesInPlace(t *testing.T) {
	s := newLoaded(t)
	insertLocal(t, s, "L1", "5", "A", 1, true)
	s.AckLine("L1", "d1")
	s.Release("L1")

	var before *order.Line
	s.View(func(tx *Tx) { before = tx.Line("L1") })

	snap := baseSnapshot()
	snap.Lines = []remote.LineRecord{record("d1", "5", "A", 4, order.StatusPreparing)}
	s.ApplySnapshot(snap)

	var after *order.Line
	s.View(func(tx *Tx) { after = tx.Line("L1") })
	require.NotNil(t, after)
	assert.Same(t, before, after, "line identity survives a snapshot")
	assert.Equal(t, 4, after.Quantity)
	assert.Equal(t, order.StatusPreparing, after.Status)
	assert.Equal(t, "d1", after.DurableID)
}

func TestApplySnapshot_HeldLineKeepsLocalFields(t *testing.T) {
	s := newLoaded(t)
	insertLocal(t, s, "L1", "5", "A", 1, true)
	s.AckLine("L1", "d1")

	require.NoError(t, s.Update(func(tx *Tx) error {
		l := tx.Line("L1")
		l.Note = "extra salsa"
		l.Quantity = 2
		tx.Touch()
		return nil
	}))

	snap := baseSnapshot()
	snap.Lines = []remote.LineRecord{record("d1", "5", "A", 1, order.StatusUncommitted)}
	s.ApplySnapshot(snap)

	l, ok := s.Line("L1")
	require.True(t, ok)
	assert.Equal(t, "extra salsa", l.Note)
	assert.Equal(t, 2, l.Quantity)
}

func TestApplySnapshot_UnackedLines(t *testing.T) {
	s := newLoaded(t)
	insertLocal(t, s, "held", "3", "A", 1, true)
	insertLocal(t, s, "orphan", "3", "B", 1, false)

	s.ApplySnapshot(baseSnapshot())

	_, ok := s.Line("held")
	assert.True(t, ok, "a line whose create is queued survives")
	_, ok = s.Line("orphan")
	assert.False(t, ok, "an unacknowledged line with nothing in flight is dropped")

	s.Release("held")
	s.ApplySnapshot(baseSnapshot())
	assert.Empty(t, s.Lines("3"))
}

func TestApplySnapshot_DeletingLineNotResurrected(t *testing.T) {
	s := newLoaded(t)
	snap := baseSnapshot()
	snap.Lines = []remote.LineRecord{record("d1", "5", "A", 1, order.StatusQueued)}
	s.ApplySnapshot(snap)

	require.NoError(t, s.Update(func(tx *Tx) error {
		require.NotNil(t, tx.Remove("d1"))
		return nil
	}))
	assert.Equal(t, "d1", s.DurableID("d1"))

	s.ApplySnapshot(snap)
	assert.Empty(t, s.Lines("5"), "stale snapshot must not bring the line back")

	s.ReleaseDelete("d1")
	assert.Empty(t, s.DurableID("d1"))
	s.ApplySnapshot(baseSnapshot())
	assert.Empty(t, s.Lines("5"))
}

func TestAckLine_DropsSnapshotDuplicate(t *testing.T) {
	s := newLoaded(t)
	insertLocal(t, s, "L1", "5", "A", 1, true)

	// the create landed and a snapshot saw it before the ack was processed
	snap := baseSnapshot()
	snap.Lines = []remote.LineRecord{record("d1", "5", "A", 1, order.StatusUncommitted)}
	s.ApplySnapshot(snap)
	assert.Len(t, s.Lines("5"), 2)

	s.AckLine("L1", "d1")
	lines := s.Lines("5")
	require.Len(t, lines, 1)
	assert.Equal(t, "L1", lines[0].LocalID)
	assert.Equal(t, "d1", lines[0].DurableID)
}

func TestMeta(t *testing.T) {
	t.Run("server meta applies to occupied tables", func(t *testing.T) {
		s := newLoaded(t)
		snap := baseSnapshot()
		r := record("d1", "2", "A", 1, order.StatusQueued)
		r.Mode = order.ModeDelivery
		r.CustomerName = "Luis"
		snap.Lines = []remote.LineRecord{r}
		s.ApplySnapshot(snap)

		assert.Equal(t, order.TableMeta{CustomerName: "Luis", Mode: order.ModeDelivery}, s.Meta("2"))
	})

	t.Run("draft meta on an empty table survives", func(t *testing.T) {
		s := newLoaded(t)
		require.NoError(t, s.Update(func(tx *Tx) error {
			tx.SetMeta("4", order.TableMeta{CustomerName: "Eva", Mode: order.ModeTakeaway})
			return nil
		}))
		s.ApplySnapshot(baseSnapshot())
		assert.Equal(t, order.ModeTakeaway, s.Meta("4").Mode)
	})

	t.Run("held meta wins over the server", func(t *testing.T) {
		s := newLoaded(t)
		snap := baseSnapshot()
		snap.Lines = []remote.LineRecord{record("d1", "2", "A", 1, order.StatusQueued)}
		s.ApplySnapshot(snap)

		require.NoError(t, s.Update(func(tx *Tx) error {
			tx.SetMeta("2", order.TableMeta{Mode: order.ModeDelivery})
			tx.HoldMeta("2")
			return nil
		}))
		s.ApplySnapshot(snap)
		assert.Equal(t, order.ModeDelivery, s.Meta("2").Mode)
		assert.Equal(t, order.ModeDelivery, s.Lines("2")[0].Mode)

		s.ReleaseMeta("2")
		s.ApplySnapshot(snap)
		assert.Equal(t, order.ModeLocal, s.Meta("2").Mode)
	})

	t.Run("unknown table defaults to local", func(t *testing.T) {
		s := newLoaded(t)
		assert.Equal(t, order.TableMeta{Mode: order.ModeLocal}, s.Meta("7"))
	})
}

func TestSales(t *testing.T) {
	s := newLoaded(t)
	snap := baseSnapshot()
	snap.Sales = []sale.Sale{
		{ID: "s1", Sequence: 10, Total: decimal.NewFromInt(20)},
		{ID: "s2", Sequence: 11, Total: decimal.NewFromInt(30)},
	}
	s.ApplySnapshot(snap)

	var seq int64
	require.NoError(t, s.Update(func(tx *Tx) error {
		seq = tx.NextSequence()
		tx.AddSale(&sale.Sale{ID: "local-1", LocalID: "local-1", Sequence: seq})
		return nil
	}))
	assert.Equal(t, int64(12), seq)

	// a second closing before the first is acknowledged still gets a fresh number
	require.NoError(t, s.Update(func(tx *Tx) error {
		seq = tx.NextSequence()
		return nil
	}))
	assert.Equal(t, int64(13), seq)

	s.ApplySnapshot(snap)
	sales := s.Sales()
	require.Len(t, sales, 3, "held local sale kept")
	assert.Equal(t, "local-1", sales[0].ID)

	s.AckSale("local-1", "s3", 12)
	got, ok := s.Sale("s3")
	require.True(t, ok)
	assert.True(t, got.Acked)
	assert.Equal(t, "local-1", got.LocalID)

	s.ReleaseSale("local-1")
	snap.Sales = append(snap.Sales, sale.Sale{ID: "s3", Sequence: 12})
	s.ApplySnapshot(snap)
	assert.Len(t, s.Sales(), 3)
	got, ok = s.Sale("s3")
	require.True(t, ok)
	assert.Equal(t, "local-1", got.LocalID, "local id survives the snapshot")

	s.DropSale("local-1")
	assert.Len(t, s.Sales(), 2)
}

func TestRestoreTable(t *testing.T) {
	s := newLoaded(t)
	insertLocal(t, s, "L1", "5", "A", 2, false)
	insertLocal(t, s, "L2", "5", "B", 1, false)

	var removed []*order.Line
	require.NoError(t, s.Update(func(tx *Tx) error {
		for _, l := range tx.Lines("5") {
			removed = append(removed, tx.Remove(l.LocalID))
		}
		tx.ClearMeta("5")
		return nil
	}))
	assert.Empty(t, s.Lines("5"))

	assert.True(t, s.RestoreTable("5", removed, order.TableMeta{CustomerName: "Ana", Mode: order.ModeLocal}))
	assert.Len(t, s.Lines("5"), 2)
	assert.Equal(t, "Ana", s.Meta("5").CustomerName)

	assert.False(t, s.RestoreTable("5", removed, order.TableMeta{}), "occupied table is not overwritten")
}

func TestObserversAndVersion(t *testing.T) {
	s := New(decimal.Zero)
	var got []Change
	s.Subscribe(func(c Change) { got = append(got, c) })

	s.ApplySnapshot(baseSnapshot())
	insertLocal(t, s, "L1", "1", "A", 1, false)
	require.NoError(t, s.Update(func(tx *Tx) error { return nil }))

	require.Len(t, got, 2, "a no-op update publishes nothing")
	assert.Equal(t, SourceSnapshot, got[0].Source)
	assert.Equal(t, SourceLocal, got[1].Source)
	assert.Equal(t, got[1].Version, s.Version())

	s.Reset()
	assert.False(t, s.Loaded())
	assert.Empty(t, s.AllLines())
	assert.Equal(t, SourceSession, got[len(got)-1].Source)
}

func TestView_PanicsOnMutation(t *testing.T) {
	s := newLoaded(t)
	assert.Panics(t, func() {
		s.View(func(tx *Tx) { tx.ClearMeta("1") })
	})
}

func TestUpdate_ConcurrentMergeIsAtomic(t *testing.T) {
	s := newLoaded(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(func(tx *Tx) error {
				for _, l := range tx.Lines("1") {
					if l.Mergeable("A") {
						l.Quantity++
						tx.Touch()
						return nil
					}
				}
				tx.Insert(&order.Line{LocalID: "only", TableID: "1", ProductID: "A", Quantity: 1, Status: order.StatusUncommitted})
				return nil
			})
		}()
	}
	wg.Wait()

	lines := s.Lines("1")
	require.Len(t, lines, 1)
	assert.Equal(t, 50, lines[0].Quantity)
}

func TestApplySnapshotAt_StaleEpochDropped(t *testing.T) {
	s := New(decimal.NewFromInt(10))
	epoch := s.Epoch()

	s.Reset()
	snap := baseSnapshot()
	snap.Lines = []remote.LineRecord{record("d1", "3", "A", 1, order.StatusQueued)}

	assert.False(t, s.ApplySnapshotAt(epoch, snap))
	assert.False(t, s.Loaded())
	assert.Empty(t, s.Lines("3"))

	assert.True(t, s.ApplySnapshotAt(s.Epoch(), snap))
	assert.True(t, s.Loaded())
	assert.Len(t, s.Lines("3"), 1)
}
