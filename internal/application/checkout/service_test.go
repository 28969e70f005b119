package checkout_test

import (
	"context"
	"testing"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/application/background"
	"github.com/chrisfalcon1208/apprest/internal/application/checkout"
	"github.com/chrisfalcon1208/apprest/internal/application/mirror"
	"github.com/chrisfalcon1208/apprest/internal/application/ordering"
	"github.com/chrisfalcon1208/apprest/internal/application/remote"
	"github.com/chrisfalcon1208/apprest/internal/application/remote/remotetest"
	"github.com/chrisfalcon1208/apprest/internal/application/session"
	"github.com/chrisfalcon1208/apprest/internal/domain/catalog"
	"github.com/chrisfalcon1208/apprest/internal/domain/identity"
	"github.com/chrisfalcon1208/apprest/internal/domain/order"
	"github.com/chrisfalcon1208/apprest/internal/domain/sale"
	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	gw       *remotetest.Gateway
	store    *mirror.Store
	jobs     *background.Dispatcher
	orders   *ordering.Service
	checkout *checkout.Service
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T, opts ...checkout.Option) *fixture {
	t.Helper()
	gw := remotetest.New(10)
	gw.SeedCategory(catalog.Category{ID: "c1", Name: "Mains", Kind: catalog.KindFood})
	gw.SeedProduct(catalog.Product{ID: "pA", Code: "A", Name: "Product A", Price: decimal.RequireFromString("20.00"), Kind: catalog.KindFood, CategoryID: "c1"})
	gw.SeedProduct(catalog.Product{ID: "pB", Code: "B", Name: "Product B", Price: decimal.RequireFromString("15.00"), Kind: catalog.KindFood, CategoryID: "c1"})

	sess := session.NewManager(zap.NewNop())
	gw.Tokens = sess
	gw.IssueToken("t1", "u-cashier")
	sess.Begin(remote.Session{Token: "t1", User: identity.User{ID: "u-cashier", Role: identity.RoleCashier}})

	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	f := &fixture{
		gw:    gw,
		store: mirror.New(decimal.NewFromInt(10)),
		jobs:  background.New(logger),
		logs:  logs,
	}
	f.orders = ordering.NewService(f.store, gw, f.jobs, sess, logger)
	f.checkout = checkout.NewService(f.store, gw, f.jobs, sess, logger, opts...)
	f.pull(t)
	t.Cleanup(f.jobs.Wait)
	return f
}

func (f *fixture) pull(t *testing.T) {
	t.Helper()
	snap, err := f.gw.FetchSnapshot(context.Background())
	require.NoError(t, err)
	f.store.ApplySnapshot(snap)
}

// seatTableFive puts product A x3 and product B x1 on table 5
func (f *fixture) seatTableFive(t *testing.T) {
	t.Helper()
	_, err := f.orders.AddItem("5", "pA", 3)
	require.NoError(t, err)
	_, err = f.orders.AddItem("5", "pB", 1)
	require.NoError(t, err)
}

func TestCloseTable_Example(t *testing.T) {
	f := newFixture(t)
	f.seatTableFive(t)

	_, err := f.checkout.CloseTable("5", "50.00")
	assert.ErrorIs(t, err, shared.ErrInsufficientPayment)
	lines := f.store.Lines("5")
	require.Len(t, lines, 2)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, 1, lines[1].Quantity)
	assert.Empty(t, f.store.Sales())

	s, err := f.checkout.CloseTable("5", "100.00")
	require.NoError(t, err)
	assert.Equal(t, "75.00", s.Total.StringFixed(2))
	assert.Equal(t, "25.00", s.Change.StringFixed(2))
	assert.Equal(t, int64(1), s.Sequence)
	assert.Equal(t, checkout.DefaultCustomer, s.CustomerName)
	assert.Equal(t, "u-cashier", s.UserID)
	require.Len(t, s.Details, 2)
	assert.True(t, s.DetailSum().Equal(s.Total))
	assert.Equal(t, "Product A", s.Details[0].ProductName)
	assert.Equal(t, "60.00", s.Details[0].Subtotal.StringFixed(2))

	// the table is free before the server answers
	assert.Empty(t, f.store.Lines("5"))
	assert.False(t, f.orders.Occupied("5"))

	f.jobs.Wait()
	committed := f.gw.Sales()
	require.Len(t, committed, 1)
	assert.Equal(t, int64(1), committed[0].Sequence)
	assert.Empty(t, f.gw.Lines("5"))

	sales := f.store.Sales()
	require.Len(t, sales, 1)
	assert.True(t, sales[0].Acked)
	assert.Equal(t, committed[0].ID, sales[0].ID)
	assert.Equal(t, s.LocalID, sales[0].LocalID)

	f.pull(t)
	assert.Len(t, f.store.Sales(), 1)
	assert.Empty(t, f.store.Lines("5"))
}

func TestCloseTable_RejectsBeforeMutating(t *testing.T) {
	f := newFixture(t)
	f.seatTableFive(t)
	f.jobs.Wait()
	before := f.store.Version()

	for _, raw := range []string{"", "   ", "abc", "-1", "74.99"} {
		_, err := f.checkout.CloseTable("5", raw)
		assert.Error(t, err, "tendered %q", raw)
	}
	_, err := f.checkout.CloseTable("5", "abc")
	assert.ErrorIs(t, err, shared.ErrInvalidPayment)

	_, err = f.checkout.CloseTable("6", "100")
	assert.ErrorIs(t, err, shared.ErrEmptyTable)

	assert.Equal(t, before, f.store.Version())
	assert.Len(t, f.store.Lines("5"), 2)
}

func TestCloseTable_RequiresSession(t *testing.T) {
	f := newFixture(t)
	f.seatTableFive(t)
	f.jobs.Wait()
	signedOut := checkout.NewService(f.store, f.gw, f.jobs, staticUser(""), zap.NewNop())

	_, err := signedOut.CloseTable("5", "100")
	assert.ErrorIs(t, err, shared.ErrNoSession)
	assert.Len(t, f.store.Lines("5"), 2)
	assert.Empty(t, f.store.Sales())
}

func TestCloseTable_ExactAmount(t *testing.T) {
	f := newFixture(t)
	f.seatTableFive(t)

	s, err := f.checkout.CloseTable("5", "75")
	require.NoError(t, err)
	assert.True(t, s.Change.IsZero())
}

func TestCloseTable_DeliveryFeeLine(t *testing.T) {
	f := newFixture(t)
	f.seatTableFive(t)
	require.NoError(t, f.orders.SetOrderMode("5", order.ModeDelivery))
	require.NoError(t, f.orders.SetCustomerName("5", "Ana"))

	s, err := f.checkout.CloseTable("5", "100")
	require.NoError(t, err)

	assert.Equal(t, "85.00", s.Total.StringFixed(2))
	assert.Equal(t, "Ana", s.CustomerName)
	assert.Equal(t, order.ModeDelivery, s.Mode)
	require.Len(t, s.Details, 3)
	fee := s.Details[2]
	assert.True(t, fee.IsFee())
	assert.Equal(t, sale.FeeCode, fee.ProductCode)
	assert.Equal(t, sale.FeeName, fee.ProductName)
	assert.Equal(t, 1, fee.Quantity)
	assert.Equal(t, "10.00", fee.Subtotal.StringFixed(2))
	assert.True(t, s.DetailSum().Equal(s.Total))
}

func TestCloseTable_DefaultCustomerFromConfig(t *testing.T) {
	f := newFixture(t, checkout.WithDefaultCustomer("Walk-in"))
	f.seatTableFive(t)

	s, err := f.checkout.CloseTable("5", "100")
	require.NoError(t, err)
	assert.Equal(t, "Walk-in", s.CustomerName)
}

func TestCloseTable_SequencesStrictlyIncrease(t *testing.T) {
	f := newFixture(t)
	f.gw.SeedSale(sale.Sale{ID: "old", Sequence: 41, TableID: "1", Total: decimal.NewFromInt(5), Acked: true})
	f.pull(t)

	release := f.gw.Gate("CommitSale")
	var got []int64
	for _, table := range []string{"1", "2", "3", "1"} {
		_, err := f.orders.AddItem(table, "pB", 1)
		require.NoError(t, err)
		s, err := f.checkout.CloseTable(table, "20")
		require.NoError(t, err)
		got = append(got, s.Sequence)
	}
	assert.Equal(t, []int64{42, 43, 44, 45}, got)

	// a snapshot taken before any commit landed does not reuse numbers
	f.pull(t)
	_, _ = f.orders.AddItem("4", "pB", 1)
	s, err := f.checkout.CloseTable("4", "20")
	require.NoError(t, err)
	assert.Equal(t, int64(46), s.Sequence)

	release()
	f.jobs.Wait()
	f.pull(t)

	sales := f.store.Sales()
	require.Len(t, sales, 6)
	seen := map[int64]bool{}
	for i, sl := range sales {
		assert.False(t, seen[sl.Sequence], "duplicate sequence %d", sl.Sequence)
		seen[sl.Sequence] = true
		if i > 0 {
			assert.Less(t, sl.Sequence, sales[i-1].Sequence)
		}
	}
}

func TestCloseTable_TableStartsFresh(t *testing.T) {
	f := newFixture(t)
	f.seatTableFive(t)
	require.NoError(t, f.orders.SetCustomerName("5", "Ana"))
	_, err := f.checkout.CloseTable("5", "100")
	require.NoError(t, err)

	_, err = f.orders.AddItem("5", "pB", 1)
	require.NoError(t, err)
	lines := f.store.Lines("5")
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, "", f.orders.Meta("5").CustomerName)
	assert.Equal(t, "15.00", f.orders.TableTotal("5").StringFixed(2))

	f.jobs.Wait()
	f.pull(t)
	assert.Len(t, f.store.Lines("5"), 1)
}

func TestCloseTable_RefusedSaleReopensTable(t *testing.T) {
	f := newFixture(t)
	f.seatTableFive(t)
	require.NoError(t, f.orders.SetCustomerName("5", "Ana"))
	f.jobs.Wait()
	localIDs := []string{f.store.Lines("5")[0].LocalID, f.store.Lines("5")[1].LocalID}

	f.gw.FailNext("CommitSale", &remote.Failure{Kind: remote.ErrRejected, Status: 422, Code: "VALIDATION_ERROR", Message: "bad sale"})
	_, err := f.checkout.CloseTable("5", "100")
	require.NoError(t, err, "the cashier is never blocked on the server")
	f.jobs.Wait()

	assert.Empty(t, f.store.Sales())
	lines := f.store.Lines("5")
	require.Len(t, lines, 2)
	assert.Equal(t, localIDs, []string{lines[0].LocalID, lines[1].LocalID})
	assert.Equal(t, "Ana", f.orders.Meta("5").CustomerName)
	assert.Equal(t, 1, f.logs.FilterMessage("sale refused after table was closed").Len())

	f.pull(t)
	lines = f.store.Lines("5")
	require.Len(t, lines, 2)
	assert.Equal(t, localIDs[0], lines[0].LocalID)
}

func TestCloseTable_RefusedSaleRestoresUnsentLines(t *testing.T) {
	f := newFixture(t)
	f.gw.FailNext("SaveLine", &remote.Failure{Kind: remote.ErrTransport, Status: 502})
	_, err := f.orders.AddItem("2", "pA", 1)
	require.NoError(t, err)
	f.jobs.Wait()
	require.Empty(t, f.gw.Lines("2"))

	f.gw.FailNext("CommitSale", &remote.Failure{Kind: remote.ErrConflict, Status: 409})
	_, err = f.checkout.CloseTable("2", "20")
	require.NoError(t, err)
	f.jobs.Wait()

	assert.Len(t, f.gw.Lines("2"), 1)
	f.pull(t)
	lines := f.store.Lines("2")
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Acked())
}

func TestCloseTable_RefusalAfterTableReuse(t *testing.T) {
	f := newFixture(t)
	f.seatTableFive(t)
	f.jobs.Wait()

	release := f.gw.Gate("CommitSale")
	f.gw.FailNext("CommitSale", &remote.Failure{Kind: remote.ErrConflict, Status: 409})
	_, err := f.checkout.CloseTable("5", "100")
	require.NoError(t, err)
	_, err = f.orders.AddItem("5", "pB", 2)
	require.NoError(t, err)

	release()
	f.jobs.Wait()

	lines := f.store.Lines("5")
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Empty(t, f.store.Sales())
	assert.Equal(t, 1, f.logs.FilterMessage("table reused before the refusal arrived, lines not restored").Len())
}

func TestCloseTable_TransportFailureReconcilesOnNextPull(t *testing.T) {
	f := newFixture(t)
	f.seatTableFive(t)
	f.jobs.Wait()

	f.gw.FailNext("CommitSale", &remote.Failure{Kind: remote.ErrTransport})
	_, err := f.checkout.CloseTable("5", "100")
	require.NoError(t, err)
	f.jobs.Wait()

	// outcome unknown: nothing is undone locally
	assert.Len(t, f.store.Sales(), 1)
	assert.Empty(t, f.store.Lines("5"))

	// the server never stored the sale, so the table comes back with the pull
	f.pull(t)
	assert.Empty(t, f.store.Sales())
	assert.Len(t, f.store.Lines("5"), 2)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	clock := time.Date(2026, 5, 4, 20, 0, 0, 0, time.UTC)
	svc := checkout.NewService(f.store, f.gw, f.jobs, staticUser("u-other"), zap.NewNop(), checkout.WithClock(func() time.Time { return clock }))

	_, _ = f.orders.AddItem("1", "pA", 1)
	s1, err := svc.CloseTable("1", "20")
	require.NoError(t, err)
	_, _ = f.orders.AddItem("2", "pB", 1)
	s2, err := svc.CloseTable("2", "15")
	require.NoError(t, err)

	history := svc.History()
	require.Len(t, history, 2)
	assert.Equal(t, s2.LocalID, history[0].LocalID)
	assert.Equal(t, s1.LocalID, history[1].LocalID)
	assert.Equal(t, clock, history[0].CreatedAt)
}

type staticUser string

func (u staticUser) UserID() string { return string(u) }
