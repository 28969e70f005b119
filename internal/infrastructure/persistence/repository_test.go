package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/domain/catalog"
	"github.com/chrisfalcon1208/apprest/internal/domain/identity"
	"github.com/chrisfalcon1208/apprest/internal/domain/order"
	"github.com/chrisfalcon1208/apprest/internal/domain/sale"
	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/chrisfalcon1208/apprest/internal/domain/venue"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/auth"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/config"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:", LogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedCatalog(t *testing.T, db *Database) (catID, prodA, prodB string) {
	t.Helper()
	ctx := context.Background()
	cats := NewGormCategoryRepository(db.DB)
	prods := NewGormProductRepository(db.DB)

	catID, err := cats.Save(ctx, catalog.Category{Name: "Mains", Kind: catalog.KindFood})
	require.NoError(t, err)
	prodA, err = prods.Save(ctx, catalog.Product{Code: "A", Name: "Tacos", Price: decimal.RequireFromString("20.00"), Kind: catalog.KindFood, CategoryID: catID})
	require.NoError(t, err)
	prodB, err = prods.Save(ctx, catalog.Product{Code: "B", Name: "Soup", Price: decimal.RequireFromString("15.00"), Kind: catalog.KindFood, CategoryID: catID})
	require.NoError(t, err)
	return catID, prodA, prodB
}

func TestCategoryRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	repo := NewGormCategoryRepository(db.DB)

	id, err := repo.Save(ctx, catalog.Category{Name: " Drinks ", Kind: catalog.KindBeverage})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	t.Run("name unique within kind, case-insensitive", func(t *testing.T) {
		_, err := repo.Save(ctx, catalog.Category{Name: "DRINKS", Kind: catalog.KindBeverage})
		assert.ErrorIs(t, err, shared.ErrDuplicateName)

		_, err = repo.Save(ctx, catalog.Category{Name: "Drinks", Kind: catalog.KindFood})
		assert.NoError(t, err)
	})

	t.Run("update keeps id", func(t *testing.T) {
		got, err := repo.Save(ctx, catalog.Category{ID: id, Name: "Cold drinks", Kind: catalog.KindBeverage})
		require.NoError(t, err)
		assert.Equal(t, id, got)

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		names := make([]string, 0, len(all))
		for _, c := range all {
			names = append(names, c.Name)
		}
		assert.Contains(t, names, "Cold drinks")
	})

	t.Run("update of unknown id is not found", func(t *testing.T) {
		_, err := repo.Save(ctx, catalog.Category{ID: "missing", Name: "X", Kind: catalog.KindFood})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("invalid kind", func(t *testing.T) {
		_, err := repo.Save(ctx, catalog.Category{Name: "X", Kind: "DESSERT"})
		assert.Error(t, err)
	})
}

func TestCategoryRepository_DeleteInUse(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	catID, prodA, _ := seedCatalog(t, db)
	cats := NewGormCategoryRepository(db.DB)
	prods := NewGormProductRepository(db.DB)

	err := cats.Delete(ctx, catID)
	assert.ErrorIs(t, err, shared.ErrCategoryInUse)

	all, err := cats.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "category must survive a refused delete")
	products, err := prods.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)

	require.NoError(t, prods.Delete(ctx, prodA))
	products, _ = prods.FindAll(ctx)
	require.NoError(t, prods.Delete(ctx, products[0].ID))
	assert.NoError(t, cats.Delete(ctx, catID))
	assert.ErrorIs(t, cats.Delete(ctx, catID), shared.ErrNotFound)
}

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	catID, prodA, _ := seedCatalog(t, db)
	repo := NewGormProductRepository(db.DB)

	tests := []struct {
		name string
		p    catalog.Product
		want error
	}{
		{"duplicate code", catalog.Product{Code: "a", Name: "Other", Price: decimal.NewFromInt(1), Kind: catalog.KindFood, CategoryID: catID}, shared.ErrDuplicateCode},
		{"unknown category", catalog.Product{Code: "Z", Name: "Other", Price: decimal.NewFromInt(1), Kind: catalog.KindFood, CategoryID: "nope"}, shared.ErrInvalidInput},
		{"negative price", catalog.Product{Code: "Z", Name: "Other", Price: decimal.NewFromInt(-1), Kind: catalog.KindFood, CategoryID: catID}, shared.ErrInvalidInput},
		{"unknown id", catalog.Product{ID: "missing", Code: "Z", Name: "Other", Price: decimal.NewFromInt(1), Kind: catalog.KindFood, CategoryID: catID}, shared.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Save(ctx, tt.p)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("update own code", func(t *testing.T) {
		_, err := repo.Save(ctx, catalog.Product{ID: prodA, Code: "A", Name: "Tacos al pastor", Price: decimal.RequireFromString("22.50"), Kind: catalog.KindFood, CategoryID: catID})
		require.NoError(t, err)
		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Tacos al pastor", all[0].Name)
		assert.True(t, decimal.RequireFromString("22.50").Equal(all[0].Price))
	})
}

func TestOrderLineRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	_, prodA, prodB := seedCatalog(t, db)
	repo := NewGormOrderLineRepository(db.DB)

	id, err := repo.Save(ctx, &models.OrderLineModel{TableID: "5", ProductID: prodA, Quantity: 1, Status: "UNCOMMITTED", Mode: "LOCAL"})
	require.NoError(t, err)

	t.Run("update in place", func(t *testing.T) {
		got, err := repo.Save(ctx, &models.OrderLineModel{BaseModel: models.BaseModel{ID: id}, TableID: "5", ProductID: prodA, Quantity: 3, Status: "UNCOMMITTED", Mode: "LOCAL"})
		require.NoError(t, err)
		assert.Equal(t, id, got)
		lines, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, 3, lines[0].Quantity)
	})

	t.Run("send time replaces created_at", func(t *testing.T) {
		sent := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
		_, err := repo.Save(ctx, &models.OrderLineModel{BaseModel: models.BaseModel{ID: id, CreatedAt: sent}, TableID: "5", ProductID: prodA, Quantity: 3, Status: "QUEUED", Mode: "LOCAL"})
		require.NoError(t, err)
		lines, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.True(t, sent.Equal(lines[0].CreatedAt), "got %v", lines[0].CreatedAt)

		_, err = repo.Save(ctx, &models.OrderLineModel{BaseModel: models.BaseModel{ID: id}, TableID: "5", ProductID: prodA, Quantity: 3, Status: "UNCOMMITTED", Mode: "LOCAL"})
		require.NoError(t, err)
		lines, _ = repo.FindAll(ctx)
		assert.True(t, sent.Equal(lines[0].CreatedAt), "an update without a timestamp keeps the stored one")
	})

	t.Run("unknown id is never inserted", func(t *testing.T) {
		_, err := repo.Save(ctx, &models.OrderLineModel{BaseModel: models.BaseModel{ID: "ghost"}, TableID: "5", ProductID: prodB, Quantity: 1, Status: "UNCOMMITTED", Mode: "LOCAL"})
		assert.ErrorIs(t, err, shared.ErrNotFound)
		lines, _ := repo.FindAll(ctx)
		assert.Len(t, lines, 1)
	})

	t.Run("status and table meta", func(t *testing.T) {
		require.NoError(t, repo.SetStatus(ctx, id, "QUEUED"))
		assert.ErrorIs(t, repo.SetStatus(ctx, "ghost", "QUEUED"), shared.ErrNotFound)

		_, err := repo.Save(ctx, &models.OrderLineModel{TableID: "5", ProductID: prodB, Quantity: 1, Status: "UNCOMMITTED", Mode: "LOCAL"})
		require.NoError(t, err)
		n, err := repo.SetTableMeta(ctx, "5", "Ana", "DELIVERY")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		lines, _ := repo.FindAll(ctx)
		for _, l := range lines {
			assert.Equal(t, "Ana", l.CustomerName)
			assert.Equal(t, "DELIVERY", l.Mode)
			if l.ID == id {
				assert.Equal(t, "QUEUED", l.Status)
			} else {
				assert.Equal(t, "UNCOMMITTED", l.Status)
			}
		}
	})

	t.Run("clear table", func(t *testing.T) {
		n, err := repo.ClearTable(ctx, "5")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.ErrorIs(t, repo.Delete(ctx, id), shared.ErrNotFound)
	})
}

func newSale(tableID string, lines ...sale.DetailLine) sale.Sale {
	s := sale.Sale{TableID: tableID, Mode: order.ModeLocal, Details: lines}
	s.Total = s.DetailSum()
	s.Tendered = s.Total
	return s
}

func detail(productID string, qty int, price string) sale.DetailLine {
	p := decimal.RequireFromString(price)
	return sale.DetailLine{ProductID: productID, Quantity: qty, UnitPrice: p, Subtotal: p.Mul(decimal.NewFromInt(int64(qty)))}
}

func TestSaleRepository_Commit(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	_, prodA, prodB := seedCatalog(t, db)
	lines := NewGormOrderLineRepository(db.DB)
	sales := NewGormSaleRepository(db.DB)

	for _, table := range []string{"5", "6"} {
		_, err := lines.Save(ctx, &models.OrderLineModel{TableID: table, ProductID: prodA, Quantity: 3, Status: "QUEUED", Mode: "LOCAL"})
		require.NoError(t, err)
	}

	s := newSale("5", detail(prodA, 3, "20.00"), detail(prodB, 1, "15.00"))
	s.Sequence = 99 // provisional, ignored
	id, seq, err := sales.Commit(ctx, s)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, int64(1), seq)

	open, err := lines.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1, "only the committed table is cleared")
	assert.Equal(t, "6", open[0].TableID)

	recent, err := sales.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, id, recent[0].ID)
	assert.True(t, decimal.RequireFromString("75").Equal(recent[0].Total))
	require.Len(t, recent[0].Details, 2)
	assert.Equal(t, prodA, recent[0].Details[0].ProductID)
	assert.Equal(t, id, recent[0].Details[0].SaleID)

	t.Run("rejections leave the table open", func(t *testing.T) {
		short := newSale("6", detail(prodA, 3, "20.00"))
		short.Tendered = decimal.NewFromInt(10)
		_, _, err := sales.Commit(ctx, short)
		assert.ErrorIs(t, err, shared.ErrInsufficientPayment)

		wrong := newSale("6", detail(prodA, 3, "20.00"))
		wrong.Total = decimal.NewFromInt(1)
		_, _, err = sales.Commit(ctx, wrong)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		_, _, err = sales.Commit(ctx, sale.Sale{TableID: "6"})
		assert.ErrorIs(t, err, shared.ErrEmptyTable)

		open, _ := lines.FindAll(ctx)
		assert.Len(t, open, 1)
	})
}

func TestSaleRepository_SequencesUnique(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	_, prodA, _ := seedCatalog(t, db)
	sales := NewGormSaleRepository(db.DB)

	const n = 8
	seqs := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, seq, err := sales.Commit(ctx, newSale("1", detail(prodA, 1, "20.00")))
			assert.NoError(t, err)
			seqs <- seq
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool)
	for seq := range seqs {
		assert.False(t, seen[seq], "sequence %d issued twice", seq)
		seen[seq] = true
	}
	assert.Len(t, seen, n)

	recent, err := sales.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, int64(n), recent[0].Sequence)
	assert.Greater(t, recent[0].Sequence, recent[1].Sequence)
}

func TestSeedAndSnapshot(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	opts := DefaultSeedOptions()
	opts.TableCount = 12

	require.NoError(t, Seed(ctx, db.DB, opts, zap.NewNop()))
	require.NoError(t, Seed(ctx, db.DB, opts, zap.NewNop()), "seeding twice is a no-op")

	users := NewGormUserRepository(db.DB)
	n, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	admin, err := users.FindByEmail(ctx, "ADMIN@apprest.local")
	require.NoError(t, err)
	assert.Equal(t, string(identity.RoleAdmin), admin.Role)
	assert.NoError(t, auth.CheckPassword(admin.PasswordHash, opts.AdminPassword))

	require.NoError(t, users.SetTokenID(ctx, admin.ID, "tok-1"))
	tok, err := users.TokenID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	_, prodA, _ := seedCatalog(t, db)
	_, err = NewGormOrderLineRepository(db.DB).Save(ctx, &models.OrderLineModel{TableID: "3", ProductID: prodA, Quantity: 2, Status: "UNCOMMITTED", Mode: "TAKEAWAY", CustomerName: "Luis"})
	require.NoError(t, err)

	snap, err := NewSnapshotReader(db.DB, 1000).Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, venue.Profile{Name: opts.BusinessName, TableCount: 12}, snap.Profile)
	require.Len(t, snap.Users, 1)
	assert.Equal(t, admin.ID, snap.Users[0].ID)
	assert.Len(t, snap.Categories, 1)
	assert.Len(t, snap.Products, 2)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, "Luis", snap.Lines[0].CustomerName)
	assert.Empty(t, snap.Sales)
}
