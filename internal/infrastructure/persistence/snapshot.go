package persistence

import (
	"context"

	"github.com/chrisfalcon1208/apprest/internal/domain/catalog"
	"github.com/chrisfalcon1208/apprest/internal/domain/identity"
	"github.com/chrisfalcon1208/apprest/internal/domain/sale"
	"github.com/chrisfalcon1208/apprest/internal/domain/venue"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// Snapshot is every top-level collection read in one transaction
type Snapshot struct {
	Profile    venue.Profile
	Users      []identity.User
	Categories []catalog.Category
	Products   []catalog.Product
	Sales      []sale.Sale
	Lines      []models.OrderLineModel
}

// SnapshotReader assembles the full authoritative state
type SnapshotReader struct {
	db          *gorm.DB
	salesWindow int
}

// NewSnapshotReader creates a reader returning at most salesWindow sales
func NewSnapshotReader(db *gorm.DB, salesWindow int) *SnapshotReader {
	return &SnapshotReader{db: db, salesWindow: salesWindow}
}

// Read loads the snapshot
func (r *SnapshotReader) Read(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	err := readTx(ctx, r.db, func(tx *gorm.DB) error {
		var err error
		if snap.Profile, err = getProfile(tx); err != nil {
			return err
		}
		if snap.Users, err = findUsers(tx); err != nil {
			return err
		}
		if snap.Categories, err = findCategories(tx); err != nil {
			return err
		}
		if snap.Products, err = findProducts(tx); err != nil {
			return err
		}
		if snap.Sales, err = recentSales(tx, r.salesWindow); err != nil {
			return err
		}
		snap.Lines, err = findLines(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
