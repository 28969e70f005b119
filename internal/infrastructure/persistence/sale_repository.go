package persistence

import (
	"context"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/domain/sale"
	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSaleRepository stores settled tables
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// Commit stores the sale and clears its table in one transaction. The
// durable sequence is the highest stored sequence plus one, whatever
// provisional value the client sent.
func (r *GormSaleRepository) Commit(ctx context.Context, s sale.Sale) (string, int64, error) {
	if len(s.Details) == 0 {
		return "", 0, shared.ErrEmptyTable
	}
	if !s.DetailSum().Equal(s.Total) {
		return "", 0, shared.NewDomainError("INVALID_INPUT", "Sale detail does not add up to the total")
	}
	if s.Tendered.LessThan(s.Total) {
		return "", 0, shared.ErrInsufficientPayment
	}

	m := models.SaleModelFromDomain(s)
	m.ID = uuid.NewString()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	for i := range m.Details {
		m.Details[i].ID = uuid.NewString()
		m.Details[i].SaleID = m.ID
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("LOCK TABLE sales IN SHARE ROW EXCLUSIVE MODE").Error; err != nil {
				return err
			}
		}
		var last int64
		if err := tx.Model(&models.SaleModel{}).Select("COALESCE(MAX(sequence), 0)").Scan(&last).Error; err != nil {
			return err
		}
		m.Sequence = last + 1

		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Where("table_id = ?", s.TableID).Delete(&models.OrderLineModel{}).Error
	})
	if err != nil {
		return "", 0, err
	}
	return m.ID, m.Sequence, nil
}

// Recent returns the latest limit sales by sequence, details attached
func (r *GormSaleRepository) Recent(ctx context.Context, limit int) ([]sale.Sale, error) {
	return recentSales(r.db.WithContext(ctx), limit)
}

func recentSales(db *gorm.DB, limit int) ([]sale.Sale, error) {
	var rows []models.SaleModel
	q := db.Preload("Details", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Order("sequence DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]sale.Sale, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}
