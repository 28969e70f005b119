package persistence

import (
	"context"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderLineRepository stores the open order lines of every table
type GormOrderLineRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormOrderLineRepository creates a new GormOrderLineRepository
func NewGormOrderLineRepository(db *gorm.DB) *GormOrderLineRepository {
	return &GormOrderLineRepository{db: db, now: time.Now}
}

// FindAll lists every open line, oldest first
func (r *GormOrderLineRepository) FindAll(ctx context.Context) ([]models.OrderLineModel, error) {
	return findLines(r.db.WithContext(ctx))
}

func findLines(db *gorm.DB) ([]models.OrderLineModel, error) {
	var rows []models.OrderLineModel
	if err := db.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Save creates the line when its ID is empty and overwrites it otherwise.
// A non-empty ID is never inserted: a line cleared by a sale must not come
// back because a late update named it.
func (r *GormOrderLineRepository) Save(ctx context.Context, m *models.OrderLineModel) (string, error) {
	stamped := !m.CreatedAt.IsZero()
	m.Touch(r.now())
	if m.ID == "" {
		m.ID = uuid.NewString()
		if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
			return "", err
		}
		return m.ID, nil
	}

	fields := map[string]any{
		"table_id":      m.TableID,
		"product_id":    m.ProductID,
		"quantity":      m.Quantity,
		"user_id":       m.UserID,
		"note":          m.Note,
		"status":        m.Status,
		"mode":          m.Mode,
		"customer_name": m.CustomerName,
		"updated_at":    m.UpdatedAt,
	}
	// the client restamps a line when it is sent to the kitchen
	if stamped {
		fields["created_at"] = m.CreatedAt
	}
	result := r.db.WithContext(ctx).Model(&models.OrderLineModel{}).Where("id = ?", m.ID).Updates(fields)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		return "", shared.ErrNotFound
	}
	return m.ID, nil
}

// Delete removes one line
func (r *GormOrderLineRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.OrderLineModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ClearTable removes every line of a table and reports how many there were
func (r *GormOrderLineRepository) ClearTable(ctx context.Context, tableID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("table_id = ?", tableID).Delete(&models.OrderLineModel{})
	return result.RowsAffected, result.Error
}

// SetStatus moves one line to status
func (r *GormOrderLineRepository) SetStatus(ctx context.Context, id, status string) error {
	result := r.db.WithContext(ctx).Model(&models.OrderLineModel{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": r.now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetTableMeta writes the customer name and order-mode onto every line of
// the table. A table with no lines yet is not an error.
func (r *GormOrderLineRepository) SetTableMeta(ctx context.Context, tableID, customerName, mode string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.OrderLineModel{}).Where("table_id = ?", tableID).
		Updates(map[string]any{"customer_name": customerName, "mode": mode, "updated_at": r.now()})
	return result.RowsAffected, result.Error
}
