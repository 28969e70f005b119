package models

import (
	"time"

	"github.com/chrisfalcon1208/apprest/internal/domain/order"
	"github.com/chrisfalcon1208/apprest/internal/domain/sale"
	"github.com/shopspring/decimal"
)

// SaleModel is a settled table
type SaleModel struct {
	ID           string            `gorm:"type:varchar(36);primaryKey"`
	Sequence     int64             `gorm:"not null;uniqueIndex"`
	TableID      string            `gorm:"type:varchar(10);not null"`
	CustomerName string            `gorm:"type:varchar(200)"`
	Total        decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Tendered     decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	ChangeAmount decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	UserID       string            `gorm:"type:varchar(36)"`
	Mode         string            `gorm:"type:varchar(20);not null"`
	CreatedAt    time.Time         `gorm:"not null;index"`
	Details      []SaleDetailModel `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// SaleDetailModel is one product snapshot within a sale
type SaleDetailModel struct {
	ID          string          `gorm:"type:varchar(36);primaryKey"`
	SaleID      string          `gorm:"type:varchar(36);not null;index"`
	Position    int             `gorm:"not null"`
	ProductID   string          `gorm:"type:varchar(36);not null"`
	ProductCode string          `gorm:"type:varchar(50)"`
	ProductName string          `gorm:"type:varchar(200)"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Quantity    int             `gorm:"not null"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Note        string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (SaleDetailModel) TableName() string {
	return "sale_details"
}

// ToDomain converts the sale and its details
func (m *SaleModel) ToDomain() sale.Sale {
	s := sale.Sale{
		ID:           m.ID,
		LocalID:      m.ID,
		Sequence:     m.Sequence,
		TableID:      m.TableID,
		CustomerName: m.CustomerName,
		Total:        m.Total,
		Tendered:     m.Tendered,
		Change:       m.ChangeAmount,
		UserID:       m.UserID,
		Mode:         order.ParseMode(m.Mode),
		CreatedAt:    m.CreatedAt,
		Acked:        true,
		Details:      make([]sale.DetailLine, 0, len(m.Details)),
	}
	for _, d := range m.Details {
		s.Details = append(s.Details, sale.DetailLine{
			ID:          d.ID,
			SaleID:      d.SaleID,
			ProductID:   d.ProductID,
			ProductCode: d.ProductCode,
			ProductName: d.ProductName,
			UnitPrice:   d.UnitPrice,
			Quantity:    d.Quantity,
			Subtotal:    d.Subtotal,
			Note:        d.Note,
		})
	}
	return s
}

// SaleModelFromDomain converts a sale; ids and sequence are assigned by the
// repository.
func SaleModelFromDomain(s sale.Sale) *SaleModel {
	m := &SaleModel{
		TableID:      s.TableID,
		CustomerName: s.CustomerName,
		Total:        s.Total,
		Tendered:     s.Tendered,
		ChangeAmount: s.Change,
		UserID:       s.UserID,
		Mode:         string(s.Mode),
		CreatedAt:    s.CreatedAt,
		Details:      make([]SaleDetailModel, 0, len(s.Details)),
	}
	for i, d := range s.Details {
		m.Details = append(m.Details, SaleDetailModel{
			Position:    i,
			ProductID:   d.ProductID,
			ProductCode: d.ProductCode,
			ProductName: d.ProductName,
			UnitPrice:   d.UnitPrice,
			Quantity:    d.Quantity,
			Subtotal:    d.Subtotal,
			Note:        d.Note,
		})
	}
	return m
}
