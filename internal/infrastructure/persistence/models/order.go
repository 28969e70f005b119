package models

import "time"

// OrderLineModel is an open order line. Customer name and order-mode are
// denormalized onto every line of the table.
type OrderLineModel struct {
	BaseModel
	TableID      string `gorm:"type:varchar(10);not null;index"`
	ProductID    string `gorm:"type:varchar(36);not null"`
	Quantity     int    `gorm:"not null"`
	UserID       string `gorm:"type:varchar(36)"`
	Note         string `gorm:"type:varchar(500)"`
	Status       string `gorm:"type:varchar(20);not null"`
	Mode         string `gorm:"type:varchar(20);not null"`
	CustomerName string `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// Touch sets CreatedAt when the client did not send one
func (m *OrderLineModel) Touch(now time.Time) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}
