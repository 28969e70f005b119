package models

import "time"

// BaseModel provides the common persistence fields
type BaseModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// All lists every model for AutoMigrate, parents before children
func All() []any {
	return []any{
		&ProfileModel{},
		&UserModel{},
		&CategoryModel{},
		&ProductModel{},
		&OrderLineModel{},
		&SaleModel{},
		&SaleDetailModel{},
	}
}
