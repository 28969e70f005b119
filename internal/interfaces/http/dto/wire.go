package dto

import (
	"time"

	"github.com/chrisfalcon1208/apprest/internal/domain/catalog"
	"github.com/chrisfalcon1208/apprest/internal/domain/identity"
	"github.com/chrisfalcon1208/apprest/internal/domain/order"
	"github.com/chrisfalcon1208/apprest/internal/domain/sale"
	"github.com/chrisfalcon1208/apprest/internal/domain/venue"
	"github.com/shopspring/decimal"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the session credential and the user it belongs to
type LoginResponse struct {
	Token     string    `json:"token" validate:"required"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserDTO   `json:"user"`
}

// UserDTO is the redacted user: never a password hash or token id
type UserDTO struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role" validate:"required,oneof=ADMIN CASHIER WAITER KITCHEN"`
}

// ProfileDTO is the business profile
type ProfileDTO struct {
	Name       string `json:"name" validate:"required,max=200"`
	Phone      string `json:"phone" validate:"max=50"`
	LogoRef    string `json:"logo_ref" validate:"max=500"`
	TableCount int    `json:"table_count" validate:"min=1,max=500"`
}

// CategoryDTO is a menu category. An empty ID in an upsert creates.
type CategoryDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required,max=100"`
	Kind        string `json:"kind" validate:"required,oneof=FOOD BEVERAGE"`
	Description string `json:"description" validate:"max=500"`
}

// ProductDTO is a menu item. An empty ID in an upsert creates.
type ProductDTO struct {
	ID          string          `json:"id"`
	Code        string          `json:"code" validate:"required,max=50"`
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Kind        string          `json:"kind" validate:"required,oneof=FOOD BEVERAGE"`
	CategoryID  string          `json:"category_id" validate:"required"`
	ImageRef    string          `json:"image_ref" validate:"max=500"`
}

// LineDTO is an open order line. The table's customer and order-mode ride
// on every line.
type LineDTO struct {
	ID           string    `json:"id"`
	TableID      string    `json:"table_id" validate:"required,numeric"`
	ProductID    string    `json:"product_id" validate:"required"`
	Quantity     int       `json:"quantity" validate:"min=1"`
	UserID       string    `json:"user_id"`
	Note         string    `json:"note" validate:"max=500"`
	Status       string    `json:"status" validate:"required,oneof=UNCOMMITTED QUEUED PREPARING READY CLOSED"`
	Mode         string    `json:"mode" validate:"required,oneof=LOCAL TAKEAWAY DELIVERY"`
	CustomerName string    `json:"customer_name" validate:"max=200"`
	CreatedAt    time.Time `json:"created_at"`
}

// StatusRequest moves one line through the lifecycle
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=UNCOMMITTED QUEUED PREPARING READY CLOSED"`
}

// TableMetaRequest sets the customer and order-mode of a whole table
type TableMetaRequest struct {
	CustomerName string `json:"customer_name" validate:"max=200"`
	Mode         string `json:"mode" validate:"required,oneof=LOCAL TAKEAWAY DELIVERY"`
}

// SaleDTO is a sale header with its detail lines
type SaleDTO struct {
	ID           string          `json:"id"`
	Sequence     int64           `json:"sequence" validate:"gte=0"`
	TableID      string          `json:"table_id" validate:"required"`
	CustomerName string          `json:"customer_name" validate:"max=200"`
	Total        decimal.Decimal `json:"total" validate:"gte=0"`
	Tendered     decimal.Decimal `json:"tendered" validate:"gte=0"`
	Change       decimal.Decimal `json:"change" validate:"gte=0"`
	UserID       string          `json:"user_id"`
	Mode         string          `json:"mode" validate:"required,oneof=LOCAL TAKEAWAY DELIVERY"`
	CreatedAt    time.Time       `json:"created_at"`
	Details      []SaleDetailDTO `json:"details" validate:"required,min=1,dive"`
}

// SaleDetailDTO is one product snapshot within a sale
type SaleDetailDTO struct {
	ID          string          `json:"id"`
	SaleID      string          `json:"sale_id"`
	ProductID   string          `json:"product_id" validate:"required"`
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"gte=0"`
	Quantity    int             `json:"quantity" validate:"min=1"`
	Subtotal    decimal.Decimal `json:"subtotal" validate:"gte=0"`
	Note        string          `json:"note" validate:"max=500"`
}

// SaleAckDTO is the server's answer to a sale commit
type SaleAckDTO struct {
	ID       string `json:"id" validate:"required"`
	Sequence int64  `json:"sequence" validate:"min=1"`
}

// SnapshotDTO is the full authoritative state
type SnapshotDTO struct {
	Profile    ProfileDTO    `json:"profile"`
	Users      []UserDTO     `json:"users" validate:"dive"`
	Categories []CategoryDTO `json:"categories" validate:"dive"`
	Products   []ProductDTO  `json:"products" validate:"dive"`
	Sales      []SaleDTO     `json:"sales" validate:"dive"`
	Lines      []LineDTO     `json:"lines" validate:"dive"`
}

// NewUserDTO converts a domain user
func NewUserDTO(u identity.User) UserDTO {
	return UserDTO{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
}

// ToDomain converts the DTO to a domain user
func (d UserDTO) ToDomain() identity.User {
	return identity.User{ID: d.ID, Name: d.Name, Email: d.Email, Role: identity.Role(d.Role)}
}

// NewProfileDTO converts the domain profile
func NewProfileDTO(p venue.Profile) ProfileDTO {
	return ProfileDTO{Name: p.Name, Phone: p.Phone, LogoRef: p.LogoRef, TableCount: p.TableCount}
}

// ToDomain converts the DTO to the domain profile
func (d ProfileDTO) ToDomain() venue.Profile {
	return venue.Profile{Name: d.Name, Phone: d.Phone, LogoRef: d.LogoRef, TableCount: d.TableCount}
}

// NewCategoryDTO converts a domain category
func NewCategoryDTO(c catalog.Category) CategoryDTO {
	return CategoryDTO{ID: c.ID, Name: c.Name, Kind: string(c.Kind), Description: c.Description}
}

// ToDomain converts the DTO to a domain category
func (d CategoryDTO) ToDomain() catalog.Category {
	return catalog.Category{ID: d.ID, Name: d.Name, Kind: catalog.Kind(d.Kind), Description: d.Description}
}

// NewProductDTO converts a domain product
func NewProductDTO(p catalog.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Kind:        string(p.Kind),
		CategoryID:  p.CategoryID,
		ImageRef:    p.ImageRef,
	}
}

// ToDomain converts the DTO to a domain product
func (d ProductDTO) ToDomain() catalog.Product {
	return catalog.Product{
		ID:          d.ID,
		Code:        d.Code,
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		Kind:        catalog.Kind(d.Kind),
		CategoryID:  d.CategoryID,
		ImageRef:    d.ImageRef,
	}
}

// NewSaleDTO converts a domain sale with its details
func NewSaleDTO(s sale.Sale) SaleDTO {
	out := SaleDTO{
		ID:           s.ID,
		Sequence:     s.Sequence,
		TableID:      s.TableID,
		CustomerName: s.CustomerName,
		Total:        s.Total,
		Tendered:     s.Tendered,
		Change:       s.Change,
		UserID:       s.UserID,
		Mode:         string(s.Mode),
		CreatedAt:    s.CreatedAt,
		Details:      make([]SaleDetailDTO, 0, len(s.Details)),
	}
	for _, d := range s.Details {
		out.Details = append(out.Details, SaleDetailDTO{
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
	return out
}

// ToDomain converts the DTO to a domain sale
func (d SaleDTO) ToDomain() sale.Sale {
	s := sale.Sale{
		ID:           d.ID,
		LocalID:      d.ID,
		Sequence:     d.Sequence,
		TableID:      d.TableID,
		CustomerName: d.CustomerName,
		Total:        d.Total,
		Tendered:     d.Tendered,
		Change:       d.Change,
		UserID:       d.UserID,
		Mode:         order.ParseMode(d.Mode),
		CreatedAt:    d.CreatedAt,
		Details:      make([]sale.DetailLine, 0, len(d.Details)),
	}
	for _, dl := range d.Details {
		s.Details = append(s.Details, sale.DetailLine{
			ID:          dl.ID,
			SaleID:      dl.SaleID,
			ProductID:   dl.ProductID,
			ProductCode: dl.ProductCode,
			ProductName: dl.ProductName,
			UnitPrice:   dl.UnitPrice,
			Quantity:    dl.Quantity,
			Subtotal:    dl.Subtotal,
			Note:        dl.Note,
		})
	}
	return s
}
