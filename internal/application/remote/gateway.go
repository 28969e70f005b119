// Package remote defines the narrow request/response contract between a floor
// terminal and the persistence service.
package remote

import (
	"context"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/domain/catalog"
	"github.com/chrisfalcon1208/apprest/internal/domain/identity"
	"github.com/chrisfalcon1208/apprest/internal/domain/order"
	"github.com/chrisfalcon1208/apprest/internal/domain/sale"
	"github.com/chrisfalcon1208/apprest/internal/domain/venue"
)

// Snapshot is the complete authoritative state, already parsed and validated
type Snapshot struct {
	Profile    venue.Profile
	Users      []identity.User
	Categories []catalog.Category
	Products   []catalog.Product
	Sales      []sale.Sale // most recent window, details attached
	Lines      []LineRecord
}

// LineRecord is an open order line as the server stores it. The server keeps
// the table's customer and order-mode on every line.
type LineRecord struct {
	ID           string
	TableID      string
	ProductID    string
	Quantity     int
	UserID       string
	Note         string
	CreatedAt    time.Time
	Status       order.Status
	Mode         order.Mode
	CustomerName string
}

// LineWrite is the upsert payload for an order line. An empty ID creates.
type LineWrite struct {
	ID           string
	TableID      string
	ProductID    string
	Quantity     int
	UserID       string
	Note         string
	Status       order.Status
	Mode         order.Mode
	CustomerName string
	CreatedAt    time.Time
}

// SaleAck is the server's answer to a sale commit
type SaleAck struct {
	ID       string
	Sequence int64
}

// Credentials identify a user at login
type Credentials struct {
	Email    string
	Password string
}

// Session is an issued credential
type Session struct {
	Token     string
	User      identity.User
	ExpiresAt time.Time
}

// TokenSource supplies the credential attached to every call
type TokenSource interface {
	Token() (string, bool)
}

// Gateway performs authenticated calls. It never retries: retry policy
// belongs to the caller.
type Gateway interface {
	Login(ctx context.Context, creds Credentials) (Session, error)
	Logout(ctx context.Context) error

	FetchSnapshot(ctx context.Context) (*Snapshot, error)

	SaveCategory(ctx context.Context, c catalog.Category) (string, error)
	DeleteCategory(ctx context.Context, id string) error
	SaveProduct(ctx context.Context, p catalog.Product) (string, error)
	DeleteProduct(ctx context.Context, id string) error
	SaveProfile(ctx context.Context, p venue.Profile) error

	SaveLine(ctx context.Context, l LineWrite) (string, error)
	DeleteLine(ctx context.Context, id string) error
	ClearTable(ctx context.Context, tableID string) error
	SetLineStatus(ctx context.Context, id string, status order.Status) error
	SetTableMeta(ctx context.Context, tableID string, meta order.TableMeta) error

	CommitSale(ctx context.Context, s sale.Sale) (SaleAck, error)
}
