package sale

import (
	"fmt"
	"strings"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/domain/order"
	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Synthetic detail line appended to delivery sales
const (
	FeeProductID = "FEE"
	FeeCode      = "SERV"
	FeeName      = "Delivery service"
)

// Sale is a settled table. LocalID never changes; ID starts out equal to it
// and is replaced by the server-assigned id on acknowledgement, together
// with the provisional Sequence.
type Sale struct {
	ID           string
	LocalID      string
	Sequence     int64
	TableID      string
	CustomerName string
	Total        decimal.Decimal
	Tendered     decimal.Decimal
	Change       decimal.Decimal
	UserID       string
	CreatedAt    time.Time
	Mode         order.Mode
	Details      []DetailLine
	Acked        bool
}

// DetailLine snapshots the product at the moment of sale, so later catalog
// edits never alter a historical receipt.
type DetailLine struct {
	ID          string
	SaleID      string
	ProductID   string
	ProductCode string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	Subtotal    decimal.Decimal
	Note        string
}

// IsFee reports whether the detail is the synthetic delivery surcharge
func (d DetailLine) IsFee() bool {
	return d.ProductID == FeeProductID
}

// ParseTendered validates the raw amount typed by the cashier
func ParseTendered(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, shared.NewDomainError("INVALID_PAYMENT", "Amount tendered is required")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, shared.NewDomainError("INVALID_PAYMENT", fmt.Sprintf("Amount tendered %q is not a number", raw))
	}
	if amount.IsNegative() {
		return decimal.Zero, shared.NewDomainError("INVALID_PAYMENT", "Amount tendered cannot be negative")
	}
	return amount, nil
}

// Input is everything needed to settle one table
type Input struct {
	ID           string
	DetailIDs    func() string // defaults to uuid.NewString
	Sequence     int64
	TableID      string
	CustomerName string
	UserID       string
	Mode         order.Mode
	Lines        []order.Line
	DeliveryFee  decimal.Decimal
	Tendered     decimal.Decimal
	Now          time.Time
}

// Build assembles the sale header and its detail lines and checks that the
// amount tendered covers the total. It has no side effects.
func Build(in Input) (*Sale, error) {
	if len(in.Lines) == 0 {
		return nil, shared.ErrEmptyTable
	}
	if in.DetailIDs == nil {
		in.DetailIDs = uuid.NewString
	}

	s := &Sale{
		ID:           in.ID,
		LocalID:      in.ID,
		Sequence:     in.Sequence,
		TableID:      in.TableID,
		CustomerName: in.CustomerName,
		UserID:       in.UserID,
		CreatedAt:    in.Now,
		Mode:         in.Mode,
		Tendered:     in.Tendered,
		Details:      make([]DetailLine, 0, len(in.Lines)+1),
	}

	for _, l := range in.Lines {
		s.Details = append(s.Details, DetailLine{
			ID:          in.DetailIDs(),
			SaleID:      s.ID,
			ProductID:   l.ProductID,
			ProductCode: l.ProductCode,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal(),
			Note:        strings.TrimSpace(l.Note),
		})
	}
	if in.Mode == order.ModeDelivery {
		s.Details = append(s.Details, DetailLine{
			ID:          in.DetailIDs(),
			SaleID:      s.ID,
			ProductID:   FeeProductID,
			ProductCode: FeeCode,
			ProductName: FeeName,
			UnitPrice:   in.DeliveryFee,
			Quantity:    1,
			Subtotal:    in.DeliveryFee,
		})
	}

	s.Total = s.DetailSum()
	if !s.Total.Equal(order.Total(in.Lines, in.Mode, in.DeliveryFee)) {
		return nil, shared.NewDomainError("INVALID_STATE", "Sale detail does not add up to the table total")
	}
	if in.Tendered.LessThan(s.Total) {
		return nil, shared.NewDomainError("INSUFFICIENT_PAYMENT",
			fmt.Sprintf("Amount tendered %s is less than the total %s", in.Tendered.StringFixed(2), s.Total.StringFixed(2)))
	}
	s.Change = in.Tendered.Sub(s.Total)
	return s, nil
}

// DetailSum adds every detail subtotal, fee line included
func (s *Sale) DetailSum() decimal.Decimal {
	sum := decimal.Zero
	for _, d := range s.Details {
		sum = sum.Add(d.Subtotal)
	}
	return sum
}

// Rebind moves the sale and its details onto the server-assigned id
func (s *Sale) Rebind(id string, sequence int64) {
	s.ID = id
	s.Sequence = sequence
	s.Acked = true
	for i := range s.Details {
		s.Details[i].SaleID = id
	}
}
