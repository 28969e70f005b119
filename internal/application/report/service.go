// Package report computes sales analytics from the mirrored sales window.
package report

import (
	"sort"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/application/mirror"
	"github.com/chrisfalcon1208/apprest/internal/domain/sale"
	"github.com/shopspring/decimal"
)

// Range is a half-open time window [From, To). A zero bound is open.
type Range struct {
	From time.Time
	To   time.Time
}

func (r Range) contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// Summary is a count of sales and their revenue
type Summary struct {
	Count   int
	Revenue decimal.Decimal
}

// ProductStat is one row of the best-sellers table
type ProductStat struct {
	ProductID string
	Code      string
	Name      string
	Quantity  int
	Revenue   decimal.Decimal
}

// UserStat is the performance of one cashier
type UserStat struct {
	UserID  string
	Name    string
	Tables  int
	Revenue decimal.Decimal
}

// TableStat is how often a table was settled and for how much
type TableStat struct {
	TableID string
	Sales   int
	Revenue decimal.Decimal
}

// Service computes reports. All figures come from the sales currently
// mirrored, which is the server's most recent window.
type Service struct {
	store *mirror.Store
	loc   *time.Location
	now   func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithLocation sets the time zone days and hours are counted in
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		s.loc = loc
	}
}

// WithClock overrides the clock used for "today"
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		s.now = fn
	}
}

// NewService creates a report Service
func NewService(store *mirror.Store, opts ...Option) *Service {
	s := &Service{store: store, loc: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the range covering the current calendar day
func (s *Service) Today() Range {
	now := s.now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	return Range{From: start, To: start.AddDate(0, 0, 1)}
}

func (s *Service) sales(r Range) []sale.Sale {
	var out []sale.Sale
	for _, sl := range s.store.Sales() {
		if r.contains(sl.CreatedAt) {
			out = append(out, sl)
		}
	}
	return out
}

// TodaySummary counts today's sales
func (s *Service) TodaySummary() Summary {
	return s.Summarize(s.Today())
}

// Summarize counts the sales in r
func (s *Service) Summarize(r Range) Summary {
	sum := Summary{Revenue: decimal.Zero}
	for _, sl := range s.sales(r) {
		sum.Count++
		sum.Revenue = sum.Revenue.Add(sl.Total)
	}
	return sum
}

// AllTimeRevenue adds every mirrored sale
func (s *Service) AllTimeRevenue() decimal.Decimal {
	return s.Summarize(Range{}).Revenue
}

// ByHour returns revenue per hour of day, 0 to 23
func (s *Service) ByHour(r Range) [24]decimal.Decimal {
	var out [24]decimal.Decimal
	for i := range out {
		out[i] = decimal.Zero
	}
	for _, sl := range s.sales(r) {
		h := sl.CreatedAt.In(s.loc).Hour()
		out[h] = out[h].Add(sl.Total)
	}
	return out
}

// ByWeekday returns revenue per weekday, Sunday first
func (s *Service) ByWeekday(r Range) [7]decimal.Decimal {
	var out [7]decimal.Decimal
	for i := range out {
		out[i] = decimal.Zero
	}
	for _, sl := range s.sales(r) {
		d := sl.CreatedAt.In(s.loc).Weekday()
		out[d] = out[d].Add(sl.Total)
	}
	return out
}

// ByMonth returns revenue per month of year, January first
func (s *Service) ByMonth(year int) [12]decimal.Decimal {
	var out [12]decimal.Decimal
	for i := range out {
		out[i] = decimal.Zero
	}
	r := Range{
		From: time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc),
		To:   time.Date(year+1, time.January, 1, 0, 0, 0, 0, s.loc),
	}
	for _, sl := range s.sales(r) {
		m := sl.CreatedAt.In(s.loc).Month() - 1
		out[m] = out[m].Add(sl.Total)
	}
	return out
}

// TopProducts ranks products by units sold in r. The delivery surcharge is
// not a product and is left out.
func (s *Service) TopProducts(r Range, limit int) []ProductStat {
	byID := make(map[string]*ProductStat)
	for _, sl := range s.sales(r) {
		for _, d := range sl.Details {
			if d.IsFee() {
				continue
			}
			st, ok := byID[d.ProductID]
			if !ok {
				st = &ProductStat{ProductID: d.ProductID, Code: d.ProductCode, Name: d.ProductName, Revenue: decimal.Zero}
				byID[d.ProductID] = st
			}
			st.Quantity += d.Quantity
			st.Revenue = st.Revenue.Add(d.Subtotal)
		}
	}

	out := make([]ProductStat, 0, len(byID))
	for _, st := range byID {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].Revenue.GreaterThan(out[j].Revenue)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ByUser returns tables closed and revenue per user, best first
func (s *Service) ByUser(r Range) []UserStat {
	names := make(map[string]string)
	for _, u := range s.store.Users() {
		names[u.ID] = u.Name
	}

	byID := make(map[string]*UserStat)
	for _, sl := range s.sales(r) {
		st, ok := byID[sl.UserID]
		if !ok {
			st = &UserStat{UserID: sl.UserID, Name: names[sl.UserID], Revenue: decimal.Zero}
			byID[sl.UserID] = st
		}
		st.Tables++
		st.Revenue = st.Revenue.Add(sl.Total)
	}

	out := make([]UserStat, 0, len(byID))
	for _, st := range byID {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// ByTable returns how each table was used in r, busiest first
func (s *Service) ByTable(r Range) []TableStat {
	byID := make(map[string]*TableStat)
	for _, sl := range s.sales(r) {
		st, ok := byID[sl.TableID]
		if !ok {
			st = &TableStat{TableID: sl.TableID, Revenue: decimal.Zero}
			byID[sl.TableID] = st
		}
		st.Sales++
		st.Revenue = st.Revenue.Add(sl.Total)
	}

	out := make([]TableStat, 0, len(byID))
	for _, st := range byID {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sales != out[j].Sales {
			return out[i].Sales > out[j].Sales
		}
		return out[i].TableID < out[j].TableID
	})
	return out
}

// History returns the sales in r, highest sequence first, with their lines
func (s *Service) History(r Range) []sale.Sale {
	return s.sales(r)
}
