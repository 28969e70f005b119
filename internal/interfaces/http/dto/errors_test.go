package dto

import (
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeNotFound, http.StatusNotFound},
		{"NOT_FOUND", http.StatusNotFound},
		{"CATEGORY_IN_USE", http.StatusConflict},
		{"DUPLICATE_CODE", http.StatusConflict},
		{"INVALID_INPUT", http.StatusBadRequest},
		{"INSUFFICIENT_PAYMENT", http.StatusUnprocessableEntity},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID("CATEGORY_IN_USE", "in use", "req-1")
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CATEGORY_IN_USE", resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
}

func TestValidate_Line(t *testing.T) {
	valid := LineDTO{TableID: "5", ProductID: "p1", Quantity: 1, Status: "UNCOMMITTED", Mode: "LOCAL", CreatedAt: time.Now()}
	require.NoError(t, Validate(valid))

	tests := []struct {
		name   string
		mutate func(*LineDTO)
		field  string
	}{
		{"zero quantity", func(l *LineDTO) { l.Quantity = 0 }, "LineDTO.quantity"},
		{"non numeric table", func(l *LineDTO) { l.TableID = "patio" }, "LineDTO.table_id"},
		{"unknown status", func(l *LineDTO) { l.Status = "EATEN" }, "LineDTO.status"},
		{"unknown mode", func(l *LineDTO) { l.Mode = "DRONE" }, "LineDTO.mode"},
		{"missing product", func(l *LineDTO) { l.ProductID = "" }, "LineDTO.product_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := valid
			tt.mutate(&l)
			err := Validate(l)
			require.Error(t, err)
			details := Details(err)
			require.Len(t, details, 1)
			assert.Equal(t, tt.field, details[0].Field)
		})
	}
}

func TestValidate_DecimalAmounts(t *testing.T) {
	p := ProductDTO{Code: "A1", Name: "Tacos", Price: decimal.RequireFromString("20.00"), Kind: "FOOD", CategoryID: "c1"}
	require.NoError(t, Validate(p))

	p.Price = decimal.RequireFromString("-0.01")
	err := Validate(p)
	require.Error(t, err)
	assert.Equal(t, "ProductDTO.price", Details(err)[0].Field)
}

func TestValidate_SnapshotDivesIntoCollections(t *testing.T) {
	snap := SnapshotDTO{
		Profile: ProfileDTO{Name: "Cantina", TableCount: 10},
		Sales: []SaleDTO{{
			ID: "s1", Sequence: 1, TableID: "1", Mode: "LOCAL",
			Total: decimal.NewFromInt(20), Tendered: decimal.NewFromInt(20),
		}},
	}
	err := Validate(snap)
	require.Error(t, err, "a sale without details is malformed")

	snap.Sales[0].Details = []SaleDetailDTO{{ProductID: "p1", Quantity: 1, UnitPrice: decimal.NewFromInt(20), Subtotal: decimal.NewFromInt(20)}}
	assert.NoError(t, Validate(snap))

	snap.Profile.TableCount = 0
	assert.Error(t, Validate(snap))
}
