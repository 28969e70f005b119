package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	err := NewDomainError("INSUFFICIENT_PAYMENT", "Tendered 50.00, total is 75.00")

	assert.True(t, errors.Is(err, ErrInsufficientPayment))
	assert.True(t, errors.Is(fmt.Errorf("close table: %w", err), ErrInsufficientPayment))
	assert.False(t, errors.Is(err, ErrInvalidPayment))
	assert.False(t, errors.Is(err, errors.New("INSUFFICIENT_PAYMENT")))
	assert.Equal(t, "Tendered 50.00, total is 75.00", err.Error())
}

func TestDomainError_As(t *testing.T) {
	var de *DomainError
	wrapped := fmt.Errorf("wrap: %w", ErrCategoryInUse)

	assert.True(t, errors.As(wrapped, &de))
	assert.Equal(t, "CATEGORY_IN_USE", de.Code)
}
